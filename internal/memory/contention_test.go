package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tetra-core/internal/clock"
)

// stubVideo holds the palette busy until a fixed cycle and commits one
// pending palette write when its catch-up passes the write cycle, modelling
// a renderer mid-line.
type stubVideo struct {
	syncedTo  uint64
	releaseAt uint64

	palette [512]uint16

	writeAt   uint64
	writeAddr uint32
	writeVal  uint16
	writeDone bool
}

func (v *stubVideo) SyncTo(cycle uint64) {
	if !v.writeDone && cycle >= v.writeAt {
		v.palette[(v.writeAddr%1024)/2] = v.writeVal
		v.writeDone = true
	}
	v.syncedTo = cycle
}

func (v *stubVideo) HandleEvent(ev clock.Event, now uint64) {}

func (v *stubVideo) Busy(r VideoRegion) bool {
	return r == RegionPalette && v.syncedTo < v.releaseAt
}

func (v *stubVideo) ReadRegister(offset uint32) uint16         { return 0 }
func (v *stubVideo) WriteRegister(offset uint32, value uint16) {}

func (v *stubVideo) ReadPalette(addr uint32) uint16 {
	return v.palette[(addr%1024)/2]
}

func (v *stubVideo) WritePalette(addr uint32, value uint16) {
	v.palette[(addr%1024)/2] = value
}

func (v *stubVideo) ReadVRAM(addr uint32) uint16          { return 0 }
func (v *stubVideo) WriteVRAM(addr uint32, value uint16)  {}
func (v *stubVideo) ReadOAM(addr uint32) uint16           { return 0 }
func (v *stubVideo) WriteOAM(addr uint32, value uint16)   {}

func TestPaletteReadStallsUntilVideoReleases(t *testing.T) {
	cart := NewCartridge()
	require.NoError(t, cart.LoadROM(make([]uint8, 0x100)))
	b := NewBus(cart, clock.NewScheduler(), nil)

	video := &stubVideo{}
	b.Video = video

	// Advance to a known point, then start a stall window: the video
	// holds the palette for 50 more cycles and commits a write 30 cycles
	// in.
	b.InternalCycles(100)
	start := b.Cycles
	video.releaseAt = start + 50
	video.writeAt = start + 30
	video.writeAddr = 0
	video.writeVal = 0x7FFF

	got := b.ReadHalf(0x05000000, NonSequential)

	// The CPU stalled past the release point, and the value reflects the
	// write the video committed during the stall.
	require.GreaterOrEqual(t, b.Cycles, video.releaseAt)
	require.Equal(t, uint32(0x7FFF), got)
}

func TestPaletteAccessWithoutContention(t *testing.T) {
	cart := NewCartridge()
	require.NoError(t, cart.LoadROM(make([]uint8, 0x100)))
	b := NewBus(cart, clock.NewScheduler(), nil)
	b.Video = &stubVideo{}

	start := b.Cycles
	b.WriteHalf(0x05000000, 0x1234, NonSequential)
	require.Equal(t, uint64(1), b.Cycles-start)
	require.Equal(t, uint32(0x1234), b.ReadHalf(0x05000000, NonSequential))
}
