package ppu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tetra-core/internal/clock"
	"tetra-core/internal/memory"
	"tetra-core/internal/state"
)

func newStateWriter() *state.Writer { return state.NewWriter() }

func newStateReader(t *testing.T, data []byte) *state.Reader {
	t.Helper()
	r, err := state.NewReader(data)
	require.NoError(t, err)
	return r
}

func newTestPPU() (*PPU, *clock.Scheduler) {
	s := clock.NewScheduler()
	return NewPPU(s, nil), s
}

func TestWindowBothDisabledAlwaysFalse(t *testing.T) {
	p, _ := newTestPPU()
	p.win0 = winRange{left: 0, right: 255}
	p.win1 = winRange{left: 0, right: 255}

	for logic := 0; logic < 4; logic++ {
		p.winLog = uint16(logic) // layer 0 operator
		for x := 0; x < ActiveWidth; x++ {
			require.False(t, p.windowMasked(0, x), "logic %d x %d", logic, x)
		}
	}
}

func TestWindowSingleWindow(t *testing.T) {
	p, _ := newTestPPU()
	p.win0 = winRange{left: 10, right: 20}
	p.winSelA = winEnable1 // BG0, window 1 inside

	require.False(t, p.windowMasked(0, 9))
	require.True(t, p.windowMasked(0, 10))
	require.True(t, p.windowMasked(0, 20))
	require.False(t, p.windowMasked(0, 21))

	// Outside mode inverts the range.
	p.winSelA = winEnable1 | winInvert1
	require.True(t, p.windowMasked(0, 9))
	require.False(t, p.windowMasked(0, 15))
}

func TestWindowCombineOperators(t *testing.T) {
	p, _ := newTestPPU()
	p.win0 = winRange{left: 0, right: 15}
	p.win1 = winRange{left: 8, right: 23}
	p.winSelA = winEnable1 | winEnable2

	cases := []struct {
		logic      uint16
		in0, inBoth, in1, out bool
	}{
		{winLogicOR, true, true, true, false},
		{winLogicAND, false, true, false, false},
		{winLogicXOR, true, false, true, false},
		{winLogicXNOR, false, true, false, true},
	}
	for _, c := range cases {
		p.winLog = c.logic
		require.Equal(t, c.in0, p.windowMasked(0, 4), "logic %d, window 0 only", c.logic)
		require.Equal(t, c.inBoth, p.windowMasked(0, 12), "logic %d, overlap", c.logic)
		require.Equal(t, c.in1, p.windowMasked(0, 20), "logic %d, window 1 only", c.logic)
		require.Equal(t, c.out, p.windowMasked(0, 100), "logic %d, neither", c.logic)
	}
}

func TestColorMathAddSubtractHalfClamp(t *testing.T) {
	// 5-bit channels: r=20, g=10, b=0 plus r=20, g=10, b=0.
	main := uint16(20) | 10<<5
	sub := uint16(20) | 10<<5

	sum := colorMath(main, sub, false, false)
	require.Equal(t, uint16(31), sum&0x1F, "red clamps at 31")
	require.Equal(t, uint16(20), sum>>5&0x1F)

	half := colorMath(main, sub, false, true)
	require.Equal(t, uint16(20), half&0x1F)
	require.Equal(t, uint16(10), half>>5&0x1F)

	diff := colorMath(main, sub, true, false)
	require.Equal(t, uint16(0), diff, "subtraction saturates at zero")
}

func TestApplyBrightness(t *testing.T) {
	color := uint16(31) | 16<<5 | 8<<10
	require.Equal(t, color, applyBrightness(color, 15))
	require.Equal(t, uint16(15|8<<5|4<<10), applyBrightness(color, 7))
	require.Equal(t, uint16(1|1<<5), applyBrightness(color, 0))
}

func TestRasterFrameProgression(t *testing.T) {
	p, _ := newTestPPU()
	p.PowerOn(0)
	p.dispcnt = 1 << 7 // forced blank keeps rendering out of the way

	// Advance to just before vblank.
	p.SyncTo(uint64(ActiveHeight)*cyclesPerLine - 1)
	require.False(t, p.FrameComplete())
	require.Zero(t, p.dispstat&statVBlank)

	p.SyncTo(uint64(ActiveHeight) * cyclesPerLine)
	require.NotZero(t, p.dispstat&statVBlank)
	require.True(t, p.FrameComplete())
	require.False(t, p.FrameComplete(), "flag clears on read")

	// A full frame wraps the raster and toggles frame parity.
	require.False(t, p.oddFrame)
	p.SyncTo(cyclesPerFrame)
	require.True(t, p.oddFrame)
	require.Zero(t, p.scanline)
	require.Equal(t, uint64(1), p.FrameCounter)
}

func TestVCountMatchFlag(t *testing.T) {
	p, _ := newTestPPU()
	p.dispcnt = 1 << 7
	p.WriteRegister(regDispStat, 100<<8)

	p.SyncTo(99 * cyclesPerLine)
	require.Zero(t, p.ReadRegister(regDispStat)&statVCountMatch)
	p.SyncTo(100 * cyclesPerLine)
	require.NotZero(t, p.ReadRegister(regDispStat)&statVCountMatch)
	p.SyncTo(101 * cyclesPerLine)
	require.Zero(t, p.ReadRegister(regDispStat)&statVCountMatch)
}

func TestVBlankEventHandled(t *testing.T) {
	p, sched := newTestPPU()
	p.dispcnt = 1 << 7
	p.PowerOn(0)
	p.WriteRegister(regDispStat, statVBlankIRQ)

	// Pump the scheduler the way the bus does and confirm the vblank
	// event fires exactly once per frame.
	var fired int
	for cycle := uint64(0); cycle < 2*cyclesPerFrame; cycle += cyclesPerLine {
		for {
			ev, ok := sched.Pop(cycle)
			if !ok {
				break
			}
			if ev.Kind == clock.EventVBlankIRQ {
				fired++
			}
			p.HandleEvent(ev, cycle)
		}
	}
	require.Equal(t, 2, fired)
}

func TestBusyFollowsRaster(t *testing.T) {
	p, _ := newTestPPU()
	p.PowerOn(0)

	// Mid active line: all video regions are held.
	p.SyncTo(10 * CyclesPerDot)
	require.True(t, p.Busy(memory.RegionVRAM))
	require.True(t, p.Busy(memory.RegionPalette))
	require.True(t, p.Busy(memory.RegionOAM))

	// Hblank releases them.
	p.SyncTo(uint64(activeDots+2) * CyclesPerDot)
	require.False(t, p.Busy(memory.RegionVRAM))

	// Vblank releases them for whole lines.
	p.SyncTo(uint64(ActiveHeight)*cyclesPerLine + 10*CyclesPerDot)
	require.False(t, p.Busy(memory.RegionPalette))

	// Forced blanking releases them unconditionally.
	p.SyncTo(uint64(linesPerFrame) * cyclesPerLine) // wrap to line 0
	p.SyncTo(uint64(linesPerFrame)*cyclesPerLine + 10*CyclesPerDot)
	require.True(t, p.Busy(memory.RegionVRAM))
	p.dispcnt |= 1 << 7
	require.False(t, p.Busy(memory.RegionVRAM))
}

// writeTile4bpp writes a solid 4 bpp tile filled with the given color index.
func writeTile4bpp(p *PPU, chrBase uint32, tile uint32, colorIdx uint8) {
	for fy := uint32(0); fy < 8; fy++ {
		base := chrBase + tile*32 + fy*2
		var b0, b1, b2, b3 uint8
		if colorIdx&1 != 0 {
			b0 = 0xFF
		}
		if colorIdx&2 != 0 {
			b1 = 0xFF
		}
		if colorIdx&4 != 0 {
			b2 = 0xFF
		}
		if colorIdx&8 != 0 {
			b3 = 0xFF
		}
		p.VRAM[base] = b0
		p.VRAM[base+1] = b1
		p.VRAM[base+16] = b2
		p.VRAM[base+17] = b3
	}
}

func TestBackgroundLineRendering(t *testing.T) {
	p, _ := newTestPPU()
	p.dispcnt = 1 | 15<<8    // mode 1, full brightness
	p.tMain = 1              // BG0 on main screen
	p.BG[0].Control = 8 << 8 // chr base 0, screen base 0x4000
	writeTile4bpp(p, 0, 1, 3)
	// Tilemap entry (0,0): tile 1, palette 2.
	entry := uint16(1) | 2<<10
	p.VRAM[0x4000] = uint8(entry)
	p.VRAM[0x4001] = uint8(entry >> 8)
	p.CGRAM[2*16+3] = 0x03E0 // green

	p.renderLine(0)
	require.Equal(t, uint16(0x03E0), p.Framebuffer[0])
	require.Equal(t, uint16(0x03E0), p.Framebuffer[7])
	// The next tile is empty: backdrop (palette entry 0) shows through.
	require.Equal(t, p.CGRAM[0], p.Framebuffer[8])
}

func TestBackgroundScrollAndFlip(t *testing.T) {
	p, _ := newTestPPU()
	p.dispcnt = 1 | 15<<8
	p.tMain = 1
	p.BG[0].Control = 8 << 8
	// Tile 1: left half color 1, right half color 2.
	for fy := uint32(0); fy < 8; fy++ {
		base := uint32(32) + fy*2
		p.VRAM[base] = 0xF0   // plane 0: left pixels
		p.VRAM[base+16] = 0x0F // plane 2 gives color 4 on right
	}
	entry := uint16(1)
	p.VRAM[0x4000] = uint8(entry)
	p.VRAM[0x4001] = uint8(entry >> 8)
	p.CGRAM[1] = 0x001F
	p.CGRAM[4] = 0x7C00

	p.renderLine(0)
	require.Equal(t, uint16(0x001F), p.Framebuffer[0], "left half color 1")
	require.Equal(t, uint16(0x7C00), p.Framebuffer[4], "right half color 4")

	// Horizontal flip swaps the halves.
	p.VRAM[0x4001] |= 1 << 6 // bit 14 of the entry
	p.renderLine(0)
	require.Equal(t, uint16(0x7C00), p.Framebuffer[0])
	require.Equal(t, uint16(0x001F), p.Framebuffer[4])

	// Scrolling by 4 shifts the sampled column.
	p.VRAM[0x4001] &^= 1 << 6
	p.BG[0].HOfs = 4
	p.renderLine(0)
	require.Equal(t, uint16(0x7C00), p.Framebuffer[0])
}

func TestMode7IdentityMapping(t *testing.T) {
	p, _ := newTestPPU()
	p.dispcnt = 7 | 15<<8
	p.tMain = 1
	p.m7a = 0x100 // identity
	p.m7d = 0x100

	// Tilemap (0,0) selects tile 5; tile 5 pixel (3,0) has color 9.
	p.VRAM[0] = 5
	p.VRAM[5*128+3*2+1] = 9
	p.CGRAM[9] = 0x7FFF

	var buf [ActiveWidth]pix
	p.renderMode7Line(0, &buf)
	require.True(t, buf[3].opaque)
	require.Equal(t, uint16(0x7FFF), buf[3].color)
	require.False(t, buf[4].opaque)
}

func TestMode7OutOfBoundsPolicies(t *testing.T) {
	p, _ := newTestPPU()
	p.m7a = 0x100
	p.m7d = 0x100
	p.BG[0].HOfs = 0x3FF // scroll to the right edge: column 1 maps to 1024
	p.CGRAM[9] = 0x7FFF

	// Map cell (0,0) points at tile 5 (blank); tile 0's pixel (0,0) has
	// color 9, so only the tile-0 policy can produce it.
	p.VRAM[0] = 5
	p.VRAM[1] = 9

	// Wrap policy: 1024 wraps to texture column 0, tile 5, blank.
	p.m7cnt = m7OOBWrap
	var buf [ActiveWidth]pix
	p.renderMode7Line(0, &buf)
	require.False(t, buf[1].opaque)

	// Transparent policy: nothing drawn.
	p.m7cnt = m7OOBTransparent
	buf = [ActiveWidth]pix{}
	p.renderMode7Line(0, &buf)
	require.False(t, buf[1].opaque)

	// Tile-0 policy: samples character 0.
	p.m7cnt = m7OOBTile0
	buf = [ActiveWidth]pix{}
	p.renderMode7Line(0, &buf)
	require.True(t, buf[1].opaque)
	require.Equal(t, uint16(0x7FFF), buf[1].color)
}

func TestSpriteLineLimit(t *testing.T) {
	p, _ := newTestPPU()
	p.tMain = 1 << layerOBJ
	// 4 bpp tile 1 solid color 1 at the sprite character base.
	writeTile4bpp(p, 0, 1, 1)
	p.CGRAM[128+1] = 0x7FFF

	// 36 sprites on line 0, seven pixels apart so each has a column of
	// its own.
	for i := 0; i < 36; i++ {
		p.OAM[i*4] = uint8(i * 7) // x
		p.OAM[i*4+1] = 0          // y
		p.OAM[i*4+2] = 1          // tile
		p.OAM[i*4+3] = 0          // attr
	}

	var buf [ActiveWidth]pix
	p.renderSpriteLine(0, &buf)
	require.True(t, buf[31*7].opaque, "sprite 31 drawn")
	require.False(t, buf[32*7+3].opaque, "sprite 32 dropped by the line limit")

	p.RemoveSpriteLimit = true
	buf = [ActiveWidth]pix{}
	p.renderSpriteLine(0, &buf)
	require.True(t, buf[32*7+3].opaque, "limit removed")
	require.True(t, buf[35*7].opaque)
}

func TestSpritePriorityBetweenSprites(t *testing.T) {
	p, _ := newTestPPU()
	writeTile4bpp(p, 0, 1, 1)
	writeTile4bpp(p, 0, 2, 2)
	p.CGRAM[128+1] = 0x001F
	p.CGRAM[128+2] = 0x7C00

	// Two overlapping sprites; the lower OAM index wins.
	p.OAM[0] = 0
	p.OAM[1] = 0
	p.OAM[2] = 1
	p.OAM[3] = 0
	p.OAM[4] = 0
	p.OAM[5] = 0
	p.OAM[6] = 2
	p.OAM[7] = 0

	var buf [ActiveWidth]pix
	p.renderSpriteLine(0, &buf)
	require.Equal(t, uint16(0x001F), buf[0].color)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, _ := newTestPPU()
	p.dispcnt = 3 | 12<<8
	p.BG[1].HOfs = 0x123
	p.VRAM[0x1234] = 0xAB
	p.CGRAM[7] = 0x7C1F
	p.OAM[13] = 0x55
	p.scanline = 100
	p.dot = 42
	p.FrameCounter = 9

	w := newStateWriter()
	p.SaveState(w)
	first, err := w.Bytes()
	require.NoError(t, err)

	q, _ := newTestPPU()
	r := newStateReader(t, first)
	q.LoadState(r)
	require.NoError(t, r.Err())

	w2 := newStateWriter()
	q.SaveState(w2)
	second, err := w2.Bytes()
	require.NoError(t, err)
	require.Equal(t, first, second, "save/load/save is a fixed point")

	require.Equal(t, uint8(0xAB), q.VRAM[0x1234])
	require.Equal(t, 100, q.scanline)
}
