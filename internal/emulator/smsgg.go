package emulator

import (
	"fmt"

	"tetra-core/internal/input"
	"tetra-core/internal/state"
	"tetra-core/internal/vdp"
)

// Z80 cycles per scanline on the 8-bit consoles.
const smsCyclesPerLine = 228

// smsPortBits maps logical buttons into the two I/O port registers; the
// value is port<<8 | bit.
var smsPortBits = map[input.GameInput]uint16{
	{Player: 0, Button: input.ButtonUp}:    0x0001,
	{Player: 0, Button: input.ButtonDown}:  0x0002,
	{Player: 0, Button: input.ButtonLeft}:  0x0004,
	{Player: 0, Button: input.ButtonRight}: 0x0008,
	{Player: 0, Button: input.ButtonA}:     0x0010, // button 1
	{Player: 0, Button: input.ButtonB}:     0x0020, // button 2
	{Player: 1, Button: input.ButtonUp}:    0x0140,
	{Player: 1, Button: input.ButtonDown}:  0x0180,
	{Player: 1, Button: input.ButtonLeft}:  0x0101,
	{Player: 1, Button: input.ButtonRight}: 0x0102,
	{Player: 1, Button: input.ButtonA}:     0x0104,
	{Player: 1, Button: input.ButtonB}:     0x0108,
	{Player: 0, Button: input.ButtonStart}: 0x0180, // handheld start
}

// SMSGG is the 8-bit cartridge console with a Z80-class CPU and the legacy
// video display processor; the handheld variant differs in palette depth
// and viewport.
type SMSGG struct {
	VDP *vdp.VDP
	CPU Stepper

	ROM  []uint8
	RAM  [8 << 10]uint8
	SRAM [32 << 10]uint8

	ports [2]uint8

	cycles    uint64
	lineCycle uint64
}

// NewSMSGG assembles the console.
func NewSMSGG(rom []uint8, gameGear bool) *SMSGG {
	mode := vdp.ModeMasterSystem
	if gameGear {
		mode = vdp.ModeGameGear
	}
	s := &SMSGG{
		VDP:   vdp.NewVDP(mode),
		ROM:   rom,
		ports: [2]uint8{0xFF, 0xFF},
	}
	s.CPU = stepperFor(PlatformSMSGG, s)
	if s.CPU == nil {
		s.CPU = &nullStepper{idle: s.Idle}
	}
	return s
}

// Tick charges CPU cycles.
func (s *SMSGG) Tick(cycles int) {
	s.cycles += uint64(cycles)
	s.lineCycle += uint64(cycles)
}

// Idle charges idle cycles.
func (s *SMSGG) Idle(cycles int) { s.Tick(cycles) }

// Read8 services a memory read, charging three cycles.
func (s *SMSGG) Read8(addr uint16) uint8 {
	s.Tick(3)
	switch {
	case addr < 0xC000:
		if len(s.ROM) == 0 {
			return 0xFF
		}
		return s.ROM[int(addr)%len(s.ROM)]
	default:
		return s.RAM[addr&0x1FFF]
	}
}

// Write8 services a memory write, charging three cycles.
func (s *SMSGG) Write8(addr uint16, value uint8) {
	s.Tick(3)
	if addr >= 0xC000 {
		s.RAM[addr&0x1FFF] = value
	}
}

// In services an I/O port read.
func (s *SMSGG) In(port uint8) uint8 {
	s.Tick(4)
	switch {
	case port == 0x7E:
		return uint8(s.VDP.Line())
	case port == 0xBE:
		return uint8(s.VDP.ReadData())
	case port == 0xBF:
		return uint8(s.VDP.ReadStatus() >> 8)
	case port == 0xDC:
		return s.ports[0]
	case port == 0xDD:
		return s.ports[1]
	}
	return 0xFF
}

// Out services an I/O port write.
func (s *SMSGG) Out(port uint8, value uint8) {
	s.Tick(4)
	switch port {
	case 0xBE:
		s.VDP.WriteDataByte(value)
	case 0xBF:
		s.VDP.WriteControlByte(value)
	}
}

// StepFrame runs the machine line by line.
func (s *SMSGG) StepFrame() error {
	for {
		for s.lineCycle < smsCyclesPerLine {
			before := s.cycles
			s.CPU.Step()
			if s.cycles == before {
				s.Idle(4)
			}
		}
		s.lineCycle -= smsCyclesPerLine

		vint, hint := s.VDP.RunLine()
		if sink, ok := s.CPU.(InterruptSink); ok {
			sink.IRQ(vint || hint)
		}
		if s.VDP.FrameDone() {
			return nil
		}
	}
}

// Frame returns the rendered frame. The handheld viewport crops the center
// 160x144 of the picture.
func (s *SMSGG) Frame() ([]uint32, int, int) {
	w, h := 256, s.VDP.Height()
	x0, y0 := 0, 0
	if s.VDP.Mode == vdp.ModeGameGear {
		w, h = 160, 144
		x0, y0 = 48, 24
	}
	out := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = bgr555ToARGB(s.VDP.Framebuffer[(y+y0)*vdp.MaxWidth+x+x0])
		}
	}
	return out, w, h
}

// DrainAudio returns no samples: the PSG is an external collaborator.
func (s *SMSGG) DrainAudio() []int16 { return nil }

// SampleRate returns a nominal rate for the audio sink.
func (s *SMSGG) SampleRate() int { return 44100 }

// SetButton updates the active-low port registers.
func (s *SMSGG) SetButton(gi input.GameInput, pressed bool) {
	pb, ok := smsPortBits[gi]
	if !ok {
		return
	}
	port := int(pb >> 8)
	bit := uint8(pb)
	if pressed {
		s.ports[port] &^= bit
	} else {
		s.ports[port] |= bit
	}
}

// SaveState serializes the core.
func (s *SMSGG) SaveState() ([]byte, error) {
	w := state.NewWriter()
	w.U8(stateVersion)
	w.U8(uint8(PlatformSMSGG))
	w.Raw(s.RAM[:])
	w.Raw(s.SRAM[:])
	w.U8(s.ports[0])
	w.U8(s.ports[1])
	w.U64(s.cycles)
	w.U64(s.lineCycle)
	s.VDP.SaveState(w)
	return w.Bytes()
}

// LoadState restores the core, rolling back on decode failure.
func (s *SMSGG) LoadState(data []byte) error {
	backup, err := s.SaveState()
	if err != nil {
		return err
	}
	if err := s.loadState(data); err != nil {
		if restoreErr := s.loadState(backup); restoreErr != nil {
			return fmt.Errorf("load failed (%w) and rollback failed: %v", err, restoreErr)
		}
		return err
	}
	return nil
}

func (s *SMSGG) loadState(data []byte) error {
	r, err := state.NewReader(data)
	if err != nil {
		return err
	}
	if v := r.U8(); v != stateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, v)
	}
	if p := Platform(r.U8()); p != PlatformSMSGG {
		return fmt.Errorf("snapshot is for platform %s", p)
	}
	r.Raw(s.RAM[:])
	r.Raw(s.SRAM[:])
	s.ports[0] = r.U8()
	s.ports[1] = r.U8()
	s.cycles = r.U64()
	s.lineCycle = r.U64()
	s.VDP.LoadState(r)
	return r.Err()
}

// Reset performs a console reset.
func (s *SMSGG) Reset(hard bool) {
	if hard {
		s.RAM = [8 << 10]uint8{}
	}
	s.CPU.Reset(hard)
	s.lineCycle = 0
}

// FlushSave is a no-op until a battery-backed board is attached.
func (s *SMSGG) FlushSave() error { return nil }
