package emulator

import (
	"fmt"

	"tetra-core/internal/debug"
	"tetra-core/internal/input"
	"tetra-core/internal/state"
	"tetra-core/internal/vdp"
)

// Main-CPU cycles per scanline on the 68000-class console.
const genesisCyclesPerLine = 488

// genesisPadBits maps logical buttons to the 3-button pad matrix, split
// across the two TH phases.
var genesisPadBits = map[input.Button]uint8{
	input.ButtonUp:    1 << 0,
	input.ButtonDown:  1 << 1,
	input.ButtonLeft:  1 << 2,
	input.ButtonRight: 1 << 3,
	input.ButtonB:     1 << 4,
	input.ButtonC:     1 << 5,
	input.ButtonA:     1 << 6,
	input.ButtonStart: 1 << 7,
}

// Genesis is the 16-bit cartridge console with a 68000-class main CPU, a
// Z80-class sound coprocessor and the cell-based video display processor.
type Genesis struct {
	VDP  *vdp.VDP
	M68K Stepper
	Z80  Stepper

	ROM    []uint8
	RAM    [64 << 10]uint8
	Z80RAM [8 << 10]uint8
	SRAM   [32 << 10]uint8

	// Pad state and the TH select lines.
	buttons [2]uint8
	padTH   [2]bool

	z80BusReq bool
	z80Reset  bool

	cycles    uint64
	lineCycle uint64

	log *debug.Logger
}

// NewGenesis assembles the console around a program image.
func NewGenesis(rom []uint8, logger *debug.Logger) *Genesis {
	g := &Genesis{
		VDP: vdp.NewVDP(vdp.ModeGenesis),
		ROM: rom,
		log: logger,
	}
	g.M68K = stepperFor(PlatformGenesis, g)
	if g.M68K == nil {
		g.M68K = &nullStepper{idle: g.Idle}
	}
	// The sound-coprocessor core is external like the main CPU; without
	// one the coprocessor idles.
	g.Z80 = &nullStepper{idle: func(int) {}}
	return g
}

// Tick charges main-CPU cycles.
func (g *Genesis) Tick(cycles int) {
	g.cycles += uint64(cycles)
	g.lineCycle += uint64(cycles)
}

// Idle charges idle cycles.
func (g *Genesis) Idle(cycles int) { g.Tick(cycles) }

// Read16 services a main-CPU word read, charging four cycles.
func (g *Genesis) Read16(addr uint32) uint16 {
	g.Tick(4)
	switch {
	case addr+1 < uint32(len(g.ROM)):
		return uint16(g.ROM[addr])<<8 | uint16(g.ROM[addr+1])
	case addr >= 0xE00000:
		off := addr & 0xFFFF &^ 1
		return uint16(g.RAM[off])<<8 | uint16(g.RAM[off+1])
	case addr == 0xC00000 || addr == 0xC00002:
		return g.VDP.ReadData()
	case addr == 0xC00004 || addr == 0xC00006:
		return g.VDP.ReadStatus()
	case addr == 0xC00008:
		return g.VDP.HVCounter(int(g.lineCycle / 2))
	case addr >= 0xA00000 && addr < 0xA02000:
		return uint16(g.Z80RAM[addr&0x1FFF])
	case addr == 0xA10002 || addr == 0xA10004:
		pad := int(addr-0xA10002) >> 1
		return uint16(g.readPad(pad))
	case addr == 0xA11100:
		// Z80 bus grant: 0 when granted.
		if g.z80BusReq {
			return 0
		}
		return 0x0100
	}
	if g.log != nil {
		g.log.Logf(debug.ComponentBus, debug.LogLevelDebug, "unmapped 68k read at $%06X", addr)
	}
	return 0
}

// Write16 services a main-CPU word write, charging four cycles.
func (g *Genesis) Write16(addr uint32, value uint16) {
	g.Tick(4)
	switch {
	case addr >= 0xE00000:
		off := addr & 0xFFFF &^ 1
		g.RAM[off] = uint8(value >> 8)
		g.RAM[off+1] = uint8(value)
	case addr == 0xC00000 || addr == 0xC00002:
		g.VDP.WriteData(value)
	case addr == 0xC00004 || addr == 0xC00006:
		g.VDP.WriteControl(value)
	case addr >= 0xA00000 && addr < 0xA02000:
		g.Z80RAM[addr&0x1FFF] = uint8(value)
	case addr == 0xA10002 || addr == 0xA10004:
		pad := int(addr-0xA10002) >> 1
		g.padTH[pad] = value&0x40 != 0
	case addr == 0xA11100:
		g.z80BusReq = value&0x0100 != 0
	case addr == 0xA11200:
		g.z80Reset = value&0x0100 == 0
	}
}

// readPad returns the 3-button pad matrix for the current TH phase.
func (g *Genesis) readPad(pad int) uint8 {
	b := g.buttons[pad]
	if g.padTH[pad] {
		// TH high: up/down/left/right + B/C.
		return 0x40 | ^b&0x3F
	}
	// TH low: up/down + A/Start on bits 4-5.
	low := ^b & 0x03
	if b&genesisPadBits[input.ButtonA] == 0 {
		low |= 1 << 4
	}
	if b&genesisPadBits[input.ButtonStart] == 0 {
		low |= 1 << 5
	}
	return low
}

// StepFrame runs the machine line by line: the main CPU gets its cycle
// budget, the sound coprocessor runs unless bus-requested or held in reset,
// then the video processor renders the line and raises interrupts.
func (g *Genesis) StepFrame() error {
	for {
		for g.lineCycle < genesisCyclesPerLine {
			before := g.cycles
			g.M68K.Step()
			if g.cycles == before {
				g.Idle(4)
			}
		}
		g.lineCycle -= genesisCyclesPerLine

		if !g.z80BusReq && !g.z80Reset {
			g.Z80.Step()
		}

		vint, hint := g.VDP.RunLine()
		if sink, ok := g.M68K.(InterruptSink); ok {
			if vint {
				sink.NMI()
			}
			sink.IRQ(hint)
		}

		if g.VDP.FrameDone() {
			return nil
		}
	}
}

// Frame returns the rendered frame as packed ARGB.
func (g *Genesis) Frame() ([]uint32, int, int) {
	w, h := g.VDP.Width(), g.VDP.Height()
	out := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = bgr555ToARGB(g.VDP.Framebuffer[y*vdp.MaxWidth+x])
		}
	}
	return out, w, h
}

// DrainAudio returns no samples: the FM and PSG units are external
// collaborators, not part of this core.
func (g *Genesis) DrainAudio() []int16 { return nil }

// SampleRate returns a nominal rate for the audio sink.
func (g *Genesis) SampleRate() int { return 44100 }

// SetButton updates the pad matrix.
func (g *Genesis) SetButton(gi input.GameInput, pressed bool) {
	if gi.Player > 1 {
		return
	}
	bit, ok := genesisPadBits[gi.Button]
	if !ok {
		return
	}
	if pressed {
		g.buttons[gi.Player] |= bit
	} else {
		g.buttons[gi.Player] &^= bit
	}
}

// SaveState serializes the core.
func (g *Genesis) SaveState() ([]byte, error) {
	w := state.NewWriter()
	w.U8(stateVersion)
	w.U8(uint8(PlatformGenesis))
	w.Raw(g.RAM[:])
	w.Raw(g.Z80RAM[:])
	w.Raw(g.SRAM[:])
	w.U8(g.buttons[0])
	w.U8(g.buttons[1])
	w.Bool(g.padTH[0])
	w.Bool(g.padTH[1])
	w.Bool(g.z80BusReq)
	w.Bool(g.z80Reset)
	w.U64(g.cycles)
	w.U64(g.lineCycle)
	g.VDP.SaveState(w)
	return w.Bytes()
}

// LoadState restores the core, rolling back on decode failure.
func (g *Genesis) LoadState(data []byte) error {
	backup, err := g.SaveState()
	if err != nil {
		return err
	}
	if err := g.loadState(data); err != nil {
		if restoreErr := g.loadState(backup); restoreErr != nil {
			return fmt.Errorf("load failed (%w) and rollback failed: %v", err, restoreErr)
		}
		return err
	}
	return nil
}

func (g *Genesis) loadState(data []byte) error {
	r, err := state.NewReader(data)
	if err != nil {
		return err
	}
	if v := r.U8(); v != stateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, v)
	}
	if p := Platform(r.U8()); p != PlatformGenesis {
		return fmt.Errorf("snapshot is for platform %s", p)
	}
	r.Raw(g.RAM[:])
	r.Raw(g.Z80RAM[:])
	r.Raw(g.SRAM[:])
	g.buttons[0] = r.U8()
	g.buttons[1] = r.U8()
	g.padTH[0] = r.Bool()
	g.padTH[1] = r.Bool()
	g.z80BusReq = r.Bool()
	g.z80Reset = r.Bool()
	g.cycles = r.U64()
	g.lineCycle = r.U64()
	g.VDP.LoadState(r)
	return r.Err()
}

// Reset performs a console reset.
func (g *Genesis) Reset(hard bool) {
	if hard {
		g.RAM = [64 << 10]uint8{}
		g.Z80RAM = [8 << 10]uint8{}
	}
	g.M68K.Reset(hard)
	g.Z80.Reset(hard)
	g.z80BusReq = false
	g.z80Reset = true
	g.lineCycle = 0
}

// FlushSave is a no-op until a battery-backed board is attached.
func (g *Genesis) FlushSave() error { return nil }
