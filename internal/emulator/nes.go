package emulator

import (
	"fmt"

	"tetra-core/internal/debug"
	"tetra-core/internal/input"
	"tetra-core/internal/nesppu"
	"tetra-core/internal/state"
)

// InterruptSink is implemented by CPU steppers that accept interrupt lines
// from the console assembly.
type InterruptSink interface {
	NMI()
	IRQ(asserted bool)
}

// nesButtonOrder is the controller shift-register order.
var nesButtonOrder = [8]input.Button{
	input.ButtonA, input.ButtonB, input.ButtonSelect, input.ButtonStart,
	input.ButtonUp, input.ButtonDown, input.ButtonLeft, input.ButtonRight,
}

// NES is the 8-bit cartridge console: a 6502-class CPU stepping against a
// small bus, with the dot-accurate picture unit ticking three dots per CPU
// cycle.
type NES struct {
	PPU *nesppu.PPU
	CPU Stepper

	RAM    [2048]uint8
	PRG    []uint8
	PRGRAM [8192]uint8
	CHR    [8192]uint8

	// Nametable RAM with header-selected mirroring.
	ntRAM            [2048]uint8
	verticalMirror   bool

	cycles uint64

	// Controller shift registers.
	strobe  bool
	shift   [2]uint8
	buttons [2]uint8

	openBus uint8

	log *debug.Logger
}

// nesVideoMemory adapts the console's CHR and nametable storage to the
// PPU-side address space.
type nesVideoMemory struct{ n *NES }

func (m nesVideoMemory) Read(addr uint16) uint8 {
	addr &= 0x3FFF
	if addr < 0x2000 {
		return m.n.CHR[addr&0x1FFF]
	}
	return m.n.ntRAM[m.n.mirrorNT(addr)]
}

func (m nesVideoMemory) Write(addr uint16, value uint8) {
	addr &= 0x3FFF
	if addr < 0x2000 {
		m.n.CHR[addr&0x1FFF] = value
		return
	}
	m.n.ntRAM[m.n.mirrorNT(addr)] = value
}

func (n *NES) mirrorNT(addr uint16) uint16 {
	addr &= 0x0FFF
	table := addr / 0x400
	off := addr & 0x3FF
	if n.verticalMirror {
		return (table&1)*0x400 + off
	}
	return (table>>1)*0x400 + off
}

// NewNES assembles the console around a flat program image.
func NewNES(prg, chr []uint8, verticalMirror bool, logger *debug.Logger) *NES {
	n := &NES{
		PRG:            prg,
		verticalMirror: verticalMirror,
		log:            logger,
	}
	copy(n.CHR[:], chr)
	n.PPU = nesppu.NewPPU(nesVideoMemory{n})
	n.CPU = stepperFor(PlatformNES, n)
	if n.CPU == nil {
		n.CPU = &nullStepper{idle: n.Idle}
	}
	return n
}

// Tick charges CPU cycles; the picture unit runs three dots per cycle.
func (n *NES) Tick(cpuCycles int) {
	n.cycles += uint64(cpuCycles)
	for i := 0; i < cpuCycles*3; i++ {
		n.PPU.Tick()
	}
}

// Idle charges idle CPU cycles.
func (n *NES) Idle(cycles int) { n.Tick(cycles) }

// Read8 services a CPU bus read, charging one cycle.
func (n *NES) Read8(addr uint16) uint8 {
	n.Tick(1)
	var v uint8
	switch {
	case addr < 0x2000:
		v = n.RAM[addr&0x07FF]
	case addr < 0x4000:
		v = n.PPU.ReadRegister(addr)
	case addr == 0x4016 || addr == 0x4017:
		v = n.readController(int(addr & 1))
	case addr >= 0x6000 && addr < 0x8000:
		v = n.PRGRAM[addr&0x1FFF]
	case addr >= 0x8000:
		if len(n.PRG) > 0 {
			v = n.PRG[int(addr-0x8000)%len(n.PRG)]
		}
	default:
		// Unmapped: the data bus floats at its last driven value.
		if n.log != nil {
			n.log.Logf(debug.ComponentBus, debug.LogLevelDebug, "open-bus read at $%04X", addr)
		}
		return n.openBus
	}
	n.openBus = v
	return v
}

// Write8 services a CPU bus write, charging one cycle.
func (n *NES) Write8(addr uint16, value uint8) {
	n.Tick(1)
	n.openBus = value
	switch {
	case addr < 0x2000:
		n.RAM[addr&0x07FF] = value
	case addr < 0x4000:
		n.PPU.WriteRegister(addr, value)
	case addr == 0x4014:
		n.oamDMA(value)
	case addr == 0x4016:
		n.writeStrobe(value)
	case addr >= 0x6000 && addr < 0x8000:
		n.PRGRAM[addr&0x1FFF] = value
	}
}

// oamDMA copies a 256-byte page into sprite memory, stalling the CPU for
// the transfer: one read and one write cycle per byte plus one alignment
// cycle.
func (n *NES) oamDMA(page uint8) {
	base := uint16(page) << 8
	var buf [256]uint8
	for i := range buf {
		buf[i] = n.Read8(base + uint16(i))
		n.Tick(1)
	}
	n.PPU.WriteOAMDMA(buf[:])
	n.Tick(1)
}

func (n *NES) writeStrobe(value uint8) {
	n.strobe = value&1 != 0
	if n.strobe {
		n.shift[0] = n.buttons[0]
		n.shift[1] = n.buttons[1]
	}
}

func (n *NES) readController(pad int) uint8 {
	if n.strobe {
		return 0x40 | n.buttons[pad]&1
	}
	v := n.shift[pad] & 1
	n.shift[pad] = n.shift[pad]>>1 | 0x80
	return 0x40 | v
}

// StepFrame drives the CPU to the next frame boundary, delivering the
// vblank NMI when the picture unit raises it.
func (n *NES) StepFrame() error {
	start := n.PPU.FrameCounter
	for n.PPU.FrameCounter == start {
		before := n.cycles
		n.CPU.Step()
		if n.cycles == before {
			n.Idle(1)
		}
		if n.PPU.NMIPending() {
			if sink, ok := n.CPU.(InterruptSink); ok {
				sink.NMI()
			}
		}
	}
	return nil
}

// Frame converts the indexed framebuffer through the master palette,
// applying the emphasis sidechannel.
func (n *NES) Frame() ([]uint32, int, int) {
	out := make([]uint32, len(n.PPU.Framebuffer))
	for i, px := range n.PPU.Framebuffer {
		out[i] = nesPaletteARGB(uint8(px&0x3F), uint8(px>>8&7))
	}
	return out, nesppu.Width, nesppu.Height
}

// DrainAudio returns no samples: the 8-bit console's audio unit is an
// external collaborator, not part of this core.
func (n *NES) DrainAudio() []int16 { return nil }

// SampleRate returns a nominal rate for the audio sink.
func (n *NES) SampleRate() int { return 44100 }

// SetButton updates the controller state.
func (n *NES) SetButton(gi input.GameInput, pressed bool) {
	if gi.Player > 1 {
		return
	}
	for bit, b := range nesButtonOrder {
		if b != gi.Button {
			continue
		}
		if pressed {
			n.buttons[gi.Player] |= 1 << bit
		} else {
			n.buttons[gi.Player] &^= 1 << bit
		}
	}
}

// SaveState serializes the core.
func (n *NES) SaveState() ([]byte, error) {
	w := state.NewWriter()
	w.U8(stateVersion)
	w.U8(uint8(PlatformNES))
	w.Raw(n.RAM[:])
	w.Raw(n.PRGRAM[:])
	w.Raw(n.CHR[:])
	w.Raw(n.ntRAM[:])
	w.Bool(n.verticalMirror)
	w.U64(n.cycles)
	w.Bool(n.strobe)
	w.U8(n.shift[0])
	w.U8(n.shift[1])
	w.U8(n.buttons[0])
	w.U8(n.buttons[1])
	w.U8(n.openBus)
	n.PPU.SaveState(w)
	return w.Bytes()
}

// LoadState restores the core, rolling back on decode failure.
func (n *NES) LoadState(data []byte) error {
	backup, err := n.SaveState()
	if err != nil {
		return err
	}
	if err := n.loadState(data); err != nil {
		if restoreErr := n.loadState(backup); restoreErr != nil {
			return fmt.Errorf("load failed (%w) and rollback failed: %v", err, restoreErr)
		}
		return err
	}
	return nil
}

func (n *NES) loadState(data []byte) error {
	r, err := state.NewReader(data)
	if err != nil {
		return err
	}
	if v := r.U8(); v != stateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, v)
	}
	if p := Platform(r.U8()); p != PlatformNES {
		return fmt.Errorf("snapshot is for platform %s", p)
	}
	r.Raw(n.RAM[:])
	r.Raw(n.PRGRAM[:])
	r.Raw(n.CHR[:])
	r.Raw(n.ntRAM[:])
	n.verticalMirror = r.Bool()
	n.cycles = r.U64()
	n.strobe = r.Bool()
	n.shift[0] = r.U8()
	n.shift[1] = r.U8()
	n.buttons[0] = r.U8()
	n.buttons[1] = r.U8()
	n.openBus = r.U8()
	n.PPU.LoadState(r)
	return r.Err()
}

// Reset performs a console reset.
func (n *NES) Reset(hard bool) {
	if hard {
		n.RAM = [2048]uint8{}
		n.ntRAM = [2048]uint8{}
	}
	n.PPU.Reset(hard)
	n.CPU.Reset(hard)
	n.strobe = false
	n.shift = [2]uint8{}
}

// FlushSave is a no-op until a battery-backed board is attached.
func (n *NES) FlushSave() error { return nil }
