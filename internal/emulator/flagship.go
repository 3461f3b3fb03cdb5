package emulator

import (
	"fmt"

	"tetra-core/internal/apu"
	"tetra-core/internal/clock"
	"tetra-core/internal/debug"
	"tetra-core/internal/input"
	"tetra-core/internal/memory"
	"tetra-core/internal/ppu"
	"tetra-core/internal/state"
)

// Flagship master-clock accounting: one sample of DSP output per
// cyclesPerSample master cycles, approximating the 32 kHz sample clock.
const (
	flagshipCyclesPerSample = 668
	flagshipSampleRate      = 32000
)

// Flagship pad bit assignments for the keypad register.
var flagshipPadBits = map[input.Button]uint16{
	input.ButtonA:      1 << 0,
	input.ButtonB:      1 << 1,
	input.ButtonSelect: 1 << 2,
	input.ButtonStart:  1 << 3,
	input.ButtonRight:  1 << 4,
	input.ButtonLeft:   1 << 5,
	input.ButtonUp:     1 << 6,
	input.ButtonDown:   1 << 7,
	input.ButtonR:      1 << 8,
	input.ButtonL:      1 << 9,
	input.ButtonX:      1 << 10,
	input.ButtonY:      1 << 11,
}

// Flagship is the 16-bit cartridge console: the cycle-driven bus with DMA
// and timers, the tile/affine video pipeline and the eight-voice sample DSP.
type Flagship struct {
	Sched *clock.Scheduler
	Bus   *memory.Bus
	PPU   *ppu.PPU
	Audio *apu.Unit
	CPU   Stepper

	buttons uint16
	samples []int16

	lastSampleCycle uint64

	log *debug.Logger
}

// NewFlagship assembles the flagship core around a loaded cartridge.
func NewFlagship(cart *memory.Cartridge, logger *debug.Logger) *Flagship {
	sched := clock.NewScheduler()
	bus := memory.NewBus(cart, sched, logger)
	video := ppu.NewPPU(sched, logger)
	audio := apu.NewUnit(logger)
	bus.Video = video
	bus.Audio = audio
	video.PowerOn(0)

	f := &Flagship{
		Sched:   sched,
		Bus:     bus,
		PPU:     video,
		Audio:   audio,
		samples: make([]int16, 0, 2048),
		log:     logger,
	}
	f.CPU = stepperFor(PlatformFlagship, f)
	if f.CPU == nil {
		f.CPU = &nullStepper{idle: bus.InternalCycles}
	}
	return f
}

// StepFrame runs the CPU until the video unit signals frame completion.
// Every bus access the CPU makes pumps the scheduler, DMA and coprocessor
// catch-up; audio samples are collected on the way.
func (f *Flagship) StepFrame() error {
	start := f.PPU.FrameCounter
	for f.PPU.FrameCounter == start {
		before := f.Bus.Cycles
		f.CPU.Step()
		if f.Bus.Cycles == before {
			// A stepper that charges no cycles would wedge the frame
			// loop; idle forward defensively.
			f.Bus.InternalCycles(1)
		}
		f.pumpAudio()
	}
	return nil
}

func (f *Flagship) pumpAudio() {
	for f.Bus.Cycles-f.lastSampleCycle >= flagshipCyclesPerSample {
		f.lastSampleCycle += flagshipCyclesPerSample
		l, r := f.Audio.Sample()
		f.samples = append(f.samples, l, r)
	}
}

// Frame converts the 15-bit framebuffer to packed ARGB.
func (f *Flagship) Frame() ([]uint32, int, int) {
	out := make([]uint32, len(f.PPU.Framebuffer))
	for i, c := range f.PPU.Framebuffer {
		out[i] = bgr555ToARGB(c)
	}
	return out, ppu.ActiveWidth, ppu.ActiveHeight
}

// DrainAudio returns the samples generated since the last call.
func (f *Flagship) DrainAudio() []int16 {
	out := f.samples
	f.samples = make([]int16, 0, cap(out))
	return out
}

// SampleRate returns the native DSP output rate.
func (f *Flagship) SampleRate() int { return flagshipSampleRate }

// SetButton updates the pad register input for the next frame.
func (f *Flagship) SetButton(gi input.GameInput, pressed bool) {
	bit, ok := flagshipPadBits[gi.Button]
	if !ok || gi.Player != 0 {
		return
	}
	if pressed {
		f.buttons |= bit
	} else {
		f.buttons &^= bit
	}
	f.Bus.SetKeys(f.buttons)
}

// SaveState serializes the complete core.
func (f *Flagship) SaveState() ([]byte, error) {
	w := state.NewWriter()
	w.U8(stateVersion)
	w.U8(uint8(PlatformFlagship))
	saveScheduler(w, f.Sched)
	f.Bus.SaveState(w)
	f.PPU.SaveState(w)
	f.Audio.SaveState(w)
	w.U16(f.buttons)
	w.U64(f.lastSampleCycle)
	return w.Bytes()
}

// LoadState replaces the core state. On a decode failure the pre-load state
// is restored and the error returned.
func (f *Flagship) LoadState(data []byte) error {
	backup, err := f.SaveState()
	if err != nil {
		return err
	}
	if err := f.loadState(data); err != nil {
		if restoreErr := f.loadState(backup); restoreErr != nil {
			return fmt.Errorf("load failed (%w) and rollback failed: %v", err, restoreErr)
		}
		return err
	}
	return nil
}

func (f *Flagship) loadState(data []byte) error {
	r, err := state.NewReader(data)
	if err != nil {
		return err
	}
	if v := r.U8(); v != stateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, v)
	}
	if p := Platform(r.U8()); p != PlatformFlagship {
		return fmt.Errorf("snapshot is for platform %s", p)
	}
	loadScheduler(r, f.Sched)
	f.Bus.LoadState(r)
	f.PPU.LoadState(r)
	f.Audio.LoadState(r)
	f.buttons = r.U16()
	f.lastSampleCycle = r.U64()
	return r.Err()
}

// Reset performs a console reset. The video-memory address register is
// hardware-retained; a hard reset additionally clears RAM contents.
func (f *Flagship) Reset(hard bool) {
	f.Sched.Reset()
	f.Bus.Reset(hard)
	f.PPU.Reset(hard)
	f.PPU.PowerOn(f.Bus.Cycles)
	f.CPU.Reset(hard)
	f.lastSampleCycle = f.Bus.Cycles
	f.samples = f.samples[:0]
}

// FlushSave writes battery RAM if it changed.
func (f *Flagship) FlushSave() error {
	return f.Bus.Cart.FlushSave()
}

func bgr555ToARGB(c uint16) uint32 {
	r := uint32(c & 0x1F)
	g := uint32(c >> 5 & 0x1F)
	b := uint32(c >> 10 & 0x1F)
	r = r<<3 | r>>2
	g = g<<3 | g>>2
	b = b<<3 | b>>2
	return 0xFF000000 | r<<16 | g<<8 | b
}

func saveScheduler(w *state.Writer, s *clock.Scheduler) {
	events := s.Pending()
	w.Int(len(events))
	for _, ev := range events {
		w.U8(uint8(ev.Kind))
		w.U64(ev.Due)
		w.U64(ev.Seq())
	}
}

func loadScheduler(r *state.Reader, s *clock.Scheduler) {
	n := r.Int()
	if n < 0 || n > 1024 {
		n = 0
	}
	events := make([]clock.Event, 0, n)
	for i := 0; i < n; i++ {
		ev := clock.Event{Kind: clock.EventKind(r.U8()), Due: r.U64()}
		events = append(events, ev.WithSeq(r.U64()))
	}
	s.Restore(events)
}
