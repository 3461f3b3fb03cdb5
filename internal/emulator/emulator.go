// Package emulator assembles the platform cores: the bus, video and audio
// units wired together under an externally supplied CPU stepping function,
// plus the host-facing surface (frames, audio, input, save states, rewind).
package emulator

import (
	"fmt"

	"tetra-core/internal/input"
)

// Platform identifies an emulated console family.
type Platform uint8

const (
	PlatformFlagship Platform = iota // 16-bit cartridge console, 65C816-class
	PlatformNES                      // 8-bit cartridge console, 6502-class
	PlatformGenesis                  // 16-bit cartridge console, 68000-class
	PlatformSMSGG                    // 8-bit cartridge console, Z80-class
)

func (p Platform) String() string {
	switch p {
	case PlatformFlagship:
		return "flagship"
	case PlatformNES:
		return "nes"
	case PlatformGenesis:
		return "genesis"
	case PlatformSMSGG:
		return "smsgg"
	}
	return "unknown"
}

// Console is one assembled platform core. StepFrame returns only when a full
// video frame has been rendered; input takes effect at frame boundaries.
type Console interface {
	// StepFrame advances emulation by one video frame.
	StepFrame() error
	// Frame returns the last rendered frame as packed 0xAARRGGBB pixels.
	Frame() ([]uint32, int, int)
	// DrainAudio returns and clears the interleaved stereo samples
	// produced since the last call.
	DrainAudio() []int16
	// SampleRate returns the platform's native audio rate in Hz.
	SampleRate() int
	// SetButton updates one logical button for a player.
	SetButton(gi input.GameInput, pressed bool)
	// SaveState serializes the complete core state.
	SaveState() ([]byte, error)
	// LoadState replaces the core state atomically; on error the
	// pre-load state is preserved.
	LoadState(data []byte) error
	// Reset performs a soft or hard console reset.
	Reset(hard bool)
	// FlushSave writes battery-backed cartridge memory if dirty.
	FlushSave() error
}

// Stepper is the opaque CPU stepping function of a platform. Implementations
// live outside this repository; each call executes one instruction against
// the console's bus, charging cycles through it.
type Stepper interface {
	Step()
	Reset(hard bool)
}

// StepperFactory builds a platform's CPU stepper around its assembled core.
// Platform CPU cores register themselves here at link time.
type StepperFactory func(core any) Stepper

var stepperFactories = map[Platform]StepperFactory{}

// RegisterStepper installs the CPU core factory for a platform.
func RegisterStepper(p Platform, f StepperFactory) {
	stepperFactories[p] = f
}

func stepperFor(p Platform, core any) Stepper {
	if f, ok := stepperFactories[p]; ok {
		return f(core)
	}
	return nil
}

// ErrStateVersion is returned for snapshots from an incompatible build.
var ErrStateVersion = fmt.Errorf("unsupported save-state version")

// Save-state format version; bumped whenever a component's serialized
// layout changes.
const stateVersion = 1

// nullStepper stands in when no CPU core is linked for a platform: it burns
// idle cycles so the rest of the machine (video raster, timers, DMA, audio)
// still runs and the frontend can be exercised.
type nullStepper struct {
	idle func(n int)
}

func (s *nullStepper) Step()           { s.idle(64) }
func (s *nullStepper) Reset(hard bool) {}
