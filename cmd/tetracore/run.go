package main

import (
	"fmt"
	"os"

	"github.com/veandco/go-sdl2/sdl"

	"tetra-core/internal/audio"
	"tetra-core/internal/config"
	"tetra-core/internal/debug"
	"tetra-core/internal/emulator"
	"tetra-core/internal/input"
	"tetra-core/internal/state"
	"tetra-core/internal/ui"
)

const targetFPS = 60.0

// session is the frame-loop state of one emulation run.
type session struct {
	console emulator.Console
	mapping *input.Mapping
	rewind  *emulator.Rewind

	presenter *ui.Presenter
	pacer     *ui.FramePacer
	queue     *audio.Queue
	sink      *audio.Sink
	recorder  *audio.WavRecorder

	statePath string
	cfg       config.Config

	paused      bool
	stepOnce    bool
	fastForward bool
	rewinding   bool
	quit        bool

	gamepads map[sdl.JoystickID]*gamepad

	log *debug.Logger
}

type gamepad struct {
	joystick *sdl.Joystick
	guid     string
}

func run(console emulator.Console, platform emulator.Platform, romPath string, cfg config.Config, wavPath string, logger *debug.Logger) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_JOYSTICK | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize host layer: %w", err)
	}
	defer sdl.Quit()

	opts := ui.Options{
		Prescale:           cfg.Prescale,
		PreprocessShader:   cfg.PreprocessShader,
		Scanlines:          cfg.Scanlines,
		Filter:             cfg.Filter,
		ForceIntegerHeight: cfg.ForceIntegerHeight,
		PixelAspect:        1.0,
	}
	presenter, err := ui.NewPresenter("tetracore - "+platform.String(),
		cfg.WindowWidth, cfg.WindowHeight, cfg.Fullscreen, cfg.VSync, opts, logger)
	if err != nil {
		return err
	}
	defer presenter.Close()

	queue := audio.NewQueue(console.SampleRate()) // half a second of buffer
	sink, err := audio.NewSink(console.SampleRate(), queue, logger)
	if err != nil {
		// Audio is not fatal; run silent.
		logger.Logf(debug.ComponentAudio, debug.LogLevelWarning, "audio disabled: %v", err)
		sink = nil
	}
	if sink != nil {
		defer sink.Close()
	}

	mapping := input.DefaultMapping()
	mapping.Deadzone = cfg.AxisDeadzone

	s := &session{
		console:   console,
		mapping:   mapping,
		rewind:    emulator.NewRewind(cfg.RewindBufferSeconds, int(targetFPS)),
		presenter: presenter,
		pacer:     ui.NewFramePacer(targetFPS),
		queue:     queue,
		sink:      sink,
		statePath: romPath + ".ss0",
		cfg:       cfg,
		gamepads:  make(map[sdl.JoystickID]*gamepad),
		log:       logger,
	}

	if wavPath != "" {
		rec, err := audio.NewWavRecorder(wavPath, console.SampleRate())
		if err != nil {
			return err
		}
		s.recorder = rec
		defer s.recorder.Close()
	}

	return s.loop()
}

// loop is the frame loop: poll input, advance (or rewind) one frame,
// present, submit audio, flush battery saves and pace.
func (s *session) loop() error {
	for !s.quit {
		s.pollEvents()

		switch {
		case s.rewinding:
			if snap, ok := s.rewind.Pop(); ok {
				if err := s.console.LoadState(snap); err != nil {
					s.log.Logf(debug.ComponentState, debug.LogLevelWarning, "rewind load failed: %v", err)
				} else {
					// Snapshots exclude the framebuffer; re-render the
					// popped frame and discard its audio.
					if err := s.console.StepFrame(); err == nil {
						s.console.DrainAudio()
					}
				}
			}
			// An empty history silently stops rewinding in place.
		case s.paused && !s.stepOnce:
			// Hold the last frame.
		default:
			s.stepOnce = false
			frames := 1
			if s.fastForward {
				frames = s.cfg.FastForwardMultiplier
			}
			for i := 0; i < frames; i++ {
				if s.rewind.Enabled() {
					if snap, err := s.console.SaveState(); err == nil {
						s.rewind.Push(snap)
					}
				}
				if err := s.console.StepFrame(); err != nil {
					// One frame error ends the session gracefully.
					s.log.Logf(debug.ComponentSystem, debug.LogLevelError, "frame error: %v", err)
					s.quit = true
					break
				}
				s.submitAudio()
			}
		}

		pixels, w, h := s.console.Frame()
		if err := s.presenter.Present(pixels, w, h); err != nil {
			s.log.Logf(debug.ComponentUI, debug.LogLevelError, "present failed: %v", err)
		}

		if err := s.console.FlushSave(); err != nil {
			s.log.Logf(debug.ComponentState, debug.LogLevelWarning, "battery save failed: %v", err)
		}

		s.pacer.Wait()
	}
	return nil
}

func (s *session) submitAudio() {
	samples := s.console.DrainAudio()
	if len(samples) == 0 {
		return
	}
	// Fast-forward frames drop their audio instead of flooding the queue.
	if s.fastForward {
		return
	}
	if dropped := s.queue.Push(samples); dropped > 0 {
		s.log.Logf(debug.ComponentAudio, debug.LogLevelDebug, "queue full, dropped %d samples", dropped)
	}
	if s.recorder != nil {
		if err := s.recorder.Write(samples); err != nil {
			s.log.Logf(debug.ComponentAudio, debug.LogLevelWarning, "wav capture failed: %v", err)
		}
	}
}

func (s *session) pollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			s.quit = true
		case *sdl.KeyboardEvent:
			if ev.Repeat != 0 {
				continue
			}
			for _, resolved := range s.mapping.ResolveKey(int32(ev.Keysym.Sym), ev.Type == sdl.KEYDOWN) {
				s.dispatch(resolved)
			}
		case *sdl.JoyDeviceAddedEvent:
			joy := sdl.JoystickOpen(int(ev.Which))
			if joy != nil {
				s.gamepads[joy.InstanceID()] = &gamepad{
					joystick: joy,
					guid:     sdl.JoystickGetGUIDString(joy.GUID()),
				}
			}
		case *sdl.JoyDeviceRemovedEvent:
			if pad, ok := s.gamepads[ev.Which]; ok {
				pad.joystick.Close()
				delete(s.gamepads, ev.Which)
			}
		case *sdl.JoyButtonEvent:
			pad, ok := s.gamepads[ev.Which]
			if !ok {
				continue
			}
			for _, resolved := range s.mapping.ResolveGamepadButton(pad.guid, ev.Button, ev.State == sdl.PRESSED) {
				s.dispatch(resolved)
			}
		case *sdl.JoyAxisEvent:
			pad, ok := s.gamepads[ev.Which]
			if !ok {
				continue
			}
			for _, resolved := range s.mapping.ResolveAxis(pad.guid, ev.Axis, ev.Value) {
				s.dispatch(resolved)
			}
		}
	}
}

func (s *session) dispatch(ev input.Event) {
	if ev.Game != nil {
		s.console.SetButton(*ev.Game, ev.Pressed)
		return
	}
	if ev.Hotkey == nil {
		return
	}
	switch *ev.Hotkey {
	case input.HotkeyFastForward:
		// Modal: held, not toggled.
		s.fastForward = ev.Pressed
		return
	case input.HotkeyRewind:
		s.rewinding = ev.Pressed
		return
	}
	if !ev.Pressed {
		return
	}
	switch *ev.Hotkey {
	case input.HotkeyQuit:
		s.quit = true
	case input.HotkeyToggleFullscreen:
		s.presenter.ToggleFullscreen()
	case input.HotkeySaveState:
		s.saveStateFile()
	case input.HotkeyLoadState:
		s.loadStateFile()
	case input.HotkeySoftReset:
		s.console.Reset(false)
	case input.HotkeyHardReset:
		if ui.Confirm("Hardware reset", "Hard-reset the console? Unsaved progress is lost.") {
			s.console.Reset(true)
		}
	case input.HotkeyPause:
		s.paused = !s.paused
	case input.HotkeyStepFrame:
		s.paused = true
		s.stepOnce = true
	case input.HotkeyOpenDebugger:
		// Tracing hooks exist but the debugger surface does not.
		s.log.Log(debug.ComponentSystem, debug.LogLevelInfo, "no debugger in this build")
	}
}

func (s *session) saveStateFile() {
	snap, err := s.console.SaveState()
	if err == nil && len(snap) > state.MaxSnapshotSize {
		err = fmt.Errorf("snapshot exceeds size cap")
	}
	if err == nil {
		err = os.WriteFile(s.statePath, snap, 0o644)
	}
	if err != nil {
		s.log.Logf(debug.ComponentState, debug.LogLevelError, "save state failed: %v", err)
		s.presenter.Flash(false)
		return
	}
	s.presenter.Flash(true)
}

func (s *session) loadStateFile() {
	data, err := os.ReadFile(s.statePath)
	if err == nil {
		err = s.console.LoadState(data)
	}
	if err != nil {
		// Decode failures keep the pre-load state running.
		s.log.Logf(debug.ComponentState, debug.LogLevelError, "load state failed: %v", err)
		s.presenter.Flash(false)
		return
	}
	s.rewind.Clear()
	s.presenter.Flash(true)
}
