// Package input maps host keyboard and gamepad events onto logical console
// buttons and frontend hotkeys. Resolution is pure table lookup plus axis
// edge tracking, so it is deterministic and host-API free; the UI layer
// feeds it raw key codes and axis values.
package input

// Button is a logical console button. Platforms use the subset they have.
type Button uint8

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonA
	ButtonB
	ButtonC
	ButtonX
	ButtonY
	ButtonZ
	ButtonL
	ButtonR
	ButtonStart
	ButtonSelect
	ButtonMode
	NumButtons
)

func (b Button) String() string {
	names := [...]string{
		"up", "down", "left", "right", "a", "b", "c", "x", "y", "z",
		"l", "r", "start", "select", "mode",
	}
	if int(b) < len(names) {
		return names[b]
	}
	return "invalid"
}

// GameInput is a logical button with its player index.
type GameInput struct {
	Player uint8
	Button Button
}

// Hotkey is a frontend action. Hotkeys are keyboard-only; press and release
// are reported separately so fast-forward and rewind can be modal.
type Hotkey uint8

const (
	HotkeyQuit Hotkey = iota
	HotkeyToggleFullscreen
	HotkeySaveState
	HotkeyLoadState
	HotkeySoftReset
	HotkeyHardReset
	HotkeyPause
	HotkeyStepFrame
	HotkeyFastForward
	HotkeyRewind
	HotkeyOpenDebugger
)

// GamepadButton identifies a button on a specific controller model.
type GamepadButton struct {
	GUID   string
	Button uint8
}

// GamepadAxis identifies one direction of an axis on a controller model.
type GamepadAxis struct {
	GUID     string
	Axis     uint8
	Positive bool
}

// Event is a resolved input: either a game input or a hotkey edge.
type Event struct {
	Game    *GameInput
	Hotkey  *Hotkey
	Pressed bool
}

// Mapping holds the four lookup tables and the axis deadzone.
type Mapping struct {
	Keyboard       map[int32]GameInput
	GamepadButtons map[GamepadButton]GameInput
	GamepadAxes    map[GamepadAxis]GameInput
	Hotkeys        map[int32]Hotkey

	// Deadzone filters axis noise; motion within it is ignored.
	Deadzone int16

	// axisState tracks which axis directions are currently pressed so
	// crossings emit clean edges.
	axisState map[GamepadAxis]bool
}

// NewMapping creates an empty mapping with the default deadzone.
func NewMapping() *Mapping {
	return &Mapping{
		Keyboard:       make(map[int32]GameInput),
		GamepadButtons: make(map[GamepadButton]GameInput),
		GamepadAxes:    make(map[GamepadAxis]GameInput),
		Hotkeys:        make(map[int32]Hotkey),
		Deadzone:       8000,
		axisState:      make(map[GamepadAxis]bool),
	}
}

// ResolveKey maps a keyboard edge onto events. A key may be bound as a game
// input and a hotkey simultaneously; both fire.
func (m *Mapping) ResolveKey(keycode int32, pressed bool) []Event {
	var events []Event
	if gi, ok := m.Keyboard[keycode]; ok {
		g := gi
		events = append(events, Event{Game: &g, Pressed: pressed})
	}
	if hk, ok := m.Hotkeys[keycode]; ok {
		h := hk
		events = append(events, Event{Hotkey: &h, Pressed: pressed})
	}
	return events
}

// ResolveGamepadButton maps a controller button edge.
func (m *Mapping) ResolveGamepadButton(guid string, button uint8, pressed bool) []Event {
	if gi, ok := m.GamepadButtons[GamepadButton{GUID: guid, Button: button}]; ok {
		g := gi
		return []Event{{Game: &g, Pressed: pressed}}
	}
	return nil
}

// ResolveAxis maps an axis sample onto press/release edges for the two
// directions, filtered by the deadzone.
func (m *Mapping) ResolveAxis(guid string, axis uint8, value int16) []Event {
	var events []Event
	for _, positive := range [2]bool{true, false} {
		key := GamepadAxis{GUID: guid, Axis: axis, Positive: positive}
		gi, ok := m.GamepadAxes[key]
		if !ok {
			continue
		}
		active := value > m.Deadzone
		if !positive {
			active = value < -m.Deadzone
		}
		if active == m.axisState[key] {
			continue
		}
		m.axisState[key] = active
		g := gi
		events = append(events, Event{Game: &g, Pressed: active})
	}
	return events
}

// Key codes mirror the host layer's keycode values for the common keys used
// by the default bindings.
const (
	keyUp     = 0x40000052
	keyDown   = 0x40000051
	keyLeft   = 0x40000050
	keyRight  = 0x4000004F
	keyZ      = 'z'
	keyX      = 'x'
	keyA      = 'a'
	keyS      = 's'
	keyQ      = 'q'
	keyW      = 'w'
	keyReturn = '\r'
	keyRShift = 0x400000E5
	keyEscape = 0x1B
	keyF1     = 0x4000003A
	keyF3     = 0x4000003C
	keyF5     = 0x4000003E
	keyF8     = 0x40000041
	keyF9     = 0x40000042
	keyF11    = 0x40000044
	keyP      = 'p'
	keyN      = 'n'
	keyTab    = '\t'
	keyBkTick = '`'
	keyF12    = 0x40000045
)

// DefaultMapping returns the stock keyboard bindings for player 1.
func DefaultMapping() *Mapping {
	m := NewMapping()
	bind := func(key int32, b Button) {
		m.Keyboard[key] = GameInput{Player: 0, Button: b}
	}
	bind(keyUp, ButtonUp)
	bind(keyDown, ButtonDown)
	bind(keyLeft, ButtonLeft)
	bind(keyRight, ButtonRight)
	bind(keyZ, ButtonA)
	bind(keyX, ButtonB)
	bind(keyA, ButtonX)
	bind(keyS, ButtonY)
	bind(keyQ, ButtonL)
	bind(keyW, ButtonR)
	bind(keyReturn, ButtonStart)
	bind(keyRShift, ButtonSelect)

	m.Hotkeys[keyEscape] = HotkeyQuit
	m.Hotkeys[keyF11] = HotkeyToggleFullscreen
	m.Hotkeys[keyF5] = HotkeySaveState
	m.Hotkeys[keyF8] = HotkeyLoadState
	m.Hotkeys[keyF1] = HotkeySoftReset
	m.Hotkeys[keyF3] = HotkeyHardReset
	m.Hotkeys[keyP] = HotkeyPause
	m.Hotkeys[keyN] = HotkeyStepFrame
	m.Hotkeys[keyTab] = HotkeyFastForward
	m.Hotkeys[keyBkTick] = HotkeyRewind
	m.Hotkeys[keyF12] = HotkeyOpenDebugger
	return m
}
