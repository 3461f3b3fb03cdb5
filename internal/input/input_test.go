package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyResolvesGameInputAndHotkey(t *testing.T) {
	m := NewMapping()
	m.Keyboard['z'] = GameInput{Player: 0, Button: ButtonA}
	m.Hotkeys['z'] = HotkeyPause

	events := m.ResolveKey('z', true)
	require.Len(t, events, 2, "a key bound both ways fires both")
	require.Equal(t, ButtonA, events[0].Game.Button)
	require.True(t, events[0].Pressed)
	require.Equal(t, HotkeyPause, *events[1].Hotkey)

	events = m.ResolveKey('z', false)
	require.False(t, events[0].Pressed, "release edges are reported distinctly")
}

func TestUnboundKeyResolvesNothing(t *testing.T) {
	m := NewMapping()
	require.Empty(t, m.ResolveKey('k', true))
}

func TestGamepadButtonPerGUID(t *testing.T) {
	m := NewMapping()
	m.GamepadButtons[GamepadButton{GUID: "pad-1", Button: 3}] = GameInput{Player: 1, Button: ButtonStart}

	events := m.ResolveGamepadButton("pad-1", 3, true)
	require.Len(t, events, 1)
	require.Equal(t, uint8(1), events[0].Game.Player)

	require.Empty(t, m.ResolveGamepadButton("pad-2", 3, true), "bindings are per controller model")
}

func TestAxisDeadzoneAndEdges(t *testing.T) {
	m := NewMapping()
	m.Deadzone = 8000
	m.GamepadAxes[GamepadAxis{GUID: "pad", Axis: 0, Positive: true}] = GameInput{Button: ButtonRight}
	m.GamepadAxes[GamepadAxis{GUID: "pad", Axis: 0, Positive: false}] = GameInput{Button: ButtonLeft}

	// Noise inside the deadzone: no events.
	require.Empty(t, m.ResolveAxis("pad", 0, 500))
	require.Empty(t, m.ResolveAxis("pad", 0, -7999))

	// Crossing emits one press, holding emits nothing, returning emits
	// the release.
	events := m.ResolveAxis("pad", 0, 20000)
	require.Len(t, events, 1)
	require.Equal(t, ButtonRight, events[0].Game.Button)
	require.True(t, events[0].Pressed)

	require.Empty(t, m.ResolveAxis("pad", 0, 25000))

	events = m.ResolveAxis("pad", 0, 0)
	require.Len(t, events, 1)
	require.False(t, events[0].Pressed)

	// Swinging negative presses the other direction.
	events = m.ResolveAxis("pad", 0, -20000)
	require.Len(t, events, 1)
	require.Equal(t, ButtonLeft, events[0].Game.Button)
}

func TestDefaultMappingHasHotkeys(t *testing.T) {
	m := DefaultMapping()
	events := m.ResolveKey(keyEscape, true)
	require.Len(t, events, 1)
	require.Equal(t, HotkeyQuit, *events[0].Hotkey)
}
