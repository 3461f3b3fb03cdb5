package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	want := Default()
	want.Prescale = 3
	want.Scanlines = "dim"
	want.RewindBufferSeconds = 12
	want.Fullscreen = true

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadValidatesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(
		"prescale = 99\nscanlines = \"wavy\"\nfast_forward_multiplier = 0\nwindow_width = 1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Prescale, "out-of-range prescale falls back to auto")
	require.Equal(t, "none", cfg.Scanlines)
	require.Equal(t, 1, cfg.FastForwardMultiplier)
	require.Equal(t, Default().WindowWidth, cfg.WindowWidth)
}

func TestLoadBadTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("{not toml"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
