package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tetra-core/internal/config"
	"tetra-core/internal/debug"
	"tetra-core/internal/emulator"
	"tetra-core/internal/ui"
)

func usage() {
	fmt.Println("Usage: tetracore <platform> --rom-path <path> [options]")
	fmt.Println()
	fmt.Println("Platforms:")
	fmt.Println("  flagship   16-bit cartridge console (.sfc, .smc, .tc)")
	fmt.Println("  nes        8-bit cartridge console (.nes)")
	fmt.Println("  genesis    16-bit cartridge console, 68000 (.md, .gen)")
	fmt.Println("  smsgg      8-bit cartridge console, Z80 (.sms, .gg)")
	fmt.Println()
	fmt.Println("A bare ROM path as the first argument selects the platform")
	fmt.Println("from the file extension.")
}

// platformForExtension dispatches on the ROM file extension.
func platformForExtension(path string) (emulator.Platform, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sfc", ".smc", ".tc":
		return emulator.PlatformFlagship, true
	case ".nes":
		return emulator.PlatformNES, true
	case ".md", ".gen":
		return emulator.PlatformGenesis, true
	case ".sms", ".gg":
		return emulator.PlatformSMSGG, true
	}
	return 0, false
}

func platformByName(name string) (emulator.Platform, bool) {
	switch name {
	case "flagship":
		return emulator.PlatformFlagship, true
	case "nes":
		return emulator.PlatformNES, true
	case "genesis":
		return emulator.PlatformGenesis, true
	case "smsgg":
		return emulator.PlatformSMSGG, true
	}
	return 0, false
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var platform emulator.Platform
	var args []string
	if p, ok := platformByName(os.Args[1]); ok {
		platform = p
		args = os.Args[2:]
	} else if p, ok := platformForExtension(os.Args[1]); ok {
		platform = p
		args = append([]string{"--rom-path", os.Args[1]}, os.Args[2:]...)
	} else {
		usage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet("tetracore "+platform.String(), flag.ExitOnError)
	romPath := fs.String("rom-path", "", "Path to ROM file")
	savePath := fs.String("save-path", "", "Path to battery save file (default <rom>.sav)")
	configPath := fs.String("config", config.DefaultPath(), "Path to settings file")
	windowWidth := fs.Int("window-width", 0, "Window width")
	windowHeight := fs.Int("window-height", 0, "Window height")
	fullscreen := fs.Bool("fullscreen", false, "Start fullscreen")
	vsync := fs.Bool("vsync", true, "Synchronize to the display refresh")
	prescale := fs.Int("prescale", -1, "Integer prescale factor (0 = auto)")
	preShader := fs.String("preprocess-shader", "", "Preprocess shader: none, blur, antidither")
	scanlines := fs.String("scanlines", "", "Scanline style: none, dim, black")
	filter := fs.String("filter", "", "Final draw filter: nearest, linear")
	intHeight := fs.Bool("force-integer-height", false, "Force integer height scaling")
	ffwd := fs.Int("fast-forward-multiplier", 0, "Fast-forward speed multiplier")
	rewindSecs := fs.Int("rewind-buffer-seconds", -1, "Rewind history in seconds (0 disables)")
	deadzone := fs.Int("axis-deadzone", -1, "Gamepad axis deadzone")
	timingMode := fs.String("timing-mode", "", "Timing mode: ntsc, pal")
	controller := fs.String("controller-type", "", "Controller type")
	noSpriteLimit := fs.Bool("remove-sprite-limit", false, "Remove per-scanline sprite limits")
	recordWav := fs.String("record-wav", "", "Capture audio output to a WAV file")
	logging := fs.Bool("log", false, "Enable component logging")
	fs.Parse(args)

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --rom-path is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	applyFlagOverrides(&cfg, fs, *windowWidth, *windowHeight, *fullscreen, *vsync,
		*prescale, *preShader, *scanlines, *filter, *intHeight, *ffwd, *rewindSecs,
		*deadzone, *timingMode, *controller, *noSpriteLimit)

	logger := debug.NewLogger(10000)
	if *logging {
		logger.EnableAll()
		logger.SetMinLevel(debug.LogLevelDebug)
	}

	console, err := buildConsole(platform, *romPath, *savePath, cfg, logger)
	if err != nil {
		ui.ShowError("Failed to open ROM", err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(console, platform, *romPath, cfg, *recordWav, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config, fs *flag.FlagSet,
	windowWidth, windowHeight int, fullscreen, vsync bool,
	prescale int, preShader, scanlines, filter string, intHeight bool,
	ffwd, rewindSecs, deadzone int, timingMode, controller string, noSpriteLimit bool) {

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if windowWidth > 0 {
		cfg.WindowWidth = windowWidth
	}
	if windowHeight > 0 {
		cfg.WindowHeight = windowHeight
	}
	if set["fullscreen"] {
		cfg.Fullscreen = fullscreen
	}
	if set["vsync"] {
		cfg.VSync = vsync
	}
	if prescale >= 0 {
		cfg.Prescale = prescale
	}
	if preShader != "" {
		cfg.PreprocessShader = preShader
	}
	if scanlines != "" {
		cfg.Scanlines = scanlines
	}
	if filter != "" {
		cfg.Filter = filter
	}
	if set["force-integer-height"] {
		cfg.ForceIntegerHeight = intHeight
	}
	if ffwd > 0 {
		cfg.FastForwardMultiplier = ffwd
	}
	if rewindSecs >= 0 {
		cfg.RewindBufferSeconds = rewindSecs
	}
	if deadzone >= 0 {
		cfg.AxisDeadzone = int16(deadzone)
	}
	if timingMode != "" {
		cfg.TimingMode = timingMode
	}
	if controller != "" {
		cfg.ControllerType = controller
	}
	if set["remove-sprite-limit"] {
		cfg.RemoveSpriteLimit = noSpriteLimit
	}
}
