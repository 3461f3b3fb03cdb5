package main

import (
	"fmt"
	"os"

	"tetra-core/internal/config"
	"tetra-core/internal/debug"
	"tetra-core/internal/emulator"
	"tetra-core/internal/memory"
)

// buildConsole loads the ROM image and assembles the platform core. Mapper
// detection beyond flat images is the loader boundary of this repository;
// only the minimal header splits needed to attach an image live here.
func buildConsole(platform emulator.Platform, romPath, savePath string, cfg config.Config, logger *debug.Logger) (emulator.Console, error) {
	data, err := os.ReadFile(romPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROM: %w", err)
	}
	if savePath == "" {
		savePath = romPath + ".sav"
	}

	switch platform {
	case emulator.PlatformFlagship:
		cart := memory.NewCartridge()
		if err := cart.LoadROM(data); err != nil {
			return nil, err
		}
		if err := cart.AttachSaveFile(savePath); err != nil {
			return nil, err
		}
		f := emulator.NewFlagship(cart, logger)
		f.PPU.RemoveSpriteLimit = cfg.RemoveSpriteLimit
		return f, nil

	case emulator.PlatformNES:
		prg, chr, vertical, err := splitNESImage(data)
		if err != nil {
			return nil, err
		}
		n := emulator.NewNES(prg, chr, vertical, logger)
		n.PPU.RemoveSpriteLimit = cfg.RemoveSpriteLimit
		return n, nil

	case emulator.PlatformGenesis:
		return emulator.NewGenesis(data, logger), nil

	case emulator.PlatformSMSGG:
		gameGear := len(romPath) > 3 && romPath[len(romPath)-3:] == ".gg"
		s := emulator.NewSMSGG(data, gameGear)
		s.VDP.RemoveSpriteLimit = cfg.RemoveSpriteLimit
		return s, nil
	}
	return nil, fmt.Errorf("unsupported platform %s", platform)
}

// splitNESImage separates a headered 8-bit console image into its program
// and character banks.
func splitNESImage(data []uint8) (prg, chr []uint8, vertical bool, err error) {
	if len(data) < 16 || string(data[0:4]) != "NES\x1a" {
		return nil, nil, false, fmt.Errorf("not a headered image")
	}
	prgSize := int(data[4]) * 16384
	chrSize := int(data[5]) * 8192
	vertical = data[6]&1 != 0
	offset := 16
	if data[6]&4 != 0 {
		offset += 512 // trainer
	}
	if len(data) < offset+prgSize+chrSize {
		return nil, nil, false, fmt.Errorf("image truncated")
	}
	prg = data[offset : offset+prgSize]
	chr = data[offset+prgSize : offset+prgSize+chrSize]
	return prg, chr, vertical, nil
}
