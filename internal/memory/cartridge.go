package memory

import (
	"fmt"
	"os"
)

const (
	maxROMSize  = 32 << 20
	sramSize    = 64 << 10
)

// Cartridge holds the ROM image and the battery-backed save RAM. Address
// translation beyond flat mirroring is the loader's concern; the cartridge
// only answers bus requests.
type Cartridge struct {
	ROM  []uint8
	SRAM [sramSize]uint8

	// dirty is set on any SRAM write and cleared by FlushSave; the host
	// checks it at frame boundaries so saves are debounced.
	dirty bool

	savePath string
}

// NewCartridge creates an empty cartridge.
func NewCartridge() *Cartridge {
	return &Cartridge{}
}

// LoadROM attaches a ROM image.
func (c *Cartridge) LoadROM(data []uint8) error {
	if len(data) == 0 {
		return fmt.Errorf("empty ROM image")
	}
	if len(data) > maxROMSize {
		return fmt.Errorf("ROM image too large: %d bytes (max %d)", len(data), maxROMSize)
	}
	c.ROM = data
	return nil
}

// HasROM reports whether a ROM is attached.
func (c *Cartridge) HasROM() bool { return len(c.ROM) > 0 }

// ReadROM16 reads a halfword from the ROM. Reads past the end of the image
// return the address-derived fill pattern the unpopulated bus floats to.
func (c *Cartridge) ReadROM16(addr uint32) uint16 {
	off := addr & 0x01FFFFFF
	if int(off)+1 < len(c.ROM) {
		return uint16(c.ROM[off]) | uint16(c.ROM[off+1])<<8
	}
	return uint16(off >> 1)
}

// ReadSRAM reads one byte of save RAM.
func (c *Cartridge) ReadSRAM(addr uint32) uint8 {
	return c.SRAM[addr&(sramSize-1)]
}

// WriteSRAM writes one byte of save RAM and marks the save file dirty.
func (c *Cartridge) WriteSRAM(addr uint32, value uint8) {
	c.SRAM[addr&(sramSize-1)] = value
	c.dirty = true
}

// SaveDirty reports whether save RAM changed since the last flush.
func (c *Cartridge) SaveDirty() bool { return c.dirty }

// AttachSaveFile points the cartridge at its sidecar save file and loads any
// existing contents.
func (c *Cartridge) AttachSaveFile(path string) error {
	c.savePath = path
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read save file: %w", err)
	}
	copy(c.SRAM[:], data)
	return nil
}

// FlushSave writes the battery RAM to the sidecar file if it changed.
func (c *Cartridge) FlushSave() error {
	if !c.dirty || c.savePath == "" {
		return nil
	}
	if err := os.WriteFile(c.savePath, c.SRAM[:], 0o644); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	c.dirty = false
	return nil
}
