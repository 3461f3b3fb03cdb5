package memory

import "tetra-core/internal/debug"

// Address space layout. The top byte of the 32-bit address selects the
// region; the RAM regions are mirrored across their full 16 MiB slot, while
// BIOS reads past the image return open bus.
const (
	regionBIOS    = 0x00
	regionEWRAM   = 0x02
	regionIWRAM   = 0x03
	regionIO      = 0x04
	regionPalette = 0x05
	regionVRAM    = 0x06
	regionOAM     = 0x07
	regionROM0    = 0x08
	regionROM0B   = 0x09
	regionROM1    = 0x0A
	regionROM1B   = 0x0B
	regionROM2    = 0x0C
	regionROM2B   = 0x0D
	regionSRAM    = 0x0E
	regionSRAMB   = 0x0F
)

// ReadByte reads an 8-bit value, zero-extended to 32 bits, charging the
// region latency.
func (b *Bus) ReadByte(addr uint32, kind CycleKind) uint32 {
	b.prepareAccess()
	v := b.readByte(addr, kind)
	b.traceAccess(addr, uint32(v), 1, false)
	return uint32(v)
}

// ReadHalf reads a 16-bit value from a halfword-aligned address.
func (b *Bus) ReadHalf(addr uint32, kind CycleKind) uint32 {
	b.prepareAccess()
	v := b.readHalf(addr&^1, kind)
	b.traceAccess(addr, uint32(v), 2, false)
	return uint32(v)
}

// ReadWord reads a 32-bit value from a word-aligned address.
func (b *Bus) ReadWord(addr uint32, kind CycleKind) uint32 {
	b.prepareAccess()
	v := b.readWord(addr&^3, kind)
	b.traceAccess(addr, v, 4, false)
	return v
}

// WriteByte writes an 8-bit value, charging the region latency.
func (b *Bus) WriteByte(addr uint32, value uint8, kind CycleKind) {
	b.prepareAccess()
	b.writeByte(addr, value, kind)
	b.traceAccess(addr, uint32(value), 1, true)
}

// WriteHalf writes a 16-bit value to a halfword-aligned address.
func (b *Bus) WriteHalf(addr uint32, value uint16, kind CycleKind) {
	b.prepareAccess()
	b.writeHalf(addr&^1, value, kind)
	b.traceAccess(addr, uint32(value), 2, true)
}

// WriteWord writes a 32-bit value to a word-aligned address.
func (b *Bus) WriteWord(addr uint32, value uint32, kind CycleKind) {
	b.prepareAccess()
	b.writeWord(addr&^3, value, kind)
	b.traceAccess(addr, value, 4, true)
}

func (b *Bus) readByte(addr uint32, kind CycleKind) uint8 {
	switch addr >> 24 {
	case regionBIOS:
		b.endBurstOffROM()
		b.tickAccess(1)
		if int(addr&0x00FFFFFF) < len(b.BIOS) {
			v := b.BIOS[addr&0x00FFFFFF]
			b.latchByte(addr, v, false)
			return v
		}
		return b.openBusByte(addr)
	case regionEWRAM:
		b.endBurstOffROM()
		b.tickAccess(3)
		v := b.EWRAM[addr&(len32(b.EWRAM[:])-1)]
		b.latchByte(addr, v, false)
		return v
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		v := b.IWRAM[addr&(len32(b.IWRAM[:])-1)]
		b.latchByte(addr, v, true)
		return v
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		half := b.readIO(addr &^ 1)
		v := uint8(half >> (8 * (addr & 1)))
		b.latchByte(addr, v, false)
		return v
	case regionPalette:
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(1)
		half := b.Video.ReadPalette(addr &^ 1)
		v := uint8(half >> (8 * (addr & 1)))
		b.latchByte(addr, v, false)
		return v
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(1)
		half := b.Video.ReadVRAM(addr &^ 1)
		v := uint8(half >> (8 * (addr & 1)))
		b.latchByte(addr, v, false)
		return v
	case regionOAM:
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		half := b.Video.ReadOAM(addr &^ 1)
		v := uint8(half >> (8 * (addr & 1)))
		b.latchByte(addr, v, true)
		return v
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		b.tickAccess(b.romAccessCycles(addr, kind, 2))
		half := b.Cart.ReadROM16(addr &^ 1)
		v := uint8(half >> (8 * (addr & 1)))
		b.latchByte(addr, v, false)
		return v
	case regionSRAM, regionSRAMB:
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		v := b.Cart.ReadSRAM(addr)
		b.latchByte(addr, v, false)
		return v
	}
	b.invalidAccess(addr, false)
	b.tickAccess(1)
	return b.openBusByte(addr)
}

func (b *Bus) readHalf(addr uint32, kind CycleKind) uint16 {
	switch addr >> 24 {
	case regionBIOS:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & 0x00FFFFFF
		if int(off)+1 < len(b.BIOS) {
			v := uint16(b.BIOS[off]) | uint16(b.BIOS[off+1])<<8
			b.latchHalf(addr, v, false)
			return v
		}
		return b.openBusHalf(addr)
	case regionEWRAM:
		b.endBurstOffROM()
		b.tickAccess(3)
		off := addr & (len32(b.EWRAM[:]) - 1)
		v := uint16(b.EWRAM[off]) | uint16(b.EWRAM[off+1])<<8
		b.latchHalf(addr, v, false)
		return v
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & (len32(b.IWRAM[:]) - 1)
		v := uint16(b.IWRAM[off]) | uint16(b.IWRAM[off+1])<<8
		b.latchHalf(addr, v, true)
		return v
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		v := b.readIO(addr)
		b.latchHalf(addr, v, false)
		return v
	case regionPalette:
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(1)
		v := b.Video.ReadPalette(addr)
		b.latchHalf(addr, v, false)
		return v
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(1)
		v := b.Video.ReadVRAM(addr)
		b.latchHalf(addr, v, false)
		return v
	case regionOAM:
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		v := b.Video.ReadOAM(addr)
		b.latchHalf(addr, v, true)
		return v
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		b.tickAccess(b.romAccessCycles(addr, kind, 2))
		v := b.Cart.ReadROM16(addr)
		b.latchHalf(addr, v, false)
		return v
	case regionSRAM, regionSRAMB:
		// The save-RAM bus is a single byte wide; the byte is duplicated
		// into both halves.
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		byteVal := b.Cart.ReadSRAM(addr)
		v := uint16(byteVal) * 0x0101
		b.latchHalf(addr, v, false)
		return v
	}
	b.invalidAccess(addr, false)
	b.tickAccess(1)
	return b.openBusHalf(addr)
}

func (b *Bus) readWord(addr uint32, kind CycleKind) uint32 {
	switch addr >> 24 {
	case regionBIOS:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & 0x00FFFFFF
		if int(off)+3 < len(b.BIOS) {
			v := uint32(b.BIOS[off]) | uint32(b.BIOS[off+1])<<8 |
				uint32(b.BIOS[off+2])<<16 | uint32(b.BIOS[off+3])<<24
			b.latchWord(v)
			return v
		}
		return b.openBus
	case regionEWRAM:
		// The external bus is 16 bits wide: a word costs two slow halves.
		b.endBurstOffROM()
		b.tickAccess(6)
		off := addr & (len32(b.EWRAM[:]) - 1)
		v := uint32(b.EWRAM[off]) | uint32(b.EWRAM[off+1])<<8 |
			uint32(b.EWRAM[off+2])<<16 | uint32(b.EWRAM[off+3])<<24
		b.latchWord(v)
		return v
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & (len32(b.IWRAM[:]) - 1)
		v := uint32(b.IWRAM[off]) | uint32(b.IWRAM[off+1])<<8 |
			uint32(b.IWRAM[off+2])<<16 | uint32(b.IWRAM[off+3])<<24
		b.latchWord(v)
		return v
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		lo := b.readIO(addr)
		hi := b.readIO(addr + 2)
		v := uint32(lo) | uint32(hi)<<16
		b.latchWord(v)
		return v
	case regionPalette:
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(2)
		v := uint32(b.Video.ReadPalette(addr)) | uint32(b.Video.ReadPalette(addr+2))<<16
		b.latchWord(v)
		return v
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(2)
		v := uint32(b.Video.ReadVRAM(addr)) | uint32(b.Video.ReadVRAM(addr+2))<<16
		b.latchWord(v)
		return v
	case regionOAM:
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		v := uint32(b.Video.ReadOAM(addr)) | uint32(b.Video.ReadOAM(addr+2))<<16
		b.latchWord(v)
		return v
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		// A word decomposes into a leading access plus one sequential half.
		c := b.romAccessCycles(addr, kind, 2) + b.romAccessCycles(addr+2, Sequential, 2)
		b.tickAccess(c)
		v := uint32(b.Cart.ReadROM16(addr)) | uint32(b.Cart.ReadROM16(addr+2))<<16
		b.latchWord(v)
		return v
	case regionSRAM, regionSRAMB:
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		byteVal := b.Cart.ReadSRAM(addr)
		v := uint32(byteVal) * 0x01010101
		b.latchWord(v)
		return v
	}
	b.invalidAccess(addr, false)
	b.tickAccess(1)
	return b.openBus
}

func (b *Bus) writeByte(addr uint32, value uint8, kind CycleKind) {
	switch addr >> 24 {
	case regionEWRAM:
		b.endBurstOffROM()
		b.tickAccess(3)
		b.EWRAM[addr&(len32(b.EWRAM[:])-1)] = value
		b.latchByte(addr, value, false)
		return
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		b.IWRAM[addr&(len32(b.IWRAM[:])-1)] = value
		b.latchByte(addr, value, true)
		return
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		b.writeIOByte(addr, value)
		b.latchByte(addr, value, false)
		return
	case regionPalette:
		// Byte writes to the 16-bit palette bus drive the byte onto both
		// lanes of the containing halfword.
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(1)
		b.Video.WritePalette(addr&^1, uint16(value)*0x0101)
		b.latchByte(addr, value, false)
		return
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(1)
		b.Video.WriteVRAM(addr&^1, uint16(value)*0x0101)
		b.latchByte(addr, value, false)
		return
	case regionOAM:
		// Sprite attribute memory ignores byte writes.
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		return
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		b.tickAccess(b.romAccessCycles(addr, kind, 2))
		return
	case regionSRAM, regionSRAMB:
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		b.Cart.WriteSRAM(addr, value)
		b.latchByte(addr, value, false)
		return
	}
	b.invalidAccess(addr, true)
	b.tickAccess(1)
}

func (b *Bus) writeHalf(addr uint32, value uint16, kind CycleKind) {
	switch addr >> 24 {
	case regionEWRAM:
		b.endBurstOffROM()
		b.tickAccess(3)
		off := addr & (len32(b.EWRAM[:]) - 1)
		b.EWRAM[off] = uint8(value)
		b.EWRAM[off+1] = uint8(value >> 8)
		b.latchHalf(addr, value, false)
		return
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & (len32(b.IWRAM[:]) - 1)
		b.IWRAM[off] = uint8(value)
		b.IWRAM[off+1] = uint8(value >> 8)
		b.latchHalf(addr, value, true)
		return
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		b.writeIO(addr, value)
		b.latchHalf(addr, value, false)
		return
	case regionPalette:
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(1)
		b.Video.WritePalette(addr, value)
		b.latchHalf(addr, value, false)
		return
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(1)
		b.Video.WriteVRAM(addr, value)
		b.latchHalf(addr, value, false)
		return
	case regionOAM:
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		b.Video.WriteOAM(addr, value)
		b.latchHalf(addr, value, true)
		return
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		b.tickAccess(b.romAccessCycles(addr, kind, 2))
		return
	case regionSRAM, regionSRAMB:
		// Only one byte reaches the narrow bus: the lane selected by the
		// low address bit.
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		b.Cart.WriteSRAM(addr, uint8(value>>(8*(addr&1))))
		b.latchHalf(addr, value, false)
		return
	}
	b.invalidAccess(addr, true)
	b.tickAccess(1)
}

func (b *Bus) writeWord(addr uint32, value uint32, kind CycleKind) {
	switch addr >> 24 {
	case regionEWRAM:
		b.endBurstOffROM()
		b.tickAccess(6)
		off := addr & (len32(b.EWRAM[:]) - 1)
		b.EWRAM[off] = uint8(value)
		b.EWRAM[off+1] = uint8(value >> 8)
		b.EWRAM[off+2] = uint8(value >> 16)
		b.EWRAM[off+3] = uint8(value >> 24)
		b.latchWord(value)
		return
	case regionIWRAM:
		b.endBurstOffROM()
		b.tickAccess(1)
		off := addr & (len32(b.IWRAM[:]) - 1)
		b.IWRAM[off] = uint8(value)
		b.IWRAM[off+1] = uint8(value >> 8)
		b.IWRAM[off+2] = uint8(value >> 16)
		b.IWRAM[off+3] = uint8(value >> 24)
		b.latchWord(value)
		return
	case regionIO:
		b.endBurstOffROM()
		b.tickAccess(1)
		// Sound FIFO words carry four samples and must not decompose.
		if off := addr & 0x00FFFFFF; off == 0x0000A0 || off == 0x0000A4 {
			if b.Audio != nil {
				b.Audio.WriteFIFO(int(off>>2)&1, value, 4)
			}
			b.latchWord(value)
			return
		}
		b.writeIO(addr, uint16(value))
		b.writeIO(addr+2, uint16(value>>16))
		b.latchWord(value)
		return
	case regionPalette:
		b.endBurstOffROM()
		b.syncVideo(RegionPalette)
		b.tickAccess(2)
		b.Video.WritePalette(addr, uint16(value))
		b.Video.WritePalette(addr+2, uint16(value>>16))
		b.latchWord(value)
		return
	case regionVRAM:
		b.endBurstOffROM()
		b.syncVideo(RegionVRAM)
		b.tickAccess(2)
		b.Video.WriteVRAM(addr, uint16(value))
		b.Video.WriteVRAM(addr+2, uint16(value>>16))
		b.latchWord(value)
		return
	case regionOAM:
		b.endBurstOffROM()
		b.syncVideo(RegionOAM)
		b.tickAccess(1)
		b.Video.WriteOAM(addr, uint16(value))
		b.Video.WriteOAM(addr+2, uint16(value>>16))
		b.latchWord(value)
		return
	case regionROM0, regionROM0B, regionROM1, regionROM1B, regionROM2, regionROM2B:
		c := b.romAccessCycles(addr, kind, 2) + b.romAccessCycles(addr+2, Sequential, 2)
		b.tickAccess(c)
		return
	case regionSRAM, regionSRAMB:
		b.endBurstOffROM()
		b.tickAccess(b.sramCycles())
		b.Cart.WriteSRAM(addr, uint8(value))
		b.latchWord(value)
		return
	}
	b.invalidAccess(addr, true)
	b.tickAccess(1)
}

// tickAccess charges access latency for CPU-context transfers. DMA transfer
// units are accounted by the DMA controller itself, one cycle per unit.
func (b *Bus) tickAccess(n uint64) {
	if b.inDMA {
		return
	}
	b.tick(n)
}

// latchByte updates the open-bus latch for a byte transfer. Regions with a
// processor-local bus (on-chip RAM, OAM) update only the transacted lane;
// everything else broadcasts the byte across all four lanes.
func (b *Bus) latchByte(addr uint32, v uint8, partial bool) {
	if partial {
		shift := 8 * (addr & 3)
		b.openBus = b.openBus&^(0xFF<<shift) | uint32(v)<<shift
		return
	}
	b.openBus = uint32(v) * 0x01010101
}

// latchHalf updates the latch for a halfword transfer.
func (b *Bus) latchHalf(addr uint32, v uint16, partial bool) {
	if partial {
		shift := 8 * (addr & 2)
		b.openBus = b.openBus&^(0xFFFF<<shift) | uint32(v)<<shift
		return
	}
	b.openBus = uint32(v) * 0x00010001
}

func (b *Bus) latchWord(v uint32) {
	b.openBus = v
}

// openBusByte returns the latch lane selected by the low address bits.
func (b *Bus) openBusByte(addr uint32) uint8 {
	return uint8(b.openBus >> (8 * (addr & 3)))
}

func (b *Bus) openBusHalf(addr uint32) uint16 {
	return uint16(b.openBus >> (8 * (addr & 2)))
}

func (b *Bus) invalidAccess(addr uint32, write bool) {
	if b.log == nil {
		return
	}
	if write {
		b.log.Logf(debug.ComponentBus, debug.LogLevelDebug, "write to unmapped address 0x%08X", addr)
		return
	}
	b.log.Logf(debug.ComponentBus, debug.LogLevelDebug, "read from unmapped address 0x%08X returns open bus", addr)
}

// len32 returns the length of a byte slice as a uint32 mask base. The RAM
// arrays are powers of two so addr&(len-1) mirrors them across the region.
func len32(b []uint8) uint32 {
	return uint32(len(b))
}
