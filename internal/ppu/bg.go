package ppu

// renderBGLine fills one layer's line buffer from the tilemap and character
// data at the layer's configured depth.
func (p *PPU) renderBGLine(layer, y, bpp int, buf *[ActiveWidth]pix) {
	l := &p.BG[layer]

	effY := y
	if l.mosaic() {
		size := int(p.mosaic>>4&0x0F) + 1
		effY -= effY % size
	}
	mosaicH := 0
	if l.mosaic() {
		mosaicH = int(p.mosaic&0x0F) + 1
	}

	size := l.screenSize()
	widthMask := 256<<(size&1) - 1
	heightMask := 256<<(size>>1) - 1

	for x := 0; x < ActiveWidth; x++ {
		sx := x
		if mosaicH > 1 {
			sx -= sx % mosaicH
		}
		wx := (sx + int(l.HOfs)) & widthMask
		wy := (effY + int(l.VOfs)) & heightMask

		entry := p.tilemapEntry(l, wx, wy, size)
		tile := uint32(entry & 0x03FF)
		pal := int(entry >> 10 & 7)
		prio := uint8(entry >> 13 & 1)
		hflip := entry&(1<<14) != 0
		vflip := entry&(1<<15) != 0

		fx := wx & 7
		fy := wy & 7
		if hflip {
			fx = 7 - fx
		}
		if vflip {
			fy = 7 - fy
		}

		colorIdx := p.tilePixel(l.chrBase(), tile, fx, fy, bpp)
		if colorIdx == 0 {
			continue
		}

		var palBase int
		switch bpp {
		case 2:
			palBase = pal * 4
		case 4:
			palBase = pal * 16
		default:
			palBase = 0
		}
		buf[x] = pix{
			color:  p.CGRAM[(palBase+colorIdx)&0xFF],
			prio:   prio,
			opaque: true,
		}
	}
}

// tilemapEntry fetches the nametable entry for world tile coordinates. The
// tilemap is built from 32x32 screens; the size selects how the second and
// third screens extend it horizontally and vertically.
func (p *PPU) tilemapEntry(l *BackgroundLayer, wx, wy, size int) uint16 {
	tx := wx >> 3
	ty := wy >> 3
	addr := l.screenBase() + uint32((ty&31)*32+(tx&31))*2
	if tx >= 32 {
		addr += 0x800
	}
	if ty >= 32 {
		if size == 3 {
			addr += 0x1000
		} else {
			addr += 0x800
		}
	}
	addr &= uint32(len(p.VRAM)) - 1
	return uint16(p.VRAM[addr]) | uint16(p.VRAM[addr|1])<<8
}

// tilePixel extracts one pixel from planar character data.
func (p *PPU) tilePixel(chrBase uint32, tile uint32, fx, fy, bpp int) int {
	mask := uint32(len(p.VRAM)) - 1
	bit := uint8(7 - fx)
	switch bpp {
	case 2:
		base := (chrBase + tile*16 + uint32(fy)*2) & mask
		lo := p.VRAM[base] >> bit & 1
		hi := p.VRAM[(base+1)&mask] >> bit & 1
		return int(hi<<1 | lo)
	case 4:
		base := (chrBase + tile*32 + uint32(fy)*2) & mask
		b0 := p.VRAM[base] >> bit & 1
		b1 := p.VRAM[(base+1)&mask] >> bit & 1
		b2 := p.VRAM[(base+16)&mask] >> bit & 1
		b3 := p.VRAM[(base+17)&mask] >> bit & 1
		return int(b3<<3 | b2<<2 | b1<<1 | b0)
	default: // 8 bpp
		base := (chrBase + tile*64 + uint32(fy)*2) & mask
		var v int
		for plane := 0; plane < 4; plane++ {
			off := (base + uint32(plane)*16) & mask
			b0 := p.VRAM[off] >> bit & 1
			b1 := p.VRAM[(off+1)&mask] >> bit & 1
			v |= int(b0) << (plane * 2)
			v |= int(b1) << (plane*2 + 1)
		}
		return v
	}
}
