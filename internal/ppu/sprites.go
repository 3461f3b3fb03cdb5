package ppu

import (
	"tetra-core/internal/debug"
)

// Per-scanline sprite limit, removable via the RemoveSpriteLimit option.
const spriteLineLimit = 32

// spriteSizes maps the size-select field to (small, large) square sprite
// dimensions.
var spriteSizes = [6][2]int{
	{8, 16}, {8, 32}, {8, 64}, {16, 32}, {16, 64}, {32, 64},
}

type spriteLine struct {
	x      int
	tile   uint32
	pal    int
	prio   uint8
	hflip  bool
	vflip  bool
	size   int
	row    int
}

// renderSpriteLine fills the sprite line buffer. Sprites are scanned in
// table order; among overlapping sprites the lowest index wins regardless of
// priority field, so the buffer is drawn back to front.
func (p *PPU) renderSpriteLine(y int, buf *[ActiveWidth]pix) {
	sizeSel := int(p.objCnt>>3) & 7
	if sizeSel >= len(spriteSizes) {
		sizeSel = 0
	}
	chrBase := uint32(p.objCnt&7) * 0x2000

	var line []spriteLine
	for i := 0; i < 128; i++ {
		b := p.OAM[i*4 : i*4+4]
		high := p.OAM[512+i/4] >> uint((i%4)*2)

		x := int(b[0])
		if high&1 != 0 {
			x -= 256
		}
		sy := int(b[1])
		size := spriteSizes[sizeSel][0]
		if high&2 != 0 {
			size = spriteSizes[sizeSel][1]
		}

		row := y - sy
		if row < 0 || row >= size {
			continue
		}
		if x <= -size || x >= ActiveWidth {
			continue
		}
		if !p.RemoveSpriteLimit && len(line) == spriteLineLimit {
			if p.log != nil {
				p.log.Logf(debug.ComponentVideo, debug.LogLevelTrace, "sprite limit hit on line %d", y)
			}
			break
		}

		attr := b[3]
		line = append(line, spriteLine{
			x:     x,
			tile:  uint32(b[2]) | uint32(attr&1)<<8,
			pal:   int(attr >> 1 & 7),
			prio:  attr >> 4 & 3,
			hflip: attr&(1<<6) != 0,
			vflip: attr&(1<<7) != 0,
			size:  size,
			row:   row,
		})
	}

	for i := len(line) - 1; i >= 0; i-- {
		p.drawSprite(&line[i], chrBase, buf)
	}
}

func (p *PPU) drawSprite(s *spriteLine, chrBase uint32, buf *[ActiveWidth]pix) {
	row := s.row
	if s.vflip {
		row = s.size - 1 - row
	}
	for col := 0; col < s.size; col++ {
		x := s.x + col
		if x < 0 || x >= ActiveWidth {
			continue
		}
		c := col
		if s.hflip {
			c = s.size - 1 - c
		}
		// Character cells are laid out on a 16-tile-wide grid; large
		// sprites span adjacent cells.
		sub := (s.tile + uint32(row>>3)*16 + uint32(c>>3)) & 0x1FF
		colorIdx := p.tilePixel(chrBase, sub, c&7, row&7, 4)
		if colorIdx == 0 {
			continue
		}
		buf[x] = pix{
			color:  p.CGRAM[(128+s.pal*16+colorIdx)&0xFF],
			prio:   s.prio,
			opaque: true,
		}
	}
}
