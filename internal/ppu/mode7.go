package ppu

// Mode 7 control bits.
const (
	m7OOBWrap        = 0
	m7OOBTransparent = 1
	m7OOBTile0       = 2

	m7HFlip = 1 << 2
	m7VFlip = 1 << 3
)

// renderMode7Line renders the affine background. For every screen pixel the
// 8.8 fixed-point matrix maps (scroll + screen) space, relative to the
// rotation center, into the 1024x1024 texture plane.
func (p *PPU) renderMode7Line(y int, buf *[ActiveWidth]pix) {
	a := int32(p.m7a)
	b := int32(p.m7b)
	c := int32(p.m7c)
	d := int32(p.m7d)
	cx := int32(p.m7x)
	cy := int32(p.m7y)
	scrollX := int32(int16(p.BG[0].HOfs<<3) >> 3)
	scrollY := int32(int16(p.BG[0].VOfs<<3) >> 3)

	oob := int(p.m7cnt & 3)

	sy := scrollY + int32(y)
	if p.m7cnt&m7VFlip != 0 {
		sy = scrollY + int32(ActiveHeight-1-y)
	}
	dy := sy - cy

	for x := 0; x < ActiveWidth; x++ {
		sx := scrollX + int32(x)
		if p.m7cnt&m7HFlip != 0 {
			sx = scrollX + int32(ActiveWidth-1-x)
		}
		dx := sx - cx

		tx := (a*dx+b*dy)>>8 + cx
		ty := (c*dx+d*dy)>>8 + cy

		tile0 := false
		if tx < 0 || tx >= 1024 || ty < 0 || ty >= 1024 {
			switch oob {
			case m7OOBTransparent:
				continue
			case m7OOBTile0:
				tile0 = true
			default:
				tx &= 1023
				ty &= 1023
			}
		}

		var tile uint32
		if !tile0 {
			mapAddr := (uint32(ty>>3)&127)*256 + (uint32(tx>>3)&127)*2
			tile = uint32(p.VRAM[mapAddr])
		}
		chrAddr := tile*128 + uint32(ty&7)*16 + uint32(tx&7)*2 + 1
		colorIdx := p.VRAM[chrAddr&(uint32(len(p.VRAM))-1)]
		if colorIdx == 0 {
			continue
		}
		buf[x] = pix{color: p.CGRAM[colorIdx], opaque: true}
	}
}
