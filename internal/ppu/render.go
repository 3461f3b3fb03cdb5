package ppu

// Layer identifiers used by selection and color math.
const (
	layerBG0 = 0
	layerBG1 = 1
	layerBG2 = 2
	layerBG3 = 3
	layerOBJ = 4
	layerBackdrop = 5
	layerMath     = 5 // window slot shared with backdrop
)

// pix is one resolved layer pixel on the current line.
type pix struct {
	color  uint16
	prio   uint8
	opaque bool
}

// lineBuffers holds the per-layer pixels for one scanline.
type lineBuffers struct {
	bg  [4][ActiveWidth]pix
	obj [ActiveWidth]pix
}

// bgRank maps (layer, tile priority) to composition rank; objRank maps the
// sprite priority field. Higher rank wins. The ordering interleaves sprite
// priorities between the background pairs.
var bgRank = [4][2]int{
	{8, 11},
	{7, 10},
	{2, 5},
	{1, 4},
}

var objRank = [4]int{3, 6, 9, 12}

// modeDepths returns the bits-per-pixel of each background in the given
// mode, 0 for layers that do not exist in that mode. Mode 7 is handled
// separately by the affine renderer.
func modeDepths(mode int) [4]int {
	switch mode {
	case 0:
		return [4]int{2, 2, 2, 2}
	case 1:
		return [4]int{4, 4, 2, 0}
	case 2:
		return [4]int{4, 4, 0, 0}
	case 3:
		return [4]int{8, 4, 0, 0}
	case 4:
		return [4]int{8, 2, 0, 0}
	case 5:
		return [4]int{4, 2, 0, 0}
	case 6:
		return [4]int{4, 0, 0, 0}
	default:
		return [4]int{0, 0, 0, 0}
	}
}

// renderLine draws one scanline into the framebuffer: layer buffers first,
// then per-pixel screen selection and color math.
func (p *PPU) renderLine(y int) {
	row := p.Framebuffer[y*ActiveWidth : (y+1)*ActiveWidth]
	if p.forcedBlank() {
		for x := range row {
			row[x] = 0
		}
		return
	}

	var bufs lineBuffers
	mode := p.Mode()
	if mode == 7 {
		p.renderMode7Line(y, &bufs.bg[0])
	} else {
		depths := modeDepths(mode)
		for layer := 0; layer < 4; layer++ {
			if depths[layer] == 0 {
				continue
			}
			if p.tMain&(1<<layer) == 0 && p.tSub&(1<<layer) == 0 {
				continue
			}
			p.renderBGLine(layer, y, depths[layer], &bufs.bg[layer])
		}
	}
	if p.tMain&(1<<layerOBJ) != 0 || p.tSub&(1<<layerOBJ) != 0 {
		p.renderSpriteLine(y, &bufs.obj)
	}

	brightness := p.brightness()
	for x := 0; x < ActiveWidth; x++ {
		color := p.composePixel(x, &bufs)
		row[x] = applyBrightness(color, brightness)
	}
}

// selectPixel picks the highest-ranked opaque pixel among the layers
// enabled for a screen, honoring per-layer window gating. It returns the
// backdrop when nothing contributes.
func (p *PPU) selectPixel(x int, bufs *lineBuffers, enable, winGate uint16) (uint16, int) {
	bestRank := -1
	color := p.CGRAM[0]
	layer := layerBackdrop

	mode := p.Mode()
	for bg := 0; bg < 4; bg++ {
		if enable&(1<<bg) == 0 {
			continue
		}
		px := &bufs.bg[bg][x]
		if !px.opaque {
			continue
		}
		if winGate&(1<<bg) != 0 && p.windowMasked(bg, x) {
			continue
		}
		rank := bgRank[bg][px.prio&1]
		if mode == 1 && bg == layerBG2 && px.prio&1 != 0 && p.dispcnt&(1<<3) != 0 {
			// BG3-priority quirk: the 2 bpp layer's high-priority tiles
			// jump in front of everything.
			rank = 13
		}
		if rank > bestRank {
			bestRank = rank
			color = px.color
			layer = bg
		}
	}

	if enable&(1<<layerOBJ) != 0 {
		px := &bufs.obj[x]
		if px.opaque && !(winGate&(1<<layerOBJ) != 0 && p.windowMasked(layerOBJ, x)) {
			if rank := objRank[px.prio&3]; rank > bestRank {
				color = px.color
				layer = layerOBJ
			}
		}
	}

	return color, layer
}

func applyBrightness(color, brightness uint16) uint16 {
	if brightness == 15 {
		return color
	}
	r := (color & 0x1F) * (brightness + 1) / 16
	g := (color >> 5 & 0x1F) * (brightness + 1) / 16
	b := (color >> 10 & 0x1F) * (brightness + 1) / 16
	return b<<10 | g<<5 | r
}
