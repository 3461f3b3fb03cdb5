package ui

// preprocess applies the optional CPU-side shader before upload and returns
// the pixels to upload.
func (p *Presenter) preprocess(pixels []uint32, w, h int) []uint32 {
	switch p.opts.PreprocessShader {
	case "blur":
		return p.horizontalBlur(pixels, w, h)
	case "antidither":
		return p.antiDither(pixels, w, h)
	}
	return pixels
}

func (p *Presenter) scratchFor(n int) []uint32 {
	if cap(p.scratch) < n {
		p.scratch = make([]uint32, n)
	}
	return p.scratch[:n]
}

// horizontalBlur averages each pixel with its left neighbor, softening the
// hard column transitions some software relies on composite video to blend.
func (p *Presenter) horizontalBlur(pixels []uint32, w, h int) []uint32 {
	out := p.scratchFor(w * h)
	for y := 0; y < h; y++ {
		row := pixels[y*w : (y+1)*w]
		orow := out[y*w : (y+1)*w]
		orow[0] = row[0]
		for x := 1; x < w; x++ {
			orow[x] = avgARGB(row[x-1], row[x])
		}
	}
	return out
}

// antiDither blends horizontal pairs only when they alternate, collapsing
// mesh-dither patterns into the flat color they approximate while keeping
// real edges sharp.
func (p *Presenter) antiDither(pixels []uint32, w, h int) []uint32 {
	out := p.scratchFor(w * h)
	copy(out, pixels)
	for y := 0; y < h; y++ {
		row := pixels[y*w : (y+1)*w]
		orow := out[y*w : (y+1)*w]
		for x := 2; x < w; x++ {
			if row[x] == row[x-2] && row[x] != row[x-1] {
				blend := avgARGB(row[x-1], row[x])
				orow[x-1] = blend
				orow[x] = blend
			}
		}
	}
	return out
}

func avgARGB(a, b uint32) uint32 {
	// Per-channel average without unpacking: halve each, then restore
	// the carry the twin shifts dropped.
	return 0xFF000000 | (a>>1&0x7F7F7F7F+b>>1&0x7F7F7F7F+(a&b&0x01010101))&0x00FFFFFF
}
