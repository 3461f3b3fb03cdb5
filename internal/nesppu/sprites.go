package nesppu

import "tetra-core/internal/state"

// Sprite evaluation phases. The machine scans primary sprite memory for
// entries intersecting the next scanline, copies up to eight of them into
// the secondary buffer, then degrades into the hardware's buggy overflow
// scan.
type evalPhase uint8

const (
	evalScanning evalPhase = iota
	evalCopying
	evalOverflow
	evalDone
)

type evalState struct {
	phase    evalPhase
	n        int // primary sprite index
	m        int // byte index, used by the overflow scan
	copyByte int
	isZero   [8]bool
}

func (e *evalState) save(w *state.Writer) {
	w.U8(uint8(e.phase))
	w.Int(e.n)
	w.Int(e.m)
	w.Int(e.copyByte)
	for _, z := range e.isZero {
		w.Bool(z)
	}
}

func (e *evalState) load(r *state.Reader) {
	e.phase = evalPhase(r.U8())
	e.n = r.Int()
	e.m = r.Int()
	e.copyByte = r.Int()
	for i := range e.isZero {
		e.isZero[i] = r.Bool()
	}
}

func (p *PPU) spriteHeight() int {
	if p.ctrl&ctrlSprite8x16 != 0 {
		return 16
	}
	return 8
}

// evalTarget is the line the evaluation is populating sprites for.
func (p *PPU) evalTarget() int {
	return p.scanline + 1
}

func (p *PPU) spriteInRange(y uint8) bool {
	row := p.evalTarget() - int(y) - 1
	return row >= 0 && row < p.spriteHeight()
}

// beginEvaluation resets the machine after the secondary-clear dots.
func (p *PPU) beginEvaluation() {
	for i := range p.secondary {
		p.secondary[i] = 0xFF
	}
	p.secondaryLen = 0
	p.eval = evalState{}
}

// evaluateStep runs one evaluation step; the caller invokes it on each odd
// dot of the visible span.
func (p *PPU) evaluateStep() {
	e := &p.eval
	switch e.phase {
	case evalScanning:
		y := p.OAM[e.n*4]
		if p.secondaryLen < 8 {
			p.secondary[p.secondaryLen*4] = y
		}
		if p.spriteInRange(y) {
			if p.secondaryLen < 8 {
				e.isZero[p.secondaryLen] = e.n == 0
				e.copyByte = 1
				e.phase = evalCopying
				return
			}
			e.phase = evalOverflow
			e.m = 0
			return
		}
		e.n++
		if e.n == 64 {
			e.phase = evalDone
		}
	case evalCopying:
		p.secondary[p.secondaryLen*4+e.copyByte] = p.OAM[e.n*4+e.copyByte]
		e.copyByte++
		if e.copyByte == 4 {
			p.secondaryLen++
			e.n++
			if e.n == 64 {
				e.phase = evalDone
			} else {
				e.phase = evalScanning
			}
		}
	case evalOverflow:
		// Hardware bug, reproduced faithfully: once eight sprites are
		// found the scan reads OAM[n*4+m] as a Y coordinate, and on a
		// miss increments both n and m, so attribute bytes get tested
		// as Y positions.
		if p.RemoveSpriteLimit {
			e.phase = evalDone
			return
		}
		y := p.OAM[e.n*4+e.m]
		if p.spriteInRange(y) {
			p.status |= statusOverflow
			e.m++
			if e.m == 4 {
				e.m = 0
				e.n++
			}
		} else {
			e.n++
			e.m++
			if e.m == 4 {
				e.m = 0
			}
		}
		if e.n >= 64 {
			e.phase = evalDone
		}
	case evalDone:
	}
}

// fetchSprites loads the pattern pipeline for the line the evaluation
// targeted. With the sprite limit removed the pipeline is filled straight
// from primary memory, past the eight-sprite mark, and the overflow flag is
// left untouched.
func (p *PPU) fetchSprites() {
	target := p.evalTarget()
	p.sprCount = 0

	if p.RemoveSpriteLimit {
		for i := 0; i < 64 && p.sprCount < len(p.sprX); i++ {
			if !p.spriteInRange(p.OAM[i*4]) {
				continue
			}
			p.loadSprite(p.OAM[i*4:i*4+4], i == 0, target)
		}
		return
	}

	for i := 0; i < p.secondaryLen; i++ {
		p.loadSprite(p.secondary[i*4:i*4+4], p.eval.isZero[i], target)
	}
}

func (p *PPU) loadSprite(entry []uint8, isZero bool, target int) {
	y := entry[0]
	tile := entry[1]
	attr := entry[2]
	x := entry[3]

	row := target - int(y) - 1
	if attr&0x80 != 0 {
		row = p.spriteHeight() - 1 - row
	}

	var addr uint16
	if p.ctrl&ctrlSprite8x16 != 0 {
		table := uint16(tile&1) << 12
		t := uint16(tile &^ 1)
		if row >= 8 {
			t++
			row -= 8
		}
		addr = table + t*16 + uint16(row)
	} else {
		table := uint16(0)
		if p.ctrl&ctrlSprTable != 0 {
			table = 0x1000
		}
		addr = table + uint16(tile)*16 + uint16(row)
	}

	low := p.Mem.Read(addr)
	high := p.Mem.Read(addr + 8)
	if attr&0x40 != 0 {
		low = reverseByte(low)
		high = reverseByte(high)
	}

	i := p.sprCount
	p.sprPatternLow[i] = low
	p.sprPatternHigh[i] = high
	p.sprAttr[i] = attr
	p.sprX[i] = int(x)
	p.sprIsZero[i] = isZero
	p.sprCount++
}

func reverseByte(b uint8) uint8 {
	b = b>>4 | b<<4
	b = b>>2&0x33 | b<<2&0xCC
	b = b>>1&0x55 | b<<1&0xAA
	return b
}
