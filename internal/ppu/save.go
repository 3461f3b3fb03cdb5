package ppu

import "tetra-core/internal/state"

// SaveState serializes the full video state. The framebuffer is transient
// output and is excluded; LoadState re-zeroes it and the next rendered frame
// repopulates it.
func (p *PPU) SaveState(w *state.Writer) {
	w.Raw(p.VRAM[:])
	for _, c := range p.CGRAM {
		w.U16(c)
	}
	w.Raw(p.OAM[:])
	for i := range p.BG {
		w.U16(p.BG[i].Control)
		w.U16(p.BG[i].HOfs)
		w.U16(p.BG[i].VOfs)
	}
	w.U16(p.dispcnt)
	w.U16(p.dispstat)
	w.I16(p.m7a)
	w.I16(p.m7b)
	w.I16(p.m7c)
	w.I16(p.m7d)
	w.I16(p.m7x)
	w.I16(p.m7y)
	w.U16(p.m7cnt)
	w.U8(p.win0.left)
	w.U8(p.win0.right)
	w.U8(p.win1.left)
	w.U8(p.win1.right)
	w.U16(p.winSelA)
	w.U16(p.winSelB)
	w.U16(p.winLog)
	w.U16(p.tMain)
	w.U16(p.tSub)
	w.U16(p.tMainWin)
	w.U16(p.tSubWin)
	w.U16(p.cgCtl)
	w.U16(p.cgAdSub)
	w.U16(p.fixedColor)
	w.U16(p.mosaic)
	w.U16(p.objCnt)
	w.U16(p.oamAddr)
	w.U16(p.vmAddr)
	w.U16(p.hLatched)
	w.U16(p.vLatched)
	w.U64(p.lastSync)
	w.U64(p.cycleRem)
	w.Int(p.scanline)
	w.Int(p.dot)
	w.Bool(p.oddFrame)
	w.Bool(p.frameComplete)
	w.U64(p.FrameCounter)
}

// LoadState restores the video state from a snapshot.
func (p *PPU) LoadState(r *state.Reader) {
	r.Raw(p.VRAM[:])
	for i := range p.CGRAM {
		p.CGRAM[i] = r.U16()
	}
	r.Raw(p.OAM[:])
	for i := range p.BG {
		p.BG[i].Control = r.U16()
		p.BG[i].HOfs = r.U16()
		p.BG[i].VOfs = r.U16()
	}
	p.dispcnt = r.U16()
	p.dispstat = r.U16()
	p.m7a = r.I16()
	p.m7b = r.I16()
	p.m7c = r.I16()
	p.m7d = r.I16()
	p.m7x = r.I16()
	p.m7y = r.I16()
	p.m7cnt = r.U16()
	p.win0.left = r.U8()
	p.win0.right = r.U8()
	p.win1.left = r.U8()
	p.win1.right = r.U8()
	p.winSelA = r.U16()
	p.winSelB = r.U16()
	p.winLog = r.U16()
	p.tMain = r.U16()
	p.tSub = r.U16()
	p.tMainWin = r.U16()
	p.tSubWin = r.U16()
	p.cgCtl = r.U16()
	p.cgAdSub = r.U16()
	p.fixedColor = r.U16()
	p.mosaic = r.U16()
	p.objCnt = r.U16()
	p.oamAddr = r.U16()
	p.vmAddr = r.U16()
	p.hLatched = r.U16()
	p.vLatched = r.U16()
	p.lastSync = r.U64()
	p.cycleRem = r.U64()
	p.scanline = r.Int()
	p.dot = r.Int()
	p.oddFrame = r.Bool()
	p.frameComplete = r.Bool()
	p.FrameCounter = r.U64()

	for i := range p.Framebuffer {
		p.Framebuffer[i] = 0
	}
}
