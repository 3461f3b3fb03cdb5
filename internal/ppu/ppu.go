package ppu

import (
	"tetra-core/internal/clock"
	"tetra-core/internal/debug"
)

// Display geometry. One dot is four master-clock cycles; a short frame drops
// the final dot to track analog phase when interlace is off.
const (
	ActiveWidth  = 256
	ActiveHeight = 224

	dotsPerLine   = 340
	linesPerFrame = 262
	activeDots    = 256
	CyclesPerDot  = 4

	cyclesPerLine  = dotsPerLine * CyclesPerDot
	cyclesPerFrame = linesPerFrame * cyclesPerLine
)

// Register window offsets.
const (
	regDispCnt  = 0x00
	regDispStat = 0x04
	regVCount   = 0x06
	regBG0Cnt   = 0x08
	regBG0HOfs  = 0x10
	regM7A      = 0x20
	regM7B      = 0x22
	regM7C      = 0x24
	regM7D      = 0x26
	regM7X      = 0x28
	regM7Y      = 0x2A
	regM7Cnt    = 0x2C
	regWin0H    = 0x30
	regWin1H    = 0x32
	regWinSelA  = 0x34
	regWinSelB  = 0x36
	regWinLog   = 0x38
	regTMain    = 0x3A
	regTSub     = 0x3C
	regTMainWin = 0x3E
	regTSubWin  = 0x40
	regCGCtl    = 0x42
	regCGAdSub  = 0x44
	regColData  = 0x46
	regMosaic   = 0x48
	regObjCnt   = 0x4A
	regOAMAddr  = 0x4C
	regVMAddr   = 0x50
	regVMData   = 0x52
	regHVLatch  = 0x58
	regHLatched = 0x5A
	regVLatched = 0x5C
)

// DISPSTAT bits.
const (
	statVBlank      = 1 << 0
	statHBlank      = 1 << 1
	statVCountMatch = 1 << 2
	statVBlankIRQ   = 1 << 3
	statHBlankIRQ   = 1 << 4
	statVCountIRQ   = 1 << 5
)

// BackgroundLayer holds the per-layer register state.
type BackgroundLayer struct {
	Control uint16
	HOfs    uint16
	VOfs    uint16
}

func (l *BackgroundLayer) chrBase() uint32    { return uint32((l.Control>>2)&7) * 0x2000 }
func (l *BackgroundLayer) mosaic() bool       { return l.Control&(1<<6) != 0 }
func (l *BackgroundLayer) screenBase() uint32 { return uint32((l.Control>>8)&0x1F) * 0x800 }
func (l *BackgroundLayer) screenSize() int    { return int(l.Control>>14) & 3 }

// PPU is the 16-bit-class video pipeline: four tile backgrounds in mode-
// dependent depths, an affine mode, a 128-entry sprite engine, two windows
// per layer and the main/sub-screen color-math stage. It implements the bus
// video port; the bus clock drives it through SyncTo and scheduler events.
type PPU struct {
	VRAM  [64 << 10]uint8
	CGRAM [256]uint16
	OAM   [544]uint8

	BG [4]BackgroundLayer

	dispcnt  uint16
	dispstat uint16

	// Mode 7 matrix, center and control.
	m7a, m7b, m7c, m7d int16
	m7x, m7y           int16
	m7cnt              uint16

	win0, win1   winRange
	winSelA      uint16
	winSelB      uint16
	winLog       uint16
	tMain, tSub  uint16
	tMainWin     uint16
	tSubWin      uint16
	cgCtl        uint16
	cgAdSub      uint16
	fixedColor   uint16
	mosaic       uint16
	objCnt       uint16
	oamAddr      uint16

	// vmAddr is the auxiliary video-memory port address. Hardware keeps
	// it across reset, so Reset leaves it alone.
	vmAddr uint16

	hLatched, vLatched uint16

	// Raster state, advanced by SyncTo.
	lastSync uint64
	cycleRem uint64
	scanline int
	dot      int
	oddFrame bool

	frameComplete bool
	FrameCounter  uint64

	// Framebuffer holds 15-bit BGR pixels.
	Framebuffer [ActiveWidth * ActiveHeight]uint16

	// RemoveSpriteLimit lifts the per-scanline sprite limit.
	RemoveSpriteLimit bool

	sched *clock.Scheduler
	log   *debug.Logger
}

// NewPPU creates the video unit bound to the event scheduler.
func NewPPU(sched *clock.Scheduler, logger *debug.Logger) *PPU {
	return &PPU{sched: sched, log: logger}
}

// winRange is one window's horizontal bounds, inclusive.
type winRange struct {
	left, right uint8
}

func (w winRange) contains(x int) bool {
	return x >= int(w.left) && x <= int(w.right)
}

// Mode returns the current background mode.
func (p *PPU) Mode() int { return int(p.dispcnt & 7) }

func (p *PPU) forcedBlank() bool { return p.dispcnt&(1<<7) != 0 }
func (p *PPU) brightness() uint16 { return (p.dispcnt >> 8) & 0x0F }

// FrameComplete reports whether a frame finished since the last call, and
// clears the flag.
func (p *PPU) FrameComplete() bool {
	done := p.frameComplete
	p.frameComplete = false
	return done
}

// Scanline returns the current raster line, for tests.
func (p *PPU) Scanline() int { return p.scanline }

// Dot returns the current raster dot, for tests.
func (p *PPU) Dot() int { return p.dot }

// Reset reinitializes the video unit. The auxiliary video-memory address
// register is hardware-retained and survives; hard resets additionally clear
// video memory.
func (p *PPU) Reset(hard bool) {
	vmAddr := p.vmAddr
	if hard {
		p.VRAM = [64 << 10]uint8{}
		p.CGRAM = [256]uint16{}
		p.OAM = [544]uint8{}
	}
	vram, cgram, oam := p.VRAM, p.CGRAM, p.OAM
	fb := p.Framebuffer
	sched, log := p.sched, p.log
	removeLimit := p.RemoveSpriteLimit
	*p = PPU{
		VRAM: vram, CGRAM: cgram, OAM: oam,
		Framebuffer: fb,
		vmAddr:      vmAddr,
		sched:       sched,
		log:         log,
		RemoveSpriteLimit: removeLimit,
	}
}
