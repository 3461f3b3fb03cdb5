package ppu

import (
	"tetra-core/internal/clock"
	"tetra-core/internal/memory"
)

// cycleRem carries sub-dot cycles between syncs. It is a PPU field, so the
// wholesale struct rebuild in Reset clears it with the raster position.

// SyncTo advances the raster to the given absolute cycle, rendering each
// scanline as its horizontal blank begins.
func (p *PPU) SyncTo(cycle uint64) {
	if cycle <= p.lastSync {
		return
	}
	elapsed := cycle - p.lastSync
	p.lastSync = cycle

	p.cycleRem += elapsed
	for p.cycleRem >= CyclesPerDot {
		p.cycleRem -= CyclesPerDot
		p.stepDot()
	}
}

// lineDots returns the number of dots on the current scanline. The final
// line of an odd frame is one dot short outside interlace, tracking the
// analog phase of the raster.
func (p *PPU) lineDots() int {
	if p.oddFrame && p.scanline == linesPerFrame-1 {
		return dotsPerLine - 1
	}
	return dotsPerLine
}

func (p *PPU) stepDot() {
	p.dot++
	if p.dot == activeDots && p.scanline < ActiveHeight {
		// Entering hblank on an active line: the line's pixels are
		// latched, render it.
		p.renderLine(p.scanline)
	}
	if p.dot >= p.lineDots() {
		p.dot = 0
		p.scanline++
		if p.scanline == ActiveHeight {
			// Vblank begins.
			p.dispstat |= statVBlank
			p.frameComplete = true
			p.FrameCounter++
		}
		if p.scanline >= linesPerFrame {
			p.scanline = 0
			p.oddFrame = !p.oddFrame
			p.dispstat &^= statVBlank
		}
		if int(p.dispstat>>8) == p.scanline {
			p.dispstat |= statVCountMatch
		} else {
			p.dispstat &^= statVCountMatch
		}
	}
	if p.dot >= activeDots {
		p.dispstat |= statHBlank
	} else {
		p.dispstat &^= statHBlank
	}
}

// PowerOn schedules the PPU's steady-state events starting from the given
// cycle: the per-line catch-up sync and, when enabled, the IRQ events.
func (p *PPU) PowerOn(now uint64) {
	p.lastSync = now
	p.sched.Schedule(clock.EventVideoSync, now+cyclesPerLine)
	p.rescheduleIRQEvents(now)
}

// HandleEvent consumes a scheduler event. Consumers are idempotent: each
// handler catches up to now and re-inserts its own next occurrence, keeping
// a steady horizon.
func (p *PPU) HandleEvent(ev clock.Event, now uint64) {
	p.SyncTo(now)
	switch ev.Kind {
	case clock.EventVideoSync:
		p.sched.Schedule(clock.EventVideoSync, now+cyclesPerLine)
	case clock.EventVBlankIRQ:
		if p.dispstat&statVBlankIRQ != 0 {
			p.sched.Schedule(clock.EventVBlankIRQ, now+p.cyclesUntilVBlank())
		}
	case clock.EventHBlankIRQ:
		if p.dispstat&statHBlankIRQ != 0 {
			p.sched.Schedule(clock.EventHBlankIRQ, now+p.cyclesUntilHBlank())
		}
	case clock.EventVCounterIRQ:
		if p.dispstat&statVCountIRQ != 0 {
			p.sched.Schedule(clock.EventVCounterIRQ, now+p.cyclesUntilLine(int(p.dispstat>>8)))
		}
	}
}

// rescheduleIRQEvents drops and re-creates the IRQ events to match the
// current enable bits.
func (p *PPU) rescheduleIRQEvents(now uint64) {
	p.sched.CancelKind(clock.EventVBlankIRQ)
	p.sched.CancelKind(clock.EventHBlankIRQ)
	p.sched.CancelKind(clock.EventVCounterIRQ)
	if p.dispstat&statVBlankIRQ != 0 {
		p.sched.Schedule(clock.EventVBlankIRQ, now+p.cyclesUntilVBlank())
	}
	if p.dispstat&statHBlankIRQ != 0 {
		p.sched.Schedule(clock.EventHBlankIRQ, now+p.cyclesUntilHBlank())
	}
	if p.dispstat&statVCountIRQ != 0 {
		p.sched.Schedule(clock.EventVCounterIRQ, now+p.cyclesUntilLine(int(p.dispstat>>8)))
	}
}

// dotsUntil counts raster dots from the current position to the target,
// walking forward and wrapping at the frame; a target equal to the current
// position is a full frame away. Short-frame dot drops are ignored here;
// handlers re-derive exact state when they fire.
func (p *PPU) dotsUntil(line, dot int) uint64 {
	cur := p.scanline*dotsPerLine + p.dot
	tgt := line*dotsPerLine + dot
	d := tgt - cur
	if d <= 0 {
		d += linesPerFrame * dotsPerLine
	}
	return uint64(d)
}

func (p *PPU) cyclesUntilVBlank() uint64 {
	return p.dotsUntil(ActiveHeight, 0)*CyclesPerDot - p.cycleRem
}

func (p *PPU) cyclesUntilHBlank() uint64 {
	line := p.scanline
	if p.dot >= activeDots {
		line++
		if line >= linesPerFrame {
			line = 0
		}
	}
	return p.dotsUntil(line, activeDots)*CyclesPerDot - p.cycleRem
}

func (p *PPU) cyclesUntilLine(target int) uint64 {
	if target >= linesPerFrame {
		target %= linesPerFrame
	}
	return p.dotsUntil(target, 0)*CyclesPerDot - p.cycleRem
}

// Busy reports whether the renderer holds the region at the current raster
// position. Palette and video RAM are held for the active portion of active
// lines; sprite attribute memory is held the same way (the stall is
// implemented rather than left permissive).
func (p *PPU) Busy(r memory.VideoRegion) bool {
	if p.forcedBlank() {
		return false
	}
	if p.scanline >= ActiveHeight {
		return false
	}
	if p.dot >= activeDots {
		return false
	}
	switch r {
	case memory.RegionPalette, memory.RegionVRAM, memory.RegionOAM:
		return true
	}
	return false
}
