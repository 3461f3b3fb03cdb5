package memory

import "tetra-core/internal/clock"

var timerPrescale = [4]uint64{1, 64, 256, 1024}

// Timer is one of the four hardware timers. Free-running timers are modelled
// by arithmetic on the cycle clock instead of per-cycle ticking: the counter
// value is derived from the cycle at which counting started, and an overflow
// event is scheduled for the cycle the counter will wrap.
type Timer struct {
	Reload  uint16
	Control uint16

	// startCycle and startValue anchor the derived counter.
	startCycle uint64
	startValue uint16
	// overflowAt is the cycle of the next wrap, valid while running.
	overflowAt uint64
	// cascadeCounter is the live count for cascade timers, which tick on
	// the previous timer's overflow rather than on the cycle clock.
	cascadeCounter uint16
}

const (
	timerCascade = 1 << 2
	timerIRQ     = 1 << 6
	timerEnable  = 1 << 7
)

func (t *Timer) enabled() bool  { return t.Control&timerEnable != 0 }
func (t *Timer) cascade() bool  { return t.Control&timerCascade != 0 }
func (t *Timer) prescale() uint64 { return timerPrescale[t.Control&3] }

// counterAt derives the current counter value.
func (t *Timer) counterAt(now uint64) uint16 {
	if !t.enabled() {
		return t.startValue
	}
	if t.cascade() {
		return t.cascadeCounter
	}
	elapsed := (now - t.startCycle) / t.prescale()
	return t.startValue + uint16(elapsed)
}

func (t *Timer) scheduleFrom(now uint64, value uint16) {
	t.startCycle = now
	t.startValue = value
	t.overflowAt = now + (0x10000-uint64(value))*t.prescale()
}

func (b *Bus) readTimer(off uint32) uint16 {
	idx := int(off-ioTimerBase) / 4
	if off&3 == 0 {
		return b.timers[idx].counterAt(b.Cycles)
	}
	return b.timers[idx].Control
}

func (b *Bus) writeTimer(off uint32, value uint16) {
	idx := int(off-ioTimerBase) / 4
	t := &b.timers[idx]
	if off&3 == 0 {
		// Reload register; takes effect on the next enable or overflow.
		t.Reload = value
		return
	}
	wasEnabled := t.enabled()
	t.Control = value & 0x00C7
	if t.enabled() && !wasEnabled {
		if t.cascade() {
			t.cascadeCounter = t.Reload
		} else {
			t.scheduleFrom(b.Cycles, t.Reload)
			b.Sched.Schedule(clock.EventTimerOverflow, t.overflowAt)
		}
	}
	if !t.enabled() && wasEnabled {
		t.startValue = t.counterAt(b.Cycles)
	}
}

// serviceTimers handles a timer-overflow wake-up. The handler is idempotent:
// it scans every running timer and services only those actually past their
// overflow cycle, so duplicate or stale events are harmless.
func (b *Bus) serviceTimers() {
	for i := range b.timers {
		t := &b.timers[i]
		if !t.enabled() || t.cascade() {
			continue
		}
		for t.overflowAt <= b.Cycles {
			t.scheduleFrom(t.overflowAt, t.Reload)
			b.timerOverflowed(i)
		}
		b.Sched.Schedule(clock.EventTimerOverflow, t.overflowAt)
	}
}

// timerOverflowed applies one overflow's side effects: the IRQ flag, the
// cascade tick of the next timer, and the audio FIFO drain for timers 0/1.
func (b *Bus) timerOverflowed(idx int) {
	t := &b.timers[idx]
	if t.Control&timerIRQ != 0 {
		b.IRQ.Raise(IRQTimer0 << uint(idx))
	}
	if idx < 3 {
		next := &b.timers[idx+1]
		if next.enabled() && next.cascade() {
			next.cascadeCounter++
			if next.cascadeCounter == 0 {
				next.cascadeCounter = next.Reload
				b.timerOverflowed(idx + 1)
			}
		}
	}
	if idx <= 1 && b.Audio != nil {
		refillA, refillB := b.Audio.TimerOverflow(idx)
		if refillA {
			b.DMA.RequestFIFORefill(0)
		}
		if refillB {
			b.DMA.RequestFIFORefill(1)
		}
	}
}

// TimerSnapshot exposes timer state for serialization.
type TimerSnapshot struct {
	Reload         uint16
	Control        uint16
	StartCycle     uint64
	StartValue     uint16
	OverflowAt     uint64
	CascadeCounter uint16
}

// TimerState returns a snapshot of timer idx.
func (b *Bus) TimerState(idx int) TimerSnapshot {
	t := &b.timers[idx]
	return TimerSnapshot{
		Reload: t.Reload, Control: t.Control,
		StartCycle: t.startCycle, StartValue: t.startValue,
		OverflowAt: t.overflowAt, CascadeCounter: t.cascadeCounter,
	}
}

// RestoreTimer loads a snapshot into timer idx.
func (b *Bus) RestoreTimer(idx int, s TimerSnapshot) {
	t := &b.timers[idx]
	t.Reload, t.Control = s.Reload, s.Control
	t.startCycle, t.startValue = s.StartCycle, s.StartValue
	t.overflowAt, t.cascadeCounter = s.OverflowAt, s.CascadeCounter
}
