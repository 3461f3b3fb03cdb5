package ui

import "time"

// FramePacer sleeps the emulator thread to hit the target frame interval.
// Falling more than five intervals behind rebases to now instead of racing
// to catch up.
type FramePacer struct {
	interval time.Duration
	next     time.Time

	// now and sleep are indirected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewFramePacer creates a pacer for the given frame rate.
func NewFramePacer(fps float64) *FramePacer {
	p := &FramePacer{
		interval: time.Duration(float64(time.Second) / fps),
		now:      time.Now,
		sleep:    time.Sleep,
	}
	p.next = p.now().Add(p.interval)
	return p
}

// SetMultiplier divides the frame interval for fast-forward; 1 restores
// normal speed.
func (p *FramePacer) SetMultiplier(fps float64, multiplier int) {
	if multiplier < 1 {
		multiplier = 1
	}
	p.interval = time.Duration(float64(time.Second) / fps / float64(multiplier))
	p.next = p.now().Add(p.interval)
}

// Wait blocks until the next frame deadline.
func (p *FramePacer) Wait() {
	now := p.now()
	if now.Before(p.next) {
		p.sleep(p.next.Sub(now))
		p.next = p.next.Add(p.interval)
		return
	}
	if now.Sub(p.next) > 5*p.interval {
		// Too far behind; rebase rather than sprint.
		p.next = now.Add(p.interval)
		return
	}
	p.next = p.next.Add(p.interval)
}
