package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock drives the pacer deterministically.
type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func (c *fakeClock) now() time.Time        { return c.t }
func (c *fakeClock) sleep(d time.Duration) { c.slept += d; c.t = c.t.Add(d) }

func newTestPacer(fps float64) (*FramePacer, *fakeClock) {
	c := &fakeClock{t: time.Unix(1000, 0)}
	p := &FramePacer{
		interval: time.Duration(float64(time.Second) / fps),
		now:      c.now,
		sleep:    c.sleep,
	}
	p.next = c.t.Add(p.interval)
	return p, c
}

func TestPacerSleepsToDeadline(t *testing.T) {
	p, c := newTestPacer(60)

	// Frame finished early: the pacer sleeps the remainder.
	c.t = c.t.Add(5 * time.Millisecond)
	p.Wait()
	require.InDelta(t, float64(time.Second/60-5*time.Millisecond), float64(c.slept), float64(time.Millisecond))
}

func TestPacerRebasesWhenFarBehind(t *testing.T) {
	p, c := newTestPacer(60)

	// Ten intervals late: the pacer rebases instead of sprinting.
	c.t = c.t.Add(10 * p.interval)
	p.Wait()
	require.Zero(t, c.slept)
	require.Equal(t, c.t.Add(p.interval), p.next)
}

func TestPacerAbsorbsSmallSlip(t *testing.T) {
	p, c := newTestPacer(60)

	// Two intervals late: no sleep, but the schedule is kept so the
	// following frames can catch up.
	late := c.t.Add(2 * p.interval)
	c.t = late
	prevNext := p.next
	p.Wait()
	require.Zero(t, c.slept)
	require.Equal(t, prevNext.Add(p.interval), p.next)
}
