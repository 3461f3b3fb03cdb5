package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPopOrderTiesByInsertion(t *testing.T) {
	s := NewScheduler()

	// B@50, C@75, D@50, A@100 inserted in that order must pop B, D, C, A.
	s.Schedule(EventHBlankIRQ, 50)    // B
	s.Schedule(EventVCounterIRQ, 75)  // C
	s.Schedule(EventTimerOverflow, 50) // D
	s.Schedule(EventVBlankIRQ, 100)   // A

	var got []EventKind
	for {
		ev, ok := s.Pop(100)
		if !ok {
			break
		}
		got = append(got, ev.Kind)
	}
	require.Equal(t, []EventKind{EventHBlankIRQ, EventTimerOverflow, EventVCounterIRQ, EventVBlankIRQ}, got)
}

func TestPopNotDue(t *testing.T) {
	s := NewScheduler()
	s.Schedule(EventVideoSync, 200)

	_, ok := s.Pop(199)
	require.False(t, ok)
	require.False(t, s.EventReady(199))
	require.True(t, s.EventReady(200))

	ev, ok := s.Pop(200)
	require.True(t, ok)
	require.Equal(t, EventVideoSync, ev.Kind)
	require.Equal(t, uint64(200), ev.Due)
}

func TestCancelKind(t *testing.T) {
	s := NewScheduler()
	s.Schedule(EventVideoSync, 10)
	s.Schedule(EventTimerOverflow, 20)
	s.Schedule(EventVideoSync, 30)
	s.Schedule(EventHBlankIRQ, 40)

	s.CancelKind(EventVideoSync)
	require.Equal(t, 2, s.Len())

	ev, ok := s.Pop(100)
	require.True(t, ok)
	require.Equal(t, EventTimerOverflow, ev.Kind)
	ev, ok = s.Pop(100)
	require.True(t, ok)
	require.Equal(t, EventHBlankIRQ, ev.Kind)
}

func TestDuplicateKindsAllowed(t *testing.T) {
	s := NewScheduler()
	s.Schedule(EventTimerOverflow, 5)
	s.Schedule(EventTimerOverflow, 5)

	first, ok := s.Pop(5)
	require.True(t, ok)
	second, ok := s.Pop(5)
	require.True(t, ok)
	require.Equal(t, first.Kind, second.Kind)
	require.Less(t, first.Seq(), second.Seq())
}

func TestRestoreRoundTrip(t *testing.T) {
	s := NewScheduler()
	s.Schedule(EventHBlankIRQ, 50)
	s.Schedule(EventVBlankIRQ, 50)
	s.Schedule(EventVideoSync, 25)

	snap := s.Pending()

	r := NewScheduler()
	r.Restore(snap)

	for {
		want, ok1 := s.Pop(1000)
		got, ok2 := r.Pop(1000)
		require.Equal(t, ok1, ok2)
		if !ok1 {
			break
		}
		require.Equal(t, want.Kind, got.Kind)
		require.Equal(t, want.Due, got.Due)
	}
}

func TestNextDueTracksHorizon(t *testing.T) {
	s := NewScheduler()
	_, ok := s.NextDue()
	require.False(t, ok)

	s.Schedule(EventVideoSync, 700)
	s.Schedule(EventVBlankIRQ, 300)
	due, ok := s.NextDue()
	require.True(t, ok)
	require.Equal(t, uint64(300), due)

	// A consumer reinserting its own catch-up keeps a steady horizon.
	ev, _ := s.Pop(300)
	s.Schedule(ev.Kind, ev.Due+500)
	due, _ = s.NextDue()
	require.Equal(t, uint64(700), due)
}
