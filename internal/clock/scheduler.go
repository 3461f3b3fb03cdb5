package clock

// EventKind identifies a scheduled coprocessor event.
type EventKind uint8

const (
	// EventNone is a dummy placeholder; popping it has no effect.
	EventNone EventKind = iota
	// EventVBlankIRQ raises the vertical-blank interrupt flag.
	EventVBlankIRQ
	// EventHBlankIRQ raises the horizontal-blank interrupt flag.
	EventHBlankIRQ
	// EventVCounterIRQ raises the vertical-counter match interrupt flag.
	EventVCounterIRQ
	// EventVideoSync is the periodic catch-up point for the video unit.
	EventVideoSync
	// EventTimerOverflow reloads an overflowed timer and may request an
	// audio FIFO refill.
	EventTimerOverflow
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventVBlankIRQ:
		return "vblank-irq"
	case EventHBlankIRQ:
		return "hblank-irq"
	case EventVCounterIRQ:
		return "vcounter-irq"
	case EventVideoSync:
		return "video-sync"
	case EventTimerOverflow:
		return "timer-overflow"
	}
	return "invalid"
}

// Event is a pending wake-up: Kind becomes due at absolute cycle Due.
type Event struct {
	Kind EventKind
	Due  uint64

	// seq is the insertion order, used to break ties between events due
	// on the same cycle.
	seq uint64
}

// Scheduler is the ordered queue of pending coprocessor events.
//
// Components schedule their next wake-up as an absolute cycle count and the
// bus drains due events before every CPU access, so nothing has to tick every
// cycle. The queue holds fewer than 32 live events at any time; a binary heap
// keyed on (Due, seq) keeps pops ordered by due time with insertion order
// breaking ties.
type Scheduler struct {
	events []Event
	seq    uint64
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{events: make([]Event, 0, 32)}
}

// Schedule inserts an event due at the given absolute cycle. Multiple pending
// events of the same kind are allowed; consumers must be idempotent.
func (s *Scheduler) Schedule(kind EventKind, due uint64) {
	s.seq++
	s.events = append(s.events, Event{Kind: kind, Due: due, seq: s.seq})
	s.siftUp(len(s.events) - 1)
}

// EventReady reports whether the earliest pending event is due at or before
// the given cycle.
func (s *Scheduler) EventReady(now uint64) bool {
	return len(s.events) > 0 && s.events[0].Due <= now
}

// NextDue returns the due time of the earliest pending event.
func (s *Scheduler) NextDue() (uint64, bool) {
	if len(s.events) == 0 {
		return 0, false
	}
	return s.events[0].Due, true
}

// Pop removes and returns the earliest event whose due time is at or before
// now. It returns ok=false when no event is due.
func (s *Scheduler) Pop(now uint64) (Event, bool) {
	if !s.EventReady(now) {
		return Event{}, false
	}
	ev := s.events[0]
	last := len(s.events) - 1
	s.events[0] = s.events[last]
	s.events = s.events[:last]
	if last > 0 {
		s.siftDown(0)
	}
	return ev, true
}

// CancelKind removes every pending event of the given kind.
func (s *Scheduler) CancelKind(kind EventKind) {
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.Kind != kind {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	for i := len(s.events)/2 - 1; i >= 0; i-- {
		s.siftDown(i)
	}
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	return len(s.events)
}

// Reset drops all pending events. The insertion sequence keeps running so
// that relative ordering survives a soft reset.
func (s *Scheduler) Reset() {
	s.events = s.events[:0]
}

// Pending returns a copy of the live events in heap order, for state
// serialization. Restore rebuilds the scheduler from such a snapshot.
func (s *Scheduler) Pending() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Restore replaces the queue with the given events, preserving their stored
// insertion sequence numbers.
func (s *Scheduler) Restore(events []Event) {
	s.events = append(s.events[:0], events...)
	for i := len(s.events)/2 - 1; i >= 0; i-- {
		s.siftDown(i)
	}
	for _, ev := range s.events {
		if ev.seq > s.seq {
			s.seq = ev.seq
		}
	}
}

// Seq returns the insertion sequence number of an event, and WithSeq stamps
// one; both exist for state serialization only.
func (e Event) Seq() uint64 { return e.seq }

// WithSeq returns a copy of the event carrying the given sequence number.
func (e Event) WithSeq(seq uint64) Event {
	e.seq = seq
	return e
}

func (s *Scheduler) less(i, j int) bool {
	if s.events[i].Due != s.events[j].Due {
		return s.events[i].Due < s.events[j].Due
	}
	return s.events[i].seq < s.events[j].seq
}

func (s *Scheduler) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !s.less(i, parent) {
			return
		}
		s.events[i], s.events[parent] = s.events[parent], s.events[i]
		i = parent
	}
}

func (s *Scheduler) siftDown(i int) {
	n := len(s.events)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && s.less(right, left) {
			smallest = right
		}
		if !s.less(smallest, i) {
			return
		}
		s.events[i], s.events[smallest] = s.events[smallest], s.events[i]
		i = smallest
	}
}
