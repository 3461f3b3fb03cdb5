// Package audio carries samples from the emulator thread to the host audio
// driver: a single-producer/single-consumer queue, an oto-backed sink that
// drains it, and an optional WAV capture of everything pushed.
package audio

import "sync/atomic"

// Queue is a lock-free single-producer/single-consumer ring of interleaved
// stereo samples. The emulator thread pushes, the driver thread pops; no
// other mutable state is shared between them.
type Queue struct {
	buf  []int16
	mask uint64

	head atomic.Uint64 // consumer position
	tail atomic.Uint64 // producer position
}

// NewQueue creates a queue holding at least capacity samples.
func NewQueue(capacity int) *Queue {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Queue{buf: make([]int16, n), mask: uint64(n - 1)}
}

// Len returns the number of buffered samples.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push appends samples, returning how many were dropped because the queue
// was full. Only the emulator thread may call it.
func (q *Queue) Push(samples []int16) int {
	head := q.head.Load()
	tail := q.tail.Load()
	free := len(q.buf) - int(tail-head)
	n := len(samples)
	dropped := 0
	if n > free {
		dropped = n - free
		n = free
	}
	for i := 0; i < n; i++ {
		q.buf[(tail+uint64(i))&q.mask] = samples[i]
	}
	q.tail.Store(tail + uint64(n))
	return dropped
}

// Pop fills dst with buffered samples, returning how many were written.
// Only the driver thread may call it.
func (q *Queue) Pop(dst []int16) int {
	head := q.head.Load()
	tail := q.tail.Load()
	n := int(tail - head)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = q.buf[(head+uint64(i))&q.mask]
	}
	q.head.Store(head + uint64(n))
	return n
}
