package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuePushPopOrder(t *testing.T) {
	q := NewQueue(8)
	require.Zero(t, q.Push([]int16{1, 2, 3, 4}))

	dst := make([]int16, 4)
	require.Equal(t, 4, q.Pop(dst))
	require.Equal(t, []int16{1, 2, 3, 4}, dst)
	require.Zero(t, q.Len())
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(4)
	require.Zero(t, q.Push([]int16{1, 2, 3, 4}))
	require.Equal(t, 2, q.Push([]int16{5, 6}), "overflow drops the excess")

	dst := make([]int16, 8)
	require.Equal(t, 4, q.Pop(dst))
	require.Equal(t, []int16{1, 2, 3, 4}, dst[:4])
}

func TestQueueWrapsAround(t *testing.T) {
	q := NewQueue(4)
	dst := make([]int16, 4)
	for round := int16(0); round < 10; round++ {
		require.Zero(t, q.Push([]int16{round, round + 1, round + 2}))
		require.Equal(t, 3, q.Pop(dst))
		require.Equal(t, []int16{round, round + 1, round + 2}, dst[:3])
	}
}

func TestQueuePartialPop(t *testing.T) {
	q := NewQueue(16)
	q.Push([]int16{1, 2, 3, 4, 5})
	dst := make([]int16, 2)
	require.Equal(t, 2, q.Pop(dst))
	require.Equal(t, 3, q.Len())
}
