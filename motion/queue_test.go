package motion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityQueueHigherPriorityPopsFirst(t *testing.T) {
	q := newPriorityQueue()
	a := &Goal{GoalID: "a", Priority: 1}
	b := &Goal{GoalID: "b", Priority: 10}
	q.push(a)
	q.push(b)

	require.Equal(t, "b", q.pop().GoalID)
	require.Equal(t, "a", q.pop().GoalID)
	require.Nil(t, q.pop())
}

func TestPriorityQueueEqualPriorityFIFO(t *testing.T) {
	q := newPriorityQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.push(&Goal{GoalID: id, Priority: 5})
	}
	require.Equal(t, "a", q.pop().GoalID)
	require.Equal(t, "b", q.pop().GoalID)
	require.Equal(t, "c", q.pop().GoalID)
}

func TestPriorityQueueRemovePending(t *testing.T) {
	q := newPriorityQueue()
	q.push(&Goal{GoalID: "a", Priority: 5})
	q.push(&Goal{GoalID: "b", Priority: 5})

	require.True(t, q.remove("a"))
	require.False(t, q.remove("a"))
	require.Equal(t, 1, q.len())
	require.Equal(t, "b", q.pop().GoalID)
}

func TestPriorityQueueRemoveAbsentReturnsFalse(t *testing.T) {
	q := newPriorityQueue()
	require.False(t, q.remove("ghost"))
}
