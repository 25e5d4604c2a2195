package motion

import (
	"container/heap"
	"sync"
)

// queueItem pairs a Goal with its insertion sequence number so the heap can
// break priority ties FIFO: higher priority pops first, equal priorities
// pop in submission order.
type queueItem struct {
	goal *Goal
	seq  uint64
}

// goalHeap is the container/heap.Interface implementation. No third-party
// priority-queue library appears anywhere in the retrieved corpus, and
// container/heap is itself the corpus's own idiom for graph search (see
// DESIGN.md), so it's the grounded choice here too.
type goalHeap []*queueItem

func (h goalHeap) Len() int { return len(h) }

func (h goalHeap) Less(i, j int) bool {
	if h[i].goal.Priority != h[j].goal.Priority {
		return h[i].goal.Priority > h[j].goal.Priority
	}
	return h[i].seq < h[j].seq
}

func (h goalHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *goalHeap) Push(x any) {
	*h = append(*h, x.(*queueItem))
}

func (h *goalHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// priorityQueue is the queue-lock-guarded pending queue of pushed goals.
type priorityQueue struct {
	mu      sync.Mutex
	heap    goalHeap
	counter uint64
}

func newPriorityQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(&pq.heap)
	return pq
}

func (q *priorityQueue) push(g *Goal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counter++
	heap.Push(&q.heap, &queueItem{goal: g, seq: q.counter})
}

func (q *priorityQueue) pop() *Goal {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil
	}
	item := heap.Pop(&q.heap).(*queueItem)
	return item.goal
}

// remove deletes a still-pending goal by id, re-heapifying. Returns false if
// no pending goal has that id.
func (q *priorityQueue) remove(goalID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.heap {
		if item.goal.GoalID == goalID {
			heap.Remove(&q.heap, i)
			return true
		}
	}
	return false
}

func (q *priorityQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
