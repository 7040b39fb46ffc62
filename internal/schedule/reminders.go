package schedule

import (
	"container/heap"
	"time"
)

// reminder is one pending delayed delivery for a slot. Cancellation is by
// status check at fire time, not by removal from the heap.
type reminder struct {
	fireAt time.Time
	slotID string
	userID string
	label  string // e.g. "in 24 hours"
}

// reminderHeap is a min-heap keyed by fire time.
type reminderHeap []reminder

func (h reminderHeap) Len() int            { return len(h) }
func (h reminderHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h reminderHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *reminderHeap) Push(x interface{}) { *h = append(*h, x.(reminder)) }

func (h *reminderHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	*h = old[:n-1]
	return r
}

func (h *reminderHeap) push(r reminder) {
	heap.Push(h, r)
}

// popDue removes and returns the next reminder whose fire time has passed.
func (h *reminderHeap) popDue(now time.Time) (reminder, bool) {
	if h.Len() == 0 || (*h)[0].fireAt.After(now) {
		return reminder{}, false
	}
	return heap.Pop(h).(reminder), true
}
