package mission

import (
	"container/heap"
	"time"
)

// missionHeap is a min-heap of running missions ordered by EndTime.
type missionHeap []*Mission

func (h missionHeap) Len() int { return len(h) }

func (h missionHeap) Less(i, j int) bool {
	return h[i].EndTime.Before(h[j].EndTime)
}

func (h missionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *missionHeap) Push(x any) {
	*h = append(*h, x.(*Mission))
}

func (h *missionHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}

func (h *missionHeap) peek() *Mission {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// remove drops a mission by id and reports whether it was present.
func (h *missionHeap) remove(id ID) bool {
	for i, m := range *h {
		if m.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

func newMissionHeap() *missionHeap {
	h := &missionHeap{}
	heap.Init(h)
	return h
}

// due pops every mission whose EndTime is not after now, earliest first.
func (h *missionHeap) due(now time.Time) []*Mission {
	var out []*Mission
	for {
		m := h.peek()
		if m == nil || now.Before(m.EndTime) {
			return out
		}
		heap.Pop(h)
		out = append(out, m)
	}
}
