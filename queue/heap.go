package queue

import (
	"container/heap"

	"github.com/kocayinsec/network-automation-sender/model"
)

// bandHeap orders one priority band's entries by (NextEligibleAt, Sequence),
// via container/heap. The queue keeps one bandHeap per Priority value.
type bandHeap []*model.QueueEntry

func (h bandHeap) Len() int { return len(h) }

func (h bandHeap) Less(i, j int) bool {
	if !h[i].NextEligibleAt.Equal(h[j].NextEligibleAt) {
		return h[i].NextEligibleAt.Before(h[j].NextEligibleAt)
	}
	return h[i].Sequence < h[j].Sequence
}

func (h bandHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *bandHeap) Push(x interface{}) {
	*h = append(*h, x.(*model.QueueEntry))
}

func (h *bandHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*bandHeap)(nil)

func heapPush(h *bandHeap, e *model.QueueEntry) { heap.Push(h, e) }

func heapPop(h *bandHeap) *model.QueueEntry { return heap.Pop(h).(*model.QueueEntry) }

func heapInit(h *bandHeap) { heap.Init(h) }
