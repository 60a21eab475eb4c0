package eventengine

import (
	"container/heap"

	"github.com/web3guy0/tradecore/types"
)

// priorityQueue is a min-heap on (Priority, Seq): lower priority number
// sorts first, and among equal priorities the lower sequence number (the
// one enqueued earlier) sorts first. This is the FIFO tie-break the spec
// requires for "equal-priority" delivery ordering.
type priorityQueue []*types.Event

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority < pq[j].Priority
	}
	return pq[i].Seq < pq[j].Seq
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(*types.Event))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

var _ = heap.Interface(&priorityQueue{})
