package vector

import "container/heap"

// queueItem pairs a node id with its distance to the query vector.
type queueItem struct {
	id   int64
	dist float64
}

// priorityQueue is a heap of queueItems. With max set it is a max-heap by
// distance (used to bound the result set); otherwise a min-heap (used for the
// expansion frontier). Equal distances order by smaller id so traversal is
// deterministic.
type priorityQueue struct {
	items []queueItem
	max   bool
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.dist == b.dist {
		return a.id < b.id
	}
	if pq.max {
		return a.dist > b.dist
	}
	return a.dist < b.dist
}

func (pq *priorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *priorityQueue) Push(x any) {
	pq.items = append(pq.items, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	pq.items = old[:n-1]
	return item
}

// top returns the root item without removing it.
func (pq *priorityQueue) top() queueItem {
	return pq.items[0]
}

func newMinQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(pq)
	return pq
}

func newMaxQueue() *priorityQueue {
	pq := &priorityQueue{max: true}
	heap.Init(pq)
	return pq
}
