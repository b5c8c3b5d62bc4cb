package extsort

// mergeItem is one heap entry: a run's current head value and the run it
// came from.
type mergeItem struct {
	value string
	run   int
}

// mergeHeap is a min-heap of run heads keyed by value, implementing
// [container/heap.Interface]. Ties break on run index so the merge order
// is fully deterministic.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].value != h[j].value {
		return h[i].value < h[j].value
	}

	return h[i].run < h[j].run
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(mergeItem)) //nolint:forcetypeassert // heap.Interface contract.
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
