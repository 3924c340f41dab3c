package vector

import "container/heap"

// neighborHeap keeps the k best neighbors seen so far. The root is the worst
// kept neighbor so it can be evicted in O(log k).
type neighborHeap struct {
	k     int
	items []Neighbor
}

func newNeighborHeap(k int) *neighborHeap {
	return &neighborHeap{k: k, items: make([]Neighbor, 0, k)}
}

// worse reports whether a ranks after b (larger distance, then larger id).
func worse(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

func (h *neighborHeap) Len() int           { return len(h.items) }
func (h *neighborHeap) Less(i, j int) bool { return worse(h.items[i], h.items[j]) }
func (h *neighborHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *neighborHeap) Push(x any)         { h.items = append(h.items, x.(Neighbor)) }
func (h *neighborHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// offer adds n if the heap has room or n ranks before the current worst.
func (h *neighborHeap) offer(n Neighbor) {
	if len(h.items) < h.k {
		heap.Push(h, n)
		return
	}
	if worse(h.items[0], n) {
		h.items[0] = n
		heap.Fix(h, 0)
	}
}

func (h *neighborHeap) full() bool { return len(h.items) >= h.k }

// bound is the distance of the worst kept neighbor.
func (h *neighborHeap) bound() float64 { return h.items[0].Distance }

// sorted returns the kept neighbors best first.
func (h *neighborHeap) sorted() []Neighbor {
	out := make([]Neighbor, len(h.items))
	copy(out, h.items)
	sortNeighbors(out)
	return out
}
