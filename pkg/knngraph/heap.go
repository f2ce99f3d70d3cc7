package knngraph

import "container/heap"

// Neighbor is one entry of a neighbor list: a candidate label and its
// distance from the owning item.
type Neighbor[Label comparable] struct {
	Label    Label
	Distance float64
}

// neighborEntry is the internal heap element. It is identical in shape to
// Neighbor but kept distinct so the heap's internal slice type isn't
// accidentally handed out to callers.
type neighborEntry[Label comparable] struct {
	label    Label
	distance float64
}

// BoundedHeap is a fixed-capacity max-heap of (label, distance) pairs, with
// a side index from label to heap position so duplicate labels can be
// rejected in O(1) and the current worst (maximum-distance) entry can be
// read in O(1). The max-distance entry sits at the root, matching the
// admission test the refinement engine runs on every trial: "is this
// candidate better than my current worst neighbor?".
type BoundedHeap[Label comparable] struct {
	capacity int
	entries  []neighborEntry[Label]
	pos      map[Label]int
}

// NewBoundedHeap creates an empty heap with the given capacity. capacity
// must be >= 1.
func NewBoundedHeap[Label comparable](capacity int) *BoundedHeap[Label] {
	return &BoundedHeap[Label]{
		capacity: capacity,
		entries:  make([]neighborEntry[Label], 0, capacity),
		pos:      make(map[Label]int, capacity),
	}
}

// Len implements heap.Interface.
func (h *BoundedHeap[Label]) Len() int { return len(h.entries) }

// Less implements heap.Interface. Greatest distance sorts first: a max-heap.
func (h *BoundedHeap[Label]) Less(i, j int) bool {
	return h.entries[i].distance > h.entries[j].distance
}

// Swap implements heap.Interface and keeps the label->position index in
// sync with every exchange container/heap performs.
func (h *BoundedHeap[Label]) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.pos[h.entries[i].label] = i
	h.pos[h.entries[j].label] = j
}

// Push implements heap.Interface. Callers should use heap.Push(h, ...), not
// this method directly.
func (h *BoundedHeap[Label]) Push(x any) {
	e := x.(neighborEntry[Label])
	h.pos[e.label] = len(h.entries)
	h.entries = append(h.entries, e)
}

// Pop implements heap.Interface. Callers should use heap.Pop(h), not this
// method directly.
func (h *BoundedHeap[Label]) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	delete(h.pos, e.label)
	return e
}

// Cap returns the heap's fixed capacity.
func (h *BoundedHeap[Label]) Cap() int { return h.capacity }

// Contains reports whether label is already present in the heap.
func (h *BoundedHeap[Label]) Contains(label Label) bool {
	_, ok := h.pos[label]
	return ok
}

// PeekMax returns the current worst (greatest-distance) entry. ok is false
// if the heap is empty.
func (h *BoundedHeap[Label]) PeekMax() (label Label, distance float64, ok bool) {
	if len(h.entries) == 0 {
		return label, 0, false
	}
	top := h.entries[0]
	return top.label, top.distance, true
}

// labelAt returns the label stored at heap position i. Used by randomKey
// sampling, which picks a uniform index into the backing slice.
func (h *BoundedHeap[Label]) labelAt(i int) Label {
	return h.entries[i].label
}

// TryInsert attempts to add (label, distance) to the heap.
//
// If label is already present, it returns false without modifying the heap.
// Otherwise it inserts the entry; if that pushes the heap over capacity, the
// current worst entry is evicted. It returns true iff a real improvement
// occurred: the heap had room, or the evicted entry's distance was strictly
// greater than the new one's. At capacity, a candidate whose distance is >=
// the current max is rejected outright and the heap is left untouched.
func (h *BoundedHeap[Label]) TryInsert(label Label, distance float64) bool {
	if h.Contains(label) {
		return false
	}

	if h.Len() < h.capacity {
		heap.Push(h, neighborEntry[Label]{label: label, distance: distance})
		return true
	}

	_, maxDist, _ := h.PeekMax()
	if distance >= maxDist {
		return false
	}

	heap.Pop(h)
	heap.Push(h, neighborEntry[Label]{label: label, distance: distance})
	return true
}

// DrainAscending destructively extracts every entry in ascending order of
// distance. After this call the heap is empty.
func (h *BoundedHeap[Label]) DrainAscending() []Neighbor[Label] {
	n := h.Len()
	result := make([]Neighbor[Label], n)
	for i := n - 1; i >= 0; i-- {
		e := heap.Pop(h).(neighborEntry[Label])
		result[i] = Neighbor[Label]{Label: e.label, Distance: e.distance}
	}
	return result
}
