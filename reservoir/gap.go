package reservoir

import (
	"container/heap"
	"math"
)

// Gap is the scalar weight separating two adjacent bins, keyed by the two
// means it spans rather than by pointer, so it can't outlive the bins it
// names and can be re-derived any time.
type Gap struct {
	LeftMean  float64
	RightMean float64
	Weight    float64
}

func gapWeight(gapWeighted bool, leftMean, rightMean, leftCount, rightCount float64) float64 {
	w := rightMean - leftMean
	if gapWeighted {
		w *= math.Log(math.E + math.Min(leftCount, rightCount))
	}
	return w
}

type gapEntry struct {
	gap Gap
	idx int
}

// gapHeap is a binary min-heap over Gap ordered by (weight, left_mean),
// with a side index so a gap can be located and removed or refreshed by its
// left endpoint in O(log B) when a neighboring bin changes.
type gapHeap struct {
	items  []*gapEntry
	byLeft map[float64]*gapEntry
}

func newGapHeap() *gapHeap {
	return &gapHeap{byLeft: make(map[float64]*gapEntry)}
}

func (h *gapHeap) Len() int { return len(h.items) }

func (h *gapHeap) Less(i, j int) bool {
	a, b := h.items[i].gap, h.items[j].gap
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	return a.LeftMean < b.LeftMean
}

func (h *gapHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].idx = i
	h.items[j].idx = j
}

func (h *gapHeap) Push(x interface{}) {
	e := x.(*gapEntry)
	e.idx = len(h.items)
	h.items = append(h.items, e)
}

func (h *gapHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return e
}

// set upserts the gap between left and right, keyed by left's mean. If a
// gap already existed at that key (because left previously bordered a
// different bin, or because only the weight changed) it is refreshed in
// place rather than duplicated.
func (h *gapHeap) set(gapWeighted bool, leftMean, rightMean, leftCount, rightCount float64) {
	w := gapWeight(gapWeighted, leftMean, rightMean, leftCount, rightCount)
	if e, ok := h.byLeft[leftMean]; ok {
		e.gap = Gap{LeftMean: leftMean, RightMean: rightMean, Weight: w}
		heap.Fix(h, e.idx)
		return
	}
	e := &gapEntry{gap: Gap{LeftMean: leftMean, RightMean: rightMean, Weight: w}}
	heap.Push(h, e)
	h.byLeft[leftMean] = e
}

// deleteAt removes the gap keyed at the given left mean, if any.
func (h *gapHeap) deleteAt(leftMean float64) {
	e, ok := h.byLeft[leftMean]
	if !ok {
		return
	}
	heap.Remove(h, e.idx)
	delete(h.byLeft, leftMean)
}

// popMin removes and returns the smallest gap in (weight, left_mean) order.
func (h *gapHeap) popMin() (Gap, bool) {
	if len(h.items) == 0 {
		return Gap{}, false
	}
	e := heap.Pop(h).(*gapEntry)
	delete(h.byLeft, e.gap.LeftMean)
	return e.gap, true
}

func (h *gapHeap) len() int { return len(h.items) }
