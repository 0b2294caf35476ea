// Package reservoir implements the ordered bin collection and its gap
// priority queue: the structural half of the histogram (component C).
//
// spec.md §4.3 allows either a balanced tree or a sorted array as the
// backing store, calling out array-backed as the better default for small
// B because of cache locality. This implementation always uses a sorted
// slice: Go's standard library has no balanced ordered map, and nothing in
// the retrieval pack supplies one either (see DESIGN.md), so the
// tree-backed option is accepted for API compatibility but behaves
// identically to array-backed rather than switching data structures.
// Public semantics do not depend on which backing is chosen (spec.md
// §4.3), so this is not a correctness compromise, only a constant-factor
// one for very large B.
package reservoir

import (
	"sort"

	"github.com/anthonydresser/streamhist/bin"
)

// Backing selects the reservoir's internal representation. Both values are
// accepted by New for interface compatibility with spec.md §6's creation
// option; see the package doc for why they currently behave identically.
type Backing int

const (
	BackingArray Backing = iota
	BackingTree
)

// Reservoir is the ordered collection of bins plus its gap priority queue.
// It is not safe for concurrent use, matching the histogram's single-
// threaded cooperative model (spec.md §5).
type Reservoir struct {
	gapWeighted bool
	backing     Backing
	bins        []*bin.Bin // sorted ascending by Mean
	gaps        *gapHeap
}

func New(gapWeighted bool, backing Backing) *Reservoir {
	return &Reservoir{
		gapWeighted: gapWeighted,
		backing:     backing,
		gaps:        newGapHeap(),
	}
}

func (r *Reservoir) Len() int { return len(r.bins) }

// Bins returns the live, sorted slice of bins. Callers must not retain it
// across a mutating call.
func (r *Reservoir) Bins() []*bin.Bin { return r.bins }

func (r *Reservoir) search(mean float64) int {
	return sort.Search(len(r.bins), func(i int) bool { return r.bins[i].Mean >= mean })
}

// Find returns the bin with an exact mean match, if any, and its index.
func (r *Reservoir) Find(mean float64) (*bin.Bin, int, bool) {
	idx := r.search(mean)
	if idx < len(r.bins) && r.bins[idx].Mean == mean {
		return r.bins[idx], idx, true
	}
	return nil, -1, false
}

// Floor returns the largest-mean bin with mean <= the given value.
func (r *Reservoir) Floor(mean float64) (*bin.Bin, int, bool) {
	idx := r.search(mean)
	if idx < len(r.bins) && r.bins[idx].Mean == mean {
		return r.bins[idx], idx, true
	}
	idx--
	if idx < 0 {
		return nil, -1, false
	}
	return r.bins[idx], idx, true
}

// Ceil returns the smallest-mean bin with mean >= the given value.
func (r *Reservoir) Ceil(mean float64) (*bin.Bin, int, bool) {
	idx := r.search(mean)
	if idx >= len(r.bins) {
		return nil, -1, false
	}
	return r.bins[idx], idx, true
}

// First returns the smallest-mean bin.
func (r *Reservoir) First() (*bin.Bin, bool) {
	if len(r.bins) == 0 {
		return nil, false
	}
	return r.bins[0], true
}

// Last returns the largest-mean bin.
func (r *Reservoir) Last() (*bin.Bin, bool) {
	if len(r.bins) == 0 {
		return nil, false
	}
	return r.bins[len(r.bins)-1], true
}

// Insert adds a new bin at its sorted position. The mean must not already
// be present; callers add into an existing bin in place and then call Touch
// instead.
// The two gaps touching the new bin's position are (re)computed, replacing
// whatever single gap previously spanned its neighbors.
func (r *Reservoir) Insert(b *bin.Bin) {
	idx := r.search(b.Mean)
	r.bins = append(r.bins, nil)
	copy(r.bins[idx+1:], r.bins[idx:])
	r.bins[idx] = b

	if idx > 0 {
		left := r.bins[idx-1]
		r.gaps.set(r.gapWeighted, left.Mean, b.Mean, left.Count, b.Count)
	}
	if idx < len(r.bins)-1 {
		right := r.bins[idx+1]
		r.gaps.set(r.gapWeighted, b.Mean, right.Mean, b.Count, right.Count)
	}
}

// Touch recomputes the gaps touching the bin at idx, after its count (and
// therefore, under gap weighting, its neighboring gap weights) changed in
// place. It is a no-op on the ordering itself since the bin's mean didn't
// move.
func (r *Reservoir) Touch(idx int) {
	b := r.bins[idx]
	if idx > 0 {
		left := r.bins[idx-1]
		r.gaps.set(r.gapWeighted, left.Mean, b.Mean, left.Count, b.Count)
	}
	if idx < len(r.bins)-1 {
		right := r.bins[idx+1]
		r.gaps.set(r.gapWeighted, b.Mean, right.Mean, b.Count, right.Count)
	}
}

// MergeSmallestGap pops the minimum-weight gap, combines its two bins into
// one, and splices the combination into the reservoir in their place. It
// reports false if there are fewer than two bins.
func (r *Reservoir) MergeSmallestGap() (bool, error) {
	if len(r.bins) < 2 {
		return false, nil
	}
	g, ok := r.gaps.popMin()
	if !ok {
		return false, nil
	}

	_, leftIdx, ok := r.Find(g.LeftMean)
	if !ok {
		panic("reservoir: gap references a mean not present in the reservoir")
	}
	_, rightIdx, ok := r.Find(g.RightMean)
	if !ok {
		panic("reservoir: gap references a mean not present in the reservoir")
	}
	if rightIdx != leftIdx+1 {
		panic("reservoir: gap does not span adjacent bins")
	}

	leftBin, rightBin := r.bins[leftIdx], r.bins[rightIdx]
	combined, err := bin.Combine(leftBin, rightBin)
	if err != nil {
		return false, err
	}

	var predecessor, successor *bin.Bin
	if leftIdx > 0 {
		predecessor = r.bins[leftIdx-1]
	}
	if rightIdx+1 < len(r.bins) {
		successor = r.bins[rightIdx+1]
	}

	// The gap keyed at rightBin's mean (if it pointed further right) has
	// no successor key to be naturally overwritten by, since combined's
	// mean generally differs from rightBin's mean. Purge it explicitly.
	r.gaps.deleteAt(rightBin.Mean)

	r.bins = append(r.bins[:leftIdx], r.bins[rightIdx+1:]...)
	r.bins = append(r.bins, nil)
	copy(r.bins[leftIdx+1:], r.bins[leftIdx:])
	r.bins[leftIdx] = combined

	if predecessor != nil {
		r.gaps.set(r.gapWeighted, predecessor.Mean, combined.Mean, predecessor.Count, combined.Count)
	}
	if successor != nil {
		r.gaps.set(r.gapWeighted, combined.Mean, successor.Mean, combined.Count, successor.Count)
	}

	return true, nil
}

// GapCount reports the number of tracked gaps, exposed for invariant tests.
func (r *Reservoir) GapCount() int { return r.gaps.len() }
