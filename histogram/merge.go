package histogram

import (
	"github.com/anthonydresser/streamhist/herrors"
	"github.com/anthonydresser/streamhist/reservoir"
	"github.com/anthonydresser/streamhist/target"
)

// Merge absorbs other into the receiver: every bin of other is cloned and
// folded in via the ordinary insert pipeline, then min/max/missing/total
// bookkeeping is reconciled. other is left unmodified.
//
// Merge takes the target.MergeableHistogram interface (rather than a
// concrete *Histogram) so it also satisfies that interface for
// NestedHistogram targets; any caller passing a *Histogram value gets an
// implicit interface conversion at the call site.
func (h *Histogram) Merge(other target.MergeableHistogram) error {
	o, ok := other.(*Histogram)
	if !ok {
		return herrors.Wrap(herrors.ErrTypeMismatch, "merge target is not a *histogram.Histogram")
	}

	if o.res.Len() == 0 && o.missingTgt == nil {
		return nil
	}

	if h.targetLatched && o.targetLatched && h.targetKind != o.targetKind {
		return herrors.Wrapf(herrors.ErrTypeMismatch, "cannot merge histogram of target type %s into %s", o.targetKind, h.targetKind)
	}
	if o.targetKind == target.KindCategoricalArray {
		if h.res.Len() == 0 {
			// Receiver has no bins yet: adopt the sender's category list
			// (and latch the target type to match) rather than requiring
			// an exact match against a list it never declared.
			h.categories = append([]target.Category(nil), o.categories...)
			h.targetKind = target.KindCategoricalArray
			h.targetLatched = true
		} else if !sameCategoryList(h.categories, o.categories) {
			return herrors.Wrap(herrors.ErrTypeMismatch, "merge of array-backed categorical histograms with different category lists")
		}
	}

	for _, b := range o.res.Bins() {
		if err := h.InsertBin(b.Clone()); err != nil {
			return err
		}
	}

	if o.missingTgt != nil {
		h.missingCount += o.missingCount
		if h.missingTgt == nil {
			h.missingTgt = o.missingTgt.Clone()
		} else if err := h.missingTgt.Sum(o.missingTgt); err != nil {
			return err
		}
	}

	if o.hasRange {
		h.updateRange(o.minimum)
		h.updateRange(o.maximum)
	}

	return nil
}

func sameCategoryList(a, b []target.Category) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ScaleCounts multiplies every bin's count and target, and the missing
// bookkeeping, by factor. Used when a NestedHistogram target is scaled as
// part of an outer histogram's own bin combine.
func (h *Histogram) ScaleCounts(factor float64) {
	for _, b := range h.res.Bins() {
		b.Count *= factor
		b.Target.Scale(factor)
	}
	h.pointCount *= factor
	h.missingCount *= factor
	if h.missingTgt != nil {
		h.missingTgt.Scale(factor)
	}
}

// Clone deep-copies the histogram, including every bin and its target.
func (h *Histogram) Clone() target.MergeableHistogram {
	res := reservoir.New(h.gapWeighted, h.backing)
	for _, b := range h.res.Bins() {
		res.Insert(b.Clone())
	}

	clone := &Histogram{
		maxBins:       h.maxBins,
		gapWeighted:   h.gapWeighted,
		backing:       h.backing,
		res:           res,
		targetLatched: h.targetLatched,
		targetKind:    h.targetKind,
		pointCount:    h.pointCount,
		missingCount:  h.missingCount,
		hasRange:      h.hasRange,
		minimum:       h.minimum,
		maximum:       h.maximum,
	}
	if h.freezeThreshold != nil {
		f := *h.freezeThreshold
		clone.freezeThreshold = &f
	}
	if h.categories != nil {
		clone.categories = append([]target.Category(nil), h.categories...)
	}
	if h.groupTypes != nil {
		clone.groupTypes = append([]GroupElemType(nil), h.groupTypes...)
	}
	if h.missingTgt != nil {
		clone.missingTgt = h.missingTgt.Clone()
	}
	return clone
}

// Empty returns a new histogram with the same configuration but no data,
// used by NestedHistogram's Init to produce an empty target of the same
// shape without copying any bins.
func (h *Histogram) Empty() target.MergeableHistogram {
	opts := Options{
		Bins:        h.maxBins,
		GapWeighted: h.gapWeighted,
		Reservoir:   &h.backing,
	}
	if h.freezeThreshold != nil {
		f := int(*h.freezeThreshold)
		opts.Freeze = &f
	}
	if h.categories != nil {
		opts.Categories = append([]target.Category(nil), h.categories...)
	}
	if h.groupTypes != nil {
		opts.GroupTypes = append([]GroupElemType(nil), h.groupTypes...)
	}
	empty, _ := New(opts) // opts were already validated when h was constructed
	return empty
}
