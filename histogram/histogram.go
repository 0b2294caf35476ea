// Package histogram is the public facade over the streaming histogram: a
// bounded-memory sketch of a one-dimensional distribution, built by folding
// points in one at a time and periodically merging the two bins nearest
// each other (component D).
package histogram

import (
	"math"

	"github.com/anthonydresser/streamhist/bin"
	"github.com/anthonydresser/streamhist/herrors"
	"github.com/anthonydresser/streamhist/reservoir"
	"github.com/anthonydresser/streamhist/target"
)

// Histogram is not safe for concurrent use; callers needing concurrent
// ingestion should shard by key and merge, mirroring how the merge
// operation is meant to combine independently built histograms.
type Histogram struct {
	maxBins         int
	gapWeighted     bool
	freezeThreshold *float64
	categories      []target.Category
	groupTypes      []GroupElemType
	backing         reservoir.Backing

	res *reservoir.Reservoir

	targetLatched bool
	targetKind    target.Kind

	pointCount   float64 // sum of bin counts, excludes missing
	missingCount float64
	missingTgt   target.Target

	hasRange bool
	minimum  float64
	maximum  float64
}

// New constructs an empty histogram from options.
func New(opts Options) (*Histogram, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	backing := opts.resolveBacking()

	h := &Histogram{
		maxBins:     opts.Bins,
		gapWeighted: opts.GapWeighted,
		backing:     backing,
		res:         reservoir.New(opts.GapWeighted, backing),
	}
	if opts.Freeze != nil {
		f := float64(*opts.Freeze)
		h.freezeThreshold = &f
	}
	if len(opts.Categories) > 0 {
		h.categories = append([]target.Category(nil), opts.Categories...)
		h.targetKind = target.KindCategoricalArray
		h.targetLatched = true
	}
	if len(opts.GroupTypes) > 0 {
		h.groupTypes = append([]GroupElemType(nil), opts.GroupTypes...)
		h.targetKind = target.KindGroup
		h.targetLatched = true
	}
	return h, nil
}

func (h *Histogram) latchOrCheck(k target.Kind) error {
	if !h.targetLatched {
		h.targetKind = k
		h.targetLatched = true
		return nil
	}
	if h.targetKind != k {
		return herrors.Wrapf(herrors.ErrTypeMismatch, "histogram target type is %s, got %s", h.targetKind, k)
	}
	return nil
}

func (h *Histogram) freshTargetForKind() target.Target {
	switch h.targetKind {
	case target.KindNumeric:
		return &target.Numeric{}
	case target.KindCategoricalMap:
		return target.NewCategoricalMap()
	case target.KindCategoricalArray:
		return target.NewCategoricalArray(h.categories)
	case target.KindGroup:
		children := make([]target.Target, len(h.groupTypes))
		for i, gt := range h.groupTypes {
			switch gt {
			case GroupNumeric:
				children[i] = &target.Numeric{}
			case GroupCategorical:
				children[i] = target.NewCategoricalMap()
			default:
				children[i] = target.NewNone()
			}
		}
		return target.NewGroup(children)
	default:
		return target.NewNone()
	}
}

// zeroTarget returns a fresh, empty target of the histogram's latched
// shape, preferring to copy the shape off an existing bin (correct arity
// and category list by construction) and falling back to building one from
// the declared options only when the histogram has no bins or missing
// target yet to copy from.
func (h *Histogram) zeroTarget() target.Target {
	if bins := h.res.Bins(); len(bins) > 0 {
		return bins[0].Target.Init()
	}
	if h.missingTgt != nil {
		return h.missingTgt.Init()
	}
	return h.freshTargetForKind()
}

func (h *Histogram) updateRange(mean float64) {
	if !h.hasRange {
		h.minimum, h.maximum = mean, mean
		h.hasRange = true
		return
	}
	if mean < h.minimum {
		h.minimum = mean
	}
	if mean > h.maximum {
		h.maximum = mean
	}
}

func (h *Histogram) frozen() bool {
	return h.freezeThreshold != nil && h.TotalCount() > *h.freezeThreshold && h.res.Len() >= h.maxBins
}

// absorbNearest accumulates newBin's count and target into whichever
// existing bin's mean is closest to newBin's mean, ties broken toward the
// floor bin, without moving that bin or growing the reservoir.
func (h *Histogram) absorbNearest(newBin *bin.Bin) {
	floorBin, floorIdx, floorOk := h.res.Floor(newBin.Mean)
	ceilBin, ceilIdx, ceilOk := h.res.Ceil(newBin.Mean)

	var chosen *bin.Bin
	var idx int
	switch {
	case floorOk && ceilOk:
		df := math.Abs(newBin.Mean - floorBin.Mean)
		dc := math.Abs(ceilBin.Mean - newBin.Mean)
		if df <= dc {
			chosen, idx = floorBin, floorIdx
		} else {
			chosen, idx = ceilBin, ceilIdx
		}
	case floorOk:
		chosen, idx = floorBin, floorIdx
	case ceilOk:
		chosen, idx = ceilBin, ceilIdx
	default:
		panic("histogram: freeze-mode absorb invoked on an empty reservoir")
	}

	chosen.Count += newBin.Count
	_ = chosen.Target.Sum(newBin.Target) // same kind, latched before this point
	h.res.Touch(idx)
}

func (h *Histogram) mergeDown() error {
	for h.res.Len() > h.maxBins {
		ok, err := h.res.MergeSmallestGap()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

// insertBinInternal runs the shared bookkeeping/freeze/exact-hit/new-bin/
// merge-down pipeline for a bin with a concrete mean; newBin's target kind
// must already be latch-checked by the caller.
func (h *Histogram) insertBinInternal(newBin *bin.Bin) error {
	if math.IsNaN(newBin.Mean) || math.IsInf(newBin.Mean, 0) {
		return herrors.Wrapf(herrors.ErrInvalidValue, "point value %v is not finite", newBin.Mean)
	}
	h.updateRange(newBin.Mean)
	h.pointCount += newBin.Count

	if h.frozen() {
		h.absorbNearest(newBin)
		return nil
	}

	if existing, idx, ok := h.res.Find(newBin.Mean); ok {
		existing.Count += newBin.Count
		if err := existing.Target.Sum(newBin.Target); err != nil {
			return err
		}
		h.res.Touch(idx)
		return nil
	}

	h.res.Insert(newBin)
	return h.mergeDown()
}

func (h *Histogram) insertPoint(p *float64, t target.Target) error {
	if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
		return herrors.Wrapf(herrors.ErrInvalidValue, "point value %v is not finite", *p)
	}
	if err := h.latchOrCheck(t.Kind()); err != nil {
		return err
	}
	if p == nil {
		h.missingCount++
		if h.missingTgt == nil {
			h.missingTgt = t.Clone()
		} else if err := h.missingTgt.Sum(t); err != nil {
			return err
		}
		return nil
	}
	return h.insertBinInternal(bin.New(*p, 1, t))
}

// Insert adds a plain point with no target payload. p is nil for a missing
// point.
func (h *Histogram) Insert(p *float64) error {
	return h.insertPoint(p, target.NewNone())
}

// InsertNumeric adds a point carrying a numeric target value. Either p or v
// (or both) may be nil.
func (h *Histogram) InsertNumeric(p, v *float64) error {
	return h.insertPoint(p, target.NewNumeric(v))
}

// InsertCategorical adds a point carrying a categorical target value.
// Either p or v may be nil. If the histogram was created with a fixed
// category list, v must name a member of it.
func (h *Histogram) InsertCategorical(p *float64, v *target.Category) error {
	if h.categories != nil {
		idx := -1
		if v != nil {
			for i, c := range h.categories {
				if c == *v {
					idx = i
					break
				}
			}
			if idx == -1 {
				return herrors.Wrapf(herrors.ErrUnknownCategory, "category %q is not in the declared list", *v)
			}
		}
		return h.insertPoint(p, target.NewCategoricalArrayValue(h.categories, idx))
	}
	return h.insertPoint(p, target.NewCategoricalMapValue(v))
}

// InsertGroup adds a point carrying a fixed-arity tuple of target values.
// The histogram must have been created with GroupTypes, and vs must match
// its length and per-element shape.
func (h *Histogram) InsertGroup(p *float64, vs []GroupValue) error {
	if h.groupTypes == nil {
		return herrors.Wrap(herrors.ErrTypeMismatch, "histogram was not created with group_types")
	}
	if vs == nil {
		return herrors.Wrap(herrors.ErrTypeMismatch, "insert_group requires a non-nil tuple")
	}
	if len(vs) != len(h.groupTypes) {
		return herrors.Wrapf(herrors.ErrTypeMismatch, "group arity mismatch: want %d, got %d", len(h.groupTypes), len(vs))
	}
	children := make([]target.Target, len(vs))
	for i, gt := range h.groupTypes {
		switch gt {
		case GroupNumeric:
			children[i] = target.NewNumeric(vs[i].Numeric)
		case GroupCategorical:
			children[i] = target.NewCategoricalMapValue(vs[i].Categorical)
		default:
			children[i] = target.NewNone()
		}
	}
	return h.insertPoint(p, target.NewGroup(children))
}

// InsertBin folds an externally constructed bin directly into the
// reservoir, running the same freeze/exact-hit/new-bin/merge-down pipeline
// as a point insert. Its target's kind must match the histogram's latched
// type (or be the first insert of any kind).
func (h *Histogram) InsertBin(b *bin.Bin) error {
	if err := h.latchOrCheck(b.Target.Kind()); err != nil {
		return err
	}
	return h.insertBinInternal(b.Clone())
}

// TotalCount is the cumulative count of points folded in, including
// missing points, per invariant total_count == Σbin.count + missing_count.
func (h *Histogram) TotalCount() float64 { return h.pointCount + h.missingCount }

// TotalTargetSum returns the algebra-sum of every bin's target (excluding
// the missing-point bookkeeping target).
func (h *Histogram) TotalTargetSum() target.Target {
	t := h.zeroTarget()
	for _, b := range h.res.Bins() {
		_ = t.Sum(b.Target)
	}
	return t
}

// Minimum returns the smallest point mean seen, or ok=false if empty.
func (h *Histogram) Minimum() (float64, bool) { return h.minimum, h.hasRange }

// Maximum returns the largest point mean seen, or ok=false if empty.
func (h *Histogram) Maximum() (float64, bool) { return h.maximum, h.hasRange }

// MissingBin returns the accumulated count and target of points inserted
// with a nil position, or ok=false if none were ever seen.
func (h *Histogram) MissingBin() (float64, target.Target, bool) {
	if h.missingTgt == nil {
		return 0, nil, false
	}
	return h.missingCount, h.missingTgt, true
}

// Bins returns a snapshot copy of the reservoir's bins, sorted by mean.
func (h *Histogram) Bins() []bin.Bin {
	live := h.res.Bins()
	out := make([]bin.Bin, len(live))
	for i, b := range live {
		out[i] = *b
	}
	return out
}

// TargetKind reports the histogram's latched target type, or KindNone if
// nothing has latched it yet.
func (h *Histogram) TargetKind() target.Kind { return h.targetKind }
