package histogram

import (
	"encoding/json"

	"github.com/anthonydresser/streamhist/bin"
	"github.com/anthonydresser/streamhist/herrors"
	"github.com/anthonydresser/streamhist/target"
)

// wireTarget is the canonical per-bin target payload from spec §6: a
// numeric target serializes as {sum, sum_squares, missing_count}, a
// categorical target (map- or array-backed) as {counts, missing_count}
// with an identical shape either way, and a group target as an object
// whose "group" key holds the sequence of its children's serialized
// payloads (a bare JSON array is neither written nor accepted). A None target is
// represented by the enclosing bin/missing_bin omitting "target"
// entirely (a zero-value wireTarget, or a nil pointer, decodes as None).
//
// A histogram's target type is fixed at creation or first insert
// (invariant 6), so decoding never needs a "kind" tag for the
// histogram's own target: group_types/categories on the enclosing
// wireHistogram (or a group child's declared group_types entry) already
// say which shape to expect. The one ambiguous case is an unconstrained
// histogram (no categories, no group_types), whose target could be
// None, Numeric, or CategoricalMap depending on what its first insert
// happened to be; that case alone is resolved by sniffing which of
// Sum/Counts is present.
// Counts is a pointer so a categorical target with no observed categories
// yet (only missing points) still serializes as a present-but-empty
// {"counts":{}}, distinguishable on decode from a Numeric or None target's
// absent counts (nil pointer, field omitted); a plain map field would
// marshal an empty map the same as an absent one under omitempty and
// collapse that distinction (see sniffKind).
type wireTarget struct {
	Sum             *float64            `json:"sum,omitempty"`
	SumSquares      *float64            `json:"sum_squares,omitempty"`
	Counts          *map[string]float64 `json:"counts,omitempty"`
	MissingCount    float64             `json:"missing_count,omitempty"`
	Group           []wireTarget        `json:"group,omitempty"`
	NestedHistogram *wireHistogram      `json:"nested_histogram,omitempty"`
}

type wireBin struct {
	Mean   float64     `json:"mean"`
	Count  float64     `json:"count"`
	Target *wireTarget `json:"target,omitempty"`
}

// wireMissingBin is spec §6's missing_bin record, present iff
// missing_count > 0.
type wireMissingBin struct {
	Count  float64     `json:"count"`
	Target *wireTarget `json:"target,omitempty"`
}

// wireHistogram is the canonical serialized form named by spec §6.
type wireHistogram struct {
	MaxBins     int             `json:"max_bins"`
	GapWeighted bool            `json:"gap_weighted,omitempty"`
	Freeze      *int            `json:"freeze,omitempty"`
	Categories  []string        `json:"categories,omitempty"`
	GroupTypes  []string        `json:"group_types,omitempty"`
	Bins        []wireBin       `json:"bins"`
	MissingBin  *wireMissingBin `json:"missing_bin,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
}

// targetToWire encodes t by its concrete Go type; the histogram-level
// context needed to decode it back (categories, group_types) travels
// alongside on wireHistogram rather than being repeated per target.
func targetToWire(t target.Target) *wireTarget {
	switch v := t.(type) {
	case *target.None:
		return nil
	case *target.Numeric:
		sum, sq := v.TargetSum, v.SumSquares
		return &wireTarget{Sum: &sum, SumSquares: &sq, MissingCount: v.Missing}
	case *target.CategoricalMap:
		counts := make(map[string]float64, len(v.Counts))
		for k, c := range v.Counts {
			counts[k] = c
		}
		return &wireTarget{Counts: &counts, MissingCount: v.Missing}
	case *target.CategoricalArray:
		counts := make(map[string]float64, len(v.Categories))
		for i, c := range v.Categories {
			counts[c] = v.Counts[i]
		}
		return &wireTarget{Counts: &counts, MissingCount: v.Missing}
	case *target.Group:
		children := make([]wireTarget, len(v.Children))
		for i, c := range v.Children {
			if w := targetToWire(c); w != nil {
				children[i] = *w
			}
		}
		return &wireTarget{Group: children}
	case *target.NestedHistogram:
		inner, ok := v.Hist.(*Histogram)
		if !ok {
			return nil
		}
		wh := inner.toWire()
		return &wireTarget{NestedHistogram: &wh}
	default:
		return nil
	}
}

// sniffKind infers a target's kind from its wire shape, for the one case
// where context doesn't already pin it: an unconstrained histogram's own
// target, which could be None, Numeric, or CategoricalMap.
func sniffKind(w *wireTarget) target.Kind {
	switch {
	case w == nil:
		return target.KindNone
	case w.NestedHistogram != nil:
		return target.KindNestedHistogram
	case w.Sum != nil:
		return target.KindNumeric
	case w.Counts != nil:
		return target.KindCategoricalMap
	default:
		return target.KindNone
	}
}

// targetFromWireForKind decodes w as the given kind, known from context
// (the enclosing histogram's declared shape, or a group child's
// group_types entry) rather than from the payload itself.
func targetFromWireForKind(w *wireTarget, kind target.Kind, categories []target.Category) (target.Target, error) {
	switch kind {
	case target.KindNone:
		return target.NewNone(), nil
	case target.KindNumeric:
		if w == nil || w.Sum == nil {
			return &target.Numeric{}, nil
		}
		sq := 0.0
		if w.SumSquares != nil {
			sq = *w.SumSquares
		}
		return &target.Numeric{TargetSum: *w.Sum, SumSquares: sq, Missing: w.MissingCount}, nil
	case target.KindCategoricalMap:
		t := target.NewCategoricalMap()
		if w != nil {
			if w.Counts != nil {
				for k, c := range *w.Counts {
					t.Counts[k] = c
				}
			}
			t.Missing = w.MissingCount
		}
		return t, nil
	case target.KindCategoricalArray:
		t := target.NewCategoricalArray(categories)
		if w != nil {
			if w.Counts != nil {
				for i, c := range categories {
					t.Counts[i] = (*w.Counts)[c]
				}
			}
			t.Missing = w.MissingCount
		}
		return t, nil
	case target.KindNestedHistogram:
		if w == nil || w.NestedHistogram == nil {
			return nil, herrors.Wrap(herrors.ErrTypeMismatch, "nested_histogram target payload missing")
		}
		inner, err := fromWire(*w.NestedHistogram)
		if err != nil {
			return nil, err
		}
		return target.NewNestedHistogram(inner), nil
	default:
		return nil, herrors.Wrapf(herrors.ErrTypeMismatch, "unknown target kind %v", kind)
	}
}

func groupElemKind(gt GroupElemType) target.Kind {
	switch gt {
	case GroupNumeric:
		return target.KindNumeric
	case GroupCategorical:
		return target.KindCategoricalMap
	default:
		return target.KindNone
	}
}

// groupTargetFromWire decodes each child by its declared position in
// groupTypes, so a group target never needs shape sniffing.
func groupTargetFromWire(w *wireTarget, groupTypes []GroupElemType) (target.Target, error) {
	children := make([]target.Target, len(groupTypes))
	for i, gt := range groupTypes {
		var childWire *wireTarget
		if w != nil && i < len(w.Group) {
			childWire = &w.Group[i]
		}
		child, err := targetFromWireForKind(childWire, groupElemKind(gt), nil)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return target.NewGroup(children), nil
}

// decodeTarget resolves w's kind from h's own configuration: group_types
// or categories pin it exactly, an unconstrained histogram falls back to
// sniffKind.
func (h *Histogram) decodeTarget(w *wireTarget) (target.Target, error) {
	switch {
	case h.groupTypes != nil:
		return groupTargetFromWire(w, h.groupTypes)
	case h.categories != nil:
		return targetFromWireForKind(w, target.KindCategoricalArray, h.categories)
	default:
		return targetFromWireForKind(w, sniffKind(w), nil)
	}
}

func groupTypesToWire(gts []GroupElemType) []string {
	if gts == nil {
		return nil
	}
	out := make([]string, len(gts))
	for i, gt := range gts {
		out[i] = gt.String()
	}
	return out
}

func groupTypesFromWire(names []string) []GroupElemType {
	if names == nil {
		return nil
	}
	out := make([]GroupElemType, len(names))
	for i, n := range names {
		switch n {
		case "numeric":
			out[i] = GroupNumeric
		case "categorical":
			out[i] = GroupCategorical
		default:
			out[i] = GroupNone
		}
	}
	return out
}

func categoriesToWire(cats []target.Category) []string {
	if cats == nil {
		return nil
	}
	out := make([]string, len(cats))
	copy(out, cats)
	return out
}

func categoriesFromWire(names []string) []target.Category {
	if len(names) == 0 {
		return nil
	}
	out := make([]target.Category, len(names))
	copy(out, names)
	return out
}

func (h *Histogram) toWire() wireHistogram {
	w := wireHistogram{
		MaxBins:     h.maxBins,
		GapWeighted: h.gapWeighted,
		Categories:  categoriesToWire(h.categories),
		GroupTypes:  groupTypesToWire(h.groupTypes),
	}
	if h.freezeThreshold != nil {
		f := int(*h.freezeThreshold)
		w.Freeze = &f
	}
	if h.hasRange {
		min, max := h.minimum, h.maximum
		w.Minimum, w.Maximum = &min, &max
	}
	for _, b := range h.res.Bins() {
		w.Bins = append(w.Bins, wireBin{Mean: b.Mean, Count: b.Count, Target: targetToWire(b.Target)})
	}
	if h.missingTgt != nil {
		w.MissingBin = &wireMissingBin{Count: h.missingCount, Target: targetToWire(h.missingTgt)}
	}
	return w
}

// Serialize renders the histogram to its canonical JSON wire form.
func (h *Histogram) Serialize() ([]byte, error) {
	return json.Marshal(h.toWire())
}

func fromWire(w wireHistogram) (*Histogram, error) {
	opts := Options{
		Bins:        w.MaxBins,
		GapWeighted: w.GapWeighted,
		Freeze:      w.Freeze,
		Categories:  categoriesFromWire(w.Categories),
		GroupTypes:  groupTypesFromWire(w.GroupTypes),
	}
	h, err := New(opts)
	if err != nil {
		return nil, err
	}

	// Bins are placed directly rather than through InsertBin: the wire form
	// already reflects a post-merge-down reservoir of at most max_bins
	// entries, so there is nothing for the freeze or merge-down steps to do,
	// and the recorded minimum/maximum replace the per-bin range below.
	for _, wb := range w.Bins {
		t, err := h.decodeTarget(wb.Target)
		if err != nil {
			return nil, err
		}
		if err := h.latchOrCheck(t.Kind()); err != nil {
			return nil, err
		}
		h.res.Insert(bin.New(wb.Mean, wb.Count, t))
		h.pointCount += wb.Count
		h.updateRange(wb.Mean)
	}

	if w.MissingBin != nil {
		mt, err := h.decodeTarget(w.MissingBin.Target)
		if err != nil {
			return nil, err
		}
		if err := h.latchOrCheck(mt.Kind()); err != nil {
			return nil, err
		}
		h.missingTgt = mt
		h.missingCount = w.MissingBin.Count
	}

	if w.Minimum != nil && w.Maximum != nil {
		h.hasRange = true
		h.minimum, h.maximum = *w.Minimum, *w.Maximum
	}

	return h, nil
}

// Deserialize parses a histogram from its canonical JSON wire form. Bins are
// restored directly into the reservoir rather than replayed through Insert,
// so the result is equivalent under merge/query semantics to the original,
// not byte-identical in gap-queue internals.
func Deserialize(data []byte) (*Histogram, error) {
	var w wireHistogram
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}
