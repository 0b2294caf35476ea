package histogram

import (
	"fmt"

	"github.com/anthonydresser/streamhist/reservoir"
	"github.com/anthonydresser/streamhist/target"
)

// GroupElemType names the shape of one element of a group-target tuple.
// Group elements are restricted to none/numeric/categorical (a nested
// group or array-categorical child is not representable), matching the
// data model's group_types list.
type GroupElemType int

const (
	GroupNone GroupElemType = iota
	GroupNumeric
	GroupCategorical
)

func (g GroupElemType) String() string {
	switch g {
	case GroupNone:
		return "none"
	case GroupNumeric:
		return "numeric"
	case GroupCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("group_elem(%d)", int(g))
	}
}

// GroupValue is one tuple element passed to InsertGroup: exactly one of its
// fields is populated, chosen by the corresponding GroupElemType, or both
// left nil to mean that element's value was absent for this point.
type GroupValue struct {
	Numeric     *float64
	Categorical *target.Category
}

// Options configures a histogram at creation time, mirroring the shape of a
// plugin options struct: a small set of fields, defaulted where reasonable,
// validated once up front rather than threaded through every call.
type Options struct {
	// Bins is the maximum reservoir size B. Required, must be >= 1.
	Bins int

	// GapWeighted enables the log-weighted gap metric, which multiplies a
	// gap's width by ln(e + smaller neighbor count) so that bins in sparse
	// regions are merged before bins in dense ones.
	GapWeighted bool

	// Freeze, if non-nil, is the total_count threshold after which, once the
	// reservoir also holds Bins bins, new points are accumulated into their
	// nearest existing bin instead of growing the reservoir and merging
	// down. Zero freezes as soon as the reservoir is at capacity.
	Freeze *int

	// Categories declares a fixed, closed vocabulary for insert_categorical
	// and latches the target type to categorical-array at creation. Leave
	// nil for an open-vocabulary categorical-map target latched on first
	// insert instead.
	Categories []target.Category

	// GroupTypes declares the tuple shape for insert_group and latches the
	// target type to group at creation. Mutually exclusive with Categories.
	GroupTypes []GroupElemType

	// Reservoir overrides the reservoir backing choice. Nil selects the
	// spec's size-based default (array below 256 bins, tree at or above).
	Reservoir *reservoir.Backing
}

func (o Options) validate() error {
	if o.Bins < 1 {
		return fmt.Errorf("streamhist: bins must be >= 1, got %d", o.Bins)
	}
	if o.Freeze != nil && *o.Freeze < 0 {
		return fmt.Errorf("streamhist: freeze must be >= 0, got %d", *o.Freeze)
	}
	if len(o.Categories) > 0 && len(o.GroupTypes) > 0 {
		return fmt.Errorf("streamhist: categories and group_types are mutually exclusive")
	}
	return nil
}

func (o Options) resolveBacking() reservoir.Backing {
	if o.Reservoir != nil {
		return *o.Reservoir
	}
	if o.Bins >= 256 {
		return reservoir.BackingTree
	}
	return reservoir.BackingArray
}
