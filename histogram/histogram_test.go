package histogram

import (
	"math"
	"testing"

	"github.com/anthonydresser/streamhist/target"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func cat(v target.Category) *target.Category { return &v }

func meansAndCounts(t *testing.T, h *Histogram) ([]float64, []float64) {
	t.Helper()
	bins := h.Bins()
	means := make([]float64, len(bins))
	counts := make([]float64, len(bins))
	for i, b := range bins {
		means[i] = b.Mean
		counts[i] = b.Count
	}
	return means, counts
}

// S4: bin merging under capacity.
func TestScenarioBinMergingUnderCapacity(t *testing.T) {
	h, err := New(Options{Bins: 3})
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 0.5} {
		require.NoError(t, h.Insert(f64(v)))
	}

	means, counts := meansAndCounts(t, h)
	require.Equal(t, []float64{0.75, 2, 3}, means)
	require.Equal(t, []float64{2, 1, 1}, counts)
}

// S3: integer density, exact to 1e-10.
func TestScenarioIntegerDensity(t *testing.T) {
	h, err := New(Options{Bins: 64})
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 2, 3} {
		require.NoError(t, h.Insert(f64(v)))
	}

	points := []float64{0.0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0}
	expected := []float64{0, 0, 0.5, 1.5, 2.0, 1.5, 0.5, 0, 0}
	for i, p := range points {
		require.InDelta(t, expected[i], h.Density(p), 1e-10, "density at %v", p)
	}
}

// S5: categorical with missing.
func TestScenarioCategoricalWithMissing(t *testing.T) {
	h, err := New(Options{Bins: 2, Categories: []target.Category{"foo", "bar"}})
	require.NoError(t, err)

	require.NoError(t, h.InsertCategorical(f64(1), cat("foo")))
	require.NoError(t, h.InsertCategorical(f64(1), nil))
	require.NoError(t, h.InsertCategorical(f64(4), cat("bar")))
	require.NoError(t, h.InsertCategorical(f64(6), nil))

	bins := h.Bins()
	require.Len(t, bins, 2)

	require.Equal(t, 1.0, bins[0].Mean)
	require.Equal(t, 2.0, bins[0].Count)
	arr0 := bins[0].Target.(*target.CategoricalArray)
	require.Equal(t, []float64{1, 0}, arr0.Counts)
	require.Equal(t, 1.0, arr0.Missing)

	require.Equal(t, 5.0, bins[1].Mean)
	require.Equal(t, 2.0, bins[1].Count)
	arr1 := bins[1].Target.(*target.CategoricalArray)
	require.Equal(t, []float64{0, 1}, arr1.Counts)
	require.Equal(t, 1.0, arr1.Missing)
}

func TestInsertRejectsNaNAndInf(t *testing.T) {
	h, err := New(Options{Bins: 4})
	require.NoError(t, err)

	require.Error(t, h.Insert(f64(math.NaN())))
	require.Error(t, h.Insert(f64(math.Inf(1))))
	require.Error(t, h.Insert(f64(math.Inf(-1))))

	require.Equal(t, 0.0, h.TotalCount())
	_, ok := h.Minimum()
	require.False(t, ok)
}

func TestUnknownCategoryRejected(t *testing.T) {
	h, err := New(Options{Bins: 2, Categories: []target.Category{"foo"}})
	require.NoError(t, err)
	require.Error(t, h.InsertCategorical(f64(1), cat("bar")))
}

func TestTypeMismatchAcrossInsertKinds(t *testing.T) {
	h, err := New(Options{Bins: 4})
	require.NoError(t, err)
	require.NoError(t, h.Insert(f64(1)))
	require.Error(t, h.InsertNumeric(f64(2), f64(1)))
}

func TestGroupArityAndInsert(t *testing.T) {
	h, err := New(Options{Bins: 4, GroupTypes: []GroupElemType{GroupNumeric, GroupCategorical}})
	require.NoError(t, err)

	err = h.InsertGroup(f64(1), []GroupValue{{Numeric: f64(10)}})
	require.Error(t, err)

	require.NoError(t, h.InsertGroup(f64(1), []GroupValue{{Numeric: f64(10)}, {Categorical: cat("x")}}))
	bins := h.Bins()
	require.Len(t, bins, 1)
	group := bins[0].Target.(*target.Group)
	require.Equal(t, 10.0, group.Children[0].(*target.Numeric).TargetSum)
	require.Equal(t, 1.0, group.Children[1].(*target.CategoricalMap).Counts["x"])
}

func TestEmptyHistogramSumErrors(t *testing.T) {
	h, err := New(Options{Bins: 4})
	require.NoError(t, err)
	_, err = h.Sum(0)
	require.Error(t, err)
	require.Equal(t, 0.0, h.Density(0))
}

// I3: total_count == Σbin.count + missing_count, after mixed missing/present inserts.
func TestTotalCountConservation(t *testing.T) {
	h, err := New(Options{Bins: 4})
	require.NoError(t, err)
	require.NoError(t, h.Insert(f64(1)))
	require.NoError(t, h.Insert(f64(2)))
	require.NoError(t, h.Insert(nil))

	var binTotal float64
	for _, b := range h.Bins() {
		binTotal += b.Count
	}
	missingCount, _, ok := h.MissingBin()
	require.True(t, ok)
	require.Equal(t, h.TotalCount(), binTotal+missingCount)
}

// L5: range clamp.
func TestSumRangeClamp(t *testing.T) {
	h, err := New(Options{Bins: 16})
	require.NoError(t, err)
	for _, v := range []float64{1, 3, 5, 7, 9} {
		require.NoError(t, h.Insert(f64(v)))
	}
	min, _ := h.Minimum()
	max, _ := h.Maximum()

	s, err := h.Sum(min)
	require.NoError(t, err)
	require.Equal(t, 0.0, s)

	s, err = h.Sum(max)
	require.NoError(t, err)
	require.Equal(t, h.TotalCount(), s)
}

// L4: monotone sum.
func TestSumIsMonotone(t *testing.T) {
	h, err := New(Options{Bins: 16})
	require.NoError(t, err)
	for _, v := range []float64{1, 4, 2, 9, 5, 7, 3, 8, 6} {
		require.NoError(t, h.Insert(f64(v)))
	}
	var prev float64
	for p := -1.0; p <= 10; p += 0.25 {
		s, err := h.Sum(p)
		require.NoError(t, err)
		require.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

// L2/L3: merge identity and total conservation.
func TestMergeIdentityAndTotals(t *testing.T) {
	a, err := New(Options{Bins: 8})
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, a.Insert(f64(v)))
	}

	empty, err := New(Options{Bins: 8})
	require.NoError(t, err)
	require.NoError(t, a.Merge(empty))
	require.Equal(t, 5.0, a.TotalCount())

	b, err := New(Options{Bins: 8})
	require.NoError(t, err)
	for _, v := range []float64{6, 7, 8} {
		require.NoError(t, b.Insert(f64(v)))
	}
	require.NoError(t, a.Merge(b))
	require.Equal(t, 8.0, a.TotalCount())
}

func TestMergeArrayCategoricalAdoptsListWhenEmpty(t *testing.T) {
	receiver, err := New(Options{Bins: 4})
	require.NoError(t, err)

	sender, err := New(Options{Bins: 4, Categories: []target.Category{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, sender.InsertCategorical(f64(1), cat("a")))

	require.NoError(t, receiver.Merge(sender))
	require.Equal(t, target.KindCategoricalArray, receiver.TargetKind())
}

func TestMergeRejectsMismatchedCategoryLists(t *testing.T) {
	a, err := New(Options{Bins: 4, Categories: []target.Category{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, a.InsertCategorical(f64(1), cat("a")))

	b, err := New(Options{Bins: 4, Categories: []target.Category{"c", "d"}})
	require.NoError(t, err)
	require.NoError(t, b.InsertCategorical(f64(1), cat("c")))

	require.Error(t, a.Merge(b))
}

func TestFreezeModeAbsorbsWithoutGrowingReservoir(t *testing.T) {
	freeze := 2
	h, err := New(Options{Bins: 2, Freeze: &freeze})
	require.NoError(t, err)

	require.NoError(t, h.Insert(f64(1)))
	require.NoError(t, h.Insert(f64(10)))
	// total_count is now 2, at the freeze threshold, not yet exceeding it
	require.NoError(t, h.Insert(f64(20)))
	// now total_count (3) exceeds freeze (2) with reservoir at capacity (2):
	// absorbed into the nearer of the two existing bins, no third bin opened
	require.Len(t, h.Bins(), 2)

	means, counts := meansAndCounts(t, h)
	require.Equal(t, []float64{1, 10}, means)
	require.Equal(t, []float64{1, 2}, counts)
}

func TestSerializeRoundTrip(t *testing.T) {
	h, err := New(Options{Bins: 4})
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, h.InsertNumeric(f64(v), f64(v*10)))
	}

	data, err := h.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, h.TotalCount(), restored.TotalCount())
	require.Equal(t, len(h.Bins()), len(restored.Bins()))
	for i, b := range h.Bins() {
		require.Equal(t, b.Mean, restored.Bins()[i].Mean)
		require.Equal(t, b.Count, restored.Bins()[i].Count)
	}
}

// L1: round-trip preserves an open-vocabulary categorical histogram whose
// only bin has an empty (missing-only) target, where the wire form's
// "counts" field would otherwise be indistinguishable from an absent one.
func TestSerializeRoundTripPreservesEmptyCategoricalMap(t *testing.T) {
	h, err := New(Options{Bins: 8})
	require.NoError(t, err)
	require.NoError(t, h.InsertCategorical(f64(1), nil))

	data, err := h.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, target.KindCategoricalMap, restored.TargetKind())
	require.NoError(t, restored.InsertCategorical(f64(2), cat("foo")))
}

func TestUniformSplitsIntoRoughlyEqualGroups(t *testing.T) {
	h, err := New(Options{Bins: 32})
	require.NoError(t, err)
	for i := 1; i <= 100; i++ {
		require.NoError(t, h.Insert(f64(float64(i))))
	}
	splits, err := h.Uniform(4)
	require.NoError(t, err)
	require.Len(t, splits, 3)
	for i := 1; i < len(splits); i++ {
		require.Greater(t, splits[i], splits[i-1])
	}
}

func TestPercentilesBoundaries(t *testing.T) {
	h, err := New(Options{Bins: 16})
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, h.Insert(f64(v)))
	}
	result, err := h.Percentiles(0, 1)
	require.NoError(t, err)
	min, _ := h.Minimum()
	max, _ := h.Maximum()
	require.Equal(t, min, result[0])
	require.Equal(t, max, result[1])
}

func TestConstantWidthBinsCoverTotal(t *testing.T) {
	h, err := New(Options{Bins: 32})
	require.NoError(t, err)
	for i := 1; i <= 50; i++ {
		require.NoError(t, h.Insert(f64(float64(i))))
	}
	bins, err := h.ConstantWidthBins(5)
	require.NoError(t, err)
	require.Len(t, bins, 5)

	var total float64
	for _, b := range bins {
		total += b.Count
	}
	require.InDelta(t, h.TotalCount(), total, 1e-6)
}
