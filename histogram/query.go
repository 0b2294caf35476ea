package histogram

import (
	"math"
	"sort"

	"github.com/anthonydresser/streamhist/herrors"
	"github.com/anthonydresser/streamhist/target"
)

// edge is one side of the bracket a query point falls between: either a
// real bin, or a zero-count pseudo-bin anchored at the observed minimum or
// maximum when no real bin's mean reaches that far.
type edge struct {
	mean, count float64
	t           target.Target
}

// bracket finds the two edges p falls between (lo.mean <= p <= hi.mean) and
// the count/target accumulated strictly before lo, for use by both the sum
// and density formulas. It assumes minimum <= p <= maximum. When p is
// exactly a bin's mean, lo and hi are both that bin.
func (h *Histogram) bracket(p float64) (lo, hi edge, prevCount float64, prevTarget target.Target) {
	floorBin, floorIdx, floorOk := h.res.Floor(p)
	ceilBin, _, ceilOk := h.res.Ceil(p)

	if floorOk {
		lo = edge{floorBin.Mean, floorBin.Count, floorBin.Target}
		prevCount, prevTarget = h.prefixSum(floorIdx)
	} else {
		lo = edge{h.minimum, 0, h.zeroTarget()}
		prevCount, prevTarget = 0, h.zeroTarget()
	}
	if ceilOk {
		hi = edge{ceilBin.Mean, ceilBin.Count, ceilBin.Target}
	} else {
		hi = edge{h.maximum, 0, h.zeroTarget()}
	}
	return
}

// prefixSum sums the count and target of every bin strictly before uptoIdx
// in mean order.
func (h *Histogram) prefixSum(uptoIdx int) (float64, target.Target) {
	bins := h.res.Bins()
	t := h.zeroTarget()
	var count float64
	for i := 0; i < uptoIdx; i++ {
		count += bins[i].Count
		_ = t.Sum(bins[i].Target)
	}
	return count, t
}

// ExtendedSum returns the estimated count and target-sum of points at or
// below p. Errors with Empty if the histogram has no bins.
func (h *Histogram) ExtendedSum(p float64) (float64, target.Target, error) {
	if h.res.Len() == 0 {
		return 0, nil, herrors.ErrEmpty
	}
	if p <= h.minimum {
		return 0, h.zeroTarget(), nil
	}
	if p >= h.maximum {
		return h.TotalCount(), h.TotalTargetSum(), nil
	}

	lastBin, _ := h.res.Last()
	if p == lastBin.Mean {
		count := h.pointCount - lastBin.Count/2
		half := lastBin.Target.Clone()
		half.Scale(-0.5)
		ts := h.TotalTargetSum()
		_ = ts.Sum(half)
		return count, ts, nil
	}

	lo, hi, prevCount, prevTarget := h.bracket(p)
	pDiff := hi.mean - lo.mean
	var ratio float64
	if pDiff != 0 {
		ratio = (p - lo.mean) / pDiff
	}
	mB := lo.count
	if pDiff != 0 {
		mB = lo.count + (hi.count-lo.count)*ratio
	}
	countSum := prevCount + lo.count/2 + ((lo.count+mB)/2)*ratio
	targetSum := target.Interp(prevTarget, lo.t, hi.t, ratio)
	return countSum, targetSum, nil
}

// Sum returns the estimated count of points at or below p.
func (h *Histogram) Sum(p float64) (float64, error) {
	count, _, err := h.ExtendedSum(p)
	return count, err
}

// extendedDensityInterior evaluates the density and target-density formula
// at p, assuming p is not exactly a bin mean (Density/ExtendedDensity
// handle that case by averaging the two IEEE-754 neighbors of p).
func (h *Histogram) extendedDensityInterior(p float64) (float64, target.Target) {
	if h.res.Len() == 0 || p < h.minimum || p > h.maximum {
		return 0, h.zeroTarget()
	}
	lo, hi, _, _ := h.bracket(p)
	pDiff := hi.mean - lo.mean
	if pDiff == 0 {
		return 0, h.zeroTarget()
	}
	ratio := (p - lo.mean) / pDiff
	mB := lo.count + (hi.count-lo.count)*ratio
	tB := target.Lerp(lo.t, hi.t, ratio)
	tB.Scale(1 / pDiff)
	return mB / pDiff, tB
}

// ExtendedDensity returns the estimated density and target-density at p. At
// an exact bin mean, the count density is the average of the densities
// approaching from either side (per the discontinuity there), but the
// target density is that bin's own target scaled by the count density,
// not an average of the neighbors' interpolated targets, matching the
// source algorithm's extended-density behavior at a bin's own mean.
func (h *Histogram) ExtendedDensity(p float64) (float64, target.Target) {
	if h.res.Len() == 0 {
		return 0, target.NewNone()
	}
	if exactBin, _, ok := h.res.Find(p); ok {
		lc, _ := h.extendedDensityInterior(math.Nextafter(p, math.Inf(-1)))
		rc, _ := h.extendedDensityInterior(math.Nextafter(p, math.Inf(1)))
		countDensity := (lc + rc) / 2
		targetDensity := exactBin.Target.Clone()
		targetDensity.Scale(countDensity)
		return countDensity, targetDensity
	}
	return h.extendedDensityInterior(p)
}

// Density returns the estimated probability density at p.
func (h *Histogram) Density(p float64) float64 {
	d, _ := h.ExtendedDensity(p)
	return d
}

// AverageTarget returns the estimated average target value at p, defined
// as the target-density divided by the count-density. Returns a zero
// target when the count-density is 0 (no local mass to average over).
func (h *Histogram) AverageTarget(p float64) (target.Target, error) {
	if h.res.Len() == 0 {
		return nil, herrors.ErrEmpty
	}
	c, t := h.ExtendedDensity(p)
	if c == 0 {
		return h.zeroTarget(), nil
	}
	result := t.Clone()
	result.Scale(1 / c)
	return result, nil
}

type sumPoint struct {
	sum, mean, count float64
}

// buildSumMap computes sum(bin.mean) for every bin, augmented with
// sentinels at (0, minimum) and (total_count, maximum) so a target sum
// anywhere in (0, total_count) always has a valid bracketing pair to
// interpolate between, even in the sub-ranges below the first bin's sum or
// above the last bin's.
func (h *Histogram) buildSumMap() ([]sumPoint, error) {
	bins := h.res.Bins()
	pts := make([]sumPoint, 0, len(bins)+2)
	for _, b := range bins {
		s, err := h.Sum(b.Mean)
		if err != nil {
			return nil, err
		}
		pts = append(pts, sumPoint{sum: s, mean: b.Mean, count: b.Count})
	}
	pts = append(pts, sumPoint{sum: 0, mean: h.minimum, count: 0})
	pts = append(pts, sumPoint{sum: h.TotalCount(), mean: h.maximum, count: 0})
	sort.Slice(pts, func(i, j int) bool { return pts[i].sum < pts[j].sum })
	return pts, nil
}

// solveQuadraticUnit returns the root of a*z^2 + b*z + c = 0 lying in
// [0, 1], mirroring the two-candidate-root search of the source
// algorithm's quadratic solver.
func solveQuadraticUnit(a, b, c float64) (float64, bool) {
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}
	sq := math.Sqrt(discriminant)
	for _, r := range [2]float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)} {
		if r >= 0 && r <= 1 {
			return r, true
		}
	}
	return 0, false
}

// findPointForSum inverts the sum function: given a target count s, returns
// the point p with sum(p) ≈ s, by locating the bracketing pair in pts and
// solving the same quadratic the sum formula's forward direction implies.
func (h *Histogram) findPointForSum(s float64, pts []sumPoint) float64 {
	if s <= 0 {
		return h.minimum
	}
	if s >= h.TotalCount() {
		return h.maximum
	}

	idx := sort.Search(len(pts), func(i int) bool { return pts[i].sum >= s })
	var floorIdx int
	if idx < len(pts) && pts[idx].sum == s {
		floorIdx = idx
	} else {
		floorIdx = idx - 1
	}
	if floorIdx < 0 {
		floorIdx = 0
	}
	higherIdx := floorIdx + 1
	for higherIdx < len(pts)-1 && pts[higherIdx].sum <= pts[floorIdx].sum {
		higherIdx++
	}
	if higherIdx >= len(pts) {
		higherIdx = len(pts) - 1
	}
	if higherIdx == floorIdx {
		return pts[floorIdx].mean
	}

	pI, mI := pts[floorIdx].mean, pts[floorIdx].count
	pI1, mI1 := pts[higherIdx].mean, pts[higherIdx].count
	d := s - pts[floorIdx].sum
	a := mI1 - mI

	if a == 0 {
		denom := (mI + mI1) / 2
		if denom == 0 {
			return pI
		}
		z := d / denom
		return pI + z*(pI1-pI)
	}

	z, ok := solveQuadraticUnit(a, 2*mI, -2*d)
	if !ok {
		z = 0
	}
	return pI + (pI1-pI)*z
}

// Uniform returns the k-1 points that would split the observed points into
// k roughly-equal-count groups. Granularity is capped by half the larger of
// the first and last bin's counts, per the source algorithm's floor on how
// finely bin boundaries can be trusted to resolve.
func (h *Histogram) Uniform(k int) ([]float64, error) {
	if h.res.Len() == 0 {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}
	firstBin, _ := h.res.First()
	lastBin, _ := h.res.Last()
	floor := math.Max(firstBin.Count, lastBin.Count) / 2
	total := h.TotalCount()
	for k > 1 && total/float64(k) < floor {
		k--
	}

	pts, err := h.buildSumMap()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, k-1)
	for i := 1; i < k; i++ {
		out = append(out, h.findPointForSum(total*float64(i)/float64(k), pts))
	}
	return out, nil
}

// Percentiles returns the estimated point at each requested quantile in
// [0, 1].
func (h *Histogram) Percentiles(qs ...float64) (map[float64]float64, error) {
	result := make(map[float64]float64, len(qs))
	if h.res.Len() == 0 {
		return result, nil
	}
	pts, err := h.buildSumMap()
	if err != nil {
		return nil, err
	}
	total := h.TotalCount()
	for _, q := range qs {
		result[q] = h.findPointForSum(q*total, pts)
	}
	return result, nil
}
