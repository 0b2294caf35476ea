package histogram

import "github.com/anthonydresser/streamhist/bin"

// ConstantWidthBins reprojects the histogram onto n evenly spaced bin
// centers between its minimum and maximum, deriving each bin's count from
// the difference of two Sum evaluations at the bin's edges. It's a
// visualization convenience: pure read-only composition of Sum, not part
// of the reservoir itself.
func (h *Histogram) ConstantWidthBins(n int) ([]bin.Bin, error) {
	if n < 1 {
		return nil, nil
	}
	if h.res.Len() == 0 {
		return nil, nil
	}

	total := h.TotalCount()
	rangeWidth := h.maximum - h.minimum
	increment := rangeWidth / float64(n)

	out := make([]bin.Bin, n)
	startCount := 0.0
	center := h.minimum + increment/2
	for i := 0; i < n-1; i++ {
		edge := center + increment/2
		endCount, err := h.Sum(edge)
		if err != nil {
			return nil, err
		}
		out[i] = bin.Bin{Mean: bin.Canonical(center), Count: endCount - startCount, Target: h.zeroTarget()}
		startCount = endCount
		center += increment
	}
	out[n-1] = bin.Bin{Mean: bin.Canonical(center), Count: total - startCount, Target: h.zeroTarget()}
	return out, nil
}
