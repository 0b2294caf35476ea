// Package bin implements the immutable-mean container the reservoir keys
// its ordered map and gap queue on.
package bin

import (
	"github.com/anthonydresser/streamhist/herrors"
	"github.com/anthonydresser/streamhist/target"
)

// Bin is one (mean, count, target) triple. Mean is treated as immutable for
// a given Bin value: re-keying is modeled as removing and reinserting, not
// mutating Mean in place.
type Bin struct {
	Mean   float64
	Count  float64
	Target target.Target
}

// Canonical normalizes negative zero to positive zero so it can be used as
// an ordered-map key without −0 and +0 comparing distinct in the reservoir.
func Canonical(mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return mean
}

// New builds a bin, canonicalizing its mean.
func New(mean, count float64, t target.Target) *Bin {
	return &Bin{Mean: Canonical(mean), Count: count, Target: t}
}

// Clone deep-copies a bin, including its target.
func (b *Bin) Clone() *Bin {
	return &Bin{Mean: b.Mean, Count: b.Count, Target: b.Target.Clone()}
}

// Combine returns a new bin representing the weighted-mean merge of a and
// b, per the SPDT merge rule: mean is the count-weighted average, count is
// the sum, and the target is the algebra-sum of the two targets.
func Combine(a, b *Bin) (*Bin, error) {
	totalCount := a.Count + b.Count
	newMean := (a.Mean*a.Count + b.Mean*b.Count) / totalCount
	t := a.Target.Clone()
	if err := t.Sum(b.Target); err != nil {
		return nil, err
	}
	return &Bin{Mean: Canonical(newMean), Count: totalCount, Target: t}, nil
}

// Accumulate adds other's count and target into b in place. It requires
// equal means; a mismatch is an internal invariant violation (BinUpdate),
// never expected to surface from the public API.
func (b *Bin) Accumulate(other *Bin) error {
	if b.Mean != other.Mean {
		return herrors.Wrapf(herrors.ErrBinUpdate, "mismatched means %v vs %v", b.Mean, other.Mean)
	}
	b.Count += other.Count
	return b.Target.Sum(other.Target)
}
