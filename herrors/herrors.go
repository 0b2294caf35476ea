// Package herrors defines the closed set of errors the histogram core can
// raise. Callers should match with errors.Is against the sentinel values;
// HistogramError only exists to carry a human-readable message alongside the
// sentinel; its Unwrap method lets errors.Is reach the sentinel.
package herrors

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when an insert or merge targets a
	// histogram whose latched target type differs from the one implied
	// by the call, when a group insert's arity doesn't match the
	// declared group_types, or when two array-backed categorical
	// histograms with different category lists are merged.
	ErrTypeMismatch = errors.New("streamhist: target type mismatch")

	// ErrUnknownCategory is returned by insert_categorical when the
	// histogram was created with a fixed category list and the inserted
	// value isn't a member of it.
	ErrUnknownCategory = errors.New("streamhist: unknown category")

	// ErrEmpty is returned by sum, extended_sum, and average_target on a
	// histogram with no bins.
	ErrEmpty = errors.New("streamhist: histogram is empty")

	// ErrOutOfRange is reserved for callers that opt into strict range
	// checking; the default sum/density behavior clamps instead of
	// returning this.
	ErrOutOfRange = errors.New("streamhist: point out of range")

	// ErrBinUpdate signals an attempt to accumulate two bins with
	// different means. It should never surface from the public API; its
	// presence indicates a reservoir invariant was violated.
	ErrBinUpdate = errors.New("streamhist: bin update on mismatched means")

	// ErrInvalidValue is returned when a point's position is NaN or
	// infinite. Ordered-map keys require a total order, which neither
	// value participates in, so it is rejected at the boundary rather
	// than let a NaN mean silently break bin ordering downstream.
	ErrInvalidValue = errors.New("streamhist: point value is not finite")
)

// HistogramError wraps a sentinel with call-site context.
type HistogramError struct {
	Err error
	Msg string
}

func (e *HistogramError) Error() string {
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Msg
}

func (e *HistogramError) Unwrap() error {
	return e.Err
}

func Wrap(sentinel error, msg string) error {
	return &HistogramError{Err: sentinel, Msg: msg}
}

func Wrapf(sentinel error, format string, args ...interface{}) error {
	return Wrap(sentinel, fmt.Sprintf(format, args...))
}
