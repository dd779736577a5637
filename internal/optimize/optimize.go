// Package optimize provides post-merge table transforms that narrow column
// storage without altering any logical value.
package optimize

import (
	"math"

	"github.com/fsweep/fsweep/internal/frame"
)

// Optimizer is a pure table transform, applied exactly once after merge and
// before persistence. Implementations must be idempotent and must never
// change the logical value of any cell.
type Optimizer func(*frame.Table) (*frame.Table, error)

// NarrowInts returns an optimizer that sets each named integer column's
// physical encoding width to the smallest of 1, 2, 4 or 8 bytes that still
// represents every observed value. Columns containing negative values keep
// the full 8 bytes. Width is chosen strictly from the column's actual
// range; there is no provision for appending larger values afterwards.
func NarrowInts(columns ...string) Optimizer {
	return func(t *frame.Table) (*frame.Table, error) {
		for _, name := range columns {
			vals, err := t.Ints(name)
			if err != nil {
				return nil, err
			}
			if err := t.SetColumnWidth(name, widthFor(vals)); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
}

// Chain composes optimizers left to right.
func Chain(opts ...Optimizer) Optimizer {
	return func(t *frame.Table) (*frame.Table, error) {
		var err error
		for _, opt := range opts {
			if t, err = opt(t); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
}

func widthFor(vals []int64) uint8 {
	var max int64
	for _, v := range vals {
		if v < 0 {
			return 8
		}
		if v > max {
			max = v
		}
	}
	switch {
	case max <= math.MaxUint8:
		return 1
	case max <= math.MaxUint16:
		return 2
	case max <= math.MaxUint32:
		return 4
	default:
		return 8
	}
}
