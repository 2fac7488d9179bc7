package grid

import "fmt"

// Range is a half-open index interval [Start, End) along one axis.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Overlaps reports whether r and other share at least one index.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Selection identifies the sub-region of a decoded chunk a caller wants, one
// range per chunk axis. Plain codecs ignore it and transform the whole
// buffer; selection-aware codecs use it to skip regions that would be
// discarded.
type Selection []Range

// FullSelection covers the whole of shape.
func FullSelection(shape []int) Selection {
	sel := make(Selection, len(shape))
	for i, n := range shape {
		sel[i] = Range{Start: 0, End: n}
	}
	return sel
}

// Validate checks the selection against a chunk shape.
func (s Selection) Validate(shape []int) error {
	if len(s) != len(shape) {
		return fmt.Errorf("selection has %d axes, chunk has %d", len(s), len(shape))
	}
	for i, r := range s {
		if r.Start < 0 || r.End > shape[i] || r.End < r.Start {
			return fmt.Errorf("selection[%d] = [%d, %d) out of bounds for axis of size %d", i, r.Start, r.End, shape[i])
		}
	}
	return nil
}
