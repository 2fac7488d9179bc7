package grid

import "fmt"

// CopyBytes copies the view's elements into a fresh buffer in the given
// layout order. Unlike Bytes this always copies, so the result is safe to
// mutate without touching the view.
func (a *Array) CopyBytes(layout Layout) []byte {
	buf := make([]byte, a.Elems()*a.dtype.ByteWidth())
	a.copyInto(buf, layout)
	return buf
}

// Slice returns a view of the rectangular sub-region named by sel. The view
// shares backing memory with a; no data is copied.
func (a *Array) Slice(sel Selection) (*Array, error) {
	if err := sel.Validate(a.shape); err != nil {
		return nil, err
	}
	off := 0
	shape := make([]int, len(sel))
	for i, r := range sel {
		off += r.Start * a.strides[i]
		shape[i] = r.Len()
	}
	return &Array{
		data:    a.data[off:],
		dtype:   a.dtype,
		shape:   shape,
		strides: append([]int(nil), a.strides...),
	}, nil
}

// CopyFrom copies src's elements into the region covered by a. Shapes and
// element widths must match; either view may be strided.
func (a *Array) CopyFrom(src *Array) error {
	if !equalInts(a.shape, src.shape) {
		return fmt.Errorf("cannot copy shape %v into shape %v", src.shape, a.shape)
	}
	if a.dtype.ByteWidth() != src.dtype.ByteWidth() {
		return fmt.Errorf("cannot copy %s elements into %s", src.dtype, a.dtype)
	}
	width := a.dtype.ByteWidth()
	rank := len(a.shape)
	ix := make([]int, rank)
	total := a.Elems()
	for pos := 0; pos < total; pos++ {
		srcOff, dstOff := 0, 0
		for i, x := range ix {
			srcOff += x * src.strides[i]
			dstOff += x * a.strides[i]
		}
		copy(a.data[dstOff:dstOff+width], src.data[srcOff:srcOff+width])
		for i := rank - 1; i >= 0; i-- {
			ix[i]++
			if ix[i] < a.shape[i] {
				break
			}
			ix[i] = 0
		}
	}
	return nil
}
