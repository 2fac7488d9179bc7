package grid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ShapeMismatchError reports a byte-to-array or array-to-bytes
// reinterpretation whose buffer length does not match the declared
// shape/dtype product. It indicates a contract violation between pipeline
// stages or against declared metadata and is always fatal to the call.
type ShapeMismatchError struct {
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("buffer of %d bytes cannot be viewed as %d bytes", e.Got, e.Want)
}

// Layout names a flat memory ordering for a multidimensional index space.
type Layout uint8

const (
	LayoutC Layout = iota // row-major, last axis fastest
	LayoutF               // column-major, first axis fastest
)

func (l Layout) String() string {
	if l == LayoutF {
		return "F"
	}
	return "C"
}

// ParseLayout parses the wire name of a layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "C":
		return LayoutC, nil
	case "F":
		return LayoutF, nil
	default:
		return LayoutC, fmt.Errorf("invalid layout order: %q", s)
	}
}

// Array is a typed, shaped view over a byte buffer. Views share backing
// memory: Transpose and contiguous Reshape return new views without copying,
// so an Array may be strided in any order. Copies happen only when a caller
// demands a layout the strides cannot express.
type Array struct {
	data    []byte
	dtype   DataType
	shape   []int
	strides []int // byte strides per axis
}

// NewArray views data as an array of the given dtype and shape in C order.
// The buffer length must match the shape/dtype product exactly.
func NewArray(data []byte, dtype DataType, shape []int) (*Array, error) {
	want := product(shape) * dtype.ByteWidth()
	if len(data) != want {
		return nil, &ShapeMismatchError{Got: len(data), Want: want}
	}
	return &Array{
		data:    data,
		dtype:   dtype,
		shape:   append([]int(nil), shape...),
		strides: contiguousStrides(shape, dtype.ByteWidth(), LayoutC),
	}, nil
}

func contiguousStrides(shape []int, width int, layout Layout) []int {
	strides := make([]int, len(shape))
	acc := width
	if layout == LayoutC {
		for i := len(shape) - 1; i >= 0; i-- {
			strides[i] = acc
			acc *= shape[i]
		}
	} else {
		for i := 0; i < len(shape); i++ {
			strides[i] = acc
			acc *= shape[i]
		}
	}
	return strides
}

func (a *Array) DataType() DataType { return a.dtype }
func (a *Array) Shape() []int       { return a.shape }
func (a *Array) Strides() []int     { return a.strides }

// Elems returns the number of elements in the view.
func (a *Array) Elems() int { return product(a.shape) }

// IsCContiguous reports whether the view's memory is laid out in row-major
// order without gaps.
func (a *Array) IsCContiguous() bool {
	return equalInts(a.strides, contiguousStrides(a.shape, a.dtype.ByteWidth(), LayoutC))
}

// IsFContiguous reports whether the view's memory is laid out in
// column-major order without gaps.
func (a *Array) IsFContiguous() bool {
	return equalInts(a.strides, contiguousStrides(a.shape, a.dtype.ByteWidth(), LayoutF))
}

// Bytes returns the backing memory of a contiguous view. It never copies or
// converts; a strided view has no byte representation.
func (a *Array) Bytes() ([]byte, error) {
	if !a.IsCContiguous() && !a.IsFContiguous() {
		return nil, fmt.Errorf("array of shape %v is not contiguous", a.shape)
	}
	return a.data, nil
}

// WithDataType reinterprets the view's elements under a dtype of the same
// byte width, leaving the backing memory untouched.
func (a *Array) WithDataType(dtype DataType) (*Array, error) {
	if dtype.ByteWidth() != a.dtype.ByteWidth() {
		return nil, fmt.Errorf("cannot reinterpret %s as %s: byte widths differ", a.dtype, dtype)
	}
	clone := *a
	clone.dtype = dtype
	return &clone, nil
}

// Transpose permutes the view's axes without copying data.
func (a *Array) Transpose(perm []int) (*Array, error) {
	if len(perm) != len(a.shape) {
		return nil, fmt.Errorf("permutation %v does not match rank %d", perm, len(a.shape))
	}
	seen := make([]bool, len(perm))
	for _, ax := range perm {
		if ax < 0 || ax >= len(perm) || seen[ax] {
			return nil, fmt.Errorf("invalid axis permutation %v", perm)
		}
		seen[ax] = true
	}
	shape := make([]int, len(perm))
	strides := make([]int, len(perm))
	for i, ax := range perm {
		shape[i] = a.shape[ax]
		strides[i] = a.strides[ax]
	}
	return &Array{data: a.data, dtype: a.dtype, shape: shape, strides: strides}, nil
}

// Reshape views the same elements under a new shape read in the given
// layout. If the view is already contiguous in that layout this is a
// zero-copy stride change; otherwise the elements are copied into a fresh
// contiguous buffer.
func (a *Array) Reshape(shape []int, layout Layout) (*Array, error) {
	if product(shape) != a.Elems() {
		width := a.dtype.ByteWidth()
		return nil, &ShapeMismatchError{Got: a.Elems() * width, Want: product(shape) * width}
	}
	if (layout == LayoutC && a.IsCContiguous()) || (layout == LayoutF && a.IsFContiguous()) {
		return &Array{
			data:    a.data,
			dtype:   a.dtype,
			shape:   append([]int(nil), shape...),
			strides: contiguousStrides(shape, a.dtype.ByteWidth(), layout),
		}, nil
	}
	buf := make([]byte, a.Elems()*a.dtype.ByteWidth())
	a.copyInto(buf, layout)
	return &Array{
		data:    buf,
		dtype:   a.dtype,
		shape:   append([]int(nil), shape...),
		strides: contiguousStrides(shape, a.dtype.ByteWidth(), layout),
	}, nil
}

// Flatten collapses the view into one dimension read in the given layout.
func (a *Array) Flatten(layout Layout) *Array {
	flat, _ := a.Reshape([]int{a.Elems()}, layout)
	return flat
}

// Contiguous returns the view itself when its memory is already laid out in
// row-major order, otherwise a row-major copy. Chunk bytes are exchanged in
// row-major order, so an F-contiguous view must still be rewritten here or
// its elements would come out transposed on the other side.
func (a *Array) Contiguous() *Array {
	if a.IsCContiguous() {
		return a
	}
	buf := make([]byte, a.Elems()*a.dtype.ByteWidth())
	a.copyInto(buf, LayoutC)
	return &Array{
		data:    buf,
		dtype:   a.dtype,
		shape:   append([]int(nil), a.shape...),
		strides: contiguousStrides(a.shape, a.dtype.ByteWidth(), LayoutC),
	}
}

// Element returns the raw bytes of the element at the given index.
func (a *Array) Element(ix ...int) ([]byte, error) {
	if len(ix) != len(a.shape) {
		return nil, fmt.Errorf("index %v does not match rank %d", ix, len(a.shape))
	}
	off := 0
	for i, x := range ix {
		if x < 0 || x >= a.shape[i] {
			return nil, fmt.Errorf("index %v out of bounds for shape %v", ix, a.shape)
		}
		off += x * a.strides[i]
	}
	return a.data[off : off+a.dtype.ByteWidth()], nil
}

// Equal reports whether two views hold the same elements in the same shape
// with the same element type, regardless of strides.
func (a *Array) Equal(other *Array) bool {
	if other == nil || a.dtype.Kind != other.dtype.Kind ||
		a.dtype.Order.Effective() != other.dtype.Order.Effective() ||
		!equalInts(a.shape, other.shape) {
		return false
	}
	left := make([]byte, a.Elems()*a.dtype.ByteWidth())
	right := make([]byte, other.Elems()*other.dtype.ByteWidth())
	a.copyInto(left, LayoutC)
	other.copyInto(right, LayoutC)
	return bytes.Equal(left, right)
}

// copyInto copies the view's elements into dst, visiting indices in the
// given layout order. dst must hold Elems()*width bytes.
func (a *Array) copyInto(dst []byte, layout Layout) {
	width := a.dtype.ByteWidth()
	rank := len(a.shape)
	ix := make([]int, rank)
	total := a.Elems()
	for pos := 0; pos < total; pos++ {
		src := 0
		for i, x := range ix {
			src += x * a.strides[i]
		}
		copy(dst[pos*width:(pos+1)*width], a.data[src:src+width])
		if layout == LayoutC {
			for i := rank - 1; i >= 0; i-- {
				ix[i]++
				if ix[i] < a.shape[i] {
					break
				}
				ix[i] = 0
			}
		} else {
			for i := 0; i < rank; i++ {
				ix[i]++
				if ix[i] < a.shape[i] {
					break
				}
				ix[i] = 0
			}
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Typed constructors, mainly for tests and tooling. All produce native-order
// C-contiguous views.

func FromUint8s(vals []uint8, shape []int) (*Array, error) {
	return NewArray(append([]byte(nil), vals...), DataType{Kind: KindUint8}, shape)
}

func FromInt32s(vals []int32, shape []int) (*Array, error) {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return NewArray(buf, DataType{Kind: KindInt32}, shape)
}

func FromInt64s(vals []int64, shape []int) (*Array, error) {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return NewArray(buf, DataType{Kind: KindInt64}, shape)
}

func FromUint16s(vals []uint16, shape []int) (*Array, error) {
	buf := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint16(buf[2*i:], v)
	}
	return NewArray(buf, DataType{Kind: KindUint16}, shape)
}

func FromFloat32s(vals []float32, shape []int) (*Array, error) {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return NewArray(buf, DataType{Kind: KindFloat32}, shape)
}

func FromFloat64s(vals []float64, shape []int) (*Array, error) {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return NewArray(buf, DataType{Kind: KindFloat64}, shape)
}
