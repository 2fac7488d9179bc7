package chunkenc

import (
	"github.com/zarrlite/zarrlite/pkg/grid"
)

type valueKind uint8

const (
	valueEmpty valueKind = iota
	valueBytes
	valueArray
)

// Value is a lazy variant holding a chunk's data in exactly one of three
// states: raw bytes, a typed array view, or absent. It defers the choice
// between representations until a codec demands one, so a chain where most
// stages only need one form never pays for the other.
//
// A Value is created per encode/decode call, is single-use, and is never
// retained across calls.
type Value struct {
	kind valueKind
	buf  []byte
	arr  *grid.Array
}

// EmptyValue represents an absent chunk: nothing was ever written for this
// region. Absence is a valid outcome, not an error, and propagates through
// every stage of a chain.
func EmptyValue() Value {
	return Value{kind: valueEmpty}
}

// BytesValue wraps a raw byte buffer.
func BytesValue(buf []byte) Value {
	if buf == nil {
		return EmptyValue()
	}
	return Value{kind: valueBytes, buf: buf}
}

// ArrayValue wraps a typed array view.
func ArrayValue(arr *grid.Array) Value {
	if arr == nil {
		return EmptyValue()
	}
	return Value{kind: valueArray, arr: arr}
}

// IsEmpty reports whether the value represents an absent chunk.
func (v Value) IsEmpty() bool { return v.kind == valueEmpty }

// AsBytes returns the byte representation of the value. For an array state
// this is the elements in row-major order, materializing a row-major copy
// first unless the view already is one; it never compresses or decompresses.
// An empty value yields (nil, nil).
func (v Value) AsBytes() ([]byte, error) {
	switch v.kind {
	case valueEmpty:
		return nil, nil
	case valueBytes:
		return v.buf, nil
	default:
		return v.arr.Contiguous().Bytes()
	}
}

// AsArray returns a typed view of the value. A bytes state is reinterpreted
// under the requested dtype and shape, which requires the buffer length to
// match the shape/dtype product exactly. An array state is returned as-is
// when the shape already matches, else reshaped in row-major order. An empty
// value yields (nil, nil).
func (v Value) AsArray(dtype grid.DataType, shape []int) (*grid.Array, error) {
	switch v.kind {
	case valueEmpty:
		return nil, nil
	case valueBytes:
		return grid.NewArray(v.buf, dtype, shape)
	default:
		if equalShape(v.arr.Shape(), shape) {
			return v.arr, nil
		}
		return v.arr.Reshape(shape, grid.LayoutC)
	}
}

func equalShape(a, b []int) bool {
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
