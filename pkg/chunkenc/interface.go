package chunkenc

import (
	"github.com/zarrlite/zarrlite/pkg/grid"
)

// Codec is the contract every codec kind implements. Encode transforms a
// chunk's value towards its stored byte form, Decode is the exact inverse.
// Both receive the selection the caller ultimately wants from the decoded
// chunk and the array metadata; plain codecs ignore the selection and
// transform the whole value.
//
// Implementations hold no per-call state: one Codec instance may encode and
// decode many chunks concurrently.
type Codec interface {
	Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error)
	Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error)
}

// stageFunc is one direction of a codec, already adapted to the full Value
// contract.
type stageFunc func(v Value, sel grid.Selection, md grid.Metadata) (Value, error)

// bytesTransform adapts a transform declared over raw bytes into a full
// stage. The conversion to bytes and the absence short-circuit happen here,
// once, instead of inside every codec body.
func bytesTransform(fn func(buf []byte, sel grid.Selection, md grid.Metadata) (Value, error)) stageFunc {
	return func(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
		buf, err := v.AsBytes()
		if err != nil {
			return Value{}, err
		}
		if buf == nil {
			return EmptyValue(), nil
		}
		return fn(buf, sel, md)
	}
}

// arrayTransform adapts a transform declared over typed array views into a
// full stage. A bytes value is viewed as a flat 1-D array of the metadata's
// element type; the buffer length must divide evenly into whole elements.
func arrayTransform(fn func(arr *grid.Array, sel grid.Selection, md grid.Metadata) (Value, error)) stageFunc {
	return func(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
		arr, err := asAnyArray(v, md)
		if err != nil {
			return Value{}, err
		}
		if arr == nil {
			return EmptyValue(), nil
		}
		return fn(arr, sel, md)
	}
}

// asAnyArray converts a value to an array view without forcing a shape: an
// array state passes through with its existing shape and strides, a bytes
// state becomes a flat view.
func asAnyArray(v Value, md grid.Metadata) (*grid.Array, error) {
	if v.kind == valueArray {
		return v.arr, nil
	}
	if v.kind == valueEmpty {
		return nil, nil
	}
	width := md.DataType.ByteWidth()
	return v.AsArray(md.DataType, []int{len(v.buf) / width})
}
