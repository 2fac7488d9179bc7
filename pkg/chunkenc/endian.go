package chunkenc

import (
	"fmt"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

// endianCodec normalizes element byte order. The configured order is the
// byte order of the stored chunk: encode rewrites elements into it, decode
// rewrites them back into the order the view arrived with. When the orders
// already match, the value passes through with its buffer untouched.
type endianCodec struct {
	order grid.ByteOrder
}

func newEndianCodec(cfg EndianConfig) (Codec, error) {
	order, err := grid.ParseByteOrder(cfg.Endian)
	if err != nil {
		return nil, &ConfigurationError{Codec: CodecEndian, Reason: fmt.Sprintf("unrecognized byte order %q", cfg.Endian)}
	}
	return &endianCodec{order: order}, nil
}

func (c *endianCodec) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.encode)(v, sel, md)
}

func (c *endianCodec) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.decode)(v, sel, md)
}

func (c *endianCodec) encode(arr *grid.Array, _ grid.Selection, _ grid.Metadata) (Value, error) {
	cur := arr.DataType().Order.Effective()
	if cur == c.order {
		return ArrayValue(arr), nil
	}
	swapped, err := swapped(arr, arr.DataType().WithOrder(c.order))
	if err != nil {
		return Value{}, err
	}
	return ArrayValue(swapped), nil
}

func (c *endianCodec) decode(arr *grid.Array, _ grid.Selection, _ grid.Metadata) (Value, error) {
	cur := arr.DataType().Order.Effective()
	if cur == c.order {
		return ArrayValue(arr), nil
	}
	// The stored bytes are in the configured order; rewrite them into the
	// order the view is declared with.
	swapped, err := swapped(arr, arr.DataType())
	if err != nil {
		return Value{}, err
	}
	return ArrayValue(swapped), nil
}

// swapped returns a new array holding the same elements with every
// element's bytes reversed, declared under dtype. The source view is never
// mutated.
func swapped(arr *grid.Array, dtype grid.DataType) (*grid.Array, error) {
	width := arr.DataType().ByteWidth()
	buf := arr.CopyBytes(grid.LayoutC)
	if width > 1 {
		for off := 0; off < len(buf); off += width {
			for i, j := off, off+width-1; i < j; i, j = i+1, j-1 {
				buf[i], buf[j] = buf[j], buf[i]
			}
		}
	}
	return grid.NewArray(buf, dtype, arr.Shape())
}
