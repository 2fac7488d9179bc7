package chunkenc

import (
	"fmt"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

// transposeCodec rearranges the order elements are laid out in the stored
// flat buffer. With a named layout the two directions are symmetric
// reshapes. With an explicit axis permutation, encode permutes the chunk's
// axes and flattens the permuted view in row-major order; decode reads the
// flat buffer back under the permuted shape and applies the inverse
// permutation to recover the chunk. Either way decode(encode(x)) == x
// element for element, though intermediate strides may differ.
type transposeCodec struct {
	order TransposeOrder
	inv   []int // inverse permutation, nil for named layouts
}

func newTransposeCodec(cfg TransposeConfig) (Codec, error) {
	if cfg.Order.Perm == nil {
		return &transposeCodec{order: cfg.Order}, nil
	}
	perm := cfg.Order.Perm
	inv := make([]int, len(perm))
	seen := make([]bool, len(perm))
	for i, ax := range perm {
		if ax < 0 || ax >= len(perm) || seen[ax] {
			return nil, &ConfigurationError{Codec: CodecTranspose, Reason: fmt.Sprintf("invalid axis permutation %v", perm)}
		}
		seen[ax] = true
		inv[ax] = i
	}
	return &transposeCodec{order: cfg.Order, inv: inv}, nil
}

func (c *transposeCodec) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.encode)(v, sel, md)
}

func (c *transposeCodec) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.decode)(v, sel, md)
}

func (c *transposeCodec) encode(arr *grid.Array, _ grid.Selection, md grid.Metadata) (Value, error) {
	if c.order.Perm == nil {
		return ArrayValue(arr.Flatten(c.order.Layout)), nil
	}
	if len(c.order.Perm) != len(md.ChunkShape) {
		return Value{}, &ConfigurationError{Codec: CodecTranspose, Reason: fmt.Sprintf("permutation %v does not match chunk rank %d", c.order.Perm, len(md.ChunkShape))}
	}
	shaped, err := shapedChunk(arr, md)
	if err != nil {
		return Value{}, err
	}
	permuted, err := shaped.Transpose(c.order.Perm)
	if err != nil {
		return Value{}, err
	}
	return ArrayValue(permuted.Flatten(grid.LayoutC)), nil
}

func (c *transposeCodec) decode(arr *grid.Array, _ grid.Selection, md grid.Metadata) (Value, error) {
	if c.order.Perm == nil {
		shaped, err := arr.Reshape(md.ChunkShape, c.order.Layout)
		if err != nil {
			return Value{}, err
		}
		return ArrayValue(shaped), nil
	}
	if len(c.order.Perm) != len(md.ChunkShape) {
		return Value{}, &ConfigurationError{Codec: CodecTranspose, Reason: fmt.Sprintf("permutation %v does not match chunk rank %d", c.order.Perm, len(md.ChunkShape))}
	}
	stored := make([]int, len(md.ChunkShape))
	for i, ax := range c.order.Perm {
		stored[i] = md.ChunkShape[ax]
	}
	shaped, err := arr.Reshape(stored, grid.LayoutC)
	if err != nil {
		return Value{}, err
	}
	restored, err := shaped.Transpose(c.inv)
	if err != nil {
		return Value{}, err
	}
	return ArrayValue(restored), nil
}

// shapedChunk views arr under the chunk shape, leaving an already shaped
// view untouched so its strides survive.
func shapedChunk(arr *grid.Array, md grid.Metadata) (*grid.Array, error) {
	if equalShape(arr.Shape(), md.ChunkShape) {
		return arr, nil
	}
	return arr.Reshape(md.ChunkShape, grid.LayoutC)
}
