package grid

import "fmt"

// Metadata describes the shape, chunking and element type of one array. It is
// consumed read-only by the codec pipeline; a Metadata is built once when an
// array is opened and never mutated afterwards.
type Metadata struct {
	Shape      []int
	ChunkShape []int
	DataType   DataType
}

// Validate checks the structural invariants of the metadata.
func (m Metadata) Validate() error {
	if len(m.Shape) == 0 {
		return fmt.Errorf("array shape must have at least one axis")
	}
	if len(m.ChunkShape) != len(m.Shape) {
		return fmt.Errorf("chunk shape has %d axes, array shape has %d", len(m.ChunkShape), len(m.Shape))
	}
	for i, n := range m.Shape {
		if n <= 0 {
			return fmt.Errorf("shape[%d] = %d, must be positive", i, n)
		}
	}
	for i, n := range m.ChunkShape {
		if n <= 0 {
			return fmt.Errorf("chunk_shape[%d] = %d, must be positive", i, n)
		}
	}
	if m.DataType.ByteWidth() == 0 {
		return fmt.Errorf("invalid data type")
	}
	return nil
}

// ChunkElems returns the number of elements in one chunk.
func (m Metadata) ChunkElems() int {
	return product(m.ChunkShape)
}

// ChunkSize returns the number of bytes one decoded chunk occupies.
func (m Metadata) ChunkSize() int {
	return m.ChunkElems() * m.DataType.ByteWidth()
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
