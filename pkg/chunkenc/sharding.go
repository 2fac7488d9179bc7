package chunkenc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

// shardingCodec stores an outer chunk as a shard: a sequence of inner
// chunks, each run through its own nested codec chain, followed by a binary
// index locating them. Decoding consults the selection and only decodes the
// inner chunks that intersect it, so a partial read never materializes the
// whole shard.
//
// The index holds one entry per inner chunk in row-major order over the
// inner-chunk grid: uint64 payload offset and uint64 length, little endian.
// Absent inner chunks carry the all-ones sentinel in both fields.
type shardingCodec struct {
	cfg   ShardingConfig
	inner *Chain
}

const shardIndexEntrySize = 16

var shardAbsent = uint64(math.MaxUint64)

func newShardingCodec(cfg ShardingConfig) (Codec, error) {
	if len(cfg.ChunkShape) == 0 {
		return nil, &ConfigurationError{Codec: CodecSharding, Reason: "inner chunk shape must not be empty"}
	}
	for i, n := range cfg.ChunkShape {
		if n <= 0 {
			return nil, &ConfigurationError{Codec: CodecSharding, Reason: fmt.Sprintf("chunk_shape[%d] = %d, must be positive", i, n)}
		}
	}
	inner, err := NewChain(cfg.Codecs)
	if err != nil {
		return nil, err
	}
	return &shardingCodec{cfg: cfg, inner: inner}, nil
}

func (c *shardingCodec) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.encode)(v, sel, md)
}

func (c *shardingCodec) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return bytesTransform(c.decode)(v, sel, md)
}

// grid returns the number of inner chunks along each axis.
func (c *shardingCodec) grid(md grid.Metadata) ([]int, error) {
	if len(c.cfg.ChunkShape) != len(md.ChunkShape) {
		return nil, &ConfigurationError{Codec: CodecSharding, Reason: fmt.Sprintf("inner chunk shape %v does not match chunk rank %d", c.cfg.ChunkShape, len(md.ChunkShape))}
	}
	counts := make([]int, len(md.ChunkShape))
	for i, n := range md.ChunkShape {
		if n%c.cfg.ChunkShape[i] != 0 {
			return nil, &ConfigurationError{Codec: CodecSharding, Reason: fmt.Sprintf("inner chunk shape %v does not evenly divide chunk shape %v", c.cfg.ChunkShape, md.ChunkShape)}
		}
		counts[i] = n / c.cfg.ChunkShape[i]
	}
	return counts, nil
}

func (c *shardingCodec) innerMetadata(md grid.Metadata) grid.Metadata {
	md.ChunkShape = c.cfg.ChunkShape
	return md
}

func (c *shardingCodec) encode(arr *grid.Array, _ grid.Selection, md grid.Metadata) (Value, error) {
	counts, err := c.grid(md)
	if err != nil {
		return Value{}, err
	}
	shaped, err := shapedChunk(arr, md)
	if err != nil {
		return Value{}, err
	}
	innerMD := c.innerMetadata(md)

	var (
		payload bytes.Buffer
		index   = make([]uint64, 0, 2*product(counts))
		written = false
	)
	for it := newGridIter(counts); it.valid(); it.next() {
		region := c.region(it.pos)
		sub, err := shaped.Slice(region)
		if err != nil {
			return Value{}, err
		}
		encoded, err := c.inner.EncodeChunk(sub, grid.FullSelection(c.cfg.ChunkShape), innerMD)
		if err != nil {
			return Value{}, errors.Wrapf(err, "encoding inner chunk %v", it.pos)
		}
		if encoded == nil {
			index = append(index, shardAbsent, shardAbsent)
			continue
		}
		index = append(index, uint64(payload.Len()), uint64(len(encoded)))
		payload.Write(encoded)
		written = true
	}
	if !written {
		return EmptyValue(), nil
	}

	entry := make([]byte, 8)
	for _, v := range index {
		binary.LittleEndian.PutUint64(entry, v)
		payload.Write(entry)
	}
	return BytesValue(payload.Bytes()), nil
}

func (c *shardingCodec) decode(buf []byte, sel grid.Selection, md grid.Metadata) (Value, error) {
	counts, err := c.grid(md)
	if err != nil {
		return Value{}, err
	}
	nChunks := product(counts)
	indexLen := nChunks * shardIndexEntrySize
	if len(buf) < indexLen {
		return Value{}, &DecodeError{Codec: CodecSharding, Err: fmt.Errorf("shard of %d bytes is shorter than its %d-byte index", len(buf), indexLen)}
	}
	payload := buf[:len(buf)-indexLen]
	index := buf[len(buf)-indexLen:]
	innerMD := c.innerMetadata(md)

	out := make([]byte, md.ChunkSize())
	outArr, err := grid.NewArray(out, md.DataType, md.ChunkShape)
	if err != nil {
		return Value{}, err
	}

	if err := sel.Validate(md.ChunkShape); err != nil {
		return Value{}, errors.Wrap(err, "validating shard selection")
	}

	i := 0
	for it := newGridIter(counts); it.valid(); it.next() {
		offset := binary.LittleEndian.Uint64(index[i*shardIndexEntrySize:])
		length := binary.LittleEndian.Uint64(index[i*shardIndexEntrySize+8:])
		i++

		region := c.region(it.pos)
		if offset == shardAbsent {
			continue // never written, stays at the zero fill
		}
		if !overlaps(sel, region) {
			continue // outside the requested selection
		}
		if offset+length < offset || offset+length > uint64(len(payload)) {
			return Value{}, &DecodeError{Codec: CodecSharding, Err: fmt.Errorf("inner chunk %v at [%d, %d) escapes the %d-byte payload", it.pos, offset, offset+length, len(payload))}
		}
		decoded, err := c.inner.DecodeChunk(payload[offset:offset+length], translate(sel, region), innerMD)
		if err != nil {
			return Value{}, errors.Wrapf(err, "decoding inner chunk %v", it.pos)
		}
		if decoded == nil {
			continue
		}
		dst, err := outArr.Slice(region)
		if err != nil {
			return Value{}, err
		}
		if err := dst.CopyFrom(decoded); err != nil {
			return Value{}, err
		}
	}
	return ArrayValue(outArr), nil
}

// region maps an inner-chunk grid position onto the index region it covers
// inside the outer chunk.
func (c *shardingCodec) region(pos []int) grid.Selection {
	region := make(grid.Selection, len(pos))
	for i, p := range pos {
		region[i] = grid.Range{Start: p * c.cfg.ChunkShape[i], End: (p + 1) * c.cfg.ChunkShape[i]}
	}
	return region
}

func overlaps(sel grid.Selection, region grid.Selection) bool {
	for i := range region {
		if !sel[i].Overlaps(region[i]) {
			return false
		}
	}
	return true
}

// translate clips sel to region and rebases it onto the region's origin,
// yielding the selection the nested chain sees for one inner chunk.
func translate(sel grid.Selection, region grid.Selection) grid.Selection {
	out := make(grid.Selection, len(region))
	for i := range region {
		start := max(sel[i].Start, region[i].Start)
		end := min(sel[i].End, region[i].End)
		out[i] = grid.Range{Start: start - region[i].Start, End: end - region[i].Start}
	}
	return out
}

// gridIter walks a multidimensional grid in row-major order.
type gridIter struct {
	counts []int
	pos    []int
	done   bool
}

func newGridIter(counts []int) *gridIter {
	return &gridIter{counts: counts, pos: make([]int, len(counts))}
}

func (it *gridIter) valid() bool { return !it.done }

func (it *gridIter) next() {
	for i := len(it.pos) - 1; i >= 0; i-- {
		it.pos[i]++
		if it.pos[i] < it.counts[i] {
			return
		}
		it.pos[i] = 0
	}
	it.done = true
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
