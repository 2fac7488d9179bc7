package chunkenc_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zarrlite/zarrlite/pkg/chunkenc"
	"github.com/zarrlite/zarrlite/pkg/grid"
)

func testMetadata(chunkShape []int, kind grid.Kind) grid.Metadata {
	return grid.Metadata{
		Shape:      chunkShape,
		ChunkShape: chunkShape,
		DataType:   grid.DataType{Kind: kind},
	}
}

func mustChain(t *testing.T, metas ...chunkenc.CodecMetadata) *chunkenc.Chain {
	t.Helper()
	chain, err := chunkenc.NewChain(metas)
	require.NoError(t, err)
	return chain
}

func TestTransposeRowMajor(t *testing.T) {
	// A 2x3 array of 4-byte integers [[1,2,3],[4,5,6]] with order "C" must
	// encode to the flat element sequence 1,2,3,4,5,6.
	md := testMetadata([]int{2, 3}, grid.KindInt32)
	chain := mustChain(t, chunkenc.TransposeCodec(chunkenc.OrderC()))
	sel := grid.FullSelection(md.ChunkShape)

	arr, err := grid.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)

	want := make([]byte, 24)
	for i, v := range []int32{1, 2, 3, 4, 5, 6} {
		binary.NativeEndian.PutUint32(want[4*i:], uint32(v))
	}
	require.Equal(t, want, encoded)

	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, arr.Equal(decoded))
}

func TestTransposeColumnMajor(t *testing.T) {
	md := testMetadata([]int{2, 3}, grid.KindInt32)
	chain := mustChain(t, chunkenc.TransposeCodec(chunkenc.OrderF()))
	sel := grid.FullSelection(md.ChunkShape)

	arr, err := grid.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)

	// Column-major flattening walks the first axis fastest.
	want := make([]byte, 24)
	for i, v := range []int32{1, 4, 2, 5, 3, 6} {
		binary.NativeEndian.PutUint32(want[4*i:], uint32(v))
	}
	require.Equal(t, want, encoded)

	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, arr.Equal(decoded))
}

func TestTransposePermutation(t *testing.T) {
	md := testMetadata([]int{2, 3, 4}, grid.KindInt32)
	chain := mustChain(t, chunkenc.TransposeCodec(chunkenc.Permutation(2, 0, 1)))
	sel := grid.FullSelection(md.ChunkShape)

	vals := make([]int32, 24)
	for i := range vals {
		vals[i] = int32(i + 1)
	}
	arr, err := grid.FromInt32s(vals, []int{2, 3, 4})
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)
	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, arr.Equal(decoded))
}

func TestTransposeInvalidPermutation(t *testing.T) {
	for _, perm := range [][]int{{0, 0}, {1, 2}, {-1, 0}} {
		_, err := chunkenc.NewChain([]chunkenc.CodecMetadata{
			chunkenc.TransposeCodec(chunkenc.Permutation(perm...)),
		})

		var confErr *chunkenc.ConfigurationError
		require.ErrorAs(t, err, &confErr)
	}
}

func TestEndianSwap(t *testing.T) {
	// Encoding native values as big endian must byte-swap every element on
	// a little-endian host and leave them alone on a big-endian one; either
	// way the stored bytes are big endian.
	md := testMetadata([]int{2, 3}, grid.KindInt32)
	chain := mustChain(t, chunkenc.EndianCodec("big"))
	sel := grid.FullSelection(md.ChunkShape)

	arr, err := grid.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)

	want := make([]byte, 24)
	for i, v := range []int32{1, 2, 3, 4, 5, 6} {
		binary.BigEndian.PutUint32(want[4*i:], uint32(v))
	}
	require.Equal(t, want, encoded)

	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, arr.Equal(decoded))
}

func TestEndianMatchingOrderPassesThrough(t *testing.T) {
	md := testMetadata([]int{4}, grid.KindUint16)
	order := "little"
	if binary.NativeEndian.Uint16([]byte{0x01, 0x02}) == 0x0102 {
		order = "big"
	}
	chain := mustChain(t, chunkenc.EndianCodec(order))
	sel := grid.FullSelection(md.ChunkShape)

	arr, err := grid.FromUint16s([]uint16{1, 2, 3, 4}, []int{4})
	require.NoError(t, err)
	raw, err := arr.Bytes()
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)

	// No reinterpretation happens: the identical buffer flows through.
	require.Same(t, &raw[0], &encoded[0])
}

func TestEndianInvalidOrder(t *testing.T) {
	_, err := chunkenc.NewChain([]chunkenc.CodecMetadata{chunkenc.EndianCodec("middle")})

	var confErr *chunkenc.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestGzipRoundTrip(t *testing.T) {
	md := testMetadata([]int{16, 16}, grid.KindFloat64)
	chain := mustChain(t, chunkenc.GzipCodec(5))
	sel := grid.FullSelection(md.ChunkShape)

	vals := make([]float64, 256)
	for i := range vals {
		vals[i] = float64(i%13) * 0.5
	}
	arr, err := grid.FromFloat64s(vals, []int{16, 16})
	require.NoError(t, err)

	encoded, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)
	require.Less(t, len(encoded), md.ChunkSize())

	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, arr.Equal(decoded))
}

func TestGzipDecodeMalformed(t *testing.T) {
	md := testMetadata([]int{4}, grid.KindUint8)
	chain := mustChain(t, chunkenc.GzipCodec(5))

	_, err := chain.DecodeChunk([]byte("not gzip data"), grid.FullSelection(md.ChunkShape), md)

	var decErr *chunkenc.DecodeError
	require.ErrorAs(t, err, &decErr)
	require.Equal(t, chunkenc.CodecGzip, decErr.Codec)
}

func TestBloscRoundTrip(t *testing.T) {
	md := testMetadata([]int{8, 8}, grid.KindInt64)
	sel := grid.FullSelection(md.ChunkShape)

	vals := make([]int64, 64)
	for i := range vals {
		vals[i] = int64(i * 3)
	}
	arr, err := grid.FromInt64s(vals, []int{8, 8})
	require.NoError(t, err)

	for _, cname := range []string{"zstd", "zlib", "snappy", "lz4", "lz4hc"} {
		for _, shuffle := range []string{"noshuffle", "shuffle"} {
			t.Run(cname+"/"+shuffle, func(t *testing.T) {
				chain := mustChain(t, chunkenc.BloscCodec(cname, 5, shuffle, 0))

				encoded, err := chain.EncodeChunk(arr, sel, md)
				require.NoError(t, err)

				decoded, err := chain.DecodeChunk(encoded, sel, md)
				require.NoError(t, err)
				require.True(t, arr.Equal(decoded))
			})
		}
	}
}

func TestBloscNonContiguousInput(t *testing.T) {
	// Encoding a strided view must succeed and decode back to the same
	// values: the codec materializes a contiguous copy before compressing.
	base, err := grid.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	require.NoError(t, err)
	tr, err := base.Transpose([]int{1, 0})
	require.NoError(t, err)

	md := testMetadata([]int{3, 2}, grid.KindInt32)
	chain := mustChain(t, chunkenc.BloscCodec("zstd", 5, "shuffle", 0))
	sel := grid.FullSelection(md.ChunkShape)

	encoded, err := chain.EncodeChunk(tr, sel, md)
	require.NoError(t, err)

	decoded, err := chain.DecodeChunk(encoded, sel, md)
	require.NoError(t, err)
	require.True(t, tr.Equal(decoded))
}

func TestBloscDeterministic(t *testing.T) {
	md := testMetadata([]int{32, 32}, grid.KindFloat32)
	chain := mustChain(t, chunkenc.BloscCodec("zstd", 7, "shuffle", 0))
	sel := grid.FullSelection(md.ChunkShape)

	vals := make([]float32, 1024)
	for i := range vals {
		vals[i] = float32(i % 97)
	}
	arr, err := grid.FromFloat32s(vals, []int{32, 32})
	require.NoError(t, err)

	first, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)
	second, err := chain.EncodeChunk(arr, sel, md)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBloscConfigurationErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  chunkenc.BloscConfig
	}{
		{"UnknownCompressor", chunkenc.BloscCodec("brotli", 5, "noshuffle", 0)},
		{"NoBloscLZBackend", chunkenc.BloscCodec("blosclz", 5, "noshuffle", 0)},
		{"NoBitshuffleBackend", chunkenc.BloscCodec("zstd", 5, "bitshuffle", 0)},
		{"UnknownShuffle", chunkenc.BloscCodec("zstd", 5, "sideways", 0)},
		{"LevelOutOfRange", chunkenc.BloscCodec("zstd", 11, "noshuffle", 0)},
		{"NegativeBlockSize", chunkenc.BloscCodec("zstd", 5, "noshuffle", -1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Construction fails before any data is processed.
			_, err := chunkenc.NewChain([]chunkenc.CodecMetadata{tc.cfg})

			var confErr *chunkenc.ConfigurationError
			require.ErrorAs(t, err, &confErr)
			require.Equal(t, chunkenc.CodecBlosc, confErr.Codec)
		})
	}
}

func TestBloscDecodeMalformed(t *testing.T) {
	md := testMetadata([]int{4}, grid.KindUint8)
	chain := mustChain(t, chunkenc.BloscCodec("zstd", 5, "noshuffle", 0))

	_, err := chain.DecodeChunk([]byte("garbage"), grid.FullSelection(md.ChunkShape), md)

	var decErr *chunkenc.DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeShortBuffer(t *testing.T) {
	// 23 bytes cannot be a whole number of 4-byte elements.
	md := testMetadata([]int{2, 3}, grid.KindInt32)
	chain := mustChain(t, chunkenc.EndianCodec("little"))

	_, err := chain.DecodeChunk(make([]byte, 23), grid.FullSelection(md.ChunkShape), md)

	var mismatch *chunkenc.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
}
