package chunkenc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zarrlite/zarrlite/pkg/chunkenc"
)

func TestCodecListRoundTrip(t *testing.T) {
	metas := []chunkenc.CodecMetadata{
		chunkenc.TransposeCodec(chunkenc.OrderF()),
		chunkenc.EndianCodec("big"),
		chunkenc.BloscCodec("lz4", 3, "shuffle", 0),
		chunkenc.ShardingCodec([]int{2, 2}, []chunkenc.CodecMetadata{
			chunkenc.EndianCodec("little"),
			chunkenc.GzipCodec(7),
		}),
	}

	data, err := chunkenc.MarshalCodecs(metas)
	require.NoError(t, err)

	got, err := chunkenc.UnmarshalCodecs(data)
	require.NoError(t, err)
	require.Equal(t, metas, got)
}

func TestCodecListOrderPreserved(t *testing.T) {
	data := []byte(`[
		{"name": "transpose", "configuration": {"order": "C"}},
		{"name": "endian", "configuration": {"endian": "little"}},
		{"name": "gzip", "configuration": {"level": 9}}
	]`)

	metas, err := chunkenc.UnmarshalCodecs(data)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, chunkenc.CodecTranspose, metas[0].CodecName())
	require.Equal(t, chunkenc.CodecEndian, metas[1].CodecName())
	require.Equal(t, chunkenc.CodecGzip, metas[2].CodecName())
	require.Equal(t, chunkenc.GzipCodec(9), metas[2])
}

func TestCodecDefaultsApplied(t *testing.T) {
	// A missing or partial configuration object fills in the documented
	// defaults for its kind.
	data := []byte(`[
		{"name": "blosc"},
		{"name": "blosc", "configuration": {"cname": "lz4"}},
		{"name": "gzip", "configuration": {}},
		{"name": "endian"},
		{"name": "transpose"}
	]`)

	metas, err := chunkenc.UnmarshalCodecs(data)
	require.NoError(t, err)
	require.Equal(t, chunkenc.DefaultBloscConfig(), metas[0])
	require.Equal(t, chunkenc.BloscCodec("lz4", 5, "noshuffle", 0), metas[1])
	require.Equal(t, chunkenc.DefaultGzipConfig(), metas[2])
	require.Equal(t, chunkenc.DefaultEndianConfig(), metas[3])
	require.Equal(t, chunkenc.DefaultTransposeConfig(), metas[4])
}

func TestUnknownCodecName(t *testing.T) {
	data := []byte(`[{"name": "rot13", "configuration": {}}]`)

	_, err := chunkenc.UnmarshalCodecs(data)

	var confErr *chunkenc.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, "rot13", confErr.Codec)
}

func TestTransposeOrderWireForms(t *testing.T) {
	t.Run("NamedLayout", func(t *testing.T) {
		data := []byte(`[{"name": "transpose", "configuration": {"order": "F"}}]`)

		metas, err := chunkenc.UnmarshalCodecs(data)
		require.NoError(t, err)
		require.Equal(t, chunkenc.TransposeCodec(chunkenc.OrderF()), metas[0])
	})

	t.Run("Permutation", func(t *testing.T) {
		data := []byte(`[{"name": "transpose", "configuration": {"order": [2, 0, 1]}}]`)

		metas, err := chunkenc.UnmarshalCodecs(data)
		require.NoError(t, err)
		require.Equal(t, chunkenc.TransposeCodec(chunkenc.Permutation(2, 0, 1)), metas[0])
	})

	t.Run("InvalidName", func(t *testing.T) {
		data := []byte(`[{"name": "transpose", "configuration": {"order": "Z"}}]`)

		_, err := chunkenc.UnmarshalCodecs(data)
		require.Error(t, err)
	})
}

func TestShardingConfigWireForm(t *testing.T) {
	data := []byte(`[{
		"name": "sharding",
		"configuration": {
			"chunk_shape": [4, 4],
			"codecs": [{"name": "endian", "configuration": {"endian": "little"}}]
		}
	}]`)

	metas, err := chunkenc.UnmarshalCodecs(data)
	require.NoError(t, err)

	cfg, ok := metas[0].(chunkenc.ShardingConfig)
	require.True(t, ok)
	require.Equal(t, []int{4, 4}, cfg.ChunkShape)
	require.Equal(t, []chunkenc.CodecMetadata{chunkenc.EndianCodec("little")}, cfg.Codecs)
}

func TestFactoriesCopyArguments(t *testing.T) {
	axes := []int{1, 0}
	order := chunkenc.Permutation(axes...)
	axes[0] = 9
	require.Equal(t, []int{1, 0}, order.Perm)

	shape := []int{2, 2}
	cfg := chunkenc.ShardingCodec(shape, nil)
	shape[0] = 9
	require.Equal(t, []int{2, 2}, cfg.ChunkShape)
}
