package chunkenc

import (
	"fmt"

	"github.com/zarrlite/zarrlite/pkg/compression"
	"github.com/zarrlite/zarrlite/pkg/grid"
)

// bloscCodec is the general-purpose block compressor. Configuration follows
// the blosc parameter set (cname, clevel, shuffle, blocksize); each cname is
// backed by the matching pure-Go compressor from pkg/compression.
type bloscCodec struct {
	cfg     BloscConfig
	shuffle bool
	writers compression.WriterPool
	readers compression.ReaderPool
}

func newBloscCodec(cfg BloscConfig) (Codec, error) {
	enc, level, err := bloscBackend(cfg.CName, cfg.CLevel)
	if err != nil {
		return nil, err
	}
	if cfg.CLevel < 0 || cfg.CLevel > 9 {
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: fmt.Sprintf("clevel %d out of range [0, 9]", cfg.CLevel)}
	}
	if cfg.BlockSize < 0 {
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: fmt.Sprintf("blocksize %d must not be negative", cfg.BlockSize)}
	}
	var shuffle bool
	switch cfg.Shuffle {
	case "noshuffle":
		shuffle = false
	case "shuffle":
		shuffle = true
	case "bitshuffle":
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: "shuffle mode \"bitshuffle\" has no backend"}
	default:
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: fmt.Sprintf("unrecognized shuffle mode %q", cfg.Shuffle)}
	}
	writers, err := compression.GetWriterPool(enc, level)
	if err != nil {
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: err.Error()}
	}
	readers, err := compression.GetReaderPool(enc)
	if err != nil {
		return nil, &ConfigurationError{Codec: CodecBlosc, Reason: err.Error()}
	}
	return &bloscCodec{cfg: cfg, shuffle: shuffle, writers: writers, readers: readers}, nil
}

// bloscBackend maps a blosc compressor name onto a pkg/compression encoding
// and effective level. lz4hc is lz4 at its highest level; blosclz has no Go
// implementation and is rejected.
func bloscBackend(cname string, clevel int) (compression.Encoding, int, error) {
	switch cname {
	case "zstd":
		return compression.EncZstd, clevel, nil
	case "zlib":
		return compression.EncZlib, clevel, nil
	case "snappy":
		return compression.EncSnappy, clevel, nil
	case "lz4":
		return compression.EncLZ4, 0, nil
	case "lz4hc":
		return compression.EncLZ4, 9, nil
	case "blosclz":
		return 0, 0, &ConfigurationError{Codec: CodecBlosc, Reason: "compressor \"blosclz\" has no backend"}
	default:
		return 0, 0, &ConfigurationError{Codec: CodecBlosc, Reason: fmt.Sprintf("unrecognized compressor %q", cname)}
	}
}

func (c *bloscCodec) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return arrayTransform(c.encode)(v, sel, md)
}

func (c *bloscCodec) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return bytesTransform(c.decode)(v, sel, md)
}

func (c *bloscCodec) encode(arr *grid.Array, _ grid.Selection, md grid.Metadata) (Value, error) {
	// Compressors need contiguous input; a strided view is materialized
	// first.
	raw, err := arr.Contiguous().Bytes()
	if err != nil {
		return Value{}, err
	}
	if c.shuffle {
		raw = shuffleBytes(raw, md.DataType.ByteWidth())
	}
	out, err := compression.EncodeAll(c.writers, raw)
	if err != nil {
		return Value{}, fmt.Errorf("codec %q: compressing chunk: %w", CodecBlosc, err)
	}
	return BytesValue(out), nil
}

func (c *bloscCodec) decode(buf []byte, _ grid.Selection, md grid.Metadata) (Value, error) {
	out, err := compression.DecodeAll(c.readers, buf)
	if err != nil {
		return Value{}, &DecodeError{Codec: CodecBlosc, Err: err}
	}
	if c.shuffle {
		width := md.DataType.ByteWidth()
		if len(out)%width != 0 {
			return Value{}, &DecodeError{Codec: CodecBlosc, Err: fmt.Errorf("decompressed %d bytes, not a whole number of %d-byte elements", len(out), width)}
		}
		out = unshuffleBytes(out, width)
	}
	return BytesValue(out), nil
}

// shuffleBytes regroups element bytes by significance: all first bytes, then
// all second bytes, and so on. Same-significance bytes of neighboring values
// tend to be similar, which helps the compressor.
func shuffleBytes(src []byte, width int) []byte {
	if width <= 1 {
		return src
	}
	count := len(src) / width
	dst := make([]byte, len(src))
	for i := 0; i < count; i++ {
		for j := 0; j < width; j++ {
			dst[j*count+i] = src[i*width+j]
		}
	}
	return dst
}

func unshuffleBytes(src []byte, width int) []byte {
	if width <= 1 {
		return src
	}
	count := len(src) / width
	dst := make([]byte, len(src))
	for i := 0; i < count; i++ {
		for j := 0; j < width; j++ {
			dst[i*width+j] = src[j*count+i]
		}
	}
	return dst
}
