package chunkenc

import (
	"fmt"

	"github.com/zarrlite/zarrlite/pkg/compression"
	"github.com/zarrlite/zarrlite/pkg/grid"
)

// gzipCodec compresses chunk bytes with gzip at a configured level.
type gzipCodec struct {
	writers compression.WriterPool
	readers compression.ReaderPool
}

func newGzipCodec(cfg GzipConfig) (Codec, error) {
	if cfg.Level < 0 || cfg.Level > 9 {
		return nil, &ConfigurationError{Codec: CodecGzip, Reason: fmt.Sprintf("level %d out of range [0, 9]", cfg.Level)}
	}
	writers, err := compression.GetWriterPool(compression.EncGZIP, cfg.Level)
	if err != nil {
		return nil, &ConfigurationError{Codec: CodecGzip, Reason: err.Error()}
	}
	readers, err := compression.GetReaderPool(compression.EncGZIP)
	if err != nil {
		return nil, &ConfigurationError{Codec: CodecGzip, Reason: err.Error()}
	}
	return &gzipCodec{writers: writers, readers: readers}, nil
}

func (c *gzipCodec) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return bytesTransform(c.encode)(v, sel, md)
}

func (c *gzipCodec) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	return bytesTransform(c.decode)(v, sel, md)
}

func (c *gzipCodec) encode(buf []byte, _ grid.Selection, _ grid.Metadata) (Value, error) {
	out, err := compression.EncodeAll(c.writers, buf)
	if err != nil {
		return Value{}, fmt.Errorf("codec %q: compressing chunk: %w", CodecGzip, err)
	}
	return BytesValue(out), nil
}

func (c *gzipCodec) decode(buf []byte, _ grid.Selection, _ grid.Metadata) (Value, error) {
	out, err := compression.DecodeAll(c.readers, buf)
	if err != nil {
		return Value{}, &DecodeError{Codec: CodecGzip, Err: err}
	}
	return BytesValue(out), nil
}
