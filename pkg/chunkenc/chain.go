package chunkenc

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

// Chain is an ordered list of codecs executed in declaration order for
// encode and reverse order for decode. A chain is built once per array open
// and holds no per-call state, so one chain may serve any number of chunks
// concurrently.
type Chain struct {
	metas   []CodecMetadata
	codecs  []Codec
	logger  log.Logger
	metrics *Metrics
}

// ChainOption customizes a chain at construction.
type ChainOption func(*Chain)

// WithLogger attaches a go-kit logger; stage execution is reported at debug
// level.
func WithLogger(logger log.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

// WithMetrics attaches chain metrics.
func WithMetrics(m *Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain resolves every declared codec metadata record to a runnable
// codec. Unrecognized kinds and invalid enumeration values fail here, with
// ConfigurationError, before any chunk data is touched.
func NewChain(metas []CodecMetadata, opts ...ChainOption) (*Chain, error) {
	c := &Chain{
		metas:  append([]CodecMetadata(nil), metas...),
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.codecs = make([]Codec, 0, len(c.metas))
	for _, meta := range c.metas {
		entry, err := lookupCodec(meta.CodecName())
		if err != nil {
			return nil, err
		}
		codec, err := entry.build(meta)
		if err != nil {
			return nil, err
		}
		c.codecs = append(c.codecs, codec)
	}
	return c, nil
}

// Metadata returns the declared codec list, in order.
func (c *Chain) Metadata() []CodecMetadata {
	return append([]CodecMetadata(nil), c.metas...)
}

// Encode runs the chain forward: the first declared codec sees the chunk's
// value, the last produces what is persisted. An Empty value anywhere makes
// the overall result Empty.
func (c *Chain) Encode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	for i, codec := range c.codecs {
		var err error
		v, err = c.stage(codec.Encode, c.metas[i].CodecName(), "encode", v, sel, md)
		if err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

// Decode runs the chain in reverse declaration order, undoing Encode stage
// by stage.
func (c *Chain) Decode(v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	for i := len(c.codecs) - 1; i >= 0; i-- {
		var err error
		v, err = c.stage(c.codecs[i].Decode, c.metas[i].CodecName(), "decode", v, sel, md)
		if err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func (c *Chain) stage(fn stageFunc, name, op string, v Value, sel grid.Selection, md grid.Metadata) (Value, error) {
	start := time.Now()
	out, err := fn(v, sel, md)
	duration := time.Since(start)

	c.metrics.observe(name, op, err, duration)
	level.Debug(c.logger).Log("msg", "codec stage", "codec", name, "op", op, "duration", duration, "err", err)

	// Stage failures are not caught here: the array layer owns retry and
	// reporting policy.
	return out, err
}

// EncodeChunk encodes an array-shaped chunk down to its stored bytes. A nil
// array, or a chain stage reporting absence, yields nil bytes with no error.
func (c *Chain) EncodeChunk(arr *grid.Array, sel grid.Selection, md grid.Metadata) ([]byte, error) {
	out, err := c.Encode(ArrayValue(arr), sel, md)
	if err != nil {
		return nil, err
	}
	buf, err := out.AsBytes()
	if err != nil {
		return nil, err
	}
	c.metrics.addEncodedBytes(len(buf))
	return buf, nil
}

// DecodeChunk decodes stored bytes back into a chunk-shaped array view. Nil
// input bytes, or a chain stage reporting absence, yield a nil array with no
// error.
func (c *Chain) DecodeChunk(buf []byte, sel grid.Selection, md grid.Metadata) (*grid.Array, error) {
	c.metrics.addDecodedBytes(len(buf))
	out, err := c.Decode(BytesValue(buf), sel, md)
	if err != nil {
		return nil, err
	}
	return out.AsArray(md.DataType, md.ChunkShape)
}
