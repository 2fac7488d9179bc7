package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// WriterPool is a pool of io.Writer.
// This is used by every compression backend to avoid allocating a new
// compressor for every chunk. Writers are tied to the level the pool was
// built with.
type WriterPool interface {
	GetWriter(io.Writer) io.WriteCloser
	PutWriter(io.WriteCloser)
}

// ReaderPool is a pool of decompressing io.Reader.
type ReaderPool interface {
	GetReader(io.Reader) (io.Reader, error)
	PutReader(io.Reader)
}

// Shared reader pools. Readers carry no level state, so one pool per
// encoding serves every chain.
var (
	noop   = NoopPool{}
	gzipRd = &GzipPool{}
	zlibRd = &ZlibPool{}
	flateR = &FlatePool{}
	snapRd = &SnappyPool{}
	lz4Rd  = &LZ4Pool{}
	zstdRd = &ZstdPool{}
)

// GetWriterPool returns a WriterPool for the given encoding at the given
// compression level. The pool is constructed once per codec and reused for
// every chunk that codec encodes.
func GetWriterPool(enc Encoding, level int) (WriterPool, error) {
	switch enc {
	case EncNone:
		return &noop, nil
	case EncGZIP:
		return &GzipPool{level: clampDeflate(level)}, nil
	case EncZlib:
		return &ZlibPool{level: clampDeflate(level)}, nil
	case EncFlate:
		return &FlatePool{level: clampDeflate(level)}, nil
	case EncSnappy:
		return &SnappyPool{}, nil
	case EncLZ4:
		return &LZ4Pool{level: lz4Level(level)}, nil
	case EncZstd:
		return &ZstdPool{level: zstdLevel(level)}, nil
	default:
		return nil, fmt.Errorf("unknown encoding: %s", enc)
	}
}

// GetReaderPool returns the shared ReaderPool for the given encoding.
func GetReaderPool(enc Encoding) (ReaderPool, error) {
	switch enc {
	case EncNone:
		return &noop, nil
	case EncGZIP:
		return gzipRd, nil
	case EncZlib:
		return zlibRd, nil
	case EncFlate:
		return flateR, nil
	case EncSnappy:
		return snapRd, nil
	case EncLZ4:
		return lz4Rd, nil
	case EncZstd:
		return zstdRd, nil
	default:
		return nil, fmt.Errorf("unknown encoding: %s", enc)
	}
}

// EncodeAll compresses src in one shot using a pooled writer.
func EncodeAll(pool WriterPool, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := pool.GetWriter(&buf)
	if _, err := w.Write(src); err != nil {
		pool.PutWriter(w)
		return nil, err
	}
	if err := w.Close(); err != nil {
		pool.PutWriter(w)
		return nil, err
	}
	pool.PutWriter(w)
	return buf.Bytes(), nil
}

// DecodeAll decompresses src in one shot using a pooled reader.
func DecodeAll(pool ReaderPool, src []byte) ([]byte, error) {
	r, err := pool.GetReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	pool.PutReader(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clampDeflate(level int) int {
	if level < flate.NoCompression {
		return flate.DefaultCompression
	}
	if level > flate.BestCompression {
		return flate.BestCompression
	}
	return level
}

func lz4Level(level int) lz4.CompressionLevel {
	switch {
	case level <= 0:
		return lz4.Fast
	case level >= 9:
		return lz4.Level9
	default:
		// lz4 levels are powers of two starting at Level1 == 1<<9.
		return lz4.CompressionLevel(1 << (8 + level))
	}
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// NoopPool passes data through unchanged.
type NoopPool struct{}

func (NoopPool) GetWriter(dst io.Writer) io.WriteCloser { return nopWriteCloser{dst} }

func (NoopPool) PutWriter(io.WriteCloser) {}

func (NoopPool) GetReader(src io.Reader) (io.Reader, error) { return src, nil }

func (NoopPool) PutReader(io.Reader) {}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// GzipPool is a gzip compression pool.
type GzipPool struct {
	readers sync.Pool
	writers sync.Pool
	level   int
}

func (p *GzipPool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(*gzip.Reader)
		if err := reader.Reset(src); err != nil {
			return nil, err
		}
		return reader, nil
	}
	return gzip.NewReader(src)
}

func (p *GzipPool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *GzipPool) GetWriter(dst io.Writer) io.WriteCloser {
	if w := p.writers.Get(); w != nil {
		writer := w.(*gzip.Writer)
		writer.Reset(dst)
		return writer
	}
	w, err := gzip.NewWriterLevel(dst, p.level)
	if err != nil {
		panic(err) // level is validated at pool construction
	}
	return w
}

func (p *GzipPool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}

// ZlibPool is a zlib compression pool.
type ZlibPool struct {
	readers sync.Pool
	writers sync.Pool
	level   int
}

func (p *ZlibPool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(io.ReadCloser)
		if err := reader.(zlib.Resetter).Reset(src, nil); err != nil {
			return nil, err
		}
		return reader, nil
	}
	return zlib.NewReader(src)
}

func (p *ZlibPool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *ZlibPool) GetWriter(dst io.Writer) io.WriteCloser {
	if w := p.writers.Get(); w != nil {
		writer := w.(*zlib.Writer)
		writer.Reset(dst)
		return writer
	}
	w, err := zlib.NewWriterLevel(dst, p.level)
	if err != nil {
		panic(err)
	}
	return w
}

func (p *ZlibPool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}

// FlatePool is a raw deflate compression pool.
type FlatePool struct {
	readers sync.Pool
	writers sync.Pool
	level   int
}

func (p *FlatePool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(io.ReadCloser)
		if err := reader.(flate.Resetter).Reset(src, nil); err != nil {
			return nil, err
		}
		return reader, nil
	}
	return flate.NewReader(src), nil
}

func (p *FlatePool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *FlatePool) GetWriter(dst io.Writer) io.WriteCloser {
	if w := p.writers.Get(); w != nil {
		writer := w.(*flate.Writer)
		writer.Reset(dst)
		return writer
	}
	w, err := flate.NewWriter(dst, p.level)
	if err != nil {
		panic(err)
	}
	return w
}

func (p *FlatePool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}

// SnappyPool is a snappy stream compression pool.
type SnappyPool struct {
	readers sync.Pool
	writers sync.Pool
}

func (p *SnappyPool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(*snappy.Reader)
		reader.Reset(src)
		return reader, nil
	}
	return snappy.NewReader(src), nil
}

func (p *SnappyPool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *SnappyPool) GetWriter(dst io.Writer) io.WriteCloser {
	if w := p.writers.Get(); w != nil {
		writer := w.(*snappy.Writer)
		writer.Reset(dst)
		return writer
	}
	return snappy.NewBufferedWriter(dst)
}

func (p *SnappyPool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}

// LZ4Pool is an lz4 frame compression pool.
type LZ4Pool struct {
	readers sync.Pool
	writers sync.Pool
	level   lz4.CompressionLevel
}

func (p *LZ4Pool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(*lz4.Reader)
		reader.Reset(src)
		return reader, nil
	}
	return lz4.NewReader(src), nil
}

func (p *LZ4Pool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *LZ4Pool) GetWriter(dst io.Writer) io.WriteCloser {
	var w *lz4.Writer
	if pooled := p.writers.Get(); pooled != nil {
		w = pooled.(*lz4.Writer)
		w.Reset(dst)
	} else {
		w = lz4.NewWriter(dst)
	}
	if err := w.Apply(lz4.CompressionLevelOption(p.level)); err != nil {
		panic(err)
	}
	return w
}

func (p *LZ4Pool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}

// ZstdPool is a zstd compression pool. Writers are built with a single
// worker so that output bytes are deterministic for a given level.
type ZstdPool struct {
	readers sync.Pool
	writers sync.Pool
	level   zstd.EncoderLevel
}

func (p *ZstdPool) GetReader(src io.Reader) (io.Reader, error) {
	if r := p.readers.Get(); r != nil {
		reader := r.(*zstd.Decoder)
		if err := reader.Reset(src); err != nil {
			return nil, err
		}
		return reader, nil
	}
	return zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
}

func (p *ZstdPool) PutReader(reader io.Reader) {
	p.readers.Put(reader)
}

func (p *ZstdPool) GetWriter(dst io.Writer) io.WriteCloser {
	if w := p.writers.Get(); w != nil {
		writer := w.(*zstd.Encoder)
		writer.Reset(dst)
		return writer
	}
	w, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(p.level),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic(err)
	}
	return w
}

func (p *ZstdPool) PutWriter(writer io.WriteCloser) {
	p.writers.Put(writer)
}
