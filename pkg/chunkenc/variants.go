package chunkenc

import (
	"encoding/json"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// CodecMetadata is one immutable, validated configuration record for a codec
// kind. Records are pure data: they are built once when an array is opened,
// round-trip losslessly to the persisted tagged form, and carry no behavior
// beyond naming their kind.
type CodecMetadata interface {
	CodecName() string
}

// The closed set of built-in discriminator values. External codec kinds add
// theirs through Register.
const (
	CodecBlosc     = "blosc"
	CodecGzip      = "gzip"
	CodecEndian    = "endian"
	CodecTranspose = "transpose"
	CodecSharding  = "sharding"
)

// BloscConfig configures the general-purpose block compressor codec.
type BloscConfig struct {
	CName     string `json:"cname"`
	CLevel    int    `json:"clevel"`
	Shuffle   string `json:"shuffle"`
	BlockSize int    `json:"blocksize"`
}

func (BloscConfig) CodecName() string { return CodecBlosc }

// DefaultBloscConfig returns the wire-contract defaults.
func DefaultBloscConfig() BloscConfig {
	return BloscConfig{CName: "zstd", CLevel: 5, Shuffle: "noshuffle", BlockSize: 0}
}

// GzipConfig configures the gzip codec.
type GzipConfig struct {
	Level int `json:"level"`
}

func (GzipConfig) CodecName() string { return CodecGzip }

func DefaultGzipConfig() GzipConfig { return GzipConfig{Level: 5} }

// EndianConfig configures the byte-order codec. Endian names the byte order
// of the stored chunk: "little" or "big".
type EndianConfig struct {
	Endian string `json:"endian"`
}

func (EndianConfig) CodecName() string { return CodecEndian }

func DefaultEndianConfig() EndianConfig { return EndianConfig{Endian: "little"} }

// TransposeOrder is either a named layout ("C" or "F") or an explicit axis
// permutation. Exactly one form is set.
type TransposeOrder struct {
	Layout grid.Layout
	Perm   []int
}

// MarshalJSON writes the order in its wire form: a layout name string or an
// array of axis indices.
func (o TransposeOrder) MarshalJSON() ([]byte, error) {
	if o.Perm != nil {
		return jsonCodec.Marshal(o.Perm)
	}
	return jsonCodec.Marshal(o.Layout.String())
}

func (o *TransposeOrder) UnmarshalJSON(data []byte) error {
	var name string
	if err := jsonCodec.Unmarshal(data, &name); err == nil {
		layout, err := grid.ParseLayout(name)
		if err != nil {
			return err
		}
		*o = TransposeOrder{Layout: layout}
		return nil
	}
	var perm []int
	if err := jsonCodec.Unmarshal(data, &perm); err != nil {
		return fmt.Errorf("transpose order must be \"C\", \"F\" or an axis permutation: %w", err)
	}
	*o = TransposeOrder{Perm: perm}
	return nil
}

// TransposeConfig configures the axis-order codec.
type TransposeConfig struct {
	Order TransposeOrder `json:"order"`
}

func (TransposeConfig) CodecName() string { return CodecTranspose }

func DefaultTransposeConfig() TransposeConfig {
	return TransposeConfig{Order: TransposeOrder{Layout: grid.LayoutC}}
}

// ShardingConfig configures the recursive sharding codec: an outer chunk is
// split into inner chunks of ChunkShape, each encoded through the nested
// codec list, with an index locating them inside the shard.
type ShardingConfig struct {
	ChunkShape []int
	Codecs     []CodecMetadata
}

func (ShardingConfig) CodecName() string { return CodecSharding }

func (c ShardingConfig) MarshalJSON() ([]byte, error) {
	codecs, err := MarshalCodecs(c.Codecs)
	if err != nil {
		return nil, err
	}
	return jsonCodec.Marshal(struct {
		ChunkShape []int           `json:"chunk_shape"`
		Codecs     json.RawMessage `json:"codecs"`
	}{ChunkShape: c.ChunkShape, Codecs: codecs})
}

func (c *ShardingConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		ChunkShape []int           `json:"chunk_shape"`
		Codecs     json.RawMessage `json:"codecs"`
	}
	if err := jsonCodec.Unmarshal(data, &raw); err != nil {
		return err
	}
	codecs := []CodecMetadata{}
	if len(raw.Codecs) > 0 {
		var err error
		codecs, err = UnmarshalCodecs(raw.Codecs)
		if err != nil {
			return err
		}
	}
	*c = ShardingConfig{ChunkShape: raw.ChunkShape, Codecs: codecs}
	return nil
}

// Factory helpers. Each returns a fresh record; list arguments are copied so
// no two records ever share backing storage.

func BloscCodec(cname string, clevel int, shuffle string, blocksize int) BloscConfig {
	return BloscConfig{CName: cname, CLevel: clevel, Shuffle: shuffle, BlockSize: blocksize}
}

func GzipCodec(level int) GzipConfig { return GzipConfig{Level: level} }

func EndianCodec(endian string) EndianConfig { return EndianConfig{Endian: endian} }

func TransposeCodec(order TransposeOrder) TransposeConfig { return TransposeConfig{Order: order} }

// OrderC and OrderF name the two flat layouts; Permutation builds an
// explicit axis order.
func OrderC() TransposeOrder { return TransposeOrder{Layout: grid.LayoutC} }
func OrderF() TransposeOrder { return TransposeOrder{Layout: grid.LayoutF} }

func Permutation(axes ...int) TransposeOrder {
	return TransposeOrder{Perm: append([]int(nil), axes...)}
}

func ShardingCodec(chunkShape []int, codecs []CodecMetadata) ShardingConfig {
	return ShardingConfig{
		ChunkShape: append([]int(nil), chunkShape...),
		Codecs:     append([]CodecMetadata(nil), codecs...),
	}
}

// codecEntry resolves one discriminator value to its config decoder and
// codec constructor.
type codecEntry struct {
	decode func(json.RawMessage) (CodecMetadata, error)
	build  func(CodecMetadata) (Codec, error)
}

var codecRegistry = struct {
	sync.RWMutex
	kinds map[string]codecEntry
}{kinds: make(map[string]codecEntry)}

// Register adds a codec kind under the given discriminator. decode parses
// the kind's configuration payload (applying its defaults first) and build
// constructs the runnable codec, validating every enumeration. Kinds outside
// this package register themselves the same way the built-ins do; the chain
// executor never learns their names.
func Register(name string, decode func(json.RawMessage) (CodecMetadata, error), build func(CodecMetadata) (Codec, error)) {
	codecRegistry.Lock()
	defer codecRegistry.Unlock()
	codecRegistry.kinds[name] = codecEntry{decode: decode, build: build}
}

func lookupCodec(name string) (codecEntry, error) {
	codecRegistry.RLock()
	defer codecRegistry.RUnlock()
	entry, ok := codecRegistry.kinds[name]
	if !ok {
		return codecEntry{}, &ConfigurationError{Codec: name, Reason: "unrecognized codec kind"}
	}
	return entry, nil
}

// taggedCodec is the persisted form of one codec metadata record.
type taggedCodec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// MarshalCodecs serializes a declared codec list in order to its tagged wire
// form.
func MarshalCodecs(metas []CodecMetadata) ([]byte, error) {
	tagged := make([]taggedCodec, 0, len(metas))
	for _, m := range metas {
		cfg, err := jsonCodec.Marshal(m)
		if err != nil {
			return nil, err
		}
		tagged = append(tagged, taggedCodec{Name: m.CodecName(), Configuration: cfg})
	}
	return jsonCodec.Marshal(tagged)
}

// UnmarshalCodecs parses a tagged codec list, preserving declaration order.
// Unknown discriminators fail with ConfigurationError.
func UnmarshalCodecs(data []byte) ([]CodecMetadata, error) {
	var tagged []taggedCodec
	if err := jsonCodec.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	metas := make([]CodecMetadata, 0, len(tagged))
	for _, t := range tagged {
		entry, err := lookupCodec(t.Name)
		if err != nil {
			return nil, err
		}
		meta, err := entry.decode(t.Configuration)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func init() {
	Register(CodecBlosc,
		func(raw json.RawMessage) (CodecMetadata, error) {
			cfg := DefaultBloscConfig()
			if len(raw) > 0 {
				if err := jsonCodec.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
			}
			return cfg, nil
		},
		func(m CodecMetadata) (Codec, error) { return newBloscCodec(m.(BloscConfig)) },
	)
	Register(CodecGzip,
		func(raw json.RawMessage) (CodecMetadata, error) {
			cfg := DefaultGzipConfig()
			if len(raw) > 0 {
				if err := jsonCodec.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
			}
			return cfg, nil
		},
		func(m CodecMetadata) (Codec, error) { return newGzipCodec(m.(GzipConfig)) },
	)
	Register(CodecEndian,
		func(raw json.RawMessage) (CodecMetadata, error) {
			cfg := DefaultEndianConfig()
			if len(raw) > 0 {
				if err := jsonCodec.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
			}
			return cfg, nil
		},
		func(m CodecMetadata) (Codec, error) { return newEndianCodec(m.(EndianConfig)) },
	)
	Register(CodecTranspose,
		func(raw json.RawMessage) (CodecMetadata, error) {
			cfg := DefaultTransposeConfig()
			if len(raw) > 0 {
				if err := jsonCodec.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
			}
			return cfg, nil
		},
		func(m CodecMetadata) (Codec, error) { return newTransposeCodec(m.(TransposeConfig)) },
	)
	Register(CodecSharding,
		func(raw json.RawMessage) (CodecMetadata, error) {
			var cfg ShardingConfig
			if len(raw) > 0 {
				if err := jsonCodec.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
			}
			return cfg, nil
		},
		func(m CodecMetadata) (Codec, error) { return newShardingCodec(m.(ShardingConfig)) },
	)
}
