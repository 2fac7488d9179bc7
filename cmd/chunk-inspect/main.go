package main

import (
	"fmt"
	"math"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/zarrlite/zarrlite/pkg/chunkenc"
	"github.com/zarrlite/zarrlite/pkg/grid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// arrayFile is the on-disk description of an array: shape, chunk layout,
// element type and the declared codec chain.
type arrayFile struct {
	Shape      []int               `json:"shape"`
	ChunkShape []int               `json:"chunk_shape"`
	DataType   string              `json:"data_type"`
	Codecs     jsoniter.RawMessage `json:"codecs"`
}

func main() {
	var (
		app          = kingpin.New("chunk-inspect", "Decode and describe stored chunks of an array.")
		metadataPath = app.Flag("metadata", "Path to the array metadata JSON file.").Required().String()
		maxValues    = app.Flag("values", "Maximum number of element values to print per chunk.").Default("16").Int()
		logLevel     = app.Flag("log.level", "Log level: debug, info, warn, error.").Default("info").String()
		chunkFiles   = app.Arg("chunks", "Chunk files to decode.").Required().ExistingFiles()
	)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := newLogger(*logLevel)

	md, chain, err := openArray(*metadataPath, logger)
	if err != nil {
		level.Error(logger).Log("msg", "opening array metadata", "path", *metadataPath, "err", err)
		os.Exit(1)
	}

	failed := false
	for _, path := range *chunkFiles {
		if err := inspect(chain, md, path, *maxValues); err != nil {
			level.Error(logger).Log("msg", "inspecting chunk", "path", path, "err", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	var filter level.Option
	switch lvl {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}
	return level.NewFilter(logger, filter)
}

func openArray(path string, logger log.Logger) (grid.Metadata, *chunkenc.Chain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return grid.Metadata{}, nil, err
	}
	var file arrayFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return grid.Metadata{}, nil, errors.Wrap(err, "parsing array metadata")
	}

	kind, err := grid.ParseKind(file.DataType)
	if err != nil {
		return grid.Metadata{}, nil, err
	}
	md := grid.Metadata{
		Shape:      file.Shape,
		ChunkShape: file.ChunkShape,
		DataType:   grid.DataType{Kind: kind},
	}
	if err := md.Validate(); err != nil {
		return grid.Metadata{}, nil, errors.Wrap(err, "validating array metadata")
	}

	codecs := []chunkenc.CodecMetadata{}
	if len(file.Codecs) > 0 {
		codecs, err = chunkenc.UnmarshalCodecs(file.Codecs)
		if err != nil {
			return grid.Metadata{}, nil, errors.Wrap(err, "parsing codec chain")
		}
	}
	chain, err := chunkenc.NewChain(codecs, chunkenc.WithLogger(logger))
	if err != nil {
		return grid.Metadata{}, nil, errors.Wrap(err, "building codec chain")
	}
	return md, chain, nil
}

func inspect(chain *chunkenc.Chain, md grid.Metadata, path string, maxValues int) error {
	stored, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	arr, err := chain.DecodeChunk(stored, grid.FullSelection(md.ChunkShape), md)
	if err != nil {
		return errors.Wrap(err, "decoding chunk")
	}

	fmt.Printf("%s:\n", path)
	fmt.Printf("  stored bytes:  %d\n", len(stored))
	if arr == nil {
		fmt.Printf("  chunk is absent\n")
		return nil
	}
	fmt.Printf("  decoded bytes: %d\n", md.ChunkSize())
	fmt.Printf("  data type:     %s\n", arr.DataType())
	fmt.Printf("  shape:         %v\n", arr.Shape())

	flat := arr.Flatten(grid.LayoutC)
	n := flat.Elems()
	if n > maxValues {
		n = maxValues
	}
	fmt.Printf("  values:       ")
	for i := 0; i < n; i++ {
		raw, err := flat.Element(i)
		if err != nil {
			return err
		}
		fmt.Printf(" %s", formatElement(arr.DataType(), raw))
	}
	if n < flat.Elems() {
		fmt.Printf(" ... (%d more)", flat.Elems()-n)
	}
	fmt.Println()
	return nil
}

func formatElement(dtype grid.DataType, raw []byte) string {
	order := dtype.Order.Binary()
	switch dtype.Kind {
	case grid.KindBool:
		return fmt.Sprintf("%t", raw[0] != 0)
	case grid.KindInt8:
		return fmt.Sprintf("%d", int8(raw[0]))
	case grid.KindUint8:
		return fmt.Sprintf("%d", raw[0])
	case grid.KindInt16:
		return fmt.Sprintf("%d", int16(order.Uint16(raw)))
	case grid.KindUint16:
		return fmt.Sprintf("%d", order.Uint16(raw))
	case grid.KindInt32:
		return fmt.Sprintf("%d", int32(order.Uint32(raw)))
	case grid.KindUint32:
		return fmt.Sprintf("%d", order.Uint32(raw))
	case grid.KindInt64:
		return fmt.Sprintf("%d", int64(order.Uint64(raw)))
	case grid.KindUint64:
		return fmt.Sprintf("%d", order.Uint64(raw))
	case grid.KindFloat32:
		return fmt.Sprintf("%g", math.Float32frombits(order.Uint32(raw)))
	case grid.KindFloat64:
		return fmt.Sprintf("%g", math.Float64frombits(order.Uint64(raw)))
	default:
		return fmt.Sprintf("%x", raw)
	}
}
