package chunkenc

import (
	"fmt"

	"github.com/zarrlite/zarrlite/pkg/grid"
)

// ConfigurationError reports an unrecognized or unsupported enumeration
// value in a codec's configuration. It is raised at chain construction,
// before any chunk data is processed.
type ConfigurationError struct {
	Codec  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for codec %q: %s", e.Codec, e.Reason)
}

// DecodeError reports malformed, truncated or corrupt byte input to a stage
// that expects a specific binary structure. It is surfaced to the caller and
// never retried at this layer.
type DecodeError struct {
	Codec string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec %q: decoding chunk: %v", e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeMismatchError is raised when a byte/array reinterpretation does not
// match the declared shape and dtype. See grid.ShapeMismatchError.
type ShapeMismatchError = grid.ShapeMismatchError
