package compression

import (
	"fmt"
	"strings"
)

// Encoding identifies a compression backend.
type Encoding uint8

// The supported encodings.
const (
	EncNone Encoding = iota
	EncGZIP
	EncZlib
	EncFlate
	EncSnappy
	EncLZ4
	EncZstd
)

var supportedEncoding = []Encoding{
	EncNone,
	EncGZIP,
	EncZlib,
	EncFlate,
	EncSnappy,
	EncLZ4,
	EncZstd,
}

func (e Encoding) String() string {
	switch e {
	case EncNone:
		return "none"
	case EncGZIP:
		return "gzip"
	case EncZlib:
		return "zlib"
	case EncFlate:
		return "flate"
	case EncSnappy:
		return "snappy"
	case EncLZ4:
		return "lz4"
	case EncZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseEncoding parses an encoding from its name.
func ParseEncoding(enc string) (Encoding, error) {
	for _, e := range supportedEncoding {
		if enc == e.String() {
			return e, nil
		}
	}
	return 0, fmt.Errorf("invalid encoding: %s, supported: %s", enc, SupportedEncoding())
}

// SupportedEncoding returns the list of supported encodings as a
// human-readable string.
func SupportedEncoding() string {
	var sb strings.Builder
	for i, e := range supportedEncoding {
		sb.WriteString(e.String())
		if i != len(supportedEncoding)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
