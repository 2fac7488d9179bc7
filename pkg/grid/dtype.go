package grid

import (
	"encoding/binary"
	"fmt"
)

// Kind is the identifier for an element kind.
type Kind uint8

// The supported element kinds.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	default:
		return "invalid"
	}
}

// ByteWidth returns the number of bytes one element of k occupies.
func (k Kind) ByteWidth() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// ParseKind parses the wire name of an element kind.
func ParseKind(s string) (Kind, error) {
	for k := KindBool; k <= KindFloat64; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("invalid data type: %q", s)
}

// ByteOrder declares the byte order of an element. NativeOrder means the
// order was never set explicitly and resolves to the host order.
type ByteOrder uint8

const (
	NativeOrder ByteOrder = iota
	LittleEndian
	BigEndian
)

// hostOrder is resolved once at startup.
var hostOrder = func() ByteOrder {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 0x0102)
	if probe[0] == 0x02 {
		return LittleEndian
	}
	return BigEndian
}()

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return "native"
	}
}

// Effective resolves NativeOrder to the host byte order.
func (o ByteOrder) Effective() ByteOrder {
	if o == NativeOrder {
		return hostOrder
	}
	return o
}

// Binary returns the encoding/binary order matching o.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o.Effective() == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ParseByteOrder parses the wire name of a byte order.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	default:
		return NativeOrder, fmt.Errorf("invalid byte order: %q", s)
	}
}

// DataType is an element kind together with its declared byte order.
type DataType struct {
	Kind  Kind
	Order ByteOrder
}

func (d DataType) ByteWidth() int { return d.Kind.ByteWidth() }

func (d DataType) String() string {
	if d.Order == NativeOrder {
		return d.Kind.String()
	}
	return d.Kind.String() + ":" + d.Order.String()
}

// WithOrder returns the data type with its byte order replaced.
func (d DataType) WithOrder(o ByteOrder) DataType {
	d.Order = o
	return d
}
