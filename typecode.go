// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TypeCode identifies the admissible value types a Metric can hold.
type TypeCode uint32

// The seven admissible type codes.
const (
	TypeI32 TypeCode = iota
	TypeU32
	TypeI64
	TypeU64
	TypeF32
	TypeF64
	TypeString
)

func (t TypeCode) String() string {
	switch t {
	case TypeI32:
		return "int32"
	case TypeU32:
		return "uint32"
	case TypeI64:
		return "int64"
	case TypeU64:
		return "uint64"
	case TypeF32:
		return "float32"
	case TypeF64:
		return "float64"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the seven admissible type codes.
func (t TypeCode) Valid() bool { return t <= TypeString }

// MetricValue is the closed set of Go types a Metric/InstanceMetric may
// hold. The value cell layout depends only on which of these a given
// metric is instantiated with.
type MetricValue interface {
	int32 | uint32 | int64 | uint64 | float32 | float64 | string
}

// typeCodeOf returns the TypeCode for a MetricValue instantiation.
func typeCodeOf[T MetricValue]() TypeCode {
	var zero T
	switch any(zero).(type) {
	case int32:
		return TypeI32
	case uint32:
		return TypeU32
	case int64:
		return TypeI64
	case uint64:
		return TypeU64
	case float32:
		return TypeF32
	case float64:
		return TypeF64
	case string:
		return TypeString
	default:
		panic("mmv: unreachable MetricValue type")
	}
}

// encodeNumeric writes the 8-byte little-endian slot for a numeric or
// string-typed value. For numerics, the bit pattern is preserved: unsigned
// types are zero-extended, signed types are reinterpreted through the
// unsigned type of the same width before widening (equivalent to a raw
// bit-pattern copy), and floats are reinterpreted as their same-width
// unsigned integer before widening. Strings carry a zero numeric slot; use
// encodeString for the separate 256-byte string cell.
func encodeNumeric[T MetricValue](v T) [8]byte {
	var out [8]byte
	switch val := any(v).(type) {
	case int32:
		binary.LittleEndian.PutUint64(out[:], uint64(uint32(val)))
	case uint32:
		binary.LittleEndian.PutUint64(out[:], uint64(val))
	case int64:
		binary.LittleEndian.PutUint64(out[:], uint64(val))
	case uint64:
		binary.LittleEndian.PutUint64(out[:], val)
	case float32:
		binary.LittleEndian.PutUint64(out[:], uint64(math.Float32bits(val)))
	case float64:
		binary.LittleEndian.PutUint64(out[:], math.Float64bits(val))
	case string:
		// zero slot; value lives in the string cell.
	}
	return out
}

// encodeString writes v, NUL-terminated, into a StringBlockLen cell. A v
// longer than StringBlockLen-1 bytes is truncated to that length so the
// cell always keeps its NUL terminator.
func encodeString(v string) [StringBlockLen]byte {
	var out [StringBlockLen]byte
	if len(v) > StringBlockLen-1 {
		v = v[:StringBlockLen-1]
	}
	copy(out[:], v)
	// out[len(v)] is already zero (NUL terminator) from zero-init, as
	// long as len(v) < StringBlockLen.
	return out
}

// decodeSlot decodes an 8-byte numeric slot (plus, for strings, the
// associated string cell) per the given type code. extra is the raw
// 256-byte string cell; it is ignored for numeric type codes.
func decodeSlot(code TypeCode, slot [8]byte, extra []byte) (any, error) {
	n := binary.LittleEndian.Uint64(slot[:])
	switch code {
	case TypeI32:
		return int32(uint32(n)), nil
	case TypeU32:
		return uint32(n), nil
	case TypeI64:
		return int64(n), nil
	case TypeU64:
		return n, nil
	case TypeF32:
		return math.Float32frombits(uint32(n)), nil
	case TypeF64:
		return math.Float64frombits(n), nil
	case TypeString:
		return decodeCString(extra), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidTypeCode, code)
	}
}

// decodeCString returns the NUL-terminated UTF-8 prefix of b.
func decodeCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
