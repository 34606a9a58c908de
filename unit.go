// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"fmt"
	"strings"
)

// SpaceScale is the scale of the space component of a Unit.
type SpaceScale uint32

// Space scales, encoded 0..6.
const (
	Byte SpaceScale = iota
	KByte
	MByte
	GByte
	TByte
	PByte
	EByte
)

func (s SpaceScale) String() string {
	switch s {
	case Byte:
		return "byte"
	case KByte:
		return "Kbyte"
	case MByte:
		return "Mbyte"
	case GByte:
		return "Gbyte"
	case TByte:
		return "Tbyte"
	case PByte:
		return "Pbyte"
	case EByte:
		return "Ebyte"
	default:
		return "?"
	}
}

// TimeScale is the scale of the time component of a Unit.
type TimeScale uint32

// Time scales, encoded 0..5.
const (
	NSec TimeScale = iota
	USec
	MSec
	Sec
	Min
	Hour
)

func (t TimeScale) String() string {
	switch t {
	case NSec:
		return "nsec"
	case USec:
		return "usec"
	case MSec:
		return "msec"
	case Sec:
		return "sec"
	case Min:
		return "min"
	case Hour:
		return "hour"
	default:
		return "?"
	}
}

// CountScale is the scale of the count component of a Unit. The format
// defines exactly one value; attempting to use any other is rejected at
// construction, and the dump path rejects a metric block carrying any
// other value.
type CountScale uint32

// CountOne is the only defined count scale.
const CountOne CountScale = 0

func (c CountScale) String() string {
	if c == CountOne {
		return "count"
	}
	return "?"
}

// Unit is a bit-packed dimensional descriptor combining up to three
// (scale, dimension) pairs into a single 32-bit word:
//
//	[31:28] space dim (signed)   [19:16] space scale
//	[27:24] time dim  (signed)   [15:12] time scale
//	[23:20] count dim (signed)   [11:8]  count scale
//	[7:0]   zero pad
type Unit uint32

// NewUnit returns the all-zero unit.
func NewUnit() Unit { return Unit(0) }

func dimInRange(dim int) bool { return dim >= -8 && dim <= 7 }

func nibble(dim int) uint32 { return uint32(dim) & 0xf }

func signedNibble(n uint32) int {
	n &= 0xf
	if n >= 8 {
		return int(n) - 16
	}
	return int(n)
}

// WithSpace returns a copy of u with the space scale and dimension set.
func (u Unit) WithSpace(scale SpaceScale, dim int) (Unit, error) {
	if !dimInRange(dim) {
		return u, fmt.Errorf("%w: space dim %d", ErrDimensionOutOfRange, dim)
	}
	v := uint32(u)
	v &^= 0xf << 28
	v &^= 0xf << 16
	v |= nibble(dim) << 28
	v |= (uint32(scale) & 0xf) << 16
	return Unit(v), nil
}

// WithTime returns a copy of u with the time scale and dimension set.
func (u Unit) WithTime(scale TimeScale, dim int) (Unit, error) {
	if !dimInRange(dim) {
		return u, fmt.Errorf("%w: time dim %d", ErrDimensionOutOfRange, dim)
	}
	v := uint32(u)
	v &^= 0xf << 24
	v &^= 0xf << 12
	v |= nibble(dim) << 24
	v |= (uint32(scale) & 0xf) << 12
	return Unit(v), nil
}

// WithCount returns a copy of u with the count scale and dimension set.
// scale must be CountOne; any other value is rejected.
func (u Unit) WithCount(scale CountScale, dim int) (Unit, error) {
	if !dimInRange(dim) {
		return u, fmt.Errorf("%w: count dim %d", ErrDimensionOutOfRange, dim)
	}
	if scale != CountOne {
		return u, fmt.Errorf("%w: %d", ErrInvalidCountScale, scale)
	}
	v := uint32(u)
	v &^= 0xf << 20
	v &^= 0xf << 8
	v |= nibble(dim) << 20
	v |= (uint32(scale) & 0xf) << 8
	return Unit(v), nil
}

// UnitFromRaw accepts any 32-bit value as a Unit; used by the dump path,
// which must render whatever bits are on disk without re-validating them.
func UnitFromRaw(raw uint32) Unit { return Unit(raw) }

// Raw returns the packed 32-bit representation.
func (u Unit) Raw() uint32 { return uint32(u) }

// SpaceDim, TimeDim, CountDim return the signed dimensions.
func (u Unit) SpaceDim() int { return signedNibble(uint32(u) >> 28) }
func (u Unit) TimeDim() int  { return signedNibble(uint32(u) >> 24) }
func (u Unit) CountDim() int { return signedNibble(uint32(u) >> 20) }

// SpaceScale, TimeScale, CountScale return the scale enums.
func (u Unit) SpaceScale() SpaceScale { return SpaceScale((uint32(u) >> 16) & 0xf) }
func (u Unit) TimeScale() TimeScale   { return TimeScale((uint32(u) >> 12) & 0xf) }
func (u Unit) CountScale() CountScale { return CountScale((uint32(u) >> 8) & 0xf) }

// String renders the unit the way the dump tool does: positive-dimension
// components first (scale label, "^n" suffix if |dim| > 1), then, if any
// component is negative, " / " followed by the negative ones, always
// suffixed with the hex representation.
func (u Unit) String() string {
	type comp struct {
		dim   int
		label string
	}
	comps := []comp{
		{u.SpaceDim(), u.SpaceScale().String()},
		{u.TimeDim(), u.TimeScale().String()},
		{u.CountDim(), u.CountScale().String()},
	}

	var pos, neg []string
	for _, c := range comps {
		if c.dim == 0 {
			continue
		}
		abs := c.dim
		if abs < 0 {
			abs = -abs
		}
		s := c.label
		if abs > 1 {
			s = fmt.Sprintf("%s^%d", c.label, abs)
		}
		if c.dim > 0 {
			pos = append(pos, s)
		} else {
			neg = append(neg, s)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(pos, " "))
	if len(neg) > 0 {
		sb.WriteString(" / ")
		sb.WriteString(strings.Join(neg, " "))
	}
	if sb.Len() == 0 {
		sb.WriteString("none")
	}
	fmt.Fprintf(&sb, " (0x%x)", uint32(u))
	return sb.String()
}
