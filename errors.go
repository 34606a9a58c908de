// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"errors"
	"fmt"
)

// Construction-time validation errors.
var (
	// ErrNameTooLong is returned when a metric name exceeds
	// MetricNameMaxLen-1 bytes.
	ErrNameTooLong = errors.New("name too long")

	// ErrInstanceTooLong is returned when an instance name exceeds
	// InstanceNameMaxLen-1 bytes.
	ErrInstanceTooLong = errors.New("instance name too long")

	// ErrHelpTooLong is returned when short or long help text exceeds
	// StringBlockLen-1 bytes.
	ErrHelpTooLong = errors.New("help text too long")

	// ErrDimensionOutOfRange is returned when a unit dimension falls
	// outside [-8, 7].
	ErrDimensionOutOfRange = errors.New("dimension out of range")

	// ErrInvalidCountScale is returned when a count scale other than
	// CountOne is requested (the format only defines one value).
	ErrInvalidCountScale = errors.New("invalid count scale")
)

// Dump-path errors. Every one of these aborts the parse; Parse wraps the
// sentinel in a *ParseError carrying the byte offset and any detail.
var (
	// ErrInvalidMagic is returned when the first four bytes of the file
	// aren't 'M', 'M', 'V', 0.
	ErrInvalidMagic = errors.New("invalid MMV magic")

	// ErrInvalidVersion is returned when the version word is neither 1 nor 2.
	ErrInvalidVersion = errors.New("invalid MMV version")

	// ErrGenerationMismatch is returned when gen1 != gen2, meaning the
	// file is mid-export or was never published.
	ErrGenerationMismatch = errors.New("generation mismatch")

	// ErrTocCountOutOfRange is returned when the TOC count isn't in [2, 5].
	ErrTocCountOutOfRange = errors.New("TOC count out of range")

	// ErrInvalidTocType is returned when a TOC's section type exceeds 5.
	ErrInvalidTocType = errors.New("invalid TOC section type")

	// ErrInvalidSectionOffset is returned when a TOC's section offset is zero.
	ErrInvalidSectionOffset = errors.New("invalid section offset")

	// ErrInvalidClusterID is returned when the cluster id doesn't fit in 12 bits.
	ErrInvalidClusterID = errors.New("invalid cluster id")

	// ErrInvalidPad is returned when a block's reserved pad bytes aren't zero.
	ErrInvalidPad = errors.New("invalid pad bytes")

	// ErrUTF8 is returned when a string cell isn't valid UTF-8.
	ErrUTF8 = errors.New("invalid UTF-8")

	// ErrInvalidTypeCode is returned when a value block's metric references
	// a type code outside the seven admissible types.
	ErrInvalidTypeCode = errors.New("invalid type code")

	// ErrOutsideBoundary is returned when a read would cross the end of the file.
	ErrOutsideBoundary = errors.New("read outside file boundary")
)

// Writer-side absent/conflict conditions.
var (
	// ErrInstanceNotFound names the condition of an instance name that
	// wasn't declared on the Indom. InstanceMetric.Val and SetVal report
	// that condition through their boolean result and do not return it.
	ErrInstanceNotFound = errors.New("instance not found")
)

// ParseErrorKind discriminates the dump path's structured error.
type ParseErrorKind int

// Parse error kinds, one per row of spec section 7's dump-parse table.
const (
	KindInvalidMagic ParseErrorKind = iota
	KindInvalidVersion
	KindGenerationMismatch
	KindTocCountOutOfRange
	KindInvalidTocType
	KindInvalidSectionOffset
	KindInvalidClusterID
	KindInvalidPad
	KindUTF8
	KindIO
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindInvalidMagic:
		return "InvalidMagic"
	case KindInvalidVersion:
		return "InvalidVersion"
	case KindGenerationMismatch:
		return "GenerationMismatch"
	case KindTocCountOutOfRange:
		return "TocCountOutOfRange"
	case KindInvalidTocType:
		return "InvalidTocType"
	case KindInvalidSectionOffset:
		return "InvalidSectionOffset"
	case KindInvalidClusterID:
		return "InvalidClusterId"
	case KindInvalidPad:
		return "InvalidPad"
	case KindUTF8:
		return "Utf8Error"
	case KindIO:
		return "IoError"
	default:
		return "Unknown"
	}
}

// ParseError is the structured error surfaced by the dump path. It wraps
// one of the sentinel errors above so callers can use errors.Is/As while
// also recovering the byte offset at which the failure occurred.
type ParseError struct {
	Kind   ParseErrorKind
	Offset int64
	Detail string
	err    error
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
}

// Unwrap lets errors.Is(err, ErrInvalidMagic) etc. succeed against a *ParseError.
func (e *ParseError) Unwrap() error { return e.err }

func newParseError(kind ParseErrorKind, offset int64, sentinel error, detail string) *ParseError {
	return &ParseError{Kind: kind, Offset: offset, Detail: detail, err: sentinel}
}
