// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"fmt"
	"strings"
)

// Byte lengths of the fixed-size pieces of an MMV file, named the way
// the original client's layout constants are (HDR_LEN, TOC_BLOCK_LEN, …)
// but expressed as Go constants.
const (
	// MetricNameMaxLen is the maximum metric name length including the
	// NUL terminator (63 usable bytes).
	MetricNameMaxLen = 64

	// InstanceNameMaxLen is the maximum instance name length including
	// the NUL terminator (63 usable bytes).
	InstanceNameMaxLen = 64

	// StringBlockLen is the size of one string cell, including the NUL
	// terminator (255 usable bytes).
	StringBlockLen = 256

	// HeaderLen is the fixed byte length of the MMV header.
	HeaderLen = 40

	// TocBlockLen is the byte length of one TOC entry.
	TocBlockLen = 16

	// IndomBlockLen is the byte length of one indom block.
	IndomBlockLen = 32

	// ValueBlockLen is the byte length of one value block.
	ValueBlockLen = 32

	// InstanceBlockLenV1 is the instance block length when names are
	// stored inline (version 1).
	InstanceBlockLenV1 = 80

	// InstanceBlockLenV2 is the instance block length when names are
	// stored as string-section offsets (version 2).
	InstanceBlockLenV2 = 24

	// MetricBlockLenV1 is the metric block length when names are stored
	// inline (version 1).
	MetricBlockLenV1 = 104

	// MetricBlockLenV2 is the metric block length when names are stored
	// as string-section offsets (version 2).
	MetricBlockLenV2 = 48
)

// Version selects the on-disk metric/instance block layout.
type Version uint32

// The two supported file format versions.
const (
	V1 Version = 1
	V2 Version = 2
)

func (v Version) instanceBlockLen() uint64 {
	if v == V2 {
		return InstanceBlockLenV2
	}
	return InstanceBlockLenV1
}

func (v Version) metricBlockLen() uint64 {
	if v == V2 {
		return MetricBlockLenV2
	}
	return MetricBlockLenV1
}

// sectionType identifies one of the five TOC-addressable sections.
type sectionType uint32

// TOC section type codes (spec section 4.6).
const (
	secIndom sectionType = 1 + iota
	secInstance
	secMetric
	secValue
	secString
)

func (s sectionType) String() string {
	switch s {
	case secIndom:
		return "Indom"
	case secInstance:
		return "Instance"
	case secMetric:
		return "Metric"
	case secValue:
		return "Value"
	case secString:
		return "String"
	default:
		return "Unknown"
	}
}

// Flags is the MMV header's bitmask, mirroring the original client's
// MMVFlags bitflags type and its Display implementation.
type Flags uint32

// Header flag bits (spec section 6).
const (
	// NoPrefix tells the reader not to prefix metric names with the
	// MMV file's basename.
	NoPrefix Flags = 1 << iota
	// Process tells the reader to verify that Header.PID is alive.
	Process
	// Sentinel permits "no value available" sentinel values.
	Sentinel
)

// String renders the flags the way the original client does: comma
// joined labels in NoPrefix, Process, Sentinel order, "(no flags)" when
// empty, always suffixed with the hex value.
func (f Flags) String() string {
	var parts []string
	if f&NoPrefix != 0 {
		parts = append(parts, "no prefix")
	}
	if f&Process != 0 {
		parts = append(parts, "process")
	}
	if f&Sentinel != 0 {
		parts = append(parts, "sentinel")
	}
	label := "(no flags)"
	if len(parts) > 0 {
		label = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%s (0x%x)", label, uint32(f))
}
