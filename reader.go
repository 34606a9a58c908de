// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"encoding/binary"
	"os"
	"unicode/utf8"
)

// Header is the parsed 40-byte MMV file header.
type Header struct {
	Offset    int64
	Version   Version
	Gen1      int64
	Gen2      int64
	TocCount  uint32
	Flags     Flags
	PID       int32
	ClusterID uint32
}

// Toc is one parsed table-of-contents entry.
type Toc struct {
	Offset    int64
	Index     int
	Sec       sectionType
	Entries   uint32
	SecOffset uint64
}

// MetricBlock is one parsed metric declaration. Name holds the inline
// name for V1 files; NameOffset holds the string-section offset for V2
// files (Dump.resolveString resolves it).
type MetricBlock struct {
	Offset        int64
	Name          string
	NameOffset    uint64
	Item          uint32
	Type          TypeCode
	Sem           Semantics
	Unit          Unit
	Indom         uint32
	Pad           uint32
	ShortHelpOff  uint64
	LongHelpOff   uint64
}

// ValueBlock is one parsed value cell descriptor.
type ValueBlock struct {
	Offset         int64
	Value          uint64
	StringOffset   uint64
	MetricOffset   uint64
	InstanceOffset uint64
}

// IndomBlock is one parsed instance-domain descriptor.
type IndomBlock struct {
	Offset          int64
	Indom           uint32
	Instances       uint32
	InstancesOffset uint64
	ShortHelpOff    uint64
	LongHelpOff     uint64
}

// InstanceBlock is one parsed instance descriptor. ExternalID holds the
// inline name for V1 files; ExternalIDOffset holds the string-section
// offset for V2 files.
type InstanceBlock struct {
	Offset           int64
	IndomOffset      uint64
	Pad              uint32
	InternalID       int32
	ExternalID       string
	ExternalIDOffset uint64
}

// StringBlock is one parsed string cell.
type StringBlock struct {
	Offset int64
	Value  string
}

// Dump is a fully parsed MMV file: every TOC-addressed block, keyed by
// its absolute byte offset so cross-references (an instance block's
// indom_offset, a value block's metric_offset, ...) resolve directly.
type Dump struct {
	Version Version
	Header  Header

	MetricToc   Toc
	ValueToc    Toc
	IndomToc    *Toc
	InstanceToc *Toc
	StringToc   *Toc

	// Order preserves on-disk entry order; the maps key by offset for
	// cross-reference lookups the same way the format itself does.
	MetricOrder   []uint64
	Metrics       map[uint64]*MetricBlock
	ValueOrder    []uint64
	Values        map[uint64]*ValueBlock
	IndomOrder    []uint64
	Indoms        map[uint64]*IndomBlock
	InstanceOrder []uint64
	Instances     map[uint64]*InstanceBlock
	StringOrder   []uint64
	Strings       map[uint64]*StringBlock
}

// cursor is a bounds-checked little-endian reader over one MMV file's
// bytes, mirroring the boundary-checked read helpers of the teacher's
// own file parsing (ReadUint32/ReadUint64/structUnpack).
type cursor struct {
	data []byte
	pos  int64
}

func (c *cursor) need(n int64) error {
	if c.pos < 0 || c.pos+n > int64(len(c.data)) {
		return newParseError(KindIO, c.pos, ErrOutsideBoundary, "")
	}
	return nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) bytes(n int64) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) seek(off uint64) error {
	if off > uint64(len(c.data)) {
		return newParseError(KindIO, int64(off), ErrOutsideBoundary, "")
	}
	c.pos = int64(off)
	return nil
}

// ParseFile reads and parses the MMV file at path.
func ParseFile(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses a complete in-memory MMV image, validating every
// invariant spec section 7 enumerates and returning a *ParseError
// describing the first violation found.
func Parse(data []byte) (*Dump, error) {
	c := &cursor{data: data}

	hdr, err := parseHeader(c)
	if err != nil {
		return nil, err
	}

	d := &Dump{
		Version:   hdr.Version,
		Header:    hdr,
		Metrics:   make(map[uint64]*MetricBlock),
		Values:    make(map[uint64]*ValueBlock),
		Indoms:    make(map[uint64]*IndomBlock),
		Instances: make(map[uint64]*InstanceBlock),
		Strings:   make(map[uint64]*StringBlock),
	}

	var metricToc, valueToc *Toc
	for i := 0; i < int(hdr.TocCount); i++ {
		t, err := parseToc(c, i)
		if err != nil {
			return nil, err
		}
		switch t.Sec {
		case secIndom:
			tc := t
			d.IndomToc = &tc
		case secInstance:
			tc := t
			d.InstanceToc = &tc
		case secMetric:
			tc := t
			metricToc = &tc
		case secValue:
			tc := t
			valueToc = &tc
		case secString:
			tc := t
			d.StringToc = &tc
		}
	}

	if metricToc == nil {
		return nil, newParseError(KindTocCountOutOfRange, c.pos, ErrTocCountOutOfRange, "metric TOC absent")
	}
	if valueToc == nil {
		return nil, newParseError(KindTocCountOutOfRange, c.pos, ErrTocCountOutOfRange, "value TOC absent")
	}
	d.MetricToc = *metricToc
	d.ValueToc = *valueToc

	if d.IndomToc != nil {
		if err := parseIndoms(c, d); err != nil {
			return nil, err
		}
	}
	if d.InstanceToc != nil {
		if err := parseInstances(c, d, hdr.Version); err != nil {
			return nil, err
		}
	}
	if err := parseMetrics(c, d, *metricToc, hdr.Version); err != nil {
		return nil, err
	}
	if err := parseValues(c, d, *valueToc); err != nil {
		return nil, err
	}
	if d.StringToc != nil {
		if err := parseStrings(c, d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func parseHeader(c *cursor) (Header, error) {
	magic, err := c.bytes(4)
	if err != nil {
		return Header{}, err
	}
	if magic[0] != 'M' || magic[1] != 'M' || magic[2] != 'V' || magic[3] != 0 {
		return Header{}, newParseError(KindInvalidMagic, 0, ErrInvalidMagic, "")
	}

	versionRaw, err := c.u32()
	if err != nil {
		return Header{}, err
	}
	if versionRaw != uint32(V1) && versionRaw != uint32(V2) {
		return Header{}, newParseError(KindInvalidVersion, c.pos-4, ErrInvalidVersion, "")
	}

	gen1, err := c.i64()
	if err != nil {
		return Header{}, err
	}
	gen2, err := c.i64()
	if err != nil {
		return Header{}, err
	}
	if gen1 != gen2 {
		return Header{}, newParseError(KindGenerationMismatch, c.pos-8, ErrGenerationMismatch, "")
	}

	tocCount, err := c.u32()
	if err != nil {
		return Header{}, err
	}
	if tocCount < 2 || tocCount > 5 {
		return Header{}, newParseError(KindTocCountOutOfRange, c.pos-4, ErrTocCountOutOfRange, "")
	}

	flags, err := c.u32()
	if err != nil {
		return Header{}, err
	}
	pid, err := c.i32()
	if err != nil {
		return Header{}, err
	}
	clusterID, err := c.u32()
	if err != nil {
		return Header{}, err
	}
	if !isValidClusterID(clusterID) {
		return Header{}, newParseError(KindInvalidClusterID, c.pos-4, ErrInvalidClusterID, "")
	}

	return Header{
		Offset:    0,
		Version:   Version(versionRaw),
		Gen1:      gen1,
		Gen2:      gen2,
		TocCount:  tocCount,
		Flags:     Flags(flags),
		PID:       pid,
		ClusterID: clusterID,
	}, nil
}

func parseToc(c *cursor, index int) (Toc, error) {
	offset := c.pos
	sec, err := c.u32()
	if err != nil {
		return Toc{}, err
	}
	if sec < 1 || sec > 5 {
		return Toc{}, newParseError(KindInvalidTocType, offset, ErrInvalidTocType, "")
	}
	entries, err := c.u32()
	if err != nil {
		return Toc{}, err
	}
	secOffset, err := c.u64()
	if err != nil {
		return Toc{}, err
	}
	if !isValidOffset(secOffset) {
		return Toc{}, newParseError(KindInvalidSectionOffset, offset, ErrInvalidSectionOffset, "")
	}
	return Toc{Offset: offset, Index: index, Sec: sectionType(sec), Entries: entries, SecOffset: secOffset}, nil
}

func parseIndoms(c *cursor, d *Dump) error {
	if err := c.seek(d.IndomToc.SecOffset); err != nil {
		return err
	}
	for i := uint32(0); i < d.IndomToc.Entries; i++ {
		offset := c.pos
		indom, err := c.u32()
		if err != nil {
			return err
		}
		instances, err := c.u32()
		if err != nil {
			return err
		}
		instancesOff, err := c.u64()
		if err != nil {
			return err
		}
		if !isValidOffset(instancesOff) {
			return newParseError(KindInvalidSectionOffset, offset, ErrInvalidSectionOffset, "indom instances offset")
		}
		shortOff, err := c.u64()
		if err != nil {
			return err
		}
		longOff, err := c.u64()
		if err != nil {
			return err
		}
		blk := &IndomBlock{
			Offset:          offset,
			Indom:           indom,
			Instances:       instances,
			InstancesOffset: instancesOff,
			ShortHelpOff:    shortOff,
			LongHelpOff:     longOff,
		}
		d.Indoms[uint64(offset)] = blk
		d.IndomOrder = append(d.IndomOrder, uint64(offset))
	}
	return nil
}

func parseInstances(c *cursor, d *Dump, version Version) error {
	if err := c.seek(d.InstanceToc.SecOffset); err != nil {
		return err
	}
	for i := uint32(0); i < d.InstanceToc.Entries; i++ {
		offset := c.pos
		indomOff, err := c.u64()
		if err != nil {
			return err
		}
		if !isValidOffset(indomOff) {
			return newParseError(KindInvalidSectionOffset, offset, ErrInvalidSectionOffset, "instance indom offset")
		}
		pad, err := c.u32()
		if err != nil {
			return err
		}
		if pad != 0 {
			return newParseError(KindInvalidPad, offset, ErrInvalidPad, "")
		}
		internalID, err := c.i32()
		if err != nil {
			return err
		}

		blk := &InstanceBlock{Offset: offset, IndomOffset: indomOff, Pad: pad, InternalID: internalID}
		if version == V2 {
			off, err := c.u64()
			if err != nil {
				return err
			}
			blk.ExternalIDOffset = off
		} else {
			raw, err := c.bytes(MetricNameMaxLen)
			if err != nil {
				return err
			}
			name, err := decodeFixedString(raw)
			if err != nil {
				return newParseError(KindUTF8, offset, ErrUTF8, "instance external id")
			}
			blk.ExternalID = name
		}
		d.Instances[uint64(offset)] = blk
		d.InstanceOrder = append(d.InstanceOrder, uint64(offset))
	}
	return nil
}

func parseMetrics(c *cursor, d *Dump, toc Toc, version Version) error {
	if err := c.seek(toc.SecOffset); err != nil {
		return err
	}
	for i := uint32(0); i < toc.Entries; i++ {
		offset := c.pos
		blk := &MetricBlock{Offset: offset}

		if version == V2 {
			off, err := c.u64()
			if err != nil {
				return err
			}
			blk.NameOffset = off
		} else {
			raw, err := c.bytes(MetricNameMaxLen)
			if err != nil {
				return err
			}
			name, err := decodeFixedString(raw)
			if err != nil {
				return newParseError(KindUTF8, offset, ErrUTF8, "metric name")
			}
			blk.Name = name
		}

		item, err := c.u32()
		if err != nil {
			return err
		}
		typ, err := c.u32()
		if err != nil {
			return err
		}
		if !TypeCode(typ).Valid() {
			return newParseError(KindInvalidTocType, offset, ErrInvalidTypeCode, "")
		}
		sem, err := c.u32()
		if err != nil {
			return err
		}
		unit, err := c.u32()
		if err != nil {
			return err
		}
		if UnitFromRaw(unit).CountScale() != CountOne {
			return newParseError(KindInvalidPad, offset, ErrInvalidCountScale, "count scale")
		}
		indom, err := c.u32()
		if err != nil {
			return err
		}
		pad, err := c.u32()
		if err != nil {
			return err
		}
		if pad != 0 {
			return newParseError(KindInvalidPad, offset, ErrInvalidPad, "")
		}
		shortOff, err := c.u64()
		if err != nil {
			return err
		}
		longOff, err := c.u64()
		if err != nil {
			return err
		}

		blk.Item = item
		blk.Type = TypeCode(typ)
		blk.Sem = Semantics(sem)
		blk.Unit = UnitFromRaw(unit)
		blk.Indom = indom
		blk.Pad = pad
		blk.ShortHelpOff = shortOff
		blk.LongHelpOff = longOff

		d.Metrics[uint64(offset)] = blk
		d.MetricOrder = append(d.MetricOrder, uint64(offset))
	}
	return nil
}

func parseValues(c *cursor, d *Dump, toc Toc) error {
	if err := c.seek(toc.SecOffset); err != nil {
		return err
	}
	for i := uint32(0); i < toc.Entries; i++ {
		offset := c.pos
		value, err := c.u64()
		if err != nil {
			return err
		}
		stringOff, err := c.u64()
		if err != nil {
			return err
		}
		metricOff, err := c.u64()
		if err != nil {
			return err
		}
		if !isValidOffset(metricOff) {
			return newParseError(KindInvalidSectionOffset, offset, ErrInvalidSectionOffset, "value metric offset")
		}
		instanceOff, err := c.u64()
		if err != nil {
			return err
		}

		blk := &ValueBlock{
			Offset:         offset,
			Value:          value,
			StringOffset:   stringOff,
			MetricOffset:   metricOff,
			InstanceOffset: instanceOff,
		}
		d.Values[uint64(offset)] = blk
		d.ValueOrder = append(d.ValueOrder, uint64(offset))
	}
	return nil
}

func parseStrings(c *cursor, d *Dump) error {
	if err := c.seek(d.StringToc.SecOffset); err != nil {
		return err
	}
	for i := uint32(0); i < d.StringToc.Entries; i++ {
		offset := c.pos
		raw, err := c.bytes(StringBlockLen)
		if err != nil {
			return err
		}
		s, err := decodeFixedString(raw)
		if err != nil {
			return newParseError(KindUTF8, offset, ErrUTF8, "string block")
		}
		d.Strings[uint64(offset)] = &StringBlock{Offset: offset, Value: s}
		d.StringOrder = append(d.StringOrder, uint64(offset))
	}
	return nil
}

func decodeFixedString(raw []byte) (string, error) {
	s := decodeCString(raw)
	if !utf8.ValidString(s) {
		return "", ErrUTF8
	}
	return s, nil
}

// resolveString returns the string block's value at off, or "" if off
// is zero (the "absent" sentinel every optional string offset uses).
func (d *Dump) resolveString(off uint64) (string, bool) {
	if off == 0 {
		return "", false
	}
	blk, ok := d.Strings[off]
	if !ok {
		return "", false
	}
	return blk.Value, true
}

// metricName resolves a metric's name, following the string-section
// offset for V2 files.
func (d *Dump) metricName(m *MetricBlock) string {
	if d.Version == V2 {
		s, _ := d.resolveString(m.NameOffset)
		return s
	}
	return m.Name
}

// instanceName resolves an instance's external name, following the
// string-section offset for V2 files.
func (d *Dump) instanceName(inst *InstanceBlock) string {
	if d.Version == V2 {
		s, _ := d.resolveString(inst.ExternalIDOffset)
		return s
	}
	return inst.ExternalID
}
