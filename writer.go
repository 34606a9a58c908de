// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/go-kratos/kratos/v2/log"
)

// WriterOptions configures a Writer. A nil Logger yields a stderr logger
// filtered to the Error level.
type WriterOptions struct {
	// Version selects the on-disk metric/instance block layout. Zero
	// value defaults to V1.
	Version Version

	// Flags is the MMV header's bitmask. Zero value defaults to Process.
	Flags Flags

	// ClusterID is the 12-bit producer id embedded in the header; only
	// the low ClusterBitLen bits are used.
	ClusterID uint32

	// Logger receives lifecycle and failure diagnostics.
	Logger log.Logger
}

// Writer owns one MMV file: allocating and mapping it, writing its
// structural layout, and handing each declared metric exclusive
// ownership of its value cell. The writer is single-threaded and
// synchronous — Export blocks until the file is published.
type Writer struct {
	name      string
	path      string
	version   Version
	flags     Flags
	clusterID uint32
	logger    *log.Helper

	exported bool
	mapping  *mapping
}

// NewWriter resolves name to its MMV path under the PCP temp directory
// (spec section 6) and returns a Writer ready to Export. name must not
// contain path separators.
func NewWriter(name string, opts *WriterOptions) (*Writer, error) {
	if opts == nil {
		opts = &WriterOptions{}
	}
	version := opts.Version
	if version == 0 {
		version = V1
	}
	flags := opts.Flags
	if flags == 0 {
		flags = Process
	}

	logger := opts.Logger
	var helper *log.Helper
	if logger == nil {
		logger = log.NewStdLogger(os.Stderr)
		helper = log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))
	} else {
		helper = log.NewHelper(logger)
	}

	dir, err := mmvDir()
	if err != nil {
		return nil, err
	}

	return &Writer{
		name:      name,
		path:      filepath.Join(dir, name),
		version:   version,
		flags:     flags,
		clusterID: opts.ClusterID & ((1 << ClusterBitLen) - 1),
		logger:    helper,
	}, nil
}

// Path returns the absolute filesystem path the writer exports to.
func (w *Writer) Path() string { return w.path }

// Export lays out decls into a freshly created, truncated file and
// publishes it. Every declaration is handed ownership of its value
// cell(s) in the mapped file before Export returns. Re-exporting (a
// second Export call, or a second Writer pointed at the same path)
// re-truncates the file and re-runs the whole layout; no partial
// publication is possible, because the second generation word is only
// written after every structural byte has landed.
func (w *Writer) Export(decls ...declaration) error {
	p := buildPlan(w.version, decls)

	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		w.logger.Errorf("mmv: failed to open %s: %v", w.path, err)
		return err
	}
	defer f.Close()

	if _, err := f.Write(make([]byte, p.totalSize)); err != nil {
		w.logger.Errorf("mmv: failed to size %s: %v", w.path, err)
		return err
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		w.logger.Errorf("mmv: failed to mmap %s: %v", w.path, err)
		return err
	}

	e := &emitter{
		buf:       mm,
		p:         p,
		version:   w.version,
		helpCache: make(map[string]uint64),
		indomOff:  make(map[uint32]uint64),
	}

	gen := time.Now().Unix()
	e.writeHeader(gen, w.flags, w.clusterID)
	e.writeTocs()

	for _, d := range p.decls {
		if err := e.writeDeclaration(d); err != nil {
			_ = mm.Unmap()
			w.logger.Errorf("mmv: failed to write %s: %v", w.path, err)
			return err
		}
	}

	// Unlock the header; must happen last.
	binary.LittleEndian.PutUint64(mm[16:24], uint64(gen))

	w.mapping = newMapping(mm)
	for _, cell := range e.pending {
		c := newCell(w.mapping, cell.offset, cell.size)
		cell.decl.declSetCell(cell.instance, c)
	}
	w.exported = true

	w.logger.Infof("mmv: exported %d metrics to %s", p.nMetrics, w.path)
	return nil
}

// Sync flushes the writer's mapping to disk. The publication protocol
// (spec section 5) doesn't require this — a reader that polls tolerates
// gen1 != gen2 and simply retries — but callers wanting a stronger
// durability guarantee before a crash may call it explicitly.
func (w *Writer) Sync() error {
	if w.mapping == nil {
		return nil
	}
	if err := msync(w.mapping.mm); err != nil {
		return err
	}
	return w.mapping.mm.Flush()
}

// pendingCell is a (declaration, instance, offset, size) tuple recorded
// while emitting so cell handles can be carved out once, after the
// mapping is wrapped in its refcounted holder.
type pendingCell struct {
	decl     declaration
	instance string
	offset   uint64
	size     uint64
}

// emitter walks a plan's declarations once and writes every structural
// byte into buf, exactly mirroring spec section 4.6's section order:
// header, TOCs, indom section, instance section, metric section, value
// section, string section.
type emitter struct {
	buf     mmap.MMap
	p       *plan
	version Version

	indomCursor    uint64
	instanceCursor uint64
	metricCursor   uint64
	valueCursor    uint64
	stringCursor   uint64

	helpCache map[string]uint64 // help content -> string slot offset
	indomOff  map[uint32]uint64 // indom id -> indom block offset

	pending []pendingCell
}

func (e *emitter) writeHeader(gen int64, flags Flags, clusterID uint32) {
	buf := e.buf
	copy(buf[0:4], []byte{'M', 'M', 'V', 0})
	binary.LittleEndian.PutUint32(buf[4:8], uint32(e.version))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(gen))
	binary.LittleEndian.PutUint64(buf[16:24], 0) // gen2, unlocked at the end
	binary.LittleEndian.PutUint32(buf[24:28], uint32(e.p.nToc))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(flags))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(os.Getpid()))
	binary.LittleEndian.PutUint32(buf[36:40], clusterID)

	e.indomCursor = e.p.indomSecOff
	e.instanceCursor = e.p.instanceSecOff
	e.metricCursor = e.p.metricSecOff
	e.valueCursor = e.p.valueSecOff
	e.stringCursor = e.p.stringSecOff
}

func (e *emitter) writeTocs() {
	off := uint64(HeaderLen)
	write := func(sec sectionType, entries, secOff uint64) {
		if entries == 0 {
			return
		}
		binary.LittleEndian.PutUint32(e.buf[off:off+4], uint32(sec))
		binary.LittleEndian.PutUint32(e.buf[off+4:off+8], uint32(entries))
		binary.LittleEndian.PutUint64(e.buf[off+8:off+16], secOff)
		off += TocBlockLen
	}
	write(secIndom, e.p.nIndoms, e.p.indomSecOff)
	write(secInstance, e.p.nInstances, e.p.instanceSecOff)
	write(secMetric, e.p.nMetrics, e.p.metricSecOff)
	write(secValue, e.p.nValues, e.p.valueSecOff)
	write(secString, e.p.nStrings, e.p.stringSecOff)
}

// internString allocates (or reuses, for help text) a string slot for s
// and returns its absolute byte offset. help selects the content-
// addressed allocator; value cells always get a fresh slot.
func (e *emitter) internString(s string, help bool) uint64 {
	if help {
		if off, ok := e.helpCache[s]; ok {
			return off
		}
	}
	off := e.stringCursor
	e.stringCursor += StringBlockLen
	var cell [StringBlockLen]byte
	copy(cell[:], s)
	copy(e.buf[off:off+StringBlockLen], cell[:])
	if help {
		e.helpCache[s] = off
	}
	return off
}

func (e *emitter) helpOffsets(short, long string) (uint64, uint64) {
	var shortOff, longOff uint64
	if short != "" {
		shortOff = e.internString(short, true)
	}
	if long != "" {
		longOff = e.internString(long, true)
	}
	return shortOff, longOff
}

// writeIndom emits (once, memoized by indom id) the shared indom block
// and its instance blocks, returning the indom block's offset.
func (e *emitter) writeIndom(d *Indom) uint64 {
	if off, ok := e.indomOff[d.ID()]; ok {
		return off
	}

	instancesOff := e.instanceCursor
	for _, inst := range d.Instances() {
		e.writeInstanceBlock(inst, 0 /* patched below */)
	}

	indomOff := e.indomCursor
	e.indomCursor += IndomBlockLen

	shortOff, longOff := e.helpOffsets(d.ShortHelp(), d.LongHelp())

	binary.LittleEndian.PutUint32(e.buf[indomOff:indomOff+4], d.ID())
	binary.LittleEndian.PutUint32(e.buf[indomOff+4:indomOff+8], uint32(len(d.Instances())))
	binary.LittleEndian.PutUint64(e.buf[indomOff+8:indomOff+16], instancesOff)
	binary.LittleEndian.PutUint64(e.buf[indomOff+16:indomOff+24], shortOff)
	binary.LittleEndian.PutUint64(e.buf[indomOff+24:indomOff+32], longOff)

	// Second pass: patch each instance block's indom_offset now that we
	// know it (we emitted the blocks before the indom block existed).
	off := instancesOff
	ilen := e.version.instanceBlockLen()
	for range d.Instances() {
		binary.LittleEndian.PutUint64(e.buf[off:off+8], indomOff)
		off += ilen
	}

	e.indomOff[d.ID()] = indomOff
	return indomOff
}

func (e *emitter) writeInstanceBlock(name string, indomOff uint64) {
	off := e.instanceCursor
	e.instanceCursor += e.version.instanceBlockLen()

	binary.LittleEndian.PutUint64(e.buf[off:off+8], indomOff)
	binary.LittleEndian.PutUint32(e.buf[off+8:off+12], 0) // pad
	binary.LittleEndian.PutUint32(e.buf[off+12:off+16], uint32(instanceInternalID(name)))

	if e.version == V2 {
		nameOff := e.internString(name, false)
		binary.LittleEndian.PutUint64(e.buf[off+16:off+24], nameOff)
	} else {
		var buf [MetricNameMaxLen]byte
		copy(buf[:], name)
		copy(e.buf[off+16:off+16+MetricNameMaxLen], buf[:])
	}
}

// writeDeclaration emits one declaration's metric block and its value
// block(s), plus (the first time it's seen) its shared indom/instance
// blocks, and records the pending cell handle(s) to carve out after
// export finishes.
func (e *emitter) writeDeclaration(d declaration) error {
	var indomID uint32
	indom := d.declIndom()
	if indom != nil {
		e.writeIndom(indom)
		indomID = indom.ID()
	}

	shortOff, longOff := e.helpOffsets(d.declShortHelp(), d.declLongHelp())

	metricOff := e.metricCursor
	e.metricCursor += e.version.metricBlockLen()

	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version):metricOff+nameFieldLen(e.version)+4], d.declItem())
	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version)+4:metricOff+nameFieldLen(e.version)+8], uint32(d.declTypeCode()))
	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version)+8:metricOff+nameFieldLen(e.version)+12], uint32(d.declSem()))
	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version)+12:metricOff+nameFieldLen(e.version)+16], d.declUnit().Raw())
	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version)+16:metricOff+nameFieldLen(e.version)+20], indomID)
	binary.LittleEndian.PutUint32(e.buf[metricOff+nameFieldLen(e.version)+20:metricOff+nameFieldLen(e.version)+24], 0) // pad
	binary.LittleEndian.PutUint64(e.buf[metricOff+nameFieldLen(e.version)+24:metricOff+nameFieldLen(e.version)+32], shortOff)
	binary.LittleEndian.PutUint64(e.buf[metricOff+nameFieldLen(e.version)+32:metricOff+nameFieldLen(e.version)+40], longOff)

	if e.version == V2 {
		nameOff := e.internString(d.declName(), false)
		binary.LittleEndian.PutUint64(e.buf[metricOff:metricOff+8], nameOff)
	} else {
		var buf [MetricNameMaxLen]byte
		copy(buf[:], d.declName())
		copy(e.buf[metricOff:metricOff+MetricNameMaxLen], buf[:])
	}

	instances := d.declInstances()
	if instances == nil {
		return e.writeValue(d, "", metricOff, 0)
	}
	for i, inst := range instances {
		instOff := e.instanceOffsetOf(indom, i)
		if err := e.writeValue(d, inst, metricOff, instOff); err != nil {
			return err
		}
	}
	return nil
}

// instanceOffsetOf returns the byte offset of the i'th instance block of
// indom, computed from the indom's recorded instances_offset.
func (e *emitter) instanceOffsetOf(indom *Indom, i int) uint64 {
	indomOff := e.indomOff[indom.ID()]
	instancesOff := binary.LittleEndian.Uint64(e.buf[indomOff+8 : indomOff+16])
	return instancesOff + uint64(i)*e.version.instanceBlockLen()
}

func (e *emitter) writeValue(d declaration, instance string, metricOff, instanceOff uint64) error {
	off := e.valueCursor
	e.valueCursor += ValueBlockLen

	numeric, content, isString := d.declEncode(instance)

	var extra uint64
	var cellOff, cellSize uint64
	if isString {
		extra = e.internString(content, false)
		cellOff, cellSize = extra, StringBlockLen
	} else {
		binary.LittleEndian.PutUint64(e.buf[off:off+8], binary.LittleEndian.Uint64(numeric[:]))
		cellOff, cellSize = off, 8
	}

	binary.LittleEndian.PutUint64(e.buf[off+8:off+16], extra)
	binary.LittleEndian.PutUint64(e.buf[off+16:off+24], metricOff)
	binary.LittleEndian.PutUint64(e.buf[off+24:off+32], instanceOff)

	e.pending = append(e.pending, pendingCell{decl: d, instance: instance, offset: cellOff, size: cellSize})
	return nil
}

func nameFieldLen(v Version) uint64 {
	if v == V2 {
		return 8
	}
	return MetricNameMaxLen
}
