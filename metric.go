// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import "fmt"

// Semantics tags how a consumer should interpret successive samples of a
// metric.
type Semantics uint32

// The three defined semantics.
const (
	Counter  Semantics = 1
	Instant  Semantics = 3
	Discrete Semantics = 4
)

func (s Semantics) String() string {
	switch s {
	case Counter:
		return "counter"
	case Instant:
		return "instant"
	case Discrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// Indom is a named instance domain: an ordered, immutable set of
// instance names shared by one or more InstanceMetrics. Its id is
// derived once, at construction, from the instance sequence.
type Indom struct {
	id         uint32
	instances  []string
	shortHelp  string
	longHelp   string
}

// NewIndom validates and builds an Indom from an ordered instance list.
// Each instance name must be at most InstanceNameMaxLen-1 bytes; help
// text must be at most StringBlockLen-1 bytes.
func NewIndom(instances []string, shortHelp, longHelp string) (*Indom, error) {
	for _, inst := range instances {
		if len(inst) >= InstanceNameMaxLen {
			return nil, fmt.Errorf("%w: %q", ErrInstanceTooLong, inst)
		}
	}
	if len(shortHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: short help", ErrHelpTooLong)
	}
	if len(longHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: long help", ErrHelpTooLong)
	}

	cp := make([]string, len(instances))
	copy(cp, instances)

	return &Indom{
		id:        indomID(cp),
		instances: cp,
		shortHelp: shortHelp,
		longHelp:  longHelp,
	}, nil
}

// ID returns the indom's 22-bit derived identifier.
func (d *Indom) ID() uint32 { return d.id }

// Instances returns the ordered instance names.
func (d *Indom) Instances() []string { return d.instances }

// ShortHelp and LongHelp return the indom's help text.
func (d *Indom) ShortHelp() string { return d.shortHelp }
func (d *Indom) LongHelp() string  { return d.longHelp }

// Metric is a singleton declaration: no indom, exactly one value cell.
type Metric[T MetricValue] struct {
	name      string
	item      uint32
	sem       Semantics
	unit      Unit
	val       T
	shortHelp string
	longHelp  string
	cell      *Cell
}

// NewMetric validates and builds a singleton Metric. name must be at
// most MetricNameMaxLen-1 bytes; help text at most StringBlockLen-1
// bytes. Until the metric is exported, SetVal writes to a private
// scratch cell; after export it writes directly into the metric's
// mapped value cell.
func NewMetric[T MetricValue](name string, sem Semantics, unit Unit, initVal T, shortHelp, longHelp string) (*Metric[T], error) {
	if len(name) >= MetricNameMaxLen {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	if len(shortHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: short help for %q", ErrHelpTooLong, name)
	}
	if len(longHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: long help for %q", ErrHelpTooLong, name)
	}

	m := &Metric[T]{
		name:      name,
		item:      itemID(name),
		sem:       sem,
		unit:      unit,
		val:       initVal,
		shortHelp: shortHelp,
		longHelp:  longHelp,
	}
	m.cell = newScratchCell(m.cellSize())
	m.writeCell(initVal)
	return m, nil
}

func (m *Metric[T]) cellSize() int {
	if typeCodeOf[T]() == TypeString {
		return StringBlockLen
	}
	return 8
}

func (m *Metric[T]) writeCell(v T) {
	if typeCodeOf[T]() == TypeString {
		s := encodeString(any(v).(string))
		copy(m.cell.bytes(), s[:])
		return
	}
	slot := encodeNumeric(v)
	copy(m.cell.bytes(), slot[:])
}

// Name returns the metric's name.
func (m *Metric[T]) Name() string { return m.name }

// Item returns the metric's 10-bit derived item id.
func (m *Metric[T]) Item() uint32 { return m.item }

// TypeCode returns the metric's MMV type code.
func (m *Metric[T]) TypeCode() TypeCode { return typeCodeOf[T]() }

// Sem returns the metric's semantics.
func (m *Metric[T]) Sem() Semantics { return m.sem }

// Unit returns the metric's unit.
func (m *Metric[T]) Unit() Unit { return m.unit }

// ShortHelp and LongHelp return the metric's help text.
func (m *Metric[T]) ShortHelp() string { return m.shortHelp }
func (m *Metric[T]) LongHelp() string  { return m.longHelp }

// Val returns the metric's current value.
func (m *Metric[T]) Val() T { return m.val }

// SetVal stores v into the metric's owned cell (scratch before export,
// the mapped file region after). It always succeeds; a string value
// longer than StringBlockLen-1 bytes is silently truncated, matching the
// fixed-size string cell the format defines.
func (m *Metric[T]) SetVal(v T) {
	m.val = v
	m.writeCell(v)
}

// setCell is called once by the Writer during export, handing the
// metric exclusive ownership of its slice of the mapped file and
// re-publishing its current value into that slice.
func (m *Metric[T]) setCell(c *Cell) {
	m.cell = c
	m.writeCell(m.val)
}

// instanceSlot is one (value, cell) pair owned by an InstanceMetric.
type instanceSlot[T MetricValue] struct {
	val  T
	cell *Cell
}

// InstanceMetric is a metric with an indom: one value per instance. All
// instances share the template's type, semantics, and unit; the name
// used externally for instance i is "metric.i".
type InstanceMetric[T MetricValue] struct {
	name      string
	item      uint32
	sem       Semantics
	unit      Unit
	shortHelp string
	longHelp  string
	indom     *Indom
	slots     map[string]*instanceSlot[T]
}

// NewInstanceMetric validates and builds an InstanceMetric over indom,
// seeding every declared instance with initVal.
func NewInstanceMetric[T MetricValue](name string, indom *Indom, sem Semantics, unit Unit, initVal T, shortHelp, longHelp string) (*InstanceMetric[T], error) {
	if len(name) >= MetricNameMaxLen {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	if len(shortHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: short help for %q", ErrHelpTooLong, name)
	}
	if len(longHelp) >= StringBlockLen {
		return nil, fmt.Errorf("%w: long help for %q", ErrHelpTooLong, name)
	}

	im := &InstanceMetric[T]{
		name:      name,
		item:      itemID(name),
		sem:       sem,
		unit:      unit,
		shortHelp: shortHelp,
		longHelp:  longHelp,
		indom:     indom,
		slots:     make(map[string]*instanceSlot[T], len(indom.instances)),
	}

	size := 8
	if typeCodeOf[T]() == TypeString {
		size = StringBlockLen
	}
	for _, inst := range indom.instances {
		slot := &instanceSlot[T]{val: initVal, cell: newScratchCell(size)}
		writeSlot(slot, initVal)
		im.slots[inst] = slot
	}
	return im, nil
}

func writeSlot[T MetricValue](s *instanceSlot[T], v T) {
	if typeCodeOf[T]() == TypeString {
		enc := encodeString(any(v).(string))
		copy(s.cell.bytes(), enc[:])
		return
	}
	slot := encodeNumeric(v)
	copy(s.cell.bytes(), slot[:])
}

// Name, Item, TypeCode, Sem, Unit, Indom, ShortHelp, LongHelp mirror
// Metric's accessors for the shared template attributes.
func (im *InstanceMetric[T]) Name() string      { return im.name }
func (im *InstanceMetric[T]) Item() uint32      { return im.item }
func (im *InstanceMetric[T]) TypeCode() TypeCode { return typeCodeOf[T]() }
func (im *InstanceMetric[T]) Sem() Semantics    { return im.sem }
func (im *InstanceMetric[T]) Unit() Unit        { return im.unit }
func (im *InstanceMetric[T]) Indom() *Indom     { return im.indom }
func (im *InstanceMetric[T]) ShortHelp() string { return im.shortHelp }
func (im *InstanceMetric[T]) LongHelp() string  { return im.longHelp }

// Val returns the current value of instance, and false if instance
// isn't declared on the indom.
func (im *InstanceMetric[T]) Val(instance string) (T, bool) {
	s, ok := im.slots[instance]
	if !ok {
		var zero T
		return zero, false
	}
	return s.val, true
}

// SetVal stores v for instance, returning false (and doing nothing) if
// instance isn't declared on the indom.
func (im *InstanceMetric[T]) SetVal(instance string, v T) bool {
	s, ok := im.slots[instance]
	if !ok {
		return false
	}
	s.val = v
	writeSlot(s, v)
	return true
}

func (im *InstanceMetric[T]) setCell(instance string, c *Cell) {
	s := im.slots[instance]
	s.cell = c
	writeSlot(s, s.val)
}

// The declaration interface (plan.go) lets the planner and Writer walk a
// heterogeneous slice of *Metric[T]/*InstanceMetric[T] values without
// themselves being generic.

func (m *Metric[T]) declName() string      { return m.name }
func (m *Metric[T]) declItem() uint32      { return m.item }
func (m *Metric[T]) declSem() Semantics    { return m.sem }
func (m *Metric[T]) declUnit() Unit        { return m.unit }
func (m *Metric[T]) declTypeCode() TypeCode { return typeCodeOf[T]() }
func (m *Metric[T]) declShortHelp() string { return m.shortHelp }
func (m *Metric[T]) declLongHelp() string  { return m.longHelp }
func (m *Metric[T]) declIndom() *Indom     { return nil }
func (m *Metric[T]) declInstances() []string { return nil }

func (m *Metric[T]) declEncode(string) (numeric [8]byte, content string, isString bool) {
	if typeCodeOf[T]() == TypeString {
		return [8]byte{}, any(m.val).(string), true
	}
	return encodeNumeric(m.val), "", false
}

func (m *Metric[T]) declSetCell(_ string, c *Cell) { m.setCell(c) }

func (im *InstanceMetric[T]) declName() string       { return im.name }
func (im *InstanceMetric[T]) declItem() uint32       { return im.item }
func (im *InstanceMetric[T]) declSem() Semantics     { return im.sem }
func (im *InstanceMetric[T]) declUnit() Unit         { return im.unit }
func (im *InstanceMetric[T]) declTypeCode() TypeCode { return typeCodeOf[T]() }
func (im *InstanceMetric[T]) declShortHelp() string  { return im.shortHelp }
func (im *InstanceMetric[T]) declLongHelp() string   { return im.longHelp }
func (im *InstanceMetric[T]) declIndom() *Indom      { return im.indom }
func (im *InstanceMetric[T]) declInstances() []string { return im.indom.Instances() }

func (im *InstanceMetric[T]) declEncode(instance string) (numeric [8]byte, content string, isString bool) {
	s := im.slots[instance]
	if typeCodeOf[T]() == TypeString {
		return [8]byte{}, any(s.val).(string), true
	}
	return encodeNumeric(s.val), "", false
}

func (im *InstanceMetric[T]) declSetCell(instance string, c *Cell) { im.setCell(instance, c) }
