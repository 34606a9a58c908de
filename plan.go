// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

// declaration is the non-generic view the planner and writer walk over;
// *Metric[T] and *InstanceMetric[T] both implement it. Keeping it
// non-generic lets a single Writer.Export call accept a heterogeneously
// typed slice of declarations.
type declaration interface {
	declName() string
	declItem() uint32
	declSem() Semantics
	declUnit() Unit
	declTypeCode() TypeCode
	declShortHelp() string
	declLongHelp() string
	declIndom() *Indom
	// declInstances returns nil for a singleton Metric, or the ordered
	// instance names (matching declIndom().Instances()) for an
	// InstanceMetric.
	declInstances() []string
	// declEncode returns the bytes to seed the value cell for instance
	// (ignored for singletons). isString selects whether content is a
	// NUL-terminated string cell or an 8-byte numeric slot.
	declEncode(instance string) (numeric [8]byte, content string, isString bool)
	// declSetCell hands the exported Cell back to the declaration so
	// subsequent SetVal calls write directly into the mapped file.
	declSetCell(instance string, c *Cell)
}

// plan is the immutable output of one registration pass over a set of
// declarations: the section sizes and offsets the Writer needs before it
// opens or sizes the file. Splitting layout computation (this type) from
// emission (Writer) removes hidden mutable counters from the export path
// and makes the layout independently testable.
type plan struct {
	version Version
	decls   []declaration

	indoms []*Indom // distinct, first-seen order

	nMetrics   uint64
	nValues    uint64
	nIndoms    uint64
	nInstances uint64
	nStrings   uint64
	nToc       uint64

	// helpStrings is the set of distinct non-empty help contents (across
	// both metric and indom help text) that will need one string slot
	// each. Order doesn't matter here; the Writer assigns offsets.
	helpStrings map[string]struct{}

	indomSecOff    uint64
	instanceSecOff uint64
	metricSecOff   uint64
	valueSecOff    uint64
	stringSecOff   uint64
	totalSize      uint64
}

// buildPlan performs the single registration pass over decls described
// in spec section 4.5.
func buildPlan(version Version, decls []declaration) *plan {
	p := &plan{
		version:     version,
		decls:       decls,
		helpStrings: make(map[string]struct{}),
	}

	seenIndom := make(map[uint32]bool)

	addHelp := func(s string) {
		if s != "" {
			p.helpStrings[s] = struct{}{}
		}
	}

	for _, d := range decls {
		p.nMetrics++
		addHelp(d.declShortHelp())
		addHelp(d.declLongHelp())

		indom := d.declIndom()
		if indom == nil {
			p.nValues++
			if d.declTypeCode() == TypeString {
				p.nStrings++
			}
			if version == V2 {
				p.nStrings++ // metric name offset
			}
			continue
		}

		instances := d.declInstances()
		p.nValues += uint64(len(instances))
		if d.declTypeCode() == TypeString {
			p.nStrings += uint64(len(instances))
		}
		if version == V2 {
			p.nStrings++                             // metric name offset
			p.nStrings += uint64(len(instances)) // external instance name offsets
		}

		if !seenIndom[indom.ID()] {
			seenIndom[indom.ID()] = true
			p.indoms = append(p.indoms, indom)
			p.nIndoms++
			p.nInstances += uint64(len(indom.Instances()))
			addHelp(indom.ShortHelp())
			addHelp(indom.LongHelp())
		}
	}

	p.nStrings += uint64(len(p.helpStrings))

	if p.nMetrics > 0 {
		p.nToc += 2 // Metric and Value TOC
	}
	if p.nStrings > 0 {
		p.nToc++
	}
	if p.nIndoms > 0 {
		p.nToc += 2
	}

	hdrTocLen := uint64(HeaderLen) + TocBlockLen*p.nToc
	p.indomSecOff = hdrTocLen
	p.instanceSecOff = p.indomSecOff + IndomBlockLen*p.nIndoms
	p.metricSecOff = p.instanceSecOff + version.instanceBlockLen()*p.nInstances
	p.valueSecOff = p.metricSecOff + version.metricBlockLen()*p.nMetrics
	p.stringSecOff = p.valueSecOff + ValueBlockLen*p.nValues
	p.totalSize = p.stringSecOff + StringBlockLen*p.nStrings

	return p
}
