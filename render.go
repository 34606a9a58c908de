// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"fmt"
	"io"
)

// Render writes the canonical textual representation of d to w: header,
// then one block per populated section in the fixed indom/instance/
// metric/value/string order. The format is stable across runs of the
// same file (Testable Property: two dumps of one file byte-for-byte
// match), which is what makes it fit for golden-file tests.
func (d *Dump) Render(w io.Writer) error {
	if err := d.renderHeader(w); err != nil {
		return err
	}

	if d.IndomToc != nil {
		if err := d.renderIndoms(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if d.InstanceToc != nil {
		if err := d.renderInstances(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if err := d.renderMetrics(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := d.renderValues(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if d.StringToc != nil {
		if err := d.renderStrings(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (d *Dump) renderHeader(w io.Writer) error {
	h := d.Header
	_, err := fmt.Fprintf(w,
		"Version    = %d\nGenerated  = %d\nTOC count  = %d\nCluster    = %d\nProcess    = %d\nFlags      = %s\n",
		uint32(h.Version), h.Gen1, h.TocCount, h.ClusterID, h.PID, h.Flags)
	return err
}

func (d *Dump) renderIndoms(w io.Writer) error {
	t := d.IndomToc
	if _, err := fmt.Fprintf(w, "TOC[%d]: toc offset %d, indoms offset %d (%d entries)\n",
		t.Index, t.Offset, t.SecOffset, t.Entries); err != nil {
		return err
	}
	for _, off := range d.IndomOrder {
		in := d.Indoms[off]
		if _, err := fmt.Fprintf(w, "  [%d/%d] %d instances, starting at offset %d\n",
			in.Indom, off, in.Instances, in.InstancesOffset); err != nil {
			return err
		}
		if err := d.renderHelpLine(w, "shorttext", in.ShortHelpOff); err != nil {
			return err
		}
		if err := d.renderHelpLine(w, "longtext", in.LongHelpOff); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) renderHelpLine(w io.Writer, label string, off uint64) error {
	s, ok := d.resolveString(off)
	if !ok {
		_, err := fmt.Fprintf(w, "      (no %s)\n", label)
		return err
	}
	_, err := fmt.Fprintf(w, "      %s=%s\n", label, s)
	return err
}

func (d *Dump) renderInstances(w io.Writer) error {
	t := d.InstanceToc
	if _, err := fmt.Fprintf(w, "TOC[%d]: toc offset %d, instances offset %d (%d entries)\n",
		t.Index, t.Offset, t.SecOffset, t.Entries); err != nil {
		return err
	}
	for _, off := range d.InstanceOrder {
		inst := d.Instances[off]
		indomLabel := "(no indom)"
		if in, ok := d.Indoms[inst.IndomOffset]; ok {
			indomLabel = fmt.Sprintf("%d", in.Indom)
		}
		name := d.instanceName(inst)
		if _, err := fmt.Fprintf(w, "  [%s/%d] instance = [%d or %q]\n",
			indomLabel, off, inst.InternalID, name); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) renderMetrics(w io.Writer) error {
	t := d.MetricToc
	if _, err := fmt.Fprintf(w, "TOC[%d]: toc offset %d, metrics offset %d (%d entries)\n",
		t.Index, t.Offset, t.SecOffset, t.Entries); err != nil {
		return err
	}
	for _, off := range d.MetricOrder {
		m := d.Metrics[off]
		name := d.metricName(m)
		if _, err := fmt.Fprintf(w, "  [%d/%d] %s\n", m.Item, off, name); err != nil {
			return err
		}

		typeLabel := "(invalid type)"
		if m.Type.Valid() {
			typeLabel = fmt.Sprintf("type=%s", m.Type)
		}
		if _, err := fmt.Fprintf(w, "      %s, sem=%s, pad=0x%x\n", typeLabel, m.Sem, m.Pad); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "      unit=%s\n", m.Unit); err != nil {
			return err
		}

		if isValidIndom(m.Indom) {
			if _, err := fmt.Fprintf(w, "      indom=%d\n", m.Indom); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintln(w, "      (no indom)"); err != nil {
			return err
		}

		if err := d.renderHelpLine(w, "shorttext", m.ShortHelpOff); err != nil {
			return err
		}
		if err := d.renderHelpLine(w, "longtext", m.LongHelpOff); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) renderValues(w io.Writer) error {
	t := d.ValueToc
	if _, err := fmt.Fprintf(w, "TOC[%d]: toc offset %d, values offset %d (%d entries)\n",
		t.Index, t.Offset, t.SecOffset, t.Entries); err != nil {
		return err
	}
	for _, off := range d.ValueOrder {
		v := d.Values[off]
		m, ok := d.Metrics[v.MetricOffset]
		if !ok {
			continue
		}
		name := d.metricName(m)
		if _, err := fmt.Fprintf(w, "  [%d/%d] %s", m.Item, off, name); err != nil {
			return err
		}

		if v.InstanceOffset != 0 {
			if inst, ok := d.Instances[v.InstanceOffset]; ok {
				instName := d.instanceName(inst)
				if _, err := fmt.Fprintf(w, "[%d or %q]", inst.InternalID, instName); err != nil {
					return err
				}
			}
		}

		if _, err := fmt.Fprint(w, " = "); err != nil {
			return err
		}
		if err := d.renderValueContent(w, m, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) renderValueContent(w io.Writer, m *MetricBlock, v *ValueBlock) error {
	if v.StringOffset != 0 {
		s, ok := d.resolveString(v.StringOffset)
		if !ok {
			_, err := fmt.Fprintln(w, "(no string offset)")
			return err
		}
		_, err := fmt.Fprintf(w, "%q\n", s)
		return err
	}

	var slot [8]byte
	for i := 0; i < 8; i++ {
		slot[i] = byte(v.Value >> (8 * i))
	}
	decoded, err := decodeSlot(m.Type, slot, nil)
	if err != nil {
		_, werr := fmt.Fprintf(w, "%d\n", v.Value)
		if werr != nil {
			return werr
		}
		return nil
	}
	_, werr := fmt.Fprintf(w, "%v\n", decoded)
	return werr
}

func (d *Dump) renderStrings(w io.Writer) error {
	t := d.StringToc
	if _, err := fmt.Fprintf(w, "TOC[%d]: toc offset %d, strings offset %d (%d entries)\n",
		t.Index, t.Offset, t.SecOffset, t.Entries); err != nil {
		return err
	}
	for i, off := range d.StringOrder {
		s := d.Strings[off]
		if _, err := fmt.Fprintf(w, "  [%d/%d] %s\n", i+1, off, s.Value); err != nil {
			return err
		}
	}
	return nil
}
