// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"runtime"
	"sync/atomic"

	mmap "github.com/edsrzf/mmap-go"
)

// mapping is the reference-counted backing store a Writer slices into
// disjoint, independently-addressable Cells. The underlying mmap.MMap is
// only unmapped once every Cell carved from it has been collected, so a
// Metric can outlive the Writer that exported it and keep writing to its
// owned bytes for as long as the process holds onto it.
type mapping struct {
	mm   mmap.MMap
	refs atomic.Int64
}

func newMapping(mm mmap.MMap) *mapping {
	m := &mapping{mm: mm}
	return m
}

func (m *mapping) acquire() { m.refs.Add(1) }

func (m *mapping) release() {
	if m.refs.Add(-1) == 0 {
		_ = m.mm.Unmap()
	}
}

// Cell is the exact mapped byte range owned by one metric or instance
// after export: 8 bytes for numeric types, StringBlockLen bytes for the
// string type. bytes is the only way user code ever touches the
// mapping; the mapping itself is never handed out directly.
type Cell struct {
	data []byte
	m    *mapping
}

// newCell carves out [offset:offset+size] of m and ties the returned
// Cell's lifetime to m via a finalizer: when the Cell is collected, m's
// refcount drops, and the mapping is unmapped once nothing references it.
func newCell(m *mapping, offset, size uint64) *Cell {
	c := &Cell{data: m.mm[offset : offset+size : offset+size], m: m}
	if m != nil {
		m.acquire()
		runtime.SetFinalizer(c, func(c *Cell) { c.m.release() })
	}
	return c
}

// newScratchCell returns a Cell backed by ordinary heap memory, used by a
// Metric before it has been exported (so set_val always has somewhere to
// write).
func newScratchCell(size int) *Cell {
	return &Cell{data: make([]byte, size)}
}

func (c *Cell) bytes() []byte { return c.data }
