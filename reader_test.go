// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"encoding/binary"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidMinimalFile(t *testing.T) {
	w := newTestWriter(t, "ok", nil)
	m, err := NewMetric[int32]("x.y", Counter, NewUnit(), 7, "", "")
	require.NoError(t, err)
	require.NoError(t, w.Export(m))

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, V1, d.Version)
	assert.Len(t, d.MetricOrder, 1)
	assert.Len(t, d.ValueOrder, 1)
}

func TestParseInvalidMagic(t *testing.T) {
	data := rawValidFile(t)
	data[0] = 'X'
	_, err := Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMagic)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindInvalidMagic, pe.Kind)
}

func TestParseInvalidVersion(t *testing.T) {
	data := rawValidFile(t)
	binary.LittleEndian.PutUint32(data[4:8], 99)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestParseGenerationMismatch(t *testing.T) {
	data := rawValidFile(t)
	binary.LittleEndian.PutUint64(data[16:24], 0)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrGenerationMismatch)
}

func TestParseTocCountOutOfRange(t *testing.T) {
	data := rawValidFile(t)
	binary.LittleEndian.PutUint32(data[24:28], 0)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrTocCountOutOfRange)
}

func TestParseInvalidTocType(t *testing.T) {
	data := rawValidFile(t)
	// first TOC entry begins right after the 40-byte header.
	binary.LittleEndian.PutUint32(data[HeaderLen:HeaderLen+4], 6)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidTocType)
}

func TestParseInvalidSectionOffset(t *testing.T) {
	data := rawValidFile(t)
	binary.LittleEndian.PutUint64(data[HeaderLen+8:HeaderLen+16], 0)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidSectionOffset)
}

func TestParseInvalidClusterID(t *testing.T) {
	data := rawValidFile(t)
	binary.LittleEndian.PutUint32(data[36:40], 1<<ClusterBitLen)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidClusterID)
}

func TestParseInvalidPad(t *testing.T) {
	data := rawValidFile(t)
	m, err := NewMetric[int32]("x.y", Counter, NewUnit(), 7, "", "")
	require.NoError(t, err)
	p := buildPlan(V1, []declaration{m})
	padOff := p.metricSecOff + nameFieldLen(V1) + 20
	binary.LittleEndian.PutUint32(data[padOff:padOff+4], 1)
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrInvalidPad)
}

func TestParseInvalidTypeCode(t *testing.T) {
	data := rawValidFile(t)
	m, err := NewMetric[int32]("x.y", Counter, NewUnit(), 7, "", "")
	require.NoError(t, err)
	p := buildPlan(V1, []declaration{m})
	typeOff := p.metricSecOff + nameFieldLen(V1) + 4
	binary.LittleEndian.PutUint32(data[typeOff:typeOff+4], 99)
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrInvalidTypeCode)
}

func TestParseInvalidUTF8Name(t *testing.T) {
	data := rawValidFile(t)
	m, err := NewMetric[int32]("x.y", Counter, NewUnit(), 7, "", "")
	require.NoError(t, err)
	p := buildPlan(V1, []declaration{m})
	data[p.metricSecOff] = 0xff
	data[p.metricSecOff+1] = 0xfe
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrUTF8)
}

func TestParseOutsideBoundary(t *testing.T) {
	data := rawValidFile(t)
	_, err := Parse(data[:HeaderLen-1])
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindIO, pe.Kind)
}

func TestDumpIdempotent(t *testing.T) {
	w := newTestWriter(t, "idempotent", nil)
	indom, err := NewIndom([]string{"a", "b"}, "letters", "")
	require.NoError(t, err)
	m, err := NewInstanceMetric[int64]("letter.count", indom, Counter, NewUnit(), 0, "counts", "")
	require.NoError(t, err)
	require.NoError(t, w.Export(m))

	d1, err := ParseFile(w.Path())
	require.NoError(t, err)
	d2, err := ParseFile(w.Path())
	require.NoError(t, err)

	var b1, b2 strings.Builder
	require.NoError(t, d1.Render(&b1))
	require.NoError(t, d2.Render(&b2))
	assert.Equal(t, b1.String(), b2.String())
}

// rawValidFile returns the bytes of a freshly exported, structurally
// valid minimal file for mutation in the negative-path tests above.
func rawValidFile(t *testing.T) []byte {
	t.Helper()
	w := newTestWriter(t, "corruptme", nil)
	m, err := NewMetric[int32]("x.y", Counter, NewUnit(), 7, "", "")
	require.NoError(t, err)
	require.NoError(t, w.Export(m))
	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	return data
}
