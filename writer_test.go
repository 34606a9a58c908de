// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, name string, opts *WriterOptions) *Writer {
	t.Helper()
	t.Setenv("PCP_TMP_DIR", t.TempDir())
	w, err := NewWriter(name, opts)
	require.NoError(t, err)
	return w
}

func TestWriterExportSingletonRoundTrip(t *testing.T) {
	w := newTestWriter(t, "singleton", nil)

	m, err := NewMetric[int64]("requests", Counter, NewUnit(), 41, "requests served", "long help")
	require.NoError(t, err)

	require.NoError(t, w.Export(m))

	m.SetVal(42)

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	require.Len(t, d.MetricOrder, 1)
	require.Len(t, d.ValueOrder, 1)

	mb := d.Metrics[d.MetricOrder[0]]
	assert.Equal(t, "requests", d.metricName(mb))
	assert.Equal(t, uint32(Counter), uint32(mb.Sem))

	vb := d.Values[d.ValueOrder[0]]
	assert.EqualValues(t, 42, vb.Value)
}

func TestWriterExportInstanceMetricRoundTrip(t *testing.T) {
	w := newTestWriter(t, "withindom", nil)

	indom, err := NewIndom([]string{"eth0", "eth1"}, "interfaces", "")
	require.NoError(t, err)
	m, err := NewInstanceMetric[uint64]("net.bytes", indom, Counter, NewUnit(), 0, "bytes", "")
	require.NoError(t, err)
	m.SetVal("eth0", 100)
	m.SetVal("eth1", 200)

	require.NoError(t, w.Export(m))

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	require.NotNil(t, d.IndomToc)
	require.NotNil(t, d.InstanceToc)
	require.Len(t, d.IndomOrder, 1)
	require.Len(t, d.InstanceOrder, 2)
	require.Len(t, d.ValueOrder, 2)

	seen := map[string]uint64{}
	for _, off := range d.ValueOrder {
		vb := d.Values[off]
		inst := d.Instances[vb.InstanceOffset]
		seen[d.instanceName(inst)] = vb.Value
	}
	assert.EqualValues(t, 100, seen["eth0"])
	assert.EqualValues(t, 200, seen["eth1"])
}

func TestWriterExportStringMetric(t *testing.T) {
	w := newTestWriter(t, "strmetric", nil)

	m, err := NewMetric[string]("build.version", Discrete, NewUnit(), "1.2.3", "", "")
	require.NoError(t, err)

	require.NoError(t, w.Export(m))

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	vb := d.Values[d.ValueOrder[0]]
	require.NotZero(t, vb.StringOffset)
	s, ok := d.resolveString(vb.StringOffset)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", s)
}

func TestWriterExportV2Layout(t *testing.T) {
	w := newTestWriter(t, "v2metric", &WriterOptions{Version: V2})

	m, err := NewMetric[int32]("v2.counter", Counter, NewUnit(), 5, "help", "")
	require.NoError(t, err)
	require.NoError(t, w.Export(m))

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, V2, d.Version)
	mb := d.Metrics[d.MetricOrder[0]]
	assert.Equal(t, "v2.counter", d.metricName(mb))
}

func TestWriterPublishedFileHasMatchingGenerations(t *testing.T) {
	w := newTestWriter(t, "gen", nil)
	m, err := NewMetric[int32]("x", Instant, NewUnit(), 1, "", "")
	require.NoError(t, err)
	require.NoError(t, w.Export(m))

	d, err := ParseFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, d.Header.Gen1, d.Header.Gen2)
}

func TestMmvDirCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PCP_TMP_DIR", filepath.Join(root, "tmp"))
	dir, err := mmvDir()
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, mmvDirSuffix, filepath.Base(dir))
}
