// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"embed"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.mmv
var goldenFixtures embed.FS

func TestParseGoldenFixture(t *testing.T) {
	data, err := goldenFixtures.ReadFile("testdata/golden_singleton.mmv")
	require.NoError(t, err)

	d, err := Parse(data)
	require.NoError(t, err)

	require.Len(t, d.MetricOrder, 1)
	mb := d.Metrics[d.MetricOrder[0]]
	assert.Equal(t, "golden.counter", d.metricName(mb))
	assert.Equal(t, TypeI64, mb.Type)
	assert.Equal(t, Counter, mb.Sem)

	require.Len(t, d.ValueOrder, 1)
	vb := d.Values[d.ValueOrder[0]]
	assert.EqualValues(t, 123456789, vb.Value)
}

func TestGoldenFixtureDumpIsStable(t *testing.T) {
	data, err := goldenFixtures.ReadFile("testdata/golden_singleton.mmv")
	require.NoError(t, err)

	var renders [2]string
	for i := range renders {
		d, err := Parse(data)
		require.NoError(t, err)
		var b strings.Builder
		require.NoError(t, d.Render(&b))
		renders[i] = b.String()
	}
	assert.Equal(t, renders[0], renders[1])
}
