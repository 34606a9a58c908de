// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricNameBoundary(t *testing.T) {
	ok := strings.Repeat("a", MetricNameMaxLen-1)
	_, err := NewMetric[int32](ok, Counter, NewUnit(), 0, "", "")
	require.NoError(t, err)

	tooLong := strings.Repeat("a", MetricNameMaxLen)
	_, err = NewMetric[int32](tooLong, Counter, NewUnit(), 0, "", "")
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestNewMetricHelpBoundary(t *testing.T) {
	ok := strings.Repeat("h", StringBlockLen-1)
	_, err := NewMetric[int32]("x", Counter, NewUnit(), 0, ok, "")
	require.NoError(t, err)

	tooLong := strings.Repeat("h", StringBlockLen)
	_, err = NewMetric[int32]("x", Counter, NewUnit(), 0, tooLong, "")
	assert.ErrorIs(t, err, ErrHelpTooLong)

	_, err = NewMetric[int32]("x", Counter, NewUnit(), 0, "", tooLong)
	assert.ErrorIs(t, err, ErrHelpTooLong)
}

func TestNewIndomInstanceNameBoundary(t *testing.T) {
	ok := strings.Repeat("i", InstanceNameMaxLen-1)
	_, err := NewIndom([]string{ok}, "", "")
	require.NoError(t, err)

	tooLong := strings.Repeat("i", InstanceNameMaxLen)
	_, err = NewIndom([]string{tooLong}, "", "")
	assert.ErrorIs(t, err, ErrInstanceTooLong)
}

func TestNewIndomHelpBoundary(t *testing.T) {
	ok := strings.Repeat("h", StringBlockLen-1)
	_, err := NewIndom([]string{"a"}, ok, "")
	require.NoError(t, err)

	tooLong := strings.Repeat("h", StringBlockLen)
	_, err = NewIndom([]string{"a"}, tooLong, "")
	assert.ErrorIs(t, err, ErrHelpTooLong)
}
