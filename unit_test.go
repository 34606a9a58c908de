// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitWithSpace(t *testing.T) {
	u, err := NewUnit().WithSpace(MByte, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, u.SpaceDim())
	assert.Equal(t, MByte, u.SpaceScale())
}

func TestUnitWithTimeNegative(t *testing.T) {
	u, err := NewUnit().WithTime(Sec, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, u.TimeDim())
	assert.Equal(t, Sec, u.TimeScale())
}

func TestUnitWithCountRejectsNonOne(t *testing.T) {
	_, err := NewUnit().WithCount(CountScale(1), 1)
	assert.ErrorIs(t, err, ErrInvalidCountScale)
}

func TestUnitDimensionOutOfRange(t *testing.T) {
	_, err := NewUnit().WithSpace(Byte, 8)
	assert.ErrorIs(t, err, ErrDimensionOutOfRange)

	_, err = NewUnit().WithSpace(Byte, -9)
	assert.ErrorIs(t, err, ErrDimensionOutOfRange)
}

func TestUnitDimensionBoundaryAccepted(t *testing.T) {
	u, err := NewUnit().WithSpace(Byte, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, u.SpaceDim())

	u, err = NewUnit().WithSpace(Byte, -8)
	require.NoError(t, err)
	assert.Equal(t, -8, u.SpaceDim())
}

func TestUnitCombinedRoundTrip(t *testing.T) {
	u, err := NewUnit().WithSpace(MByte, 1)
	require.NoError(t, err)
	u, err = u.WithTime(Sec, -1)
	require.NoError(t, err)

	raw := u.Raw()
	u2 := UnitFromRaw(raw)
	assert.Equal(t, 1, u2.SpaceDim())
	assert.Equal(t, MByte, u2.SpaceScale())
	assert.Equal(t, -1, u2.TimeDim())
	assert.Equal(t, Sec, u2.TimeScale())
}

func TestUnitString(t *testing.T) {
	u, err := NewUnit().WithSpace(MByte, 1)
	require.NoError(t, err)
	u, err = u.WithTime(Sec, -1)
	require.NoError(t, err)

	s := u.String()
	assert.Contains(t, s, "Mbyte")
	assert.Contains(t, s, "/")
	assert.Contains(t, s, "sec")
}

func TestUnitStringNone(t *testing.T) {
	assert.Contains(t, NewUnit().String(), "none")
}
