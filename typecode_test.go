// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeCodeOf(t *testing.T) {
	assert.Equal(t, TypeI32, typeCodeOf[int32]())
	assert.Equal(t, TypeU32, typeCodeOf[uint32]())
	assert.Equal(t, TypeI64, typeCodeOf[int64]())
	assert.Equal(t, TypeU64, typeCodeOf[uint64]())
	assert.Equal(t, TypeF32, typeCodeOf[float32]())
	assert.Equal(t, TypeF64, typeCodeOf[float64]())
	assert.Equal(t, TypeString, typeCodeOf[string]())
}

func TestEncodeDecodeNumericRoundTrip(t *testing.T) {
	slot := encodeNumeric(int64(-42))
	v, err := decodeSlot(TypeI64, slot, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), v)

	slot = encodeNumeric(float64(3.25))
	v, err = decodeSlot(TypeF64, slot, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3.25), v)

	slot = encodeNumeric(uint32(7))
	v, err = decodeSlot(TypeU32, slot, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
}

func TestEncodeDecodeStringRoundTrip(t *testing.T) {
	cell := encodeString("hello")
	assert.Equal(t, "hello", decodeCString(cell[:]))
}

func TestDecodeSlotInvalidTypeCode(t *testing.T) {
	_, err := decodeSlot(TypeCode(99), [8]byte{}, nil)
	assert.ErrorIs(t, err, ErrInvalidTypeCode)
}

func TestTypeCodeValid(t *testing.T) {
	assert.True(t, TypeString.Valid())
	assert.False(t, TypeCode(7).Valid())
}
