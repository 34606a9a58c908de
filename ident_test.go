// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemIDDeterministic(t *testing.T) {
	a := itemID("disk.dev.read")
	b := itemID("disk.dev.read")
	assert.Equal(t, a, b)
	assert.True(t, isValidItem(a))
}

func TestItemIDFitsBitWidth(t *testing.T) {
	id := itemID("network.interface.in.bytes")
	assert.Less(t, id, uint32(1)<<ItemBitLen)
}

func TestIndomIDOrderSensitive(t *testing.T) {
	a := indomID([]string{"eth0", "eth1"})
	b := indomID([]string{"eth1", "eth0"})
	assert.NotEqual(t, a, b)
	assert.True(t, isValidIndom(a))
	assert.True(t, isValidIndom(b))
}

func TestIndomIDFitsBitWidth(t *testing.T) {
	id := indomID([]string{"cpu0", "cpu1", "cpu2"})
	assert.Less(t, id, uint32(1)<<IndomBitLen)
}

func TestInstanceInternalIDDeterministic(t *testing.T) {
	assert.Equal(t, instanceInternalID("cpu0"), instanceInternalID("cpu0"))
}
