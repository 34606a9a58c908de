// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Bit widths of the identifier components (spec section 3/8).
const (
	ItemBitLen     = 10
	IndomBitLen    = 22
	ClusterBitLen  = 12
	instanceBitLen = 32
)

// itemID derives the 10-bit item id for a metric name by hashing its
// UTF-8 bytes with xxHash64 and masking to the low ItemBitLen bits. If
// the result is zero (which would be an invalid, unaddressable item),
// it rehashes with an incrementing salt until non-zero.
func itemID(name string) uint32 {
	return deriveID(name, ItemBitLen)
}

// indomID derives the 22-bit indom id for an ordered sequence of
// instance names, hashing them in order so that two indoms with the
// same instances in a different order get different ids.
func indomID(instances []string) uint32 {
	joined := strings.Join(instances, "\x00")
	return deriveID(joined, IndomBitLen)
}

// instanceInternalID derives the signed 32-bit internal id stored in
// each instance block.
func instanceInternalID(name string) int32 {
	return int32(uint32(xxhash.Sum64String(name)))
}

// deriveID hashes s with xxHash64, masks to the low bits bits, and
// rehashes with a salt on a zero result (zero ids are reserved to mean
// "absent" throughout the format).
func deriveID(s string, bits uint) uint32 {
	mask := uint64(1)<<bits - 1
	h := xxhash.Sum64String(s)
	id := uint32(h & mask)
	salt := 0
	for id == 0 {
		salt++
		h = xxhash.Sum64String(s + "\x00" + strconv.Itoa(salt))
		id = uint32(h & mask)
	}
	return id
}

func isValidIndom(x uint32) bool { return x != 0 && x>>IndomBitLen == 0 }
func isValidItem(x uint32) bool  { return x != 0 && x>>ItemBitLen == 0 }
func isValidClusterID(x uint32) bool { return x>>ClusterBitLen == 0 }
func isValidOffset(x uint64) bool    { return x != 0 }
