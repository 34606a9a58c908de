// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

import "testing"

// FuzzParse feeds arbitrary byte slices to Parse. Every invariant in the
// dump path is a bounds-checked comparison before any slice indexing, so
// the only acceptable outcomes are a clean *Dump or an error — a panic
// here is a real bug.
func FuzzParse(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("MMV\x00"))

	seed := rawFuzzSeed()
	f.Add(seed)

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Parse(data)
	})
}

func rawFuzzSeed() []byte {
	data, err := goldenFixtures.ReadFile("testdata/golden_singleton.mmv")
	if err != nil {
		return nil
	}
	return data
}
