//go:build !unix

// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mmv

// msync is a no-op on platforms without msync(2); mmap-go's Flush
// (called by Writer.Sync alongside this) is the only durability hook
// available there.
func msync(data []byte) error {
	return nil
}
