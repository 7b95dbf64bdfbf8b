// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package unit

import "fmt"

// VByte expresses a transaction size in virtual bytes as reported by the
// node (BIP141: transaction weight / 4, rounded up).
type VByte uint64

// String returns the string representation of the virtual byte count.
func (vb VByte) String() string {
	return fmt.Sprintf("%d vb", uint64(vb))
}
