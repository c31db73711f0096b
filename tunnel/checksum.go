// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "encoding/binary"

// checksum computes the 16-bit sum-of-bytes over b, wrapping modulo 2^16
// (spec §4.1, codec law in spec §8).
func checksum(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return sum
}

// appendChecksum appends the big-endian checksum of b to b and returns the
// result.
func appendChecksum(b []byte) []byte {
	sum := checksum(b)
	out := make([]byte, len(b)+2)
	copy(out, b)
	binary.BigEndian.PutUint16(out[len(b):], sum)
	return out
}

// verifyChecksum reports whether the last two bytes of b equal the checksum
// of the preceding bytes.
func verifyChecksum(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	want := binary.BigEndian.Uint16(b[len(b)-2:])
	return checksum(b[:len(b)-2]) == want
}
