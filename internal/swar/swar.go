// Package swar provides SWAR (SIMD Within A Register) scanning primitives
// used by the input fast paths and the kickstart skip loops.
//
// All functions are pure Go. On CPUs with wide vector units the scan loops
// are unrolled further; the decision is made once at init via
// golang.org/x/sys/cpu.
package swar

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// wideScan is true when the host CPU has vector units wide enough that the
// memory system, not the ALU, bounds a 32-byte unrolled loop.
var wideScan = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

const (
	lo8 = uint64(0x0101010101010101)
	hi8 = uint64(0x8080808080808080)
)

// IsASCII reports whether every byte in data is below 0x80.
//
// The check processes 8 bytes at a time by AND-ing against the high-bit
// mask; a non-zero result means at least one byte has bit 7 set.
func IsASCII(data []byte) bool {
	i := 0
	if wideScan {
		for i+32 <= len(data) {
			a := binary.LittleEndian.Uint64(data[i:])
			b := binary.LittleEndian.Uint64(data[i+8:])
			c := binary.LittleEndian.Uint64(data[i+16:])
			d := binary.LittleEndian.Uint64(data[i+24:])
			if (a|b|c|d)&hi8 != 0 {
				return false
			}
			i += 32
		}
	}
	for i+8 <= len(data) {
		if binary.LittleEndian.Uint64(data[i:])&hi8 != 0 {
			return false
		}
		i += 8
	}
	for ; i < len(data); i++ {
		if data[i] >= 0x80 {
			return false
		}
	}
	return true
}

// hasZeroByte reports whether any byte of v is zero.
// Classic SWAR: (v - 0x01...) & ^v & 0x80... is non-zero iff a byte is zero.
func hasZeroByte(v uint64) bool {
	return (v-lo8)&^v&hi8 != 0
}

// Memchr returns the index of the first occurrence of needle in haystack,
// or -1 if needle is not present.
//
// The scan XORs 8-byte chunks against a broadcast of the needle and uses
// the zero-byte trick to detect a hit, then resolves the exact offset with
// a short byte loop.
func Memchr(haystack []byte, needle byte) int {
	bcast := lo8 * uint64(needle)
	i := 0
	if wideScan {
		for i+32 <= len(haystack) {
			a := binary.LittleEndian.Uint64(haystack[i:]) ^ bcast
			b := binary.LittleEndian.Uint64(haystack[i+8:]) ^ bcast
			c := binary.LittleEndian.Uint64(haystack[i+16:]) ^ bcast
			d := binary.LittleEndian.Uint64(haystack[i+24:]) ^ bcast
			if hasZeroByte(a) || hasZeroByte(b) || hasZeroByte(c) || hasZeroByte(d) {
				break
			}
			i += 32
		}
	}
	for i+8 <= len(haystack) {
		if hasZeroByte(binary.LittleEndian.Uint64(haystack[i:]) ^ bcast) {
			break
		}
		i += 8
	}
	for ; i < len(haystack); i++ {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}
