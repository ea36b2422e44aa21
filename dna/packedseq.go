// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package dna

import "github.com/pkg/errors"

// PackedLen returns the number of bytes needed to pack nbases bases, four
// bases per byte.
func PackedLen(nbases int) int {
	return (nbases + 3) / 4
}

// Get fetches the base at index i of a packed sequence (four bases per byte,
// LSB-first within each byte). ptr must point directly at the packed bytes.
//
// Grounded on original_source/src/basic/binary_seq.h's binary_seq_get.
func Get(ptr []byte, i int) Nucleotide {
	byteIdx := i >> 2
	offset := uint(i&3) * 2
	return Nucleotide((ptr[byteIdx] >> offset) & 3)
}

// packSetMasks[k] clears the 2 bits at sub-byte position k, ready to be
// OR'd with a new base value shifted into place.
var packSetMasks = [4]byte{0xfc, 0xf3, 0xcf, 0x3f}

// Set writes nuc at index i of a packed sequence. It clears the target 2
// bits with a mask before OR-ing nuc into place, so the other bases in the
// byte are left unchanged and ptr need not be zeroed first.
//
// Grounded on original_source/src/basic/binary_seq.h's binary_seq_set.
func Set(ptr []byte, i int, nuc Nucleotide) {
	byteIdx := i >> 2
	sub := uint(i & 3)
	offset := sub * 2
	ptr[byteIdx] = (ptr[byteIdx] & packSetMasks[sub]) | (byte(nuc) << offset)
}

// Pack converts an unpacked (one Nucleotide per byte) sequence into packed
// (four bases per byte, LSB-first) form, writing PackedLen(len(bases)) bytes
// to dst. Those bytes are zeroed first, so the unused high bits of the final
// byte come out zero. It panics if dst is shorter than that.
func Pack(dst []byte, bases []Nucleotide) {
	n := len(bases)
	need := PackedLen(n)
	if len(dst) < need {
		panic("dna.Pack: dst too short")
	}
	for i := range dst[:need] {
		dst[i] = 0
	}
	for i, b := range bases {
		Set(dst, i, b)
	}
}

// Unpack converts a packed sequence back into one Nucleotide per byte,
// reading n bases starting at the first base in src.
func Unpack(src []byte, n int) []Nucleotide {
	out := make([]Nucleotide, n)
	for i := range out {
		out[i] = Get(src, i)
	}
	return out
}

// ReverseComplement reverse-complements a packed sequence of n bases,
// returning a freshly packed buffer. It unpacks, reverse-complements via
// biosimd (see ReverseComplementUnpacked), then repacks: packed 2-bit/4-per-
// byte data has no SIMD-friendly bulk revcomp anywhere in the retrieved
// ecosystem, but the intermediate unpacked representation does.
func ReverseComplement(src []byte, n int) []byte {
	bases := Unpack(src, n)
	ReverseComplementUnpacked(bases)
	// reverse-complementing the unpacked array reverses base order in place,
	// so bases is now in revcomp order already.
	dst := make([]byte, PackedLen(n))
	Pack(dst, bases)
	return dst
}

// ShiftCopy copies n-shift bases from src to dst, skipping the first `shift`
// leading bases of src. Output has n-shift bases, packed from base 0.
//
// Grounded on original_source/src/basic/binary_seq.h's binary_seq_cpy family
// (cpy_slow/med/fast all implement this same contract at different speeds;
// this is the portable, "slow" shape, which is all a pure-Go implementation
// needs since there's no SIMD gather primitive for sub-byte shifts in the
// retrieved ecosystem).
func ShiftCopy(dst, src []byte, shift, n int) error {
	if shift > n {
		return errors.Errorf("dna.ShiftCopy: shift %d exceeds length %d", shift, n)
	}
	outLen := n - shift
	need := PackedLen(outLen)
	if len(dst) < need {
		return errors.Errorf("dna.ShiftCopy: dst too short: have %d need %d", len(dst), need)
	}
	for i := range dst[:need] {
		dst[i] = 0
	}
	for i := 0; i < outLen; i++ {
		Set(dst, i, Get(src, i+shift))
	}
	return nil
}
