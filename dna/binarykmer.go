// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package dna

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// BinaryKmer is a k-mer packed into ceil(k/32) 64-bit words. The base at
// position 0 occupies the highest 2 bits of word 0, and bases fill each word
// from high bits to low before spilling into the next word — this is a
// different bit order from the general PackedSeq codec (which is LSB-first,
// four bases per byte), matching mccortex's dedicated binary-kmer layout.
//
// Hash-table keys are always stored in canonical form: see Canonical.
type BinaryKmer []uint64

// NumWords returns ceil(k/32), the number of 64-bit words a k-mer of size k
// needs.
func NumWords(k int) int {
	return (k + 31) / 32
}

// NewBinaryKmer allocates a zeroed BinaryKmer sized for k-mers of length k.
func NewBinaryKmer(k int) BinaryKmer {
	return make(BinaryKmer, NumWords(k))
}

func wordAndShift(i int) (word int, shift uint) {
	word = i / 32
	shift = uint(31-(i%32)) * 2
	return
}

// Get returns the base at position i (0-indexed from the 5' end).
func (bk BinaryKmer) Get(i int) Nucleotide {
	w, s := wordAndShift(i)
	return Nucleotide((bk[w] >> s) & 3)
}

// Set writes the base at position i.
func (bk BinaryKmer) Set(i int, n Nucleotide) {
	w, s := wordAndShift(i)
	bk[w] = (bk[w] &^ (3 << s)) | (uint64(n&3) << s)
}

// FromUnpacked packs bases (one Nucleotide per byte) into a new BinaryKmer.
func FromUnpacked(bases []Nucleotide) BinaryKmer {
	bk := NewBinaryKmer(len(bases))
	for i, b := range bases {
		bk.Set(i, b)
	}
	return bk
}

// FromString packs an ASCII DNA string into a new BinaryKmer.
func FromString(s string) (BinaryKmer, error) {
	bases, err := UnpackedFromString(s)
	if err != nil {
		return nil, err
	}
	return FromUnpacked(bases), nil
}

// String unpacks bk (k bases) back to an ASCII DNA string.
func (bk BinaryKmer) String(k int) string {
	buf := make([]byte, k)
	for i := 0; i < k; i++ {
		buf[i] = baseToChar[bk.Get(i)&3]
	}
	return string(buf)
}

// Clone returns an independent copy of bk.
func (bk BinaryKmer) Clone() BinaryKmer {
	out := make(BinaryKmer, len(bk))
	copy(out, bk)
	return out
}

// Equal reports whether bk and other represent the same word sequence.
func (bk BinaryKmer) Equal(other BinaryKmer) bool {
	if len(bk) != len(other) {
		return false
	}
	for i := range bk {
		if bk[i] != other[i] {
			return false
		}
	}
	return true
}

// Compare does a whole-word unsigned lexicographic comparison of bk against
// other (most significant word first), returning -1, 0, or 1. This is the
// comparison canonicalization is defined in terms of.
func (bk BinaryKmer) Compare(other BinaryKmer) int {
	for i := range bk {
		if bk[i] < other[i] {
			return -1
		}
		if bk[i] > other[i] {
			return 1
		}
	}
	return 0
}

// ReverseComplement returns the reverse complement of bk, a k-base k-mer.
func (bk BinaryKmer) ReverseComplement(k int) BinaryKmer {
	out := NewBinaryKmer(k)
	for i := 0; i < k; i++ {
		out.Set(k-1-i, bk.Get(i).Complement())
	}
	return out
}

// Canonical returns the canonical form of the k-base k-mer bk: the
// lexicographically smaller of bk and its reverse complement, under
// Compare's whole-word unsigned ordering.
func Canonical(bk BinaryKmer, k int) BinaryKmer {
	rc := bk.ReverseComplement(k)
	if bk.Compare(rc) <= 0 {
		return bk
	}
	return rc
}

// Bytes returns the big-endian byte encoding of bk's words, suitable for use
// as a map key or for writing to a graph file's per-k-mer binary k-mer field.
func (bk BinaryKmer) Bytes() []byte {
	buf := make([]byte, len(bk)*8)
	for i, w := range bk {
		binary.BigEndian.PutUint64(buf[i*8:], w)
	}
	return buf
}

// BinaryKmerFromBytes parses the big-endian word encoding produced by Bytes.
func BinaryKmerFromBytes(b []byte) (BinaryKmer, error) {
	if len(b)%8 != 0 {
		return nil, errors.Errorf("dna: k-mer byte length %d not a multiple of 8", len(b))
	}
	bk := make(BinaryKmer, len(b)/8)
	r := bytes.NewReader(b)
	for i := range bk {
		if err := binary.Read(r, binary.BigEndian, &bk[i]); err != nil {
			return nil, errors.Wrap(err, "dna: reading k-mer words")
		}
	}
	return bk, nil
}

// Key is a fixed-size comparable representation of a BinaryKmer suitable for
// use as a Go map key (the hash table in package graph uses its own
// open-addressed scheme instead, but test code and small indexes benefit
// from a plain map-friendly key).
type Key string

// AsKey returns bk's byte encoding as a Key.
func (bk BinaryKmer) AsKey() Key {
	return Key(bk.Bytes())
}
