// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package dna implements the packed 2-bit nucleotide sequence codec and the
// canonical binary k-mer representation that the rest of the graph engine is
// built on. A DNA string is stored as one byte per base (values 0..3) while
// it's being assembled, and packed four bases per byte (LSB-first) once it's
// handed off to the hash table, link store, or written to disk.
package dna

import (
	"github.com/grailbio/bio/biosimd"
	"github.com/pkg/errors"
)

// Nucleotide is a single 2-bit DNA base: A=0, C=1, G=2, T=3.
type Nucleotide uint8

// The four DNA bases, matching mccortex's binary_seq.h / dna.h encoding.
const (
	A Nucleotide = 0
	C Nucleotide = 1
	G Nucleotide = 2
	T Nucleotide = 3
)

var baseToChar = [4]byte{'A', 'C', 'G', 'T'}

// String returns the single-character ASCII representation of n.
func (n Nucleotide) String() string {
	return string(baseToChar[n&3])
}

var charToBase [256]int8

func init() {
	for i := range charToBase {
		charToBase[i] = -1
	}
	charToBase['A'], charToBase['a'] = 0, 0
	charToBase['C'], charToBase['c'] = 1, 1
	charToBase['G'], charToBase['g'] = 2, 2
	charToBase['T'], charToBase['t'] = 3, 3
}

// CharToNucleotide converts an ASCII base character to a Nucleotide. It
// returns an error for anything other than [ACGTacgt].
func CharToNucleotide(c byte) (Nucleotide, error) {
	v := charToBase[c]
	if v < 0 {
		return 0, errors.Errorf("dna: invalid base character %q", c)
	}
	return Nucleotide(v), nil
}

// Complement returns the Watson-Crick complement of n (A<->T, C<->G), which
// in this 0..3 encoding is simply n^3.
func (n Nucleotide) Complement() Nucleotide {
	return n ^ 3
}

// UnpackedFromString converts an ASCII DNA string into one-Nucleotide-per-
// byte form. It returns an error if any character isn't in [ACGTacgt].
func UnpackedFromString(s string) ([]Nucleotide, error) {
	out := make([]Nucleotide, len(s))
	for i := 0; i < len(s); i++ {
		n, err := CharToNucleotide(s[i])
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// UnpackedToString converts one-Nucleotide-per-byte form back to an ASCII
// DNA string.
func UnpackedToString(bases []Nucleotide) string {
	buf := make([]byte, len(bases))
	for i, n := range bases {
		buf[i] = baseToChar[n&3]
	}
	return string(buf)
}

// ReverseComplementUnpacked reverse-complements bases in place. It reuses
// biosimd's ACGT-as-byte reverse-complement, since Nucleotide's 0..3 encoding
// is exactly the encoding biosimd.ReverseComp2Inplace assumes.
func ReverseComplementUnpacked(bases []Nucleotide) {
	raw := make([]byte, len(bases))
	for i, n := range bases {
		raw[i] = byte(n)
	}
	biosimd.ReverseComp2Inplace(raw)
	for i, b := range raw {
		bases[i] = Nucleotide(b)
	}
}
