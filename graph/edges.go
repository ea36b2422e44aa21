// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graph

import "github.com/grailbio/bio/dna"

// Edges is a single byte encoding, per (node, color), which bases can
// follow a k-mer in each orientation: the low nibble is the forward exit
// set, the high nibble the reverse exit set, with bit i of a nibble meaning
// "there's an edge to the node you get by appending base i".
type Edges uint8

// nibbleBitTable[nibble] gives, for each of the 16 possible nibble values,
// the list of set base indices. A table lookup is a branchless alternative
// to a per-bit loop.
var nibbleBitTable = func() [16][]dna.Nucleotide {
	var t [16][]dna.Nucleotide
	for nibble := 0; nibble < 16; nibble++ {
		var bases []dna.Nucleotide
		for b := 0; b < 4; b++ {
			if nibble&(1<<uint(b)) != 0 {
				bases = append(bases, dna.Nucleotide(b))
			}
		}
		t[nibble] = bases
	}
	return t
}()

func (e Edges) nibble(orient Orient) uint8 {
	if orient == Forward {
		return uint8(e) & 0xf
	}
	return uint8(e) >> 4
}

// Bases returns the set of bases reachable from a node in the given
// orientation.
func (e Edges) Bases(orient Orient) []dna.Nucleotide {
	return nibbleBitTable[e.nibble(orient)]
}

// OutDegree returns the number of outgoing edges in the given orientation.
func (e Edges) OutDegree(orient Orient) int {
	return len(nibbleBitTable[e.nibble(orient)])
}

// HasEdge reports whether there's an edge to base in the given orientation.
func (e Edges) HasEdge(orient Orient, base dna.Nucleotide) bool {
	return e.nibble(orient)&(1<<uint(base&3)) != 0
}

// WithEdge returns e with the (orient, base) bit set.
func (e Edges) WithEdge(orient Orient, base dna.Nucleotide) Edges {
	bit := uint8(1) << uint(base&3)
	if orient == Forward {
		return e | Edges(bit)
	}
	return e | Edges(bit<<4)
}
