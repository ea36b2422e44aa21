// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package gpath implements the colored link/path store: an append-only
// record arena plus a per-k-mer singly linked chain of junction-choice
// records, each tagged with the set of colors that observed it. It is the
// data structure a graph walker consults to resolve repeat-induced branches
// that local coverage alone can't.
package gpath

import (
	"encoding/binary"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/pkg/errors"
)

// noPrev marks the head of a chain: a record with Prev == noPrev has no
// predecessor.
const noPrev = ^uint64(0)

// Record is the decoded view of one path entry: the junction choices seen
// after leaving some k-mer in some orientation, together with the colors
// that contributed to it.
type Record struct {
	Offset   uint64 // this record's byte offset in the arena, used as its address
	Prev     uint64 // offset of the previous record in the same slot's chain, or noPrev
	Orient   graph.Orient
	NumKmers int      // path length measured in k-mers
	NumJuncs int      // number of junction choices packed into Seq
	Colset   []byte   // ceil(numCols/8) bytes, bit c set means color c took this path
	Seq      []byte   // ceil(NumJuncs/4) bytes, 2-bit-packed junction bases (dna.PackedSeq layout)
	NSeen    []uint8  // numCols entries, saturating per-color observation count
}

// HasColor reports whether color col is recorded against r.
func (r *Record) HasColor(col int) bool {
	return r.Colset[col/8]&(1<<uint(col%8)) != 0
}

func (r *Record) setColor(col int) {
	r.Colset[col/8] |= 1 << uint(col%8)
}

// Junction returns the base chosen at the i-th junction, 0-indexed from the
// start of the path.
func (r *Record) Junction(i int) dna.Nucleotide {
	return dna.Get(r.Seq, i)
}

const maxNSeen = 0xff

func bumpNSeen(n uint8) uint8 {
	if n == maxNSeen {
		return n
	}
	return n + 1
}

// colsetLen and seqLen compute the packed byte lengths used throughout the
// encode/decode routines below.
func colsetLen(numCols int) int { return (numCols + 7) / 8 }
func seqLen(numJuncs int) int   { return dna.PackedLen(numJuncs) }

// encode serializes a record's fields (Offset excluded, since it's only
// known once allocated) into a self-describing byte sequence: an 8-byte
// prev pointer, a varint-encoded (numKmers, numJuncs, orient) triple, then
// colset, seq and nseen at their fixed-given-numCols widths.
func encode(prev uint64, orient graph.Orient, numKmers, numJuncs int, colset, seq []byte, nseen []uint8) []byte {
	var hdr [binary.MaxVarintLen64*3 + 8]byte
	binary.BigEndian.PutUint64(hdr[:8], prev)
	n := 8
	n += binary.PutUvarint(hdr[n:], uint64(numKmers))
	n += binary.PutUvarint(hdr[n:], uint64(numJuncs))
	n += binary.PutUvarint(hdr[n:], uint64(orient))

	out := make([]byte, n+len(colset)+len(seq)+len(nseen))
	copy(out, hdr[:n])
	off := n
	off += copy(out[off:], colset)
	off += copy(out[off:], seq)
	copy(out[off:], byteSliceFromUint8(nseen))
	return out
}

func byteSliceFromUint8(nseen []uint8) []byte {
	// uint8 and byte are the same underlying type; this conversion exists
	// only to make the call site above read naturally.
	return nseen
}

// decode parses a record previously written by encode out of arena starting
// at offset, given the store's fixed numCols.
func decode(arena []byte, offset uint64, numCols int) (*Record, int, error) {
	if offset+8 > uint64(len(arena)) {
		return nil, 0, errors.New("gpath: record offset out of range")
	}
	prev := binary.BigEndian.Uint64(arena[offset : offset+8])
	pos := offset + 8
	numKmers, n1 := binary.Uvarint(arena[pos:])
	if n1 <= 0 {
		return nil, 0, errors.New("gpath: corrupt numKmers varint")
	}
	pos += uint64(n1)
	numJuncs, n2 := binary.Uvarint(arena[pos:])
	if n2 <= 0 {
		return nil, 0, errors.New("gpath: corrupt numJuncs varint")
	}
	pos += uint64(n2)
	orientVal, n3 := binary.Uvarint(arena[pos:])
	if n3 <= 0 {
		return nil, 0, errors.New("gpath: corrupt orient varint")
	}
	pos += uint64(n3)

	cLen := colsetLen(numCols)
	sLen := seqLen(int(numJuncs))
	total := pos + uint64(cLen) + uint64(sLen) + uint64(numCols)
	if total > uint64(len(arena)) {
		return nil, 0, errors.New("gpath: record extends past arena")
	}

	colset := arena[pos : pos+uint64(cLen)]
	pos += uint64(cLen)
	seq := arena[pos : pos+uint64(sLen)]
	pos += uint64(sLen)
	nseen := arena[pos : pos+uint64(numCols)]

	rec := &Record{
		Offset:   offset,
		Prev:     prev,
		Orient:   graph.Orient(orientVal),
		NumKmers: int(numKmers),
		NumJuncs: int(numJuncs),
		Colset:   colset,
		Seq:      seq,
		NSeen:    nseen,
	}
	return rec, int(total - offset), nil
}

func recordsEqual(numJuncs int, seqA, seqB []byte, orientA, orientB graph.Orient) bool {
	if orientA != orientB {
		return false
	}
	for i := 0; i < numJuncs; i++ {
		if dna.Get(seqA, i) != dna.Get(seqB, i) {
			return false
		}
	}
	return true
}
