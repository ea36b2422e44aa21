// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package kograph builds and queries a k-mer occurrence index: for every
// k-mer of a set of reference contigs, the (chromosome, offset, strand)
// positions where it occurs. A graph walk can consult the index to tell
// whether it has wandered back onto the reference, and if so where.
package kograph

import (
	"strings"

	"github.com/biogo/store/llrb"
)

// PosType is a 0-based reference coordinate.
type PosType int64

// Strand records which strand of a contig a k-mer occurrence was read on.
type Strand uint8

const (
	Plus  Strand = 0
	Minus Strand = 1
)

// Contig names one reference sequence by its registry-assigned id.
type Contig struct {
	ID     int
	Name   string
	Length int
}

// chromEntry is the llrb.Comparable stored in the registry, ordered by
// name so an in-order walk yields deterministic, sorted contig output
// (matching what the breakpoint caller's JSON header needs).
type chromEntry struct {
	name   string
	id     int
	length int
}

func (c chromEntry) Compare(other llrb.Comparable) int {
	return strings.Compare(c.name, other.(chromEntry).name)
}

// ChromRegistry assigns small integer ids to contig names in first-seen
// order, while keeping a name-sorted index for deterministic iteration.
type ChromRegistry struct {
	tree llrb.Tree
	byID []chromEntry
}

// NewChromRegistry returns an empty registry.
func NewChromRegistry() *ChromRegistry {
	return &ChromRegistry{}
}

// GetOrAdd returns name's id, assigning one (and recording length) if this
// is the first time name has been seen.
func (r *ChromRegistry) GetOrAdd(name string, length int) int {
	probe := chromEntry{name: name}
	if v := r.tree.Get(probe); v != nil {
		return v.(chromEntry).id
	}
	e := chromEntry{name: name, id: len(r.byID), length: length}
	r.tree.Insert(e)
	r.byID = append(r.byID, e)
	return e.id
}

// Name returns the contig name for id.
func (r *ChromRegistry) Name(id int) string { return r.byID[id].name }

// Length returns the contig length for id.
func (r *ChromRegistry) Length(id int) int { return r.byID[id].length }

// Contigs returns every registered contig sorted by name.
func (r *ChromRegistry) Contigs() []Contig {
	out := make([]Contig, 0, len(r.byID))
	r.tree.Do(func(c llrb.Comparable) bool {
		e := c.(chromEntry)
		out = append(out, Contig{ID: e.id, Name: e.name, Length: e.length})
		return false
	})
	return out
}
