// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graph

import (
	"math"
	"sync/atomic"

	"github.com/grailbio/bio/dna"
)

// Graph is the colored de Bruijn graph: a concurrent hash table of
// canonical k-mers (HashTable) plus, per slot and per color, a saturating
// coverage counter and a forward/reverse edge nibble pair.
type Graph struct {
	Table   *HashTable
	K       int
	NumCols int

	// covgs[slot*NumCols+col] and edges[slot*NumCols+col] are the per-color
	// arrays, aligned with the hash table by slot.
	covgs []uint32
	edges []Edges

	// inCols, if non-nil, is a presence bitset: bit slot*NumCols+col set
	// means color col has ever been observed at slot. Optional since most
	// callers can derive presence from coverage being nonzero.
	inCols []uint64
}

// Options configures a new Graph. A caller assembles Options directly; CLI
// parsing of these values lives in the command that builds a Graph.
type Options struct {
	NumBuckets    uint64
	BucketSize    int
	KmerSize      int
	NumColors     int
	TrackPresence bool
}

// NewGraph allocates a Graph per opts.
func NewGraph(opts Options) *Graph {
	table := NewHashTable(opts.NumBuckets, opts.BucketSize, dna.NumWords(opts.KmerSize))
	capacity := table.Capacity()
	g := &Graph{
		Table:   table,
		K:       opts.KmerSize,
		NumCols: opts.NumColors,
		covgs:   make([]uint32, capacity*uint64(opts.NumColors)),
		edges:   make([]Edges, capacity*uint64(opts.NumColors)),
	}
	if opts.TrackPresence {
		nWords := (capacity*uint64(opts.NumColors) + 63) / 64
		g.inCols = make([]uint64, nWords)
	}
	return g
}

func (g *Graph) index(slot uint64, col int) uint64 {
	return slot*uint64(g.NumCols) + uint64(col)
}

// Covg returns the saturating coverage counter for (slot, col).
func (g *Graph) Covg(slot uint64, col int) uint32 {
	return atomic.LoadUint32(&g.covgs[g.index(slot, col)])
}

// AddCovg adds delta to (slot, col)'s coverage, saturating at MaxUint32
// instead of wrapping.
func (g *Graph) AddCovg(slot uint64, col int, delta uint32) {
	idx := g.index(slot, col)
	for {
		old := atomic.LoadUint32(&g.covgs[idx])
		next := uint64(old) + uint64(delta)
		if next > math.MaxUint32 {
			next = math.MaxUint32
		}
		if atomic.CompareAndSwapUint32(&g.covgs[idx], old, uint32(next)) {
			return
		}
	}
}

// Edges returns the edge byte for (slot, col).
func (g *Graph) Edges(slot uint64, col int) Edges {
	return g.edges[g.index(slot, col)]
}

// AddEdge records an edge from slot to the node reached by appending base,
// in the given orientation, for color col. Not safe to call concurrently
// with another AddEdge on the same (slot, col) without an external lock;
// callers serialize graph construction per k-mer via the hash table's
// bucket lock (HashTable.LockSlot). FindOrInsert releases that lock before
// it returns, so the caller has to take it again.
func (g *Graph) AddEdge(slot uint64, col int, orient Orient, base dna.Nucleotide) {
	idx := g.index(slot, col)
	g.edges[idx] = g.edges[idx].WithEdge(orient, base)
}

// SetEdges overwrites (slot, col)'s whole edge byte, for loading a graph
// back from a file where each k-mer's edges were already resolved. Not
// safe to call concurrently with AddEdge/SetEdges on the same (slot, col).
func (g *Graph) SetEdges(slot uint64, col int, e Edges) {
	g.edges[g.index(slot, col)] = e
}

// SetInColor marks color col as present at slot, if presence tracking is
// enabled.
func (g *Graph) SetInColor(slot uint64, col int) {
	if g.inCols == nil {
		return
	}
	bit := g.index(slot, col)
	word, off := bit/64, uint(bit%64)
	for {
		old := atomic.LoadUint64(&g.inCols[word])
		next := old | (uint64(1) << off)
		if old == next || atomic.CompareAndSwapUint64(&g.inCols[word], old, next) {
			return
		}
	}
}

// InColor reports whether color col has been observed at slot. Always true
// if presence tracking is disabled and the slot exists (the table itself is
// the only presence record in that mode).
func (g *Graph) InColor(slot uint64, col int) bool {
	if g.inCols == nil {
		return true
	}
	bit := g.index(slot, col)
	word, off := bit/64, uint(bit%64)
	return atomic.LoadUint64(&g.inCols[word])&(uint64(1)<<off) != 0
}

// Kmer returns the canonical k-mer stored at slot.
func (g *Graph) Kmer(slot uint64) dna.BinaryKmer {
	return g.Table.slotKey(slot)
}

// FindOrInsert finds or inserts bkmer's canonical form, returning its slot.
func (g *Graph) FindOrInsert(bkmer dna.BinaryKmer) (slot uint64, inserted bool, err error) {
	return g.Table.FindOrInsert(dna.Canonical(bkmer, g.K))
}

// Find looks up bkmer's canonical form.
func (g *Graph) Find(bkmer dna.BinaryKmer) (slot uint64, found bool) {
	return g.Table.Find(dna.Canonical(bkmer, g.K))
}

// orientedKmer returns the k-mer as read in the given orientation: the
// stored canonical k-mer itself for Forward, its reverse complement for
// Reverse.
func (g *Graph) orientedKmer(slot uint64, orient Orient) dna.BinaryKmer {
	bk := g.Kmer(slot)
	if orient == Forward {
		return bk
	}
	return bk.ReverseComplement(g.K)
}

// NextNode pairs a successor node with the base that was appended to reach
// it.
type NextNode struct {
	Node DBNode
	Base dna.Nucleotide
}

// OrientedKmer returns the k-mer stored at slot as read in orient: the
// canonical k-mer itself for Forward, its reverse complement for Reverse.
func (g *Graph) OrientedKmer(slot uint64, orient Orient) dna.BinaryKmer {
	return g.orientedKmer(slot, orient)
}

// ContigBases assembles the sequence spelled out by a chain of overlapping
// nodes: the full k-mer of the first node, then one base per subsequent
// node (each overlaps its predecessor by K-1 bases, the standard de Bruijn
// successor relationship). Returns nil for an empty chain.
func (g *Graph) ContigBases(nodes []DBNode) []dna.Nucleotide {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]dna.Nucleotide, 0, g.K+len(nodes)-1)
	first := g.orientedKmer(nodes[0].Key, nodes[0].Orient)
	for i := 0; i < g.K; i++ {
		out = append(out, first.Get(i))
	}
	for _, n := range nodes[1:] {
		oriented := g.orientedKmer(n.Key, n.Orient)
		out = append(out, oriented.Get(g.K-1))
	}
	return out
}

// shiftAppend returns the k-mer formed by dropping kmer's first base and
// appending newBase at the end: the standard de Bruijn successor operation.
func shiftAppend(kmer dna.BinaryKmer, k int, newBase dna.Nucleotide) dna.BinaryKmer {
	out := dna.NewBinaryKmer(k)
	for i := 1; i < k; i++ {
		out.Set(i-1, kmer.Get(i))
	}
	out.Set(k-1, newBase)
	return out
}

// NextNodes enumerates the outgoing edges of node in edges' nibble for
// node.Orient, returning the successor node (with its own orientation
// resolved relative to the table's canonical storage) and the base used to
// reach it for each.
func (g *Graph) NextNodes(node DBNode, edges Edges) []NextNode {
	oriented := g.orientedKmer(node.Key, node.Orient)
	bases := edges.Bases(node.Orient)
	out := make([]NextNode, 0, len(bases))
	for _, base := range bases {
		succ := shiftAppend(oriented, g.K, base)
		canon := dna.Canonical(succ, g.K)
		slot, found := g.Table.Find(canon)
		if !found {
			continue
		}
		orient := Forward
		if !succ.Equal(canon) {
			orient = Reverse
		}
		out = append(out, NextNode{Node: DBNode{Key: slot, Orient: orient}, Base: base})
	}
	return out
}
