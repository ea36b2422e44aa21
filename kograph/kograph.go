// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kograph

import (
	"sort"
	"sync/atomic"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
)

// KOccurrence is one occurrence of a k-mer at a reference position.
type KOccurrence struct {
	Chrom  int
	Offset PosType
	Strand Strand
}

// RefContig is one reference sequence to index.
type RefContig struct {
	Name  string
	Bases []dna.Nucleotide
}

// KOGraph is a flat, slot-indexed occurrence list: Occurrences(slot)
// returns every reference position where slot's k-mer occurs, sorted by
// (chrom, offset).
type KOGraph struct {
	g        *graph.Graph
	first    []uint64
	count    []uint32
	occurs   []KOccurrence
	registry *ChromRegistry
	bases    [][]dna.Nucleotide
}

// Build indexes every k-mer of every contig against g, inserting any
// k-mer not already present. Of the three build passes (count, place,
// sort), only the count pass runs one goroutine per contig via
// traverse.Each; the placement pass and the final per-slot sort run
// single-threaded after it.
func Build(g *graph.Graph, contigs []RefContig) (*KOGraph, error) {
	registry := NewChromRegistry()
	chromIDs := make([]int, len(contigs))
	bases := make([][]dna.Nucleotide, len(contigs))
	for i, c := range contigs {
		chromIDs[i] = registry.GetOrAdd(c.Name, len(c.Bases))
		bases[chromIDs[i]] = c.Bases
	}

	capacity := g.Table.Capacity()
	counts := make([]uint32, capacity)

	type placement struct {
		slot   uint64
		occ    KOccurrence
	}
	placementsByContig := make([][]placement, len(contigs))

	err := traverse.Each(len(contigs), func(i int) error {
		c := contigs[i]
		k := g.K
		if len(c.Bases) < k {
			return nil
		}
		local := make([]placement, 0, len(c.Bases)-k+1)
		for off := 0; off+k <= len(c.Bases); off++ {
			window := c.Bases[off : off+k]
			bk := dna.FromUnpacked(window)
			canon := dna.Canonical(bk, k)
			slot, _, err := g.FindOrInsert(canon)
			if err != nil {
				return err
			}
			strand := Plus
			if !bk.Equal(canon) {
				strand = Minus
			}
			atomic.AddUint32(&counts[slot], 1)
			local = append(local, placement{slot: slot, occ: KOccurrence{
				Chrom:  chromIDs[i],
				Offset: PosType(off),
				Strand: strand,
			}})
		}
		placementsByContig[i] = local
		return nil
	})
	if err != nil {
		return nil, err
	}

	first := make([]uint64, capacity)
	var total uint64
	for s := uint64(0); s < capacity; s++ {
		first[s] = total
		total += uint64(counts[s])
	}

	occurs := make([]KOccurrence, total)
	cursor := make([]uint64, capacity)
	copy(cursor, first)
	for _, local := range placementsByContig {
		for _, p := range local {
			idx := atomic.AddUint64(&cursor[p.slot], 1) - 1
			occurs[idx] = p.occ
		}
	}

	for s := uint64(0); s < capacity; s++ {
		block := occurs[first[s] : first[s]+uint64(counts[s])]
		sort.Slice(block, func(i, j int) bool {
			if block[i].Chrom != block[j].Chrom {
				return block[i].Chrom < block[j].Chrom
			}
			return block[i].Offset < block[j].Offset
		})
	}

	return &KOGraph{g: g, first: first, count: counts, occurs: occurs, registry: registry, bases: bases}, nil
}

// Num returns how many reference occurrences slot has.
func (k *KOGraph) Num(slot uint64) int { return int(k.count[slot]) }

// Occurrences returns slot's occurrence list, sorted by (chrom, offset).
func (k *KOGraph) Occurrences(slot uint64) []KOccurrence {
	return k.occurs[k.first[slot] : k.first[slot]+uint64(k.count[slot])]
}

// Registry returns the chromosome-name registry built alongside the index.
func (k *KOGraph) Registry() *ChromRegistry { return k.registry }

// Bases returns the literal reference bases of chrom, in the same
// zero-based coordinates Occurrences reports. Used to re-anchor a flank
// whose crawl lost exact k-mer contact with the reference partway through
// (see ApproximateMatch), not for bulk sequence retrieval.
func (k *KOGraph) Bases(chrom int) []dna.Nucleotide { return k.bases[chrom] }
