// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kograph_test

import (
	"testing"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unpack(t *testing.T, s string) []dna.Nucleotide {
	t.Helper()
	bases, err := dna.UnpackedFromString(s)
	require.NoError(t, err)
	return bases
}

// Reference chr1: AAAATTTTGGGG (k=4). Every reference k-mer must resolve to
// a slot whose occurrence list contains (chr1, its offset, the strand it
// was read on).
func TestBuildIndexesEveryKmer(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 32, BucketSize: 8, KmerSize: 4, NumColors: 1})
	contigs := []kograph.RefContig{{Name: "chr1", Bases: unpack(t, "AAAATTTTGGGG")}}

	ko, err := kograph.Build(g, contigs)
	require.NoError(t, err)

	chrID := ko.Registry().GetOrAdd("chr1", 12)
	for off := 0; off+4 <= 12; off++ {
		kmer, err := dna.FromString(string("AAAATTTTGGGG"[off : off+4]))
		require.NoError(t, err)
		canon := dna.Canonical(kmer, 4)
		slot, found := g.Find(canon)
		require.True(t, found)

		wantStrand := kograph.Plus
		if !kmer.Equal(canon) {
			wantStrand = kograph.Minus
		}

		occs := ko.Occurrences(slot)
		found2 := false
		for _, occ := range occs {
			if occ.Chrom == chrID && occ.Offset == kograph.PosType(off) && occ.Strand == wantStrand {
				found2 = true
			}
		}
		assert.True(t, found2, "offset %d", off)
	}
}

func TestExtendContinuesMatchingRun(t *testing.T) {
	run := kograph.KOccurRun{Chrom: 0, Strand: kograph.Plus, Start: 5, End: 5, QOffset: 0, RunLenKmers: 1}
	next := []kograph.KOccurrence{{Chrom: 0, Offset: 6, Strand: kograph.Plus}}

	kept, ended := kograph.Extend([]kograph.KOccurRun{run}, next, 1, 1, false)
	require.Len(t, kept, 1)
	assert.Empty(t, ended)
	assert.Equal(t, kograph.PosType(6), kept[0].End)
	assert.Equal(t, 2, kept[0].RunLenKmers)
}

func TestExtendRetiresNonContinuingRunIfLongEnough(t *testing.T) {
	run := kograph.KOccurRun{Chrom: 0, Strand: kograph.Plus, Start: 5, End: 7, QOffset: 1, RunLenKmers: 3}
	kept, ended := kograph.Extend([]kograph.KOccurRun{run}, nil, 2, 2, false)
	assert.Empty(t, kept)
	require.Len(t, ended, 1)
	assert.Equal(t, run, ended[0])
}

func TestExtendDropsShortNonContinuingRun(t *testing.T) {
	run := kograph.KOccurRun{Chrom: 0, Strand: kograph.Plus, Start: 5, End: 5, QOffset: 0, RunLenKmers: 1}
	kept, ended := kograph.Extend([]kograph.KOccurRun{run}, nil, 1, 2, false)
	assert.Empty(t, kept)
	assert.Empty(t, ended)
}

func TestExtendPicksUpNewRuns(t *testing.T) {
	next := []kograph.KOccurrence{
		{Chrom: 0, Offset: 10, Strand: kograph.Plus},
		{Chrom: 1, Offset: 20, Strand: kograph.Minus},
	}
	kept, ended := kograph.Extend(nil, next, 3, 1, true)
	assert.Empty(t, ended)
	require.Len(t, kept, 2)
}

func TestFilterDropsShortRuns(t *testing.T) {
	runs := []kograph.KOccurRun{
		{RunLenKmers: 1},
		{RunLenKmers: 5},
	}
	kept := kograph.Filter(runs, 3)
	require.Len(t, kept, 1)
	assert.Equal(t, 5, kept[0].RunLenKmers)
}
