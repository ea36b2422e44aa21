// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import (
	"bytes"
	"sync"
	"testing"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkChain inserts a chain of overlapping literal k-mer strings into g and
// wires every consecutive pair with both the forward edge (the transition
// itself) and the reverse edge it implies (the same transition read from
// the far side), so a walk can cross the chain starting from either end.
// Reusing an already-inserted string (to graft a branch onto an existing
// chain) is fine: FindOrInsert and AddEdge are both idempotent/additive.
func linkChain(t *testing.T, g *graph.Graph, col int, seqs []string) []graph.DBNode {
	t.Helper()
	k := len(seqs[0])
	nodes := make([]graph.DBNode, len(seqs))
	for i, s := range seqs {
		bk := mustKmer(t, s)
		slot, _, err := g.FindOrInsert(bk)
		require.NoError(t, err)
		orient := graph.Forward
		if !bk.Equal(dna.Canonical(bk, k)) {
			orient = graph.Reverse
		}
		nodes[i] = graph.DBNode{Key: slot, Orient: orient}
	}
	for i := 0; i < len(seqs)-1; i++ {
		g.AddEdge(nodes[i].Key, col, nodes[i].Orient, baseAt(seqs[i+1][k-1]))
		g.AddEdge(nodes[i+1].Key, col, nodes[i+1].Orient.Opposite(), baseAt(seqs[i][0]).Complement())
	}
	return nodes
}

// A reference k-mer with a non-reference branch that rejoins the reference
// once the branch's extra bases slide out of the window should produce
// a written call whose flanks anchor back to the reference on both sides.
func TestCallerEmitsCallForNonRefBranch(t *testing.T) {
	const seq = "AAAATTTTGGGG"
	g := graph.NewGraph(graph.Options{NumBuckets: 32, BucketSize: 8, KmerSize: 4, NumColors: 1})
	ko, err := kograph.Build(g, []kograph.RefContig{{Name: "chr1", Bases: unpack(t, seq)}})
	require.NoError(t, err)

	// Backbone covers the reference's second half only (offsets 4-8: TTTT,
	// TTTG, TTGG, TGGG, GGGG). The first half is avoided on purpose: AAAT
	// and ATTT are reverse complements of each other in this sequence (as
	// are AAAA and TTTT), so building a chain across offsets 0-3 would
	// collide two distinct reference positions onto one slot.
	linkChain(t, g, 0, []string{"TTTT", "TTTG", "TTGG", "TGGG", "GGGG"})

	// Sample branch off TTTG: 'C' where the reference continues with 'G',
	// so the branch (TTTGCGGGG) carries two bases more than the reference
	// over this stretch (TTTGGGG) and rejoins it at GGGG once the 'C' has
	// slid out of the k-mer window.
	linkChain(t, g, 0, []string{"TTTG", "TTGC", "TGCG", "GCGG", "CGGG", "GGGG"})

	store := gpath.NewStore(g.Table.Capacity(), 4096, 1, 4, 4)
	var out bytes.Buffer
	var outMu sync.Mutex
	var callID uint64
	caller := NewCaller(g, store, ko, 1, 100, &out, &outMu, &callID)
	require.NoError(t, caller.Run(1))

	// The branch is visible from both the reference's forward strand
	// (walked from TTTG) and, since it cleanly rejoins the reference, from
	// the reverse strand too (walked from GGGG): two calls for the one
	// underlying event, neither rejected.
	assert.EqualValues(t, 2, caller.NumCalls())
	unmappedFlank, multipleHits, approxMatchRejected := caller.RejectionStats()
	assert.Zero(t, unmappedFlank)
	assert.Zero(t, multipleHits)
	assert.Zero(t, approxMatchRejected)

	got := out.String()
	assert.Contains(t, got, "chr=chr1:6-5:-:1\nTTTTG\n")
	assert.Contains(t, got, "TTGCGGGG\n")
	assert.Contains(t, got, "chr=chr1:9-9:-:0\nCCCC\n")
	assert.Contains(t, got, "chr=chr1:6-5:-:0\n")
	assert.Contains(t, got, "CCCGCAAAA\n")
	assert.Contains(t, got, "path cols=0\n")
}
