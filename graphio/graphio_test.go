// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graphio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/graphio"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKmer(t *testing.T, s string) dna.BinaryKmer {
	t.Helper()
	bk, err := dna.FromString(s)
	require.NoError(t, err)
	return bk
}

func TestHeaderRoundTrip(t *testing.T) {
	hdr := graphio.Header{
		Version:      6,
		KmerSize:     31,
		NumBitfields: 1,
		Colors: []graphio.ColorInfo{
			{
				MeanReadLength: 100,
				TotalSequence:  123456,
				SampleName:     "sample0",
				SeqErr:         0.01,
				Cleaning: graphio.Cleaning{
					CleanedTips:       true,
					CleanKmersThresh:  5,
					IntersectionName:  "ref.ctx",
					CleanedKmers:      true,
					CleanedSupernodes: false,
				},
			},
			{SampleName: "sample1"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, graphio.WriteHeader(&buf, hdr))

	got, err := graphio.ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, hdr, got)
}

func TestWriteGraphReadGraphRoundTrip(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 2})
	slotA, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)
	slotB, _, err := g.FindOrInsert(mustKmer(t, "ACGTT"))
	require.NoError(t, err)
	g.AddCovg(slotA, 0, 5)
	g.AddCovg(slotA, 1, 2)
	g.AddEdge(slotA, 0, graph.Forward, dna.C)
	g.AddCovg(slotB, 0, 1)

	hdr := graphio.Header{
		Version:      6,
		KmerSize:     5,
		NumBitfields: uint32(dna.NumWords(5)),
		Colors: []graphio.ColorInfo{
			{SampleName: "a"},
			{SampleName: "b"},
		},
	}

	var buf bytes.Buffer
	n, err := graphio.WriteGraph(&buf, g, hdr)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	g2, gotHdr, err := graphio.ReadGraph(&buf, 16, 8)
	require.NoError(t, err)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, 5, g2.K)
	assert.Equal(t, 2, g2.NumCols)

	slotA2, found := g2.Find(mustKmer(t, "AAACG"))
	require.True(t, found)
	assert.Equal(t, uint32(5), g2.Covg(slotA2, 0))
	assert.Equal(t, uint32(2), g2.Covg(slotA2, 1))
	assert.True(t, g2.Edges(slotA2, 0).HasEdge(graph.Forward, dna.C))

	slotB2, found := g2.Find(mustKmer(t, "ACGTT"))
	require.True(t, found)
	assert.Equal(t, uint32(1), g2.Covg(slotB2, 0))
}

func TestWriteGraphReadGraphThroughRealFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 1})
	slot, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)
	g.AddCovg(slot, 0, 7)

	hdr := graphio.Header{
		Version:      6,
		KmerSize:     5,
		NumBitfields: uint32(dna.NumWords(5)),
		Colors:       []graphio.ColorInfo{{SampleName: "a"}},
	}

	path := filepath.Join(tmpdir, "test.ctx")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = graphio.WriteGraph(f, g, hdr)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, err := os.Open(path)
	require.NoError(t, err)
	defer f2.Close()
	g2, _, err := graphio.ReadGraph(f2, 16, 8)
	require.NoError(t, err)

	slot2, found := g2.Find(mustKmer(t, "AAACG"))
	require.True(t, found)
	assert.Equal(t, uint32(7), g2.Covg(slot2, 0))
}
