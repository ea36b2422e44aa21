// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpathio_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/gpathio"
	"github.com/grailbio/bio/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKmer(t *testing.T, s string) dna.BinaryKmer {
	t.Helper()
	bk, err := dna.FromString(s)
	require.NoError(t, err)
	return bk
}

func TestWriteStoreReadStoreRoundTrip(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 2})
	slot, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)

	store := gpath.NewStore(g.Table.Capacity(), 4096, 2, 4, 4)
	seq := []byte{0} // one junction base, A
	res, err := store.Insert(slot, graph.Forward, 3, 1, seq, 0)
	require.NoError(t, err)
	assert.Equal(t, gpath.Inserted, res)
	res, err = store.Insert(slot, graph.Forward, 3, 1, seq, 1)
	require.NoError(t, err)
	assert.Equal(t, gpath.AddedColor, res)

	hdr := gpathio.Header{
		KmerSize: 5,
		Colors:   []gpathio.ColorInfo{{SampleName: "a"}, {SampleName: "b"}},
	}

	var buf bytes.Buffer
	require.NoError(t, gpathio.WriteStore(&buf, g, store, hdr))

	g2 := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 2})
	store2 := gpath.NewStore(g2.Table.Capacity(), 4096, 2, 4, 4)
	gotHdr, err := gpathio.ReadStore(&buf, g2, store2)
	require.NoError(t, err)
	assert.Equal(t, 5, gotHdr.KmerSize)
	assert.EqualValues(t, 1, gotHdr.Paths.NumKmersWithPaths)

	slot2, found := g2.Find(mustKmer(t, "AAACG"))
	require.True(t, found)
	rec, found, err := store2.Find(slot2, graph.Forward, 1, seq)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.HasColor(0))
	assert.True(t, rec.HasColor(1))
}

func TestReadStoreRejectsCorruptedBody(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 1})
	store := gpath.NewStore(g.Table.Capacity(), 4096, 1, 4, 4)
	slot, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)
	_, err = store.Insert(slot, graph.Forward, 3, 1, []byte{0}, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gpathio.WriteStore(&buf, g, store, gpathio.Header{KmerSize: 5, Colors: []gpathio.ColorInfo{{SampleName: "a"}}}))

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff

	g2 := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 1})
	store2 := gpath.NewStore(g2.Table.Capacity(), 4096, 1, 4, 4)
	_, err = gpathio.ReadStore(bytes.NewReader(corrupted), g2, store2)
	assert.Error(t, err)
}
