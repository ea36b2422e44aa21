// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpath_test

import (
	"testing"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packJuncs(bases ...dna.Nucleotide) []byte {
	buf := make([]byte, dna.PackedLen(len(bases)))
	dna.Pack(buf, bases)
	return buf
}

func TestInsertThenFind(t *testing.T) {
	store := gpath.NewStore(8, 4096, 2, 4, 4)
	seq := packJuncs(dna.A, dna.C, dna.G)

	result, err := store.Insert(3, graph.Forward, 10, 3, seq, 0)
	require.NoError(t, err)
	assert.Equal(t, gpath.Inserted, result)

	rec, found, err := store.Find(3, graph.Forward, 3, seq)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.HasColor(0))
	assert.False(t, rec.HasColor(1))
	assert.Equal(t, dna.A, rec.Junction(0))
	assert.Equal(t, dna.C, rec.Junction(1))
	assert.Equal(t, dna.G, rec.Junction(2))
}

func TestInsertSamePathDifferentColorAddsColor(t *testing.T) {
	store := gpath.NewStore(8, 4096, 2, 4, 4)
	seq := packJuncs(dna.T, dna.T)

	result, err := store.Insert(1, graph.Forward, 6, 2, seq, 0)
	require.NoError(t, err)
	assert.Equal(t, gpath.Inserted, result)

	result, err = store.Insert(1, graph.Forward, 6, 2, seq, 1)
	require.NoError(t, err)
	assert.Equal(t, gpath.AddedColor, result)

	result, err = store.Insert(1, graph.Forward, 6, 2, seq, 1)
	require.NoError(t, err)
	assert.Equal(t, gpath.AlreadyPresent, result)

	rec, found, err := store.Find(1, graph.Forward, 2, seq)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.HasColor(0))
	assert.True(t, rec.HasColor(1))
	assert.Equal(t, uint8(2), rec.NSeen[1])
	assert.Equal(t, uint64(1), store.NumPaths())
}

func TestDistinctSequencesChainIndependently(t *testing.T) {
	store := gpath.NewStore(8, 4096, 1, 4, 4)
	seqA := packJuncs(dna.A, dna.A)
	seqC := packJuncs(dna.C, dna.C)

	_, err := store.Insert(5, graph.Forward, 4, 2, seqA, 0)
	require.NoError(t, err)
	_, err = store.Insert(5, graph.Forward, 4, 2, seqC, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), store.NumPaths())

	var seen [][]byte
	err = store.Walk(5, func(r *gpath.Record) bool {
		cp := append([]byte(nil), r.Seq...)
		seen = append(seen, cp)
		return true
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestOrientationDistinguishesPaths(t *testing.T) {
	store := gpath.NewStore(8, 4096, 1, 4, 4)
	seq := packJuncs(dna.G)

	_, err := store.Insert(2, graph.Forward, 3, 1, seq, 0)
	require.NoError(t, err)
	_, err = store.Insert(2, graph.Reverse, 3, 1, seq, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), store.NumPaths())
	_, found, err := store.Find(2, graph.Forward, 1, seq)
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = store.Find(2, graph.Reverse, 1, seq)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestArenaExhaustionReturnsError(t *testing.T) {
	store := gpath.NewStore(4, 16, 1, 2, 2)
	seq := packJuncs(dna.A, dna.C, dna.G, dna.T, dna.A, dna.C, dna.G, dna.T)

	ok := 0
	var lastErr error
	for i := uint64(0); i < 4; i++ {
		_, err := store.Insert(i, graph.Forward, 8, 8, seq, 0)
		if err != nil {
			lastErr = err
			continue
		}
		ok++
	}
	assert.Less(t, ok, 4)
	require.Error(t, lastErr)
}

func TestHasPaths(t *testing.T) {
	store := gpath.NewStore(4, 4096, 1, 4, 4)
	assert.False(t, store.HasPaths(0))
	_, err := store.Insert(0, graph.Forward, 2, 1, packJuncs(dna.A), 0)
	require.NoError(t, err)
	assert.True(t, store.HasPaths(0))
}
