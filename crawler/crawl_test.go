// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package crawler_test

import (
	"testing"

	"github.com/grailbio/bio/crawler"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKmer(t *testing.T, s string) dna.BinaryKmer {
	t.Helper()
	bk, err := dna.FromString(s)
	require.NoError(t, err)
	return bk
}

type alwaysContinue struct{}

func (alwaysContinue) Continue(*crawler.GraphCache, *crawler.GCacheStep) bool { return true }

type countFinish struct{ paths []int }

func (f *countFinish) Finish(_ *crawler.GraphCache, pathID int) { f.paths = append(f.paths, pathID) }

func TestCrawlSingleColorDeadEndProducesOneSupernode(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 1})
	base, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)
	succSlot, _, err := g.FindOrInsert(mustKmer(t, "AACGA"))
	require.NoError(t, err)
	g.AddEdge(base, 0, graph.Forward, dna.A)

	store := gpath.NewStore(g.Table.Capacity(), 4096, 1, 4, 4)
	rw := walker.NewRepeatWalker(g.Table.Capacity())

	firstNext := graph.NextNode{Node: graph.DBNode{Key: succSlot, Orient: graph.Forward}, Base: dna.A}
	finish := &countFinish{}
	cache, paths, err := crawler.Crawl(g, store, rw, firstNext, []int{0}, alwaysContinue{}, finish)
	require.NoError(t, err)

	require.Len(t, cache.Snodes, 1)
	assert.Equal(t, succSlot, cache.Snode(0).First().Key)
	require.Len(t, paths, 1)
	assert.Equal(t, []int{0}, paths[0].Colors)
	assert.Equal(t, []int{0}, finish.paths)
}

func TestCrawlCoalescesIdenticalColorPaths(t *testing.T) {
	g := graph.NewGraph(graph.Options{NumBuckets: 16, BucketSize: 8, KmerSize: 5, NumColors: 2})
	base, _, err := g.FindOrInsert(mustKmer(t, "AAACG"))
	require.NoError(t, err)
	succSlot, _, err := g.FindOrInsert(mustKmer(t, "AACGA"))
	require.NoError(t, err)
	g.AddEdge(base, 0, graph.Forward, dna.A)
	g.AddEdge(base, 1, graph.Forward, dna.A)

	store := gpath.NewStore(g.Table.Capacity(), 4096, 2, 4, 4)
	rw := walker.NewRepeatWalker(g.Table.Capacity())

	firstNext := graph.NextNode{Node: graph.DBNode{Key: succSlot, Orient: graph.Forward}, Base: dna.A}
	finish := &countFinish{}
	_, paths, err := crawler.Crawl(g, store, rw, firstNext, []int{0, 1}, alwaysContinue{}, finish)
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.ElementsMatch(t, []int{0, 1}, paths[0].Colors)
	assert.Len(t, finish.paths, 2)
}
