// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package crawler

import (
	"fmt"
	"strings"

	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/walker"
)

// StepPredicate decides whether a crawl should keep extending past a
// completed supernode step. Modeled as a capability type the caller
// implements, rather than a bare function value, so a caller with
// additional per-crawl state (reference-run buffers, in this module's
// case) can carry it without a closure capturing mutable scratch state.
type StepPredicate interface {
	Continue(cache *GraphCache, step *GCacheStep) bool
}

// PathFinish is notified once a path stops being extended, either because
// its predicate returned false or because the walk ran out of edges.
type PathFinish interface {
	Finish(cache *GraphCache, pathID int)
}

// Crawl explores every extension consistent with each color in colors,
// starting with the forced first step already chosen by the caller
// (firstNext) to orient which branch out of the preceding fork is being
// explored. It returns the populated cache together with each color's walk
// coalesced into MultiColPaths wherever two colors produced byte-for-byte
// the same supernode sequence.
func Crawl(
	g *graph.Graph,
	store *gpath.Store,
	rw *walker.RepeatWalker,
	firstNext graph.NextNode,
	colors []int,
	pred StepPredicate,
	finish PathFinish,
) (*GraphCache, []*MultiColPath, error) {
	cache := newGraphCache()

	for _, col := range colors {
		gw := walker.New(g, store, rw)
		if err := gw.Init(firstNext.Node, col, col); err != nil {
			return nil, nil, err
		}
		path := cache.newPath(col)
		run := []graph.DBNode{firstNext.Node}

		for {
			next, ok, err := gw.Next()
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				snodeID := cache.addSnode(run)
				stepID := cache.addStep(path.ID, snodeID)
				path.Steps = append(path.Steps, stepID)
				pred.Continue(cache, cache.Step(stepID)) // consulted for bookkeeping; nothing left to extend into
				break
			}
			if gw.LastWasBranch() {
				snodeID := cache.addSnode(run)
				stepID := cache.addStep(path.ID, snodeID)
				path.Steps = append(path.Steps, stepID)
				if !pred.Continue(cache, cache.Step(stepID)) {
					break
				}
				run = []graph.DBNode{next.Node}
			} else {
				run = append(run, next.Node)
			}
		}
		gw.Finish()
		finish.Finish(cache, path.ID)
	}

	return cache, coalesce(cache), nil
}

// MultiColPath groups every GCachePath that walked an identical supernode
// sequence, carrying the union of colors that produced it.
type MultiColPath struct {
	Snodes []int
	Colors []int
}

func snodeSeqKey(cache *GraphCache, p *GCachePath) string {
	var b strings.Builder
	for _, stepID := range p.Steps {
		fmt.Fprintf(&b, "%d,", cache.Step(stepID).Supernode)
	}
	return b.String()
}

func coalesce(cache *GraphCache) []*MultiColPath {
	bySeq := map[string]*MultiColPath{}
	var order []*MultiColPath
	for _, p := range cache.Paths {
		key := snodeSeqKey(cache, p)
		if mp, ok := bySeq[key]; ok {
			mp.Colors = append(mp.Colors, p.Colors...)
			continue
		}
		snodeIDs := make([]int, len(p.Steps))
		for i, stepID := range p.Steps {
			snodeIDs[i] = cache.Step(stepID).Supernode
		}
		mp := &MultiColPath{Snodes: snodeIDs, Colors: append([]int(nil), p.Colors...)}
		bySeq[key] = mp
		order = append(order, mp)
	}
	return order
}
