// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package walker

import (
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
)

// cursor tracks one link record's progress through a walk: the next
// junction it hasn't yet been asked to confirm, and the order it was
// loaded in (used to break vote ties in favor of the most recently loaded
// link).
type cursor struct {
	rec      *gpath.Record
	pos      int
	loadedAt int
}

func (c *cursor) exhausted() bool { return c.pos >= c.rec.NumJuncs }

// GraphWalker walks a colored de Bruijn graph one node at a time,
// consulting the link store's active cursors to deterministically resolve
// branches that coverage alone can't.
type GraphWalker struct {
	g     *graph.Graph
	store *gpath.Store
	rw    *RepeatWalker

	colorFrom, colorTo int
	node                graph.DBNode
	cursors             []cursor
	loaded              map[uint64]bool // arena offsets already turned into cursors
	nextLoadSeq         int
	visited             []graph.DBNode
	lastBranch          bool
}

// New builds a walker over g, consulting store for link cursors and rw to
// detect repeat re-entry.
func New(g *graph.Graph, store *gpath.Store, rw *RepeatWalker) *GraphWalker {
	return &GraphWalker{g: g, store: store, rw: rw}
}

func colsetIntersects(colset []byte, lo, hi int) bool {
	for c := lo; c <= hi; c++ {
		if colset[c/8]&(1<<uint(c%8)) != 0 {
			return true
		}
	}
	return false
}

// loadCursorsAt pulls every not-yet-loaded record stored at node whose
// colset intersects [colorFrom, colorTo], optionally restricted to those
// whose first unconsumed junction equals requireBase (pass -1 to load
// unconditionally, as Init does).
func (w *GraphWalker) loadCursorsAt(node graph.DBNode, requireBase int) error {
	return w.store.Walk(node.Key, func(rec *gpath.Record) bool {
		if rec.Orient != node.Orient {
			return true
		}
		if w.loaded[rec.Offset] {
			return true
		}
		if !colsetIntersects(rec.Colset, w.colorFrom, w.colorTo) {
			return true
		}
		if rec.NumJuncs == 0 {
			return true
		}
		if requireBase >= 0 && int(rec.Junction(0)) != requireBase {
			return true
		}
		pos := 0
		if requireBase >= 0 {
			pos = 1
		}
		w.cursors = append(w.cursors, cursor{rec: rec, pos: pos, loadedAt: w.nextLoadSeq})
		w.nextLoadSeq++
		w.loaded[rec.Offset] = true
		return true
	})
}

// Init resets the walker at node, restricted to colors [colorFrom,
// colorTo], and seeds cursors from every matching record already stored
// there.
func (w *GraphWalker) Init(node graph.DBNode, colorFrom, colorTo int) error {
	w.node = node
	w.colorFrom, w.colorTo = colorFrom, colorTo
	w.cursors = nil
	w.loaded = map[uint64]bool{}
	w.nextLoadSeq = 0
	w.visited = []graph.DBNode{node}
	return w.loadCursorsAt(node, -1)
}

func (w *GraphWalker) combinedEdges(slot uint64) graph.Edges {
	var e graph.Edges
	for c := w.colorFrom; c <= w.colorTo; c++ {
		e |= w.g.Edges(slot, c)
	}
	return e
}

// Next advances the walker by one node. ok is false when there's no
// outgoing edge in the walker's color range, or when the repeat walker
// refuses the chosen (slot, orient, base) because this walk has already
// taken it.
func (w *GraphWalker) Next() (next graph.NextNode, ok bool, err error) {
	edges := w.combinedEdges(w.node.Key)
	candidates := w.g.NextNodes(w.node, edges)
	if len(candidates) == 0 {
		return graph.NextNode{}, false, nil
	}

	w.lastBranch = len(candidates) > 1
	var chosen graph.NextNode
	if !w.lastBranch {
		chosen = candidates[0]
	} else {
		chosen = w.resolveBranch(candidates)
	}

	if !w.rw.AttemptTraverse(w.node.Key, w.node.Orient, chosen.Base) {
		return graph.NextNode{}, false, nil
	}

	if len(candidates) > 1 {
		w.advanceCursors(chosen.Base)
		if err := w.loadCursorsAt(w.node, int(chosen.Base)); err != nil {
			return graph.NextNode{}, false, err
		}
	}

	w.node = chosen.Node
	w.visited = append(w.visited, chosen.Node)
	return chosen, true, nil
}

// resolveBranch picks the candidate base with the most cursor votes,
// breaking ties first by most-recently-loaded supporting link, then by
// lowest base index.
func (w *GraphWalker) resolveBranch(candidates []graph.NextNode) graph.NextNode {
	votes := [4]int{}
	recency := [4]int{-1, -1, -1, -1}
	for i := range w.cursors {
		c := &w.cursors[i]
		if c.exhausted() {
			continue
		}
		b := c.rec.Junction(c.pos)
		votes[b]++
		if c.loadedAt > recency[b] {
			recency[b] = c.loadedAt
		}
	}

	best := candidates[0]
	for _, cand := range candidates[1:] {
		b, bb := cand.Base&3, best.Base&3
		switch {
		case votes[b] > votes[bb]:
			best = cand
		case votes[b] == votes[bb] && recency[b] > recency[bb]:
			best = cand
		case votes[b] == votes[bb] && recency[b] == recency[bb] && b < bb:
			best = cand
		}
	}
	return best
}

// advanceCursors moves every cursor consistent with chosenBase forward one
// junction and discards every cursor that voted for a different base (or
// was already exhausted before this step).
func (w *GraphWalker) advanceCursors(chosenBase dna.Nucleotide) {
	kept := w.cursors[:0]
	for _, c := range w.cursors {
		if c.exhausted() || c.rec.Junction(c.pos) != chosenBase {
			continue
		}
		c.pos++
		kept = append(kept, c)
	}
	w.cursors = kept
}

// Finish clears the walker's cursors and releases the visited nodes' bits
// in the repeat walker, making them available to a future, unrelated walk.
func (w *GraphWalker) Finish() {
	w.rw.FastClear(w.visited)
	w.cursors = nil
	w.loaded = nil
	w.visited = nil
}

// Visited returns the nodes traversed since the last Init, in order.
func (w *GraphWalker) Visited() []graph.DBNode {
	return w.visited
}

// LastWasBranch reports whether the most recent Next() call had to resolve
// more than one outgoing edge (as opposed to a forced, single-edge step).
// A caller grouping the walk into maximal unbranching runs uses this to
// find each run's boundary.
func (w *GraphWalker) LastWasBranch() bool {
	return w.lastBranch
}
