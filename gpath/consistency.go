// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpath

import (
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/pkg/errors"
)

// CheckConsistency replays every record in store against g and reports the
// first place a record's packed junction sequence doesn't actually
// describe a walk through the colored graph: at each node with more than
// one outgoing edge in the record's color set, the next junction base must
// name one of them, and every junction must be used up within the record's
// first NumKmers-1 steps. It's a
// test-only sanity check on the store's own bookkeeping, not something a
// caller evaluates during a real crawl.
func CheckConsistency(g *graph.Graph, store *Store) error {
	var walkErr error
	g.Table.Iterate(0, 1, func(slot uint64, _ dna.BinaryKmer) {
		if walkErr != nil {
			return
		}
		for _, orient := range [2]graph.Orient{graph.Forward, graph.Reverse} {
			if walkErr != nil {
				return
			}
			err := store.Walk(slot, func(rec *Record) bool {
				if rec.Orient != orient {
					return true
				}
				if err := checkRecordConsistency(g, slot, orient, rec); err != nil {
					walkErr = err
					return false
				}
				return true
			})
			if err != nil && walkErr == nil {
				walkErr = err
			}
		}
	})
	return walkErr
}

func checkRecordConsistency(g *graph.Graph, slot uint64, orient graph.Orient, rec *Record) error {
	node := graph.DBNode{Key: slot, Orient: orient}
	junc := 0
	for step := 0; step < rec.NumKmers-1 && junc < rec.NumJuncs; step++ {
		var edges graph.Edges
		for col := 0; col < len(rec.NSeen); col++ {
			if rec.HasColor(col) {
				edges |= g.Edges(node.Key, col)
			}
		}
		candidates := g.NextNodes(node, edges)
		if len(candidates) == 0 {
			return errors.Errorf("gpath: record at slot %d orient %v has no outgoing edge at step %d in its own colors", slot, orient, step)
		}
		if len(candidates) == 1 {
			node = candidates[0].Node
			continue
		}
		base := rec.Junction(junc)
		var chosen *graph.NextNode
		for i := range candidates {
			if candidates[i].Base&3 == base {
				chosen = &candidates[i]
				break
			}
		}
		if chosen == nil {
			return errors.Errorf("gpath: record at slot %d orient %v junction %d (base %v) matches no outgoing edge in its colors", slot, orient, junc, base)
		}
		junc++
		node = chosen.Node
	}
	if junc != rec.NumJuncs {
		return errors.Errorf("gpath: record at slot %d orient %v left %d junctions unconfirmed against the graph", slot, orient, rec.NumJuncs-junc)
	}
	return nil
}
