// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package breakpoint finds structural-variant breakpoints in a colored de
// Bruijn graph: reference k-mers with more outgoing edges than the
// reference itself uses, where some branch immediately leaves the
// reference and later rejoins it.
package breakpoint

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
	"github.com/grailbio/bio/walker"
)

// Caller finds and writes out every breakpoint call reachable from
// branching reference nodes in g.
type Caller struct {
	g     *graph.Graph
	store *gpath.Store
	ko    *kograph.KOGraph

	minRefKmers int
	maxRefKmers int

	out   io.Writer
	outMu *sync.Mutex

	// callID is the shared call-id counter, a process-wide singleton
	// constructed once and passed in by pointer rather than owned here, so
	// every Caller across every worker draws from the same sequence.
	callID *uint64

	// Non-fatal per-record rejection counts. A rejected flank never aborts
	// the run; it's counted here and summarized once Run finishes instead
	// of being logged per occurrence.
	unmappedFlank       uint64
	multipleHits        uint64
	approxMatchRejected uint64
}

// approxFlankMaxDist is the largest edit distance resolveAnchor tolerates
// between a crawled flank's sequence and its reference anchor before giving
// up and counting the flank as ApproximateMatchRejected rather than calling
// it.
const approxFlankMaxDist = 2

// NewCaller builds a Caller writing calls to out (already positioned past
// any header) under outMu, which the caller shares across every worker so
// calls never interleave mid-record. callID is the shared call-id counter;
// pass the same pointer to every Caller drawing from one output stream.
func NewCaller(g *graph.Graph, store *gpath.Store, ko *kograph.KOGraph, minRefKmers, maxRefKmers int, out io.Writer, outMu *sync.Mutex, callID *uint64) *Caller {
	return &Caller{g: g, store: store, ko: ko, minRefKmers: minRefKmers, maxRefKmers: maxRefKmers, out: out, outMu: outMu, callID: callID}
}

// NumCalls returns how many calls have been written so far across every
// Caller sharing this callID counter.
func (c *Caller) NumCalls() uint64 { return atomic.LoadUint64(c.callID) }

// RejectionStats returns the non-fatal per-record rejection counts this
// Caller has accumulated so far: flanks that never reconnected with the
// reference, anchors that reconnected at more than one chromosome, and
// anchors that reconnected at a single chromosome but drifted from it
// beyond ApproximateMatch's tolerance.
func (c *Caller) RejectionStats() (unmappedFlank, multipleHits, approxMatchRejected uint64) {
	return atomic.LoadUint64(&c.unmappedFlank), atomic.LoadUint64(&c.multipleHits), atomic.LoadUint64(&c.approxMatchRejected)
}

// Run scans the graph's hash table for branching reference k-mers and
// writes every breakpoint call found, splitting the table across
// numWorkers goroutines the same way the hash table's own Iterate method
// distributes buckets. Rejections encountered along the way are tallied,
// never logged individually, and summarized once here when the scan
// completes.
func (c *Caller) Run(numWorkers int) error {
	capacity := c.g.Table.Capacity()
	err := traverse.Each(numWorkers, func(worker int) error {
		rw := walker.NewRepeatWalker(capacity)
		var visitErr error
		c.g.Table.Iterate(worker, numWorkers, func(slot uint64, key dna.BinaryKmer) {
			if visitErr != nil {
				return
			}
			if err := c.visitNode(slot, graph.Forward, rw); err != nil {
				visitErr = err
				return
			}
			if err := c.visitNode(slot, graph.Reverse, rw); err != nil {
				visitErr = err
			}
		})
		return visitErr
	})
	if err != nil {
		return err
	}
	unmapped, multi, approx := c.RejectionStats()
	log.Printf("breakpoint: wrote %d calls, rejected %d unmapped flanks, %d multiple-hit anchors, %d approximate-match anchors",
		c.NumCalls(), unmapped, multi, approx)
	return nil
}

func (c *Caller) visitNode(slot uint64, orient graph.Orient, rw *walker.RepeatWalker) error {
	if c.ko.Num(slot) == 0 {
		return nil
	}
	node := graph.DBNode{Key: slot, Orient: orient}
	edges := c.g.Edges(slot, 0)
	for col := 1; col < c.g.NumCols; col++ {
		edges |= c.g.Edges(slot, col)
	}
	candidates := c.g.NextNodes(node, edges)
	if len(candidates) < 2 {
		return nil
	}
	return c.followBreak(node, candidates, rw)
}

func (c *Caller) followBreak(node graph.DBNode, candidates []graph.NextNode, rw *walker.RepeatWalker) error {
	var nonref []graph.NextNode
	for _, cand := range candidates {
		if c.ko.Num(cand.Node.Key) == 0 {
			nonref = append(nonref, cand)
		}
	}
	if len(nonref) == 0 || len(nonref) == len(candidates) {
		return nil
	}
	for _, cand := range nonref {
		if err := c.followCandidate(node, cand, rw); err != nil {
			return err
		}
	}
	return nil
}

// followCandidate walks the 5' flank back into the reference and the
// allele/3' flank forward into the reference, independently per color,
// then groups colors that produced byte-identical calls into a single
// record. The original tool merges identical paths across colors mid-walk
// (crawler.Crawl and its MultiColPath coalescing support exactly that);
// here colors are walked one at a time and merged afterward by comparing
// assembled sequences, trading that mid-walk sharing for a much simpler
// per-candidate control flow — see DESIGN.md.
func (c *Caller) followCandidate(node graph.DBNode, cand graph.NextNode, rw *walker.RepeatWalker) error {
	groups := map[string]*pendingCall{}
	var order []string

	for col := 0; col < c.g.NumCols; col++ {
		call, ok, err := c.walkOneColor(node, cand, col, rw)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key := call.flank5pSeq + "|" + call.alleleSeq
		if existing, found := groups[key]; found {
			existing.cols = append(existing.cols, col)
			continue
		}
		call.cols = []int{col}
		groups[key] = call
		order = append(order, key)
	}

	for _, key := range order {
		c.writeCall(groups[key])
	}
	return nil
}
