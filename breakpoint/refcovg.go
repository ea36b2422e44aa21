// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/grailbio/bio/crawler"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
)

// refTracker is a crawler.StepPredicate/PathFinish that keeps a crawl going
// for as long as it's still plausibly tracking the reference, recording
// every run of reference homology it passes through along the way.
//
// firstStepOnly restricts new runs to being picked up only at the crawl's
// first step, which is how a 5' flank crawl is run: a 5' flank is only
// useful if it starts back in the reference immediately, whereas an
// allele/3' flank crawl (firstStepOnly false) is free to re-enter the
// reference at any point downstream.
type refTracker struct {
	ko            *kograph.KOGraph
	minRefKmers   int
	firstStepOnly bool

	pending []kograph.KOccurRun
	ended   []kograph.KOccurRun
	steps   int
}

func newRefTracker(ko *kograph.KOGraph, minRefKmers int, firstStepOnly bool) *refTracker {
	return &refTracker{ko: ko, minRefKmers: minRefKmers, firstStepOnly: firstStepOnly}
}

func (t *refTracker) Continue(cache *crawler.GraphCache, step *crawler.GCacheStep) bool {
	snode := cache.Snode(step.Supernode)
	qoffset := len(cache.Path(step.PathID).Steps) - 1
	pickup := !t.firstStepOnly || t.steps == 0

	for _, node := range snode.Nodes {
		kept, ended := kograph.Extend(t.pending, t.ko.Occurrences(node.Key), qoffset, t.minRefKmers, pickup)
		t.pending = kept
		t.ended = append(t.ended, ended...)
	}
	t.steps++

	minPending, minEnded := math.MaxInt64, math.MaxInt64
	for _, r := range t.pending {
		if r.QOffset < minPending {
			minPending = r.QOffset
		}
	}
	for _, r := range t.ended {
		if r.QOffset < minEnded {
			minEnded = r.QOffset
		}
	}
	keepGoing := minPending <= minEnded
	if t.firstStepOnly {
		keepGoing = keepGoing && len(t.pending) > 0
	}
	return keepGoing
}

func (t *refTracker) Finish(cache *crawler.GraphCache, pathID int) {
	all := append(t.ended, t.pending...)
	t.ended = kograph.Filter(all, t.minRefKmers)
	sort.Slice(t.ended, func(i, j int) bool { return t.ended[i].QOffset < t.ended[j].QOffset })
}

// flattenNodes concatenates the node chains of every supernode in a
// MultiColPath's walk, in order.
func flattenNodes(cache *crawler.GraphCache, path *crawler.MultiColPath) []graph.DBNode {
	var total int
	for _, id := range path.Snodes {
		total += len(cache.Snode(id).Nodes)
	}
	nodes := make([]graph.DBNode, 0, total)
	for _, id := range path.Snodes {
		nodes = append(nodes, cache.Snode(id).Nodes...)
	}
	return nodes
}

// fetchRefContact re-expresses each run's QOffset (a supernode-step index,
// the unit refTracker.Continue works in) as a node index along path's
// fully-flattened walk, mirroring how steps accumulate distinct numbers of
// nodes.
func fetchRefContact(cache *crawler.GraphCache, path *crawler.MultiColPath, runs []kograph.KOccurRun) []kograph.KOccurRun {
	out := append([]kograph.KOccurRun(nil), runs...)
	sort.Slice(out, func(i, j int) bool { return out[i].QOffset < out[j].QOffset })

	offset, r := 0, 0
	for s, snodeID := range path.Snodes {
		for r < len(out) && out[r].QOffset == s {
			out[r].QOffset = offset
			r++
		}
		if r == len(out) {
			break
		}
		offset += len(cache.Snode(snodeID).Nodes)
	}
	return out
}

// resolveAnchor picks a single reference anchor out of runs, the set of
// reference-contact runs fetchRefContact produced for one flank's walk.
// walked is that same walk's bases, used to re-derive the span each run
// claims to cover.
//
// A flank that reconnected with more than one chromosome is genuinely
// ambiguous and is counted MultipleHits. A flank that reconnected with one
// chromosome but in more than one run means the walk's exact k-mer contact
// with the reference broke partway through (a SNP or short indel against
// the run it's re-anchoring to); rather than reject outright, the walked
// bases the longest run claims are compared against the literal reference
// bases at that locus with ApproximateMatch, and only a drift beyond
// approxFlankMaxDist is counted ApproximateMatchRejected.
func (c *Caller) resolveAnchor(runs []kograph.KOccurRun, walked []dna.Nucleotide) (kograph.KOccurRun, bool) {
	best := runs[0]
	for _, r := range runs[1:] {
		if r.RunLenKmers > best.RunLenKmers {
			best = r
		}
	}
	for _, r := range runs {
		if r.Chrom != best.Chrom {
			atomic.AddUint64(&c.multipleHits, 1)
			return kograph.KOccurRun{}, false
		}
	}
	if len(runs) == 1 {
		return best, true
	}
	if c.anchorMatchesReference(best, walked) {
		return best, true
	}
	atomic.AddUint64(&c.approxMatchRejected, 1)
	return kograph.KOccurRun{}, false
}

// anchorMatchesReference compares the bases walked covers run against the
// literal reference bases at run's locus, allowing up to approxFlankMaxDist
// edits between them.
//
// run.QOffset is a supernode-step index, not a node index (see
// fetchRefContact): several reference-contacted nodes inside one
// unbranched stretch can all report the same QOffset. Rather than trust it
// to locate run's exact span within walked, both sequences are trimmed to
// their shared trailing length and compared there — the reconnection point
// a flank is trying to confirm is always at the far (most recently walked)
// end of both, regardless of how coarsely QOffset pinned it.
func (c *Caller) anchorMatchesReference(run kograph.KOccurRun, walked []dna.Nucleotide) bool {
	k := c.g.K
	lo, hi := run.Start, run.End
	if lo > hi {
		lo, hi = hi, lo
	}
	refBases := c.ko.Bases(run.Chrom)
	refStart, refEnd := int64(lo), int64(hi)+int64(k) // refEnd exclusive
	if refStart < 0 || refEnd > int64(len(refBases)) {
		return false
	}
	refSpan := append([]dna.Nucleotide(nil), refBases[refStart:refEnd]...)
	if run.Strand == kograph.Minus {
		dna.ReverseComplementUnpacked(refSpan)
	}

	n := len(refSpan)
	if len(walked) < n {
		n = len(walked)
	}
	if n == 0 {
		return false
	}
	refTail := refSpan[len(refSpan)-n:]
	walkedTail := walked[len(walked)-n:]
	return ApproximateMatch(dna.UnpackedToString(refTail), dna.UnpackedToString(walkedTail), "", "", approxFlankMaxDist)
}
