// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/grailbio/bio/crawler"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
	"github.com/grailbio/bio/walker"
)

// pendingCall is one fully-assembled breakpoint call waiting to be grouped
// with other colors that produced the same sequences, then written out.
type pendingCall struct {
	flank5pSeq string
	alleleSeq  string
	pathSeq    string
	flank3pSeq string

	flank5pRuns []kograph.KOccurRun
	flank3pRuns []kograph.KOccurRun

	cols []int
}

// walkOneColor runs the 5' flank and allele/3' flank crawls for a single
// color, returning ok=false if either crawl never reconnected with the
// reference, reconnected ambiguously across chromosomes, or reconnected
// but failed to re-anchor within ApproximateMatch's tolerance (in which
// case there's no call to make for this color; see resolveAnchor for which
// rejection counter each case adds to).
func (c *Caller) walkOneColor(node graph.DBNode, cand graph.NextNode, col int, rw *walker.RepeatWalker) (*pendingCall, bool, error) {
	flank5pFirst := graph.NextNode{Node: graph.DBNode{Key: node.Key, Orient: node.Orient.Opposite()}}
	flank5pTracker := newRefTracker(c.ko, c.minRefKmers, true)
	flank5pCache, flank5pPaths, err := crawler.Crawl(c.g, c.store, rw, flank5pFirst, []int{col}, flank5pTracker, flank5pTracker)
	if err != nil {
		return nil, false, err
	}
	if len(flank5pPaths) == 0 || len(flank5pTracker.ended) == 0 {
		atomic.AddUint64(&c.unmappedFlank, 1)
		return nil, false, nil
	}
	p5 := flank5pPaths[0]
	flank5pNodes := flattenNodes(flank5pCache, p5)
	anchor5p, ok := c.resolveAnchor(fetchRefContact(flank5pCache, p5, flank5pTracker.ended), c.g.ContigBases(flank5pNodes))
	if !ok {
		return nil, false, nil
	}
	flank5pRuns := []kograph.KOccurRun{anchor5p}

	alleleTracker := newRefTracker(c.ko, c.minRefKmers, false)
	alleleCache, allelePaths, err := crawler.Crawl(c.g, c.store, rw, cand, []int{col}, alleleTracker, alleleTracker)
	if err != nil {
		return nil, false, err
	}
	if len(allelePaths) == 0 || len(alleleTracker.ended) == 0 {
		// Never re-met the reference: no breakpoint to report for this walk.
		atomic.AddUint64(&c.unmappedFlank, 1)
		return nil, false, nil
	}
	pA := allelePaths[0]
	alleleNodes := flattenNodes(alleleCache, pA)
	anchor3p, ok := c.resolveAnchor(fetchRefContact(alleleCache, pA, alleleTracker.ended), c.g.ContigBases(alleleNodes))
	if !ok {
		return nil, false, nil
	}
	flank3pRuns := []kograph.KOccurRun{anchor3p}

	return c.assembleCall(flank5pNodes, flank5pRuns, alleleNodes, flank3pRuns), true, nil
}

// assembleCall turns the raw node chains and reference runs from both
// crawls into printable sequences, swallowing up to k-1 bases of the
// allele's leading homology with the 3' flank into the flank itself so the
// printed "path" segment is exactly the novel part of the allele.
func (c *Caller) assembleCall(flank5pNodes []graph.DBNode, flank5pRuns []kograph.KOccurRun, alleleNodes []graph.DBNode, flank3pRuns []kograph.KOccurRun) *pendingCall {
	k := c.g.K

	// The 5' flank was walked backward from the fork; reverse it (flipping
	// each node's orientation) so it reads 5'->3' like the rest of the call,
	// and reindex its runs' offsets from the now-opposite end.
	n5 := len(flank5pNodes)
	revNodes := make([]graph.DBNode, n5)
	for i, nd := range flank5pNodes {
		revNodes[n5-1-i] = graph.DBNode{Key: nd.Key, Orient: nd.Orient.Opposite()}
	}
	for i := range flank5pRuns {
		flank5pRuns[i].QOffset = n5 - 1 - flank5pRuns[i].QOffset
	}

	flank3pIdx := 0
	if len(flank3pRuns) > 0 {
		flank3pIdx = flank3pRuns[0].QOffset
	}
	extra3pBases := k - 1
	if flank3pIdx < extra3pBases {
		extra3pBases = flank3pIdx
	}
	numPathKmers := flank3pIdx - extra3pBases

	alleleBases := c.g.ContigBases(alleleNodes)
	pathNodes := alleleNodes
	if numPathKmers < len(pathNodes) {
		pathNodes = pathNodes[:numPathKmers]
	}

	var flank3pBases []dna.Nucleotide
	switch {
	case numPathKmers == 0:
		flank3pBases = alleleBases
	case k-1+numPathKmers <= len(alleleBases):
		flank3pBases = alleleBases[k-1+numPathKmers:]
	}

	return &pendingCall{
		flank5pSeq:  dna.UnpackedToString(c.g.ContigBases(revNodes)),
		alleleSeq:   dna.UnpackedToString(alleleBases),
		pathSeq:     dna.UnpackedToString(c.g.ContigBases(pathNodes)),
		flank3pSeq:  dna.UnpackedToString(flank3pBases),
		flank5pRuns: flank5pRuns,
		flank3pRuns: flank3pRuns,
	}
}

// chromRunsString renders a run list in "chrom:start-end:strand:qoffset"
// form, 1-based and comma-separated, per run, strand descending (end <
// start) for reverse-strand matches.
func (c *Caller) chromRunsString(runs []kograph.KOccurRun) string {
	reg := c.ko.Registry()
	parts := make([]string, len(runs))
	for i, r := range runs {
		strand := byte('+')
		if r.Strand == kograph.Minus {
			strand = '-'
		}
		parts[i] = fmt.Sprintf("%s:%d-%d:%c:%d", reg.Name(r.Chrom), int64(r.Start)+1, int64(r.End)+1, strand, r.QOffset)
	}
	return strings.Join(parts, ",")
}

func colsString(cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// writeCall assigns the next call id and writes the 5' flank, 3' flank,
// and path records. Callers never interleave because outMu is held for the
// whole write.
func (c *Caller) writeCall(call *pendingCall) {
	id := atomic.AddUint64(c.callID, 1) - 1
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, ">brkpnt.call%d.5pflank chr=%s\n%s\n", id, c.chromRunsString(call.flank5pRuns), call.flank5pSeq)
	fmt.Fprintf(c.out, ">brkpnt.call%d.3pflank chr=%s\n%s\n", id, c.chromRunsString(call.flank3pRuns), call.flank3pSeq)
	fmt.Fprintf(c.out, ">brkpnt.call%d.path cols=%s\n%s\n\n", id, colsString(call.cols), call.pathSeq)
}
