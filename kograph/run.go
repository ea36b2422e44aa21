// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kograph

// KOccurRun is a contiguous match between a query walk and one reference
// contig: it started at Start and has most recently been confirmed at End,
// on Strand, having advanced through RunLenKmers k-mers so far.
type KOccurRun struct {
	Chrom       int
	Strand      Strand
	Start       PosType
	End         PosType
	QOffset     int // query position (index along the walk) last confirmed
	RunLenKmers int
}

func (r KOccurRun) nextWant() PosType {
	if r.Strand == Plus {
		return r.End + 1
	}
	return r.End - 1
}

// Extend advances each run in koruns by one query step if nextOccs
// contains a reference occurrence immediately following it (on the same
// chrom and strand); unmatched runs retire into ended once they're already
// at least minLen k-mers long, and are dropped silently otherwise. If
// pickupNewRuns is true, every occurrence in nextOccs not already consumed
// by an extension seeds a new one-k-mer run.
func Extend(koruns []KOccurRun, nextOccs []KOccurrence, qoffset, minLen int, pickupNewRuns bool) (kept, ended []KOccurRun) {
	consumed := make([]bool, len(nextOccs))
	for _, run := range koruns {
		want := run.nextWant()
		idx := -1
		for i, occ := range nextOccs {
			if !consumed[i] && occ.Chrom == run.Chrom && occ.Strand == run.Strand && occ.Offset == want {
				idx = i
				break
			}
		}
		if idx >= 0 {
			consumed[idx] = true
			run.End = want
			run.QOffset = qoffset
			run.RunLenKmers++
			kept = append(kept, run)
			continue
		}
		if run.RunLenKmers >= minLen {
			ended = append(ended, run)
		}
	}
	if pickupNewRuns {
		for i, occ := range nextOccs {
			if consumed[i] {
				continue
			}
			kept = append(kept, KOccurRun{
				Chrom: occ.Chrom, Strand: occ.Strand,
				Start: occ.Offset, End: occ.Offset,
				QOffset: qoffset, RunLenKmers: 1,
			})
		}
	}
	return kept, ended
}

// Filter drops every run shorter than minLen k-mers.
func Filter(runs []KOccurRun, minLen int) []KOccurRun {
	kept := runs[:0]
	for _, r := range runs {
		if r.RunLenKmers >= minLen {
			kept = append(kept, r)
		}
	}
	return kept
}

// RunOutcome classifies why a run-following walk stopped producing new
// reference runs. It's kept as two distinct values rather than one
// "couldn't continue" bucket: LostInRepeat means the walk had somewhere to
// go but the repeat walker refused a (slot, orient, base) it had already
// taken, which usually means it wandered back into a region the reference
// itself revisits; NoTraversal means the walk had no outgoing edge to try
// in the first place, a dead end unrelated to repeats. Conflating the two
// hides whether a stalled caller run is a structural dead end or a
// navigable-but-ambiguous repeat, which is relevant (see DESIGN.md) since a
// repeat-blocked walk is a candidate for deeper search under a different
// color restriction, while a true dead end isn't.
type RunOutcome int

const (
	OutcomeContinued RunOutcome = iota
	OutcomeLostInRepeat
	OutcomeNoTraversal
)
