// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import "fmt"

// Levenshtein computes the edit distance between two equal-length base
// sequences s1 and s2, extending into their downstream sequences a1/a2 when
// the best alignment wants to consume more of one than the other: a flank
// that matches its reference anchor except for a clean insertion/deletion
// reads extra bases from whichever side fell behind, the same slippage
// barcode matching against a fixed-length read tolerates.
//
// Rather than growing the comparison matrix one frontier cell at a time and
// tracking which traversal produced each minimum, this fills the full
// Wagner-Fischer matrix over the extended sequences s+a up front and then
// scans along the two boundary edges the downstream bases open up: row n
// (every extra column contributed by a2) and column n (every extra row
// contributed by a1). Reading k downstream bases into one side is exactly
// what it costs to align against the extra k rows or columns that opens up,
// so the best of those boundary cells is the distance that's willing to
// read the least downstream to explain the alignment.
func Levenshtein(s1, s2, a1, a2 string) int {
	if len(s1) != len(s2) {
		panic(fmt.Sprintf("breakpoint: Levenshtein requires equal-length sequences, got %d and %d", len(s1), len(s2)))
	}

	n := len(s1)
	e1 := s1 + a1
	e2 := s2 + a2
	rows, cols := len(e1)+1, len(e2)+1

	dp := make([][]int, rows)
	for i := range dp {
		dp[i] = make([]int, cols)
	}
	for i := 0; i < rows; i++ {
		dp[i][0] = i
	}
	for j := 0; j < cols; j++ {
		dp[0][j] = j
	}
	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if e1[i-1] == e2[j-1] {
				cost = 0
			}
			del := dp[i-1][j] + 1
			ins := dp[i][j-1] + 1
			sub := dp[i-1][j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			dp[i][j] = best
		}
	}

	best := dp[n][n]
	for x := 1; x <= len(a1); x++ {
		if v := dp[n+x][n]; v < best {
			best = v
		}
	}
	for y := 1; y <= len(a2); y++ {
		if v := dp[n][n+y]; v < best {
			best = v
		}
	}
	return best
}

// ApproximateMatch reports whether candidate is within maxDist edits of
// ref, allowing the comparison to read further into their downstream
// sequences (refDownstream, candidateDownstream) the same way Levenshtein
// does. Used as the fallback when a crawled flank fails to line up
// base-for-base with its reference anchor but is still plausibly the same
// sequence; a true mismatch beyond maxDist is reported by the caller as an
// ApproximateMatchRejected outcome rather than a breakpoint call.
func ApproximateMatch(ref, candidate, refDownstream, candidateDownstream string, maxDist int) bool {
	if len(ref) != len(candidate) {
		return false
	}
	return Levenshtein(ref, candidate, refDownstream, candidateDownstream) <= maxDist
}
