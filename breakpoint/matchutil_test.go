// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import (
	"testing"

	"github.com/antzucaro/matchr"
	"github.com/stretchr/testify/assert"
)

func TestLevenshteinMatchesPlainDistanceWithNoDownstream(t *testing.T) {
	tests := []struct{ s1, s2 string }{
		{"ACAATTGG", "AGAATTGC"},
		{"AAAA", "AAAA"},
		{"ACGT", "TGCA"},
	}
	for _, test := range tests {
		want := matchr.Levenshtein(test.s1, test.s2)
		got := Levenshtein(test.s1, test.s2, "", "")
		assert.Equal(t, want, got, "%s vs %s", test.s1, test.s2)
	}
}

func TestLevenshteinReadsDownstreamOnDeletion(t *testing.T) {
	// ATCGGTX           ACGGTX
	// | ||||     vs     |||||
	// A-CGGTX (X read from downstream1)
	got := Levenshtein("ATCGGT", "ACGGTX", "XYZ", "")
	assert.Equal(t, 1, got)
}

func TestLevenshteinReadsDownstreamOnDeletionRightSide(t *testing.T) {
	// Same alignment as TestLevenshteinReadsDownstreamOnDeletion with s1/s2
	// and their downstream sequences swapped: now it's a2 that needs to be
	// read into, not a1.
	got := Levenshtein("ACGGTX", "ATCGGT", "", "XYZ")
	assert.Equal(t, 1, got)
}

func TestApproximateMatchRejectsBeyondThreshold(t *testing.T) {
	assert.True(t, ApproximateMatch("ACGTACGT", "ACGAACGT", "", "", 1))
	assert.False(t, ApproximateMatch("ACGTACGT", "TTTTTTTT", "", "", 1))
}
