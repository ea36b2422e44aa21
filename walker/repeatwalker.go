// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package walker implements traversal over a colored de Bruijn graph guided
// by the link store: a RepeatWalker that blocks a walk from re-entering a
// repeat it has already crossed, and a GraphWalker that resolves branches
// using active link cursors.
package walker

import (
	"sync/atomic"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
)

// RepeatWalker records, per k-mer slot, which (orientation, chosen base)
// combinations a traversal has already taken. Eight possible combinations
// per slot (2 orientations x 4 bases) fit in one byte; this keeps a word
// per slot rather than packing bits across slots, trading memory for a
// lock-free CAS loop that never touches a neighboring slot's bits.
type RepeatWalker struct {
	bits []uint32 // only the low 8 bits of each word are used
}

// NewRepeatWalker allocates a walker sized for a graph with the given
// number of hash table slots.
func NewRepeatWalker(capacity uint64) *RepeatWalker {
	return &RepeatWalker{bits: make([]uint32, capacity)}
}

func visitBit(orient graph.Orient, base dna.Nucleotide) uint32 {
	return uint32(1) << (uint32(orient)*4 + uint32(base&3))
}

// AttemptTraverse tries to mark (slot, orient, base) as visited. It
// reports true if this is the first time that combination has been
// claimed, false if a previous call (by any goroutine) already claimed it
// — meaning the walk has re-entered a repeat and must stop.
func (w *RepeatWalker) AttemptTraverse(slot uint64, orient graph.Orient, base dna.Nucleotide) bool {
	bit := visitBit(orient, base)
	for {
		old := atomic.LoadUint32(&w.bits[slot])
		if old&bit != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&w.bits[slot], old, old|bit) {
			return true
		}
	}
}

// FastClear resets every bit touched at each of nodes' slots, in O(len(nodes))
// rather than clearing the whole bitset — nodes is expected to be the exact
// set of nodes a single finished walk visited.
func (w *RepeatWalker) FastClear(nodes []graph.DBNode) {
	for _, n := range nodes {
		atomic.StoreUint32(&w.bits[n.Key], 0)
	}
}
