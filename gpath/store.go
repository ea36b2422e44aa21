// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpath

import (
	"sync/atomic"

	"github.com/grailbio/bio/graph"
	"github.com/pkg/errors"
)

// ErrArenaFull is returned when a Store's fixed-size record arena can't fit
// another record. Like graph.ErrTableFull, this is a sizing error: the
// caller under-provisioned the arenaBytes passed to NewStore for the run.
var ErrArenaFull = errors.New("gpath: path arena exhausted")

// Store is the colored path/link store: an append-only byte arena of
// variable-length Records, plus one head-pointer-per-k-mer-slot array that
// threads each slot's records into a singly linked chain ordered most
// recent first.
//
// Records are never mutated once appended except for their Colset and
// NSeen bytes, which later inserts for other colors may update in place
// under the dedup hash's bucket lock; nothing about their position,
// length, or identity changes afterward, so a lock-free walk that has
// already read a Record's Offset can always safely re-derive it.
type Store struct {
	arena    []byte
	tail     uint64 // atomic: next free byte offset
	numCols  int
	heads    []uint64 // atomic per-slot head offset, noPrev if empty
	numPaths uint64   // atomic

	dedup *hash
}

// NewStore allocates a path store sized for a graph whose hash table has
// the given slot capacity. arenaBytes bounds total record storage;
// dedupBuckets/dedupBucketSize size the side table used to detect repeated
// (slot, orientation, junction sequence) triples across colors.
func NewStore(slotCapacity uint64, arenaBytes uint64, numCols int, dedupBuckets uint64, dedupBucketSize int) *Store {
	heads := make([]uint64, slotCapacity)
	for i := range heads {
		heads[i] = noPrev
	}
	s := &Store{
		arena:   make([]byte, arenaBytes),
		numCols: numCols,
		heads:   heads,
	}
	s.dedup = newHash(s, dedupBuckets, dedupBucketSize)
	return s
}

// NumCols returns the store's color count.
func (s *Store) NumCols() int { return s.numCols }

// NumPaths returns the number of distinct records stored, across all
// colors and slots.
func (s *Store) NumPaths() uint64 { return atomic.LoadUint64(&s.numPaths) }

// BytesUsed returns how many arena bytes are occupied.
func (s *Store) BytesUsed() uint64 { return atomic.LoadUint64(&s.tail) }

// appendRecord reserves space for a new record in the arena, writes it with
// prev pointing at the slot's current head, publishes it as the new head,
// and returns its offset. Called by hash.FindOrAdd while it holds the
// relevant dedup bucket lock; the caller of Insert is separately required
// to hold the k-mer's graph bucket lock, which is what makes the head
// publish below safe against a second, different-sequence insert for the
// same slot racing in over a different dedup bucket.
func (s *Store) appendRecord(slot uint64, orient graph.Orient, numKmers, numJuncs int, seq []byte, numCols, col int) (uint64, error) {
	colset := make([]byte, colsetLen(numCols))
	colset[col/8] |= 1 << uint(col%8)
	nseen := make([]uint8, numCols)
	nseen[col] = 1

	prev := atomic.LoadUint64(&s.heads[slot])
	buf := encode(prev, orient, numKmers, numJuncs, colset, seq, nseen)

	offset := atomic.AddUint64(&s.tail, uint64(len(buf))) - uint64(len(buf))
	if offset+uint64(len(buf)) > uint64(len(s.arena)) {
		return 0, ErrArenaFull
	}
	copy(s.arena[offset:], buf)

	// The record is fully written before the head pointer that makes it
	// reachable is published, so a lock-free walker that observes the new
	// head always sees a complete record.
	atomic.StoreUint64(&s.heads[slot], offset)
	atomic.AddUint64(&s.numPaths, 1)
	return offset, nil
}

// Insert records that color col took the path described by (orient,
// numKmers, numJuncs, seq) leaving slot. The caller must hold slot's
// graph.HashTable bucket lock (graph.HashTable.LockSlot) for the duration
// of the call.
func (s *Store) Insert(slot uint64, orient graph.Orient, numKmers, numJuncs int, seq []byte, col int) (Result, error) {
	return s.dedup.FindOrAdd(slot, orient, numKmers, numJuncs, seq, s.numCols, col)
}

// decodeAt is Store's internal single-record accessor, used by callers that
// already have an offset (typically from Record.Prev or from a prior
// Walk step).
func (s *Store) decodeAt(offset uint64) (*Record, error) {
	tail := atomic.LoadUint64(&s.tail)
	rec, _, err := decode(s.arena[:tail], offset, s.numCols)
	return rec, err
}

// Walk calls visit with each record chained off slot, most recently
// inserted first, stopping early if visit returns false. It performs no
// locking: chain links are only ever published after their target record
// is fully written, so a concurrent Insert on another slot, or even a
// later Insert on the same slot, never corrupts a walk already in
// progress.
func (s *Store) Walk(slot uint64, visit func(*Record) bool) error {
	offset := atomic.LoadUint64(&s.heads[slot])
	for offset != noPrev {
		rec, err := s.decodeAt(offset)
		if err != nil {
			return err
		}
		if !visit(rec) {
			return nil
		}
		offset = rec.Prev
	}
	return nil
}

// Find returns the first record chained off slot whose orientation and
// junction sequence match, if any.
func (s *Store) Find(slot uint64, orient graph.Orient, numJuncs int, seq []byte) (*Record, bool, error) {
	var found *Record
	err := s.Walk(slot, func(r *Record) bool {
		if r.NumJuncs == numJuncs && recordsEqual(numJuncs, r.Seq, seq, r.Orient, orient) {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, false, err
	}
	return found, found != nil, nil
}

// HasPaths reports whether slot has at least one recorded path in either
// orientation.
func (s *Store) HasPaths(slot uint64) bool {
	return atomic.LoadUint64(&s.heads[slot]) != noPrev
}
