// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package graph implements the concurrent, canonical-k-mer-keyed hash table
// and its colored overlay: the bottom two layers of the colored de Bruijn
// graph engine.
package graph

import (
	"runtime"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/dna"
)

// RehashLimit bounds how many times find-or-insert will try a fresh seed
// before giving up with ErrTableFull.
const RehashLimit = 16

// slotState values packed into HashTable.locks. A bucket lock is a plain
// spin lock: callers CAS 0->1 to acquire, spin with a yield hint on
// contention, and store 0 to release. No blocking I/O is ever performed
// while a bucket lock is held.
const (
	unlocked uint32 = 0
	locked   uint32 = 1
)

// HashTable is a fixed-capacity, open-addressed table of canonical k-mers.
// Capacity is numBuckets (a power of two) times bucketSize. Each bucket has
// its own occupancy counter and spin lock; entries within a bucket are
// never relocated once written, which is what makes Find lock-free.
type HashTable struct {
	kmerWords  int
	numBuckets uint64
	bucketSize int
	mask       uint64

	// words holds numBuckets*bucketSize*kmerWords uint64s: slot s's k-mer
	// occupies words[s*kmerWords : (s+1)*kmerWords].
	words []uint64

	// occupancy[b] is the number of used slots in bucket b, 0..bucketSize.
	occupancy []uint32
	locks     []uint32

	numItems uint64 // atomic
}

// NewHashTable allocates a table with the given number of buckets (must be a
// power of two) and bucket size (must be less than 256). kmerWords is
// dna.NumWords(k) for the graph's k-mer size.
func NewHashTable(numBuckets uint64, bucketSize int, kmerWords int) *HashTable {
	if numBuckets == 0 || (numBuckets&(numBuckets-1)) != 0 {
		panic("graph.NewHashTable: numBuckets must be a power of two")
	}
	if bucketSize <= 0 || bucketSize >= 256 {
		panic("graph.NewHashTable: bucketSize must be in (0, 256)")
	}
	capacity := numBuckets * uint64(bucketSize)
	return &HashTable{
		kmerWords:  kmerWords,
		numBuckets: numBuckets,
		bucketSize: bucketSize,
		mask:       numBuckets - 1,
		words:      make([]uint64, capacity*uint64(kmerWords)),
		occupancy:  make([]uint32, numBuckets),
		locks:      make([]uint32, numBuckets),
	}
}

// Capacity returns numBuckets * bucketSize.
func (h *HashTable) Capacity() uint64 {
	return h.numBuckets * uint64(h.bucketSize)
}

// NumBuckets returns the number of buckets.
func (h *HashTable) NumBuckets() uint64 {
	return h.numBuckets
}

// BucketSize returns the per-bucket slot count.
func (h *HashTable) BucketSize() int {
	return h.bucketSize
}

// Len returns the number of k-mers currently stored.
func (h *HashTable) Len() uint64 {
	return atomic.LoadUint64(&h.numItems)
}

func (h *HashTable) lockBucket(b uint64) {
	for !atomic.CompareAndSwapUint32(&h.locks[b], unlocked, locked) {
		runtime.Gosched()
	}
}

func (h *HashTable) unlockBucket(b uint64) {
	atomic.StoreUint32(&h.locks[b], unlocked)
}

// bucketHash returns the bucket index for key under the rehash-attempt-th
// seed in the family.
func (h *HashTable) bucketHash(key dna.BinaryKmer, attempt int) uint64 {
	return farm.Hash64WithSeed(key.Bytes(), uint64(attempt)) & h.mask
}

func (h *HashTable) slotWords(slot uint64) []uint64 {
	start := slot * uint64(h.kmerWords)
	return h.words[start : start+uint64(h.kmerWords)]
}

// slotKey returns the k-mer stored at slot as a BinaryKmer view (a copy of
// the underlying words, safe for the caller to retain).
func (h *HashTable) slotKey(slot uint64) dna.BinaryKmer {
	return dna.BinaryKmer(h.slotWords(slot)).Clone()
}

func keyEqualsSlot(key dna.BinaryKmer, slotWords []uint64) bool {
	for i, w := range key {
		if slotWords[i] != w {
			return false
		}
	}
	return true
}

// find looks for key within bucket b's used slots (entries 0..occupancy-1).
// It's lock-free: entries are append-only within a bucket, so a concurrent
// insert can only ever add a new used entry past the ones already visible,
// never mutate or relocate an existing one.
func (h *HashTable) find(b uint64, key dna.BinaryKmer) (slot uint64, found bool) {
	n := atomic.LoadUint32(&h.occupancy[b])
	base := b * uint64(h.bucketSize)
	for i := uint32(0); i < n; i++ {
		s := base + uint64(i)
		if keyEqualsSlot(key, h.slotWords(s)) {
			return s, true
		}
	}
	return 0, false
}

// Find looks up key's canonical slot without taking any lock.
func (h *HashTable) Find(key dna.BinaryKmer) (slot uint64, found bool) {
	for attempt := 0; attempt < RehashLimit; attempt++ {
		b := h.bucketHash(key, attempt)
		if s, ok := h.find(b, key); ok {
			return s, true
		}
		// A bucket that isn't yet full couldn't have overflowed into the
		// next seed, so a miss in an unfull bucket means key was never
		// inserted under this seed family.
		if atomic.LoadUint32(&h.occupancy[b]) < uint32(h.bucketSize) {
			return 0, false
		}
	}
	return 0, false
}

// FindOrInsert finds key's slot, inserting it if absent. inserted reports
// whether this call performed the insert. Fails with ErrTableFull if every
// seed in the rehash family maps key to a full bucket: this is a fatal
// configuration error (the table was sized too small).
func (h *HashTable) FindOrInsert(key dna.BinaryKmer) (slot uint64, inserted bool, err error) {
	for attempt := 0; attempt < RehashLimit; attempt++ {
		b := h.bucketHash(key, attempt)
		h.lockBucket(b)
		if s, ok := h.find(b, key); ok {
			h.unlockBucket(b)
			return s, false, nil
		}
		n := h.occupancy[b]
		if n < uint32(h.bucketSize) {
			s := b*uint64(h.bucketSize) + uint64(n)
			copy(h.slotWords(s), key)
			atomic.StoreUint32(&h.occupancy[b], n+1)
			atomic.AddUint64(&h.numItems, 1)
			h.unlockBucket(b)
			return s, true, nil
		}
		h.unlockBucket(b)
		// Bucket full under this seed: fall through and try the next one.
	}
	return 0, false, errors.E(ErrTableFull, "graph: exhausted rehash family for k-mer")
}

// VisitFunc is called by Iterate for every occupied slot.
type VisitFunc func(slot uint64, key dna.BinaryKmer)

// Iterate walks the buckets assigned to partition partitionID out of
// nPartitions, so callers can distribute a full-table scan across worker
// goroutines. Buckets are striped round-robin across partitions so each
// partition gets a near-even share regardless of numBuckets' relation to
// nPartitions.
func (h *HashTable) Iterate(partitionID, nPartitions int, visit VisitFunc) {
	for b := uint64(partitionID); b < h.numBuckets; b += uint64(nPartitions) {
		n := atomic.LoadUint32(&h.occupancy[b])
		base := b * uint64(h.bucketSize)
		for i := uint32(0); i < n; i++ {
			s := base + uint64(i)
			visit(s, h.slotKey(s))
		}
	}
}

// LockSlot acquires the bucket lock covering slot and returns a function
// that releases it. Other packages that attach auxiliary per-k-mer state
// (for instance a path store's head pointer) use this to serialize their
// updates with respect to each other the same way the table serializes
// inserts, without needing their own lock array.
func (h *HashTable) LockSlot(slot uint64) (unlock func()) {
	b := slot / uint64(h.bucketSize)
	h.lockBucket(b)
	return func() { h.unlockBucket(b) }
}
