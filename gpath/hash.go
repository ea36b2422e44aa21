// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpath

import (
	"runtime"
	"sync/atomic"

	"github.com/grailbio/bio/graph"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// hashKey is fixed so the package's highwayhash digests are reproducible
// across runs; there's no adversarial input here, just a need for a fast,
// well-distributed 64-bit hash over (slot, orient, junction bytes).
var hashKey = [32]byte{
	0x67, 0x70, 0x61, 0x74, 0x68, 0x2d, 0x64, 0x65,
	0x64, 0x75, 0x70, 0x2d, 0x68, 0x61, 0x73, 0x68,
	0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x76, 0x31, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// hashEntry is one slot in the dedup table: it names the record in the
// arena that owns this (slot, orient, seq) combination, so later inserts
// can find it and flip on another color instead of duplicating the path.
type hashEntry struct {
	tableSlot uint64
	offset    uint64
}

const noOffset = ^uint64(0)

// hash is an open-addressed side table mapping (tableSlot, orient, junction
// sequence) to the arena offset of the one record that stores them. It
// exists only to make FindOrAdd's "have we seen this path already"
// question fast; the records themselves, and their chaining by table slot,
// live in Store's arena.
type hash struct {
	store      *Store
	numBuckets uint64
	bucketSize int
	mask       uint64
	entries    []hashEntry
	occupancy  []uint32
	locks      []uint32
}

func newHash(store *Store, numBuckets uint64, bucketSize int) *hash {
	if numBuckets == 0 || (numBuckets&(numBuckets-1)) != 0 {
		panic("gpath: dedup numBuckets must be a power of two")
	}
	capacity := numBuckets * uint64(bucketSize)
	entries := make([]hashEntry, capacity)
	for i := range entries {
		entries[i].offset = noOffset
	}
	return &hash{
		store:      store,
		numBuckets: numBuckets,
		bucketSize: bucketSize,
		mask:       numBuckets - 1,
		entries:    entries,
		occupancy:  make([]uint32, numBuckets),
		locks:      make([]uint32, numBuckets),
	}
}

func (h *hash) lockBucket(b uint64) {
	for !atomic.CompareAndSwapUint32(&h.locks[b], 0, 1) {
		runtime.Gosched()
	}
}

func (h *hash) unlockBucket(b uint64) {
	atomic.StoreUint32(&h.locks[b], 0)
}

func (h *hash) bucketHash(tableSlot uint64, orient graph.Orient, seq []byte, attempt int) uint64 {
	buf := make([]byte, 9+len(seq))
	for i := 0; i < 8; i++ {
		buf[i] = byte(tableSlot >> uint(i*8))
	}
	buf[8] = byte(orient)
	copy(buf[9:], seq)
	digest := highwayhash.Sum64(buf, hashKey[:])
	return (digest ^ uint64(attempt)*0x9e3779b97f4a7c15) & h.mask
}

// result values returned by FindOrAdd.
type Result int

const (
	// Inserted means a brand new record was created.
	Inserted Result = iota
	// AddedColor means an existing record now also covers col.
	AddedColor
	// AlreadyPresent means col was already recorded against this path.
	AlreadyPresent
)

// FindOrAdd looks for a record at tableSlot with the given orient and
// junction sequence. If found, it marks col present on the existing record
// (AddedColor, or AlreadyPresent if col was already set, bumping NSeen[col]
// either way). Otherwise it allocates a new record via h.store and chains
// it onto tableSlot's list (Inserted).
//
// The caller must hold tableSlot's graph.HashTable bucket lock (via
// graph.HashTable.LockSlot) for the duration of this call: that's what
// guarantees the chain a concurrent lock-free reader observes via
// Store.Walk is always consistent, even though the dedup buckets below are
// keyed independently of tableSlot.
func (h *hash) FindOrAdd(tableSlot uint64, orient graph.Orient, numKmers, numJuncs int, seq []byte, numCols, col int) (Result, error) {
	for attempt := 0; attempt < graph.RehashLimit; attempt++ {
		b := h.bucketHash(tableSlot, orient, seq, attempt)
		h.lockBucket(b)
		n := atomic.LoadUint32(&h.occupancy[b])
		base := b * uint64(h.bucketSize)
		for i := uint32(0); i < n; i++ {
			e := h.entries[base+uint64(i)]
			if e.tableSlot != tableSlot {
				continue
			}
			rec, _, err := decode(h.store.arena[:atomic.LoadUint64(&h.store.tail)], e.offset, numCols)
			if err != nil {
				h.unlockBucket(b)
				return 0, err
			}
			if rec.NumJuncs != numJuncs || !recordsEqual(numJuncs, rec.Seq, seq, rec.Orient, orient) {
				continue
			}
			result := AddedColor
			if rec.HasColor(col) {
				result = AlreadyPresent
			} else {
				rec.setColor(col)
			}
			rec.NSeen[col] = bumpNSeen(rec.NSeen[col])
			h.unlockBucket(b)
			return result, nil
		}
		if n < uint32(h.bucketSize) {
			offset, err := h.store.appendRecord(tableSlot, orient, numKmers, numJuncs, seq, numCols, col)
			if err != nil {
				h.unlockBucket(b)
				return 0, err
			}
			h.entries[base+uint64(n)] = hashEntry{tableSlot: tableSlot, offset: offset}
			atomic.StoreUint32(&h.occupancy[b], n+1)
			h.unlockBucket(b)
			return Inserted, nil
		}
		h.unlockBucket(b)
	}
	return 0, errors.Errorf("gpath: exhausted rehash family for dedup lookup")
}
