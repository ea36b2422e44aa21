// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package engine is the single process-wide owner of a colored de Bruijn
// graph, its link store, and its reference occurrence index. Graph, Store,
// and KOGraph hold cyclic conceptual references to each other (a breakpoint
// call walks the graph, consults the link store, and checks the reference
// index all at once); rather than have any one of them own another, every
// component that needs them borrows a pointer from an Engine constructed
// once at startup. The output mutex and the call-id counter are the other
// two thread-safe singletons the design calls for, and live here for the
// same reason.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/grailbio/bio/kograph"
)

// Engine holds the graph, link store, and reference index a run operates
// on, plus the two singletons every worker shares: the output mutex and
// the call-id counter. Components receive it (or its fields) by borrowed
// pointer; none of them owns another.
type Engine struct {
	Graph *graph.Graph
	Store *gpath.Store
	KO    *kograph.KOGraph

	// OutMu serializes writes to whatever stream breakpoint calls, or any
	// other per-record output, are written to. Held for the duration of
	// exactly one record's write, never across a blocking I/O call longer
	// than that.
	OutMu sync.Mutex

	// callID is the global id counter callers draw from with NextCallID,
	// or directly through CallIDPtr.
	callID uint64
}

// Options configures a new Engine's graph and link store. KOGraph is built
// separately (it needs reference contigs, which aren't part of engine
// construction) and attached with SetReference.
type Options struct {
	Graph graph.Options

	// LinkArenaBytes sizes the link store's record arena.
	LinkArenaBytes uint64
	// LinkDedupBuckets sizes the link store's dedup hash table.
	LinkDedupBuckets uint64
	// LinkDedupBucketSize is the number of dedup entries per bucket.
	LinkDedupBucketSize int
}

// New builds an Engine with a freshly allocated graph and link store. The
// store's slot capacity tracks the graph's hash table capacity, matching
// how mccortex sizes both from the same command-line flags.
func New(opts Options) *Engine {
	g := graph.NewGraph(opts.Graph)
	store := gpath.NewStore(g.Table.Capacity(), opts.LinkArenaBytes, opts.Graph.NumColors, opts.LinkDedupBuckets, opts.LinkDedupBucketSize)
	return &Engine{Graph: g, Store: store}
}

// SetReference attaches a KOGraph built over refs to the engine. It must be
// called before any component that consults e.KO runs.
func (e *Engine) SetReference(ko *kograph.KOGraph) {
	e.KO = ko
}

// NextCallID returns the next value in the shared call-id sequence,
// starting at 0, exactly once per call across every goroutine using this
// Engine.
func (e *Engine) NextCallID() uint64 {
	return atomic.AddUint64(&e.callID, 1) - 1
}

// CallIDPtr exposes the counter's address so a component (breakpoint.Caller)
// can be constructed to draw from it directly via atomic ops, instead of
// going through NextCallID one call at a time.
func (e *Engine) CallIDPtr() *uint64 {
	return &e.callID
}

// NumCallsIssued returns how many ids NextCallID/CallIDPtr holders have
// handed out so far.
func (e *Engine) NumCallsIssued() uint64 {
	return atomic.LoadUint64(&e.callID)
}

// fatal logs msg and args as the single diagnostic line the error-handling
// policy calls for, then aborts the process through log.Fatalf, which adds
// its own timestamp. I/O, memory, and malformed-input errors reach this;
// per-record rejections never do.
func fatal(kind Kind, msg string, args ...interface{}) {
	log.Fatalf("fatal error [%s]: "+msg, append([]interface{}{kind}, args...)...)
}
