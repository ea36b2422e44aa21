// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package engine

import (
	"io"

	"github.com/grailbio/bio/breakpoint"
)

// NewBreakpointCaller builds a breakpoint.Caller wired to this engine's
// graph, link store, and reference index, writing to out under the
// engine's shared output mutex and drawing ids from the engine's shared
// call-id counter. Caller.Run itself splits the table scan across worker
// goroutines, each with its own repeat walker; the Caller holds no
// per-worker state. Every Caller built from the same Engine publishes
// through the same output mutex and call-id counter.
func (e *Engine) NewBreakpointCaller(minRefKmers, maxRefKmers int, out io.Writer) *breakpoint.Caller {
	if e.KO == nil {
		fatal(RefChromMismatch, "engine: NewBreakpointCaller called before SetReference")
	}
	return breakpoint.NewCaller(e.Graph, e.Store, e.KO, minRefKmers, maxRefKmers, out, &e.OutMu, e.CallIDPtr())
}
