// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package engine

import (
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bio/gpathio"
	"github.com/grailbio/bio/graphio"
)

// LoadGraph reads a graph file from r into the engine's graph, replacing
// it. numBuckets and bucketSize size the rebuilt hash table; they need not
// match whatever table the file was originally written from, only be large
// enough to hold every k-mer the file contains.
//
// A k-mer size mismatch between the file and what the engine was
// constructed with is fatal: a caller can't usefully continue with two
// different k values in play.
func (e *Engine) LoadGraph(r io.Reader, numBuckets uint64, bucketSize int) error {
	g, hdr, err := graphio.ReadGraph(r, numBuckets, bucketSize)
	if err != nil {
		return errors.E(err, IoError, "engine: reading graph file")
	}
	if e.Graph != nil && int(hdr.KmerSize) != e.Graph.K {
		fatal(UnsupportedKmerSize, "graph file has k=%d, engine expects k=%d", hdr.KmerSize, e.Graph.K)
	}
	e.Graph = g
	return nil
}

// SaveGraph writes the engine's graph to w under hdr, returning the number
// of k-mer records written.
func (e *Engine) SaveGraph(w io.Writer, hdr graphio.Header) (uint64, error) {
	n, err := graphio.WriteGraph(w, e.Graph, hdr)
	if err != nil {
		return n, errors.E(err, IoError, "engine: writing graph file")
	}
	return n, nil
}

// LoadLinks reads a link file from r into the engine's link store. Record
// colors outside the graph's color range are skipped during the replay, so
// the colors that are valid still load; a header naming more colors than
// the graph has is then reported as InconsistentColors.
func (e *Engine) LoadLinks(r io.Reader) (gpathio.Header, error) {
	hdr, err := gpathio.ReadStore(r, e.Graph, e.Store)
	if err != nil {
		return hdr, errors.E(err, MalformedHeader, "engine: reading link file")
	}
	if len(hdr.Colors) > e.Graph.NumCols {
		return hdr, errors.E(InconsistentColors, "engine: link file names", len(hdr.Colors), "colors, graph has", e.Graph.NumCols)
	}
	return hdr, nil
}

// SaveLinks writes the engine's link store to w under hdr.
func (e *Engine) SaveLinks(w io.Writer, hdr gpathio.Header) error {
	if err := gpathio.WriteStore(w, e.Graph, e.Store, hdr); err != nil {
		return errors.E(err, IoError, "engine: writing link file")
	}
	return nil
}
