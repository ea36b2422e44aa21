// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graphio

import (
	"io"

	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/graph"
	"github.com/pkg/errors"
)

// WriteGraph writes hdr followed by every occupied k-mer in g, one record
// per slot. The scan is single-threaded (partition 0 of 1): graph files
// are written once, after construction finishes, so there's no concurrent
// writer to stripe across.
func WriteGraph(w io.Writer, g *graph.Graph, hdr Header) (uint64, error) {
	if int(hdr.NumBitfields) != dna.NumWords(g.K) {
		return 0, errors.Errorf("graphio: header bitfields %d doesn't match k-mer size %d", hdr.NumBitfields, g.K)
	}
	if hdr.numCols() != g.NumCols {
		return 0, errors.Errorf("graphio: header has %d colors, graph has %d", hdr.numCols(), g.NumCols)
	}
	if err := WriteHeader(w, hdr); err != nil {
		return 0, err
	}

	var numWritten uint64
	var writeErr error
	covgs := make([]uint32, g.NumCols)
	edges := make([]graph.Edges, g.NumCols)
	g.Table.Iterate(0, 1, func(slot uint64, key dna.BinaryKmer) {
		if writeErr != nil {
			return
		}
		for c := 0; c < g.NumCols; c++ {
			covgs[c] = g.Covg(slot, c)
			edges[c] = g.Edges(slot, c)
		}
		if err := WriteKmer(w, key, covgs, edges); err != nil {
			writeErr = err
			return
		}
		numWritten++
	})
	return numWritten, writeErr
}

// ReadGraph reads a header and every k-mer record that follows it, loading
// them into a freshly allocated Graph sized by numBuckets/bucketSize (the
// file itself carries no capacity hint — it's a flat list of records, so
// the caller sizes the table the way any other FindOrInsert-based build
// would).
func ReadGraph(r io.Reader, numBuckets uint64, bucketSize int) (*graph.Graph, Header, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, hdr, err
	}
	numCols := hdr.numCols()

	g := graph.NewGraph(graph.Options{
		NumBuckets: numBuckets,
		BucketSize: bucketSize,
		KmerSize:   int(hdr.KmerSize),
		NumColors:  numCols,
	})

	for {
		bk, covgs, edges, err := ReadKmer(r, int(hdr.NumBitfields), numCols)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, hdr, err
		}
		slot, _, err := g.FindOrInsert(bk)
		if err != nil {
			return nil, hdr, err
		}
		for c := 0; c < numCols; c++ {
			g.AddCovg(slot, c, covgs[c])
			g.SetEdges(slot, c, edges[c])
		}
	}
	return g, hdr, nil
}
