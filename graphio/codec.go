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

// WriteKmer writes one fixed-width k-mer record: the packed k-mer words,
// then one coverage counter and one edge byte per color, in that order —
// matching graph_write_kmer's layout exactly so a C-built and a Go-built
// record are byte-identical for the same content.
func WriteKmer(w io.Writer, bk dna.BinaryKmer, covgs []uint32, edges []graph.Edges) error {
	if len(covgs) != len(edges) {
		return errors.Errorf("graphio: covgs/edges length mismatch (%d vs %d)", len(covgs), len(edges))
	}
	if _, err := w.Write(bk.Bytes()); err != nil {
		return err
	}
	for _, c := range covgs {
		if err := writeUint32(w, c); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if _, err := w.Write([]byte{byte(e)}); err != nil {
			return err
		}
	}
	return nil
}

// ReadKmer reads one record written by WriteKmer, given the per-k-mer word
// count and color count a Header already told the caller.
func ReadKmer(r io.Reader, numWords, numCols int) (dna.BinaryKmer, []uint32, []graph.Edges, error) {
	raw := make([]byte, numWords*8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, nil, err
	}
	bk, err := dna.BinaryKmerFromBytes(raw)
	if err != nil {
		return nil, nil, nil, err
	}

	covgs := make([]uint32, numCols)
	for i := range covgs {
		c, err := readUint32(r)
		if err != nil {
			return nil, nil, nil, err
		}
		covgs[i] = c
	}

	edgeBytes := make([]byte, numCols)
	if _, err := io.ReadFull(r, edgeBytes); err != nil {
		return nil, nil, nil, err
	}
	edges := make([]graph.Edges, numCols)
	for i, b := range edgeBytes {
		edges[i] = graph.Edges(b)
	}

	return bk, covgs, edges, nil
}

