// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package gpathio reads and writes the ".ctp" link file format: a JSON
// header describing the graph and path statistics, a human-readable
// comment block, then one text record per k-mer that has paths, gzip
// compressed end to end.
package gpathio

import (
	"encoding/json"
	"io"
)

const (
	fileFormat    = "ctp"
	formatVersion = 3
)

// ContigHist is a path-length histogram for one color: Counts[i] is the
// number of contigs that contributed a path of length Lengths[i] k-mers.
type ContigHist struct {
	Lengths []int `json:"lengths"`
	Counts  []int `json:"counts"`
}

// ColorInfo names one color of the path store, for the JSON header.
type ColorInfo struct {
	SampleName string `json:"sample_name"`
}

// PathsInfo carries the summary statistics gpath.Store accumulates.
type PathsInfo struct {
	NumKmersWithPaths uint64       `json:"num_kmers_with_paths"`
	NumPaths          uint64       `json:"num_paths"`
	PathBytes         uint64       `json:"path_bytes"`
	ContigHists       []ContigHist `json:"contig_hists"`
}

// Header is the JSON document written before the comment block and the
// per-k-mer path records.
type Header struct {
	FileFormat    string      `json:"file_format"`
	FormatVersion int         `json:"format_version"`
	KmerSize      int         `json:"kmer_size"`
	Colors        []ColorInfo `json:"colors"`
	Paths         PathsInfo   `json:"paths"`
	// Checksum is the seahash digest of the uncompressed record body that
	// follows the comment block, so a reader can tell a truncated or
	// bit-flipped file from one that decompressed cleanly but whose content
	// is still wrong.
	Checksum uint64 `json:"checksum"`
}

const explanationComment = "" +
	"# Comment lines begin with # and are ignored, but must come after the header\n" +
	"# Format is:\n" +
	"#   [kmer] [num_paths]\n" +
	"#   [FR] [num_kmers] [num_juncs] [nseen0,nseen1,...] [juncs:ACAGT]\n" +
	"\n"

func writeHeader(w io.Writer, hdr Header) error {
	hdr.FileFormat = fileFormat
	hdr.FormatVersion = formatVersion
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(hdr); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n"+explanationComment)
	return err
}

// readHeader decodes the JSON header from r and returns it along with a
// reader positioned right after it (json.Decoder reads ahead into its own
// buffer, so the leftover bytes have to be stitched back in front of r).
func readHeader(r io.Reader) (Header, io.Reader, error) {
	var hdr Header
	dec := json.NewDecoder(r)
	if err := dec.Decode(&hdr); err != nil {
		return hdr, nil, err
	}
	return hdr, io.MultiReader(dec.Buffered(), r), nil
}
