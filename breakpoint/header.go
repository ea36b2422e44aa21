// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package breakpoint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grailbio/bio/kograph"
)

// ColorInfo names one color of the graph a breakpoint call set was built
// from, for the JSON header.
type ColorInfo struct {
	SampleName string `json:"sample_name"`
}

// Header is the JSON document written before any call records, describing
// the graph, reference, and command that produced the file.
type Header struct {
	FileFormat    string           `json:"file_format"`
	FormatVersion int              `json:"format_version"`
	KmerSize      int              `json:"kmer_size"`
	Colors        []ColorInfo      `json:"colors"`
	Commands      []string         `json:"commands"`
	Breakpoints   breakpointHeader `json:"breakpoints"`
}

type breakpointHeader struct {
	RefFiles []string        `json:"ref_files"`
	Contigs  []contigHeader  `json:"contigs"`
}

type contigHeader struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
}

// WriteHeader writes hdr as a single JSON object followed by the comment
// block describing the chr= run-list format, matching the convention
// every McCortex-style output file in this codebase uses: a JSON preamble
// that downstream tools parse, followed by human-readable comment lines
// that they skip.
func WriteHeader(w io.Writer, hdr Header, contigs []kograph.Contig) error {
	hdr.Breakpoints.Contigs = make([]contigHeader, len(contigs))
	for i, c := range contigs {
		hdr.Breakpoints.Contigs[i] = contigHeader{ID: c.Name, Length: c.Length}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(hdr); err != nil {
		return err
	}

	fmt.Fprint(w, "\n"+
		"# Comment lines begin with # and are ignored, but must come after the header\n"+
		"# Format is:\n"+
		"#   chr=seq:start-end:strand:offset\n"+
		"#   all coordinates are 1-based\n"+
		"#   <strand> is + or -. If +, start <= end, otherwise start >= end.\n"+
		"#   <offset> is the position in the call's sequence where the reference run starts\n"+
		"\n")
	return nil
}
