// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package engine

// Kind tags an engine-level error with one of the kinds below. It
// implements error so it can be passed directly to
// github.com/grailbio/base/errors.E and unwrapped with errors.Is, the same
// pattern graph.Kind uses for its own fatal kinds.
type Kind string

func (k Kind) Error() string { return string(k) }

// Error kinds every component in this module reports through, so a caller
// can dispatch on kind without string-matching a message.
const (
	// IoError wraps an underlying I/O failure reading or writing a graph,
	// link, or breakpoint file.
	IoError Kind = "IoError"
	// MalformedHeader is returned when a file's header doesn't parse, or
	// (gpathio) when its body fails a checksum the header recorded.
	MalformedHeader Kind = "MalformedHeader"
	// UnsupportedKmerSize is returned when a loaded file's k-mer size
	// doesn't match the graph it's being loaded into.
	UnsupportedKmerSize Kind = "UnsupportedKmerSize"
	// TableFull mirrors graph.ErrTableFull at the engine boundary.
	TableFull Kind = "TableFull"
	// OutOfPathMemory is returned when the link store's arena is exhausted.
	OutOfPathMemory Kind = "OutOfPathMemory"
	// InconsistentColors is returned when a link file references a color
	// not present in the graph it's being loaded against.
	InconsistentColors Kind = "InconsistentColors"
	// RefChromMismatch is returned when a contig named in an input header
	// is not present in the loaded reference.
	RefChromMismatch Kind = "RefChromMismatch"
)
