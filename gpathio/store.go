// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gpathio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/bio/dna"
	"github.com/grailbio/bio/gpath"
	"github.com/grailbio/bio/graph"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// sum64 hashes data with seahash, a fast non-cryptographic hash used here
// only as a plain corruption check on the record body (gpath's dedup table
// uses highwayhash instead).
func sum64(data []byte) uint64 {
	h := seahash.New()
	_, _ = h.Write(data) // hash.Hash.Write never returns an error
	return h.Sum64()
}

// WriteStore writes hdr (with Checksum and Paths filled in from store)
// followed by every k-mer in g that has at least one recorded path,
// gzip-compressed.
func WriteStore(w io.Writer, g *graph.Graph, store *gpath.Store, hdr Header) error {
	body, numKmersWithPaths, err := renderBody(g, store)
	if err != nil {
		return err
	}
	hdr.Checksum = sum64(body)
	hdr.Paths.NumKmersWithPaths = numKmersWithPaths
	hdr.Paths.NumPaths = store.NumPaths()
	hdr.Paths.PathBytes = store.BytesUsed()

	gz := gzip.NewWriter(w)
	if err := writeHeader(gz, hdr); err != nil {
		gz.Close()
		return err
	}
	if _, err := gz.Write(body); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func renderBody(g *graph.Graph, store *gpath.Store) ([]byte, uint64, error) {
	var buf bytes.Buffer
	var iterErr error
	var numKmersWithPaths uint64

	g.Table.Iterate(0, 1, func(slot uint64, key dna.BinaryKmer) {
		if iterErr != nil || !store.HasPaths(slot) {
			return
		}
		var recs []*gpath.Record
		if err := store.Walk(slot, func(r *gpath.Record) bool {
			recs = append(recs, r)
			return true
		}); err != nil {
			iterErr = err
			return
		}
		if len(recs) == 0 {
			return
		}
		numKmersWithPaths++
		fmt.Fprintf(&buf, "%s %d\n", key.String(g.K), len(recs))
		for _, r := range recs {
			writeRecordLine(&buf, r)
		}
	})
	return buf.Bytes(), numKmersWithPaths, iterErr
}

func writeRecordLine(buf *bytes.Buffer, r *gpath.Record) {
	orientCh := byte('F')
	if r.Orient == graph.Reverse {
		orientCh = 'R'
	}
	nseenParts := make([]string, len(r.NSeen))
	for i, n := range r.NSeen {
		nseenParts[i] = strconv.Itoa(int(n))
	}
	seq := dna.UnpackedToString(dna.Unpack(r.Seq, r.NumJuncs))
	fmt.Fprintf(buf, "%c %d %d %s %s\n", orientCh, r.NumKmers, r.NumJuncs, strings.Join(nseenParts, ","), seq)
}

// ReadStore decompresses r, parses the header and comment block, verifies
// the seahash checksum against the record body, and replays every record
// into store, inserting it once per color for every time that color
// observed it. Colors at or beyond store.NumCols() are skipped.
func ReadStore(r io.Reader, g *graph.Graph, store *gpath.Store) (Header, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Header{}, err
	}
	defer gz.Close()

	hdr, rest, err := readHeader(gz)
	if err != nil {
		return hdr, err
	}

	body, err := io.ReadAll(rest)
	if err != nil {
		return hdr, err
	}
	// The checksum covers only the records, so skip the blank and comment
	// lines writeHeader puts between the JSON header and the body.
	for len(body) > 0 && (body[0] == '\n' || body[0] == '#') {
		i := bytes.IndexByte(body, '\n')
		if i < 0 {
			body = body[len(body):]
			break
		}
		body = body[i+1:]
	}
	if got := sum64(body); got != hdr.Checksum {
		return hdr, errors.Errorf("gpathio: checksum mismatch: file says %d, body hashes to %d", hdr.Checksum, got)
	}

	if err := replayBody(body, g, store); err != nil {
		return hdr, err
	}
	return hdr, nil
}

func replayBody(body []byte, g *graph.Graph, store *gpath.Store) error {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var slot uint64
	var pathsLeft int
	haveKmer := false

	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if pathsLeft == 0 {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return errors.Errorf("gpathio: malformed kmer line %q", line)
			}
			bk, err := dna.FromString(fields[0])
			if err != nil {
				return errors.Wrapf(err, "gpathio: parsing kmer %q", fields[0])
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return errors.Wrapf(err, "gpathio: parsing path count for %q", fields[0])
			}
			slot, _, err = g.FindOrInsert(bk)
			if err != nil {
				return err
			}
			pathsLeft = n
			haveKmer = true
			continue
		}

		if !haveKmer {
			return errors.New("gpathio: path record with no preceding kmer line")
		}
		if err := replayRecordLine(line, slot, store); err != nil {
			return err
		}
		pathsLeft--
	}
	return sc.Err()
}

func replayRecordLine(line string, slot uint64, store *gpath.Store) error {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return errors.Errorf("gpathio: malformed path record %q", line)
	}
	orient := graph.Forward
	if fields[0] == "R" {
		orient = graph.Reverse
	}
	numKmers, err := strconv.Atoi(fields[1])
	if err != nil {
		return errors.Wrapf(err, "gpathio: parsing num_kmers in %q", line)
	}
	numJuncs, err := strconv.Atoi(fields[2])
	if err != nil {
		return errors.Wrapf(err, "gpathio: parsing num_juncs in %q", line)
	}
	nseenStrs := strings.Split(fields[3], ",")
	bases, err := dna.UnpackedFromString(fields[4])
	if err != nil {
		return errors.Wrapf(err, "gpathio: parsing junction bases in %q", line)
	}
	seq := make([]byte, dna.PackedLen(numJuncs))
	dna.Pack(seq, bases)

	for col, s := range nseenStrs {
		if col >= store.NumCols() {
			break
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.Wrapf(err, "gpathio: parsing nseen[%d] in %q", col, line)
		}
		for i := 0; i < n; i++ {
			if _, err := store.Insert(slot, orient, numKmers, numJuncs, seq, col); err != nil {
				return err
			}
		}
	}
	return nil
}
