// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package graphio reads and writes the binary graph file format: a fixed
// header describing the k-mer size, bitfield width, and per-color sample
// metadata, bracketed by a "CORTEX" magic, followed by one fixed-width
// record per k-mer (its packed bases, then one saturating coverage counter
// and one edge byte per color).
package graphio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

const magic = "CORTEX"

// Cleaning records what error-cleaning passes, if any, produced this
// graph — carried through so a later tool can tell a raw graph from one
// that's already had tips, low-coverage supernodes, or singleton k-mers
// removed.
type Cleaning struct {
	CleanedTips           bool
	CleanedSupernodes     bool
	CleanedKmers          bool
	IsGraphIntersection   bool
	CleanSupernodesThresh uint32
	CleanKmersThresh      uint32
	IntersectionName      string
}

// ColorInfo is one color's sample metadata.
type ColorInfo struct {
	MeanReadLength uint32
	TotalSequence  uint64
	SampleName     string
	// SeqErr is the estimated per-base sequencing error rate. Stored as a
	// float64 rather than the long double the original format used: Go has
	// no equivalent extended-precision type, and a few extra bits of
	// precision here have no bearing on any computation downstream.
	SeqErr   float64
	Cleaning Cleaning
}

// Header is the full file header: everything graph_write_header writes
// before the first k-mer record.
type Header struct {
	Version      uint32
	KmerSize     uint32
	NumBitfields uint32
	Colors       []ColorInfo
}

func (h Header) numCols() int { return len(h.Colors) }

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeFloat64(w io.Writer, f float64) error {
	return writeUint64(w, math.Float64bits(f))
}

// WriteHeader writes hdr, including the leading and trailing "CORTEX"
// magic that lets a reader sanity-check it picked up the header boundary
// correctly.
func WriteHeader(w io.Writer, hdr Header) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := writeUint32(w, hdr.Version); err != nil {
		return err
	}
	if err := writeUint32(w, hdr.KmerSize); err != nil {
		return err
	}
	if err := writeUint32(w, hdr.NumBitfields); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(hdr.numCols())); err != nil {
		return err
	}
	for _, c := range hdr.Colors {
		if err := writeUint32(w, c.MeanReadLength); err != nil {
			return err
		}
	}
	for _, c := range hdr.Colors {
		if err := writeUint64(w, c.TotalSequence); err != nil {
			return err
		}
	}
	for _, c := range hdr.Colors {
		if err := writeString(w, c.SampleName); err != nil {
			return err
		}
	}
	for _, c := range hdr.Colors {
		if err := writeFloat64(w, c.SeqErr); err != nil {
			return err
		}
	}
	for _, c := range hdr.Colors {
		if err := writeCleaning(w, c.Cleaning); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, magic)
	return err
}

func writeCleaning(w io.Writer, c Cleaning) error {
	flags := []bool{c.CleanedTips, c.CleanedSupernodes, c.CleanedKmers, c.IsGraphIntersection}
	for _, f := range flags {
		b := byte(0)
		if f {
			b = 1
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
	}
	snodesThresh := c.CleanSupernodesThresh
	if !c.CleanedSupernodes {
		snodesThresh = 0
	}
	kmersThresh := c.CleanKmersThresh
	if !c.CleanedKmers {
		kmersThresh = 0
	}
	if err := writeUint32(w, snodesThresh); err != nil {
		return err
	}
	if err := writeUint32(w, kmersThresh); err != nil {
		return err
	}
	return writeString(w, c.IntersectionName)
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readFloat64(r io.Reader) (float64, error) {
	bits, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readMagic(r io.Reader) error {
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if string(buf) != magic {
		return errors.Errorf("graphio: bad magic %q, want %q", buf, magic)
	}
	return nil
}

func readCleaning(r io.Reader) (Cleaning, error) {
	var c Cleaning
	flags := make([]byte, 4)
	if _, err := io.ReadFull(r, flags); err != nil {
		return c, err
	}
	c.CleanedTips = flags[0] != 0
	c.CleanedSupernodes = flags[1] != 0
	c.CleanedKmers = flags[2] != 0
	c.IsGraphIntersection = flags[3] != 0

	var err error
	if c.CleanSupernodesThresh, err = readUint32(r); err != nil {
		return c, err
	}
	if c.CleanKmersThresh, err = readUint32(r); err != nil {
		return c, err
	}
	if c.IntersectionName, err = readString(r); err != nil {
		return c, err
	}
	return c, nil
}

// ReadHeader parses a header previously written by WriteHeader, checking
// both the leading and trailing magic.
func ReadHeader(r io.Reader) (Header, error) {
	var hdr Header
	if err := readMagic(r); err != nil {
		return hdr, err
	}
	var err error
	if hdr.Version, err = readUint32(r); err != nil {
		return hdr, err
	}
	if hdr.KmerSize, err = readUint32(r); err != nil {
		return hdr, err
	}
	if hdr.NumBitfields, err = readUint32(r); err != nil {
		return hdr, err
	}
	numCols, err := readUint32(r)
	if err != nil {
		return hdr, err
	}
	hdr.Colors = make([]ColorInfo, numCols)

	for i := range hdr.Colors {
		if hdr.Colors[i].MeanReadLength, err = readUint32(r); err != nil {
			return hdr, err
		}
	}
	for i := range hdr.Colors {
		if hdr.Colors[i].TotalSequence, err = readUint64(r); err != nil {
			return hdr, err
		}
	}
	for i := range hdr.Colors {
		if hdr.Colors[i].SampleName, err = readString(r); err != nil {
			return hdr, err
		}
	}
	for i := range hdr.Colors {
		if hdr.Colors[i].SeqErr, err = readFloat64(r); err != nil {
			return hdr, err
		}
	}
	for i := range hdr.Colors {
		if hdr.Colors[i].Cleaning, err = readCleaning(r); err != nil {
			return hdr, err
		}
	}
	if err := readMagic(r); err != nil {
		return hdr, errors.Wrap(err, "graphio: trailing magic")
	}
	return hdr, nil
}
