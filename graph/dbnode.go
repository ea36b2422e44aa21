// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graph

// Orient records which strand a dBNode is being considered on. The hash
// table only ever stores the canonical k-mer; Orient says whether the
// caller means to read it forwards or as its reverse complement.
type Orient uint8

// The two orientations a k-mer can be traversed in.
const (
	Forward Orient = 0
	Reverse Orient = 1
)

// Opposite returns the other orientation.
func (o Orient) Opposite() Orient {
	return 1 - o
}

func (o Orient) String() string {
	if o == Forward {
		return "F"
	}
	return "R"
}

// DBNode identifies a k-mer and the strand it's being traversed on.
type DBNode struct {
	Key    uint64
	Orient Orient
}

// Reverse returns the same k-mer on the opposite strand.
func (n DBNode) Reverse() DBNode {
	return DBNode{Key: n.Key, Orient: n.Orient.Opposite()}
}

// Equal reports whether two nodes refer to the same k-mer on the same
// strand.
func (n DBNode) Equal(o DBNode) bool {
	return n.Key == o.Key && n.Orient == o.Orient
}
