// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd_test

import (
	"testing"

	"github.com/grailbio/bio/biosimd"
	"github.com/stretchr/testify/assert"
)

func TestReverseComp2Inplace(t *testing.T) {
	// ACGT=0123
	acgt := []byte{0, 0, 1, 2, 3}
	biosimd.ReverseComp2Inplace(acgt)
	// reverse: 3,2,1,0,0 ; complement (xor 3): 0,1,2,3,3
	assert.Equal(t, []byte{0, 1, 2, 3, 3}, acgt)
}

func TestReverseComp2(t *testing.T) {
	src := []byte{0, 1, 2, 3}
	dst := make([]byte, len(src))
	biosimd.ReverseComp2(dst, src)
	assert.Equal(t, []byte{0, 1, 2, 3}, dst)
}

func TestReverseComp2PanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on length mismatch")
		}
	}()
	biosimd.ReverseComp2(make([]byte, 2), make([]byte, 3))
}
