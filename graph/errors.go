// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package graph

// Kind tags a sentinel error with one of this package's fatal error kinds.
// It implements error so it can be passed directly to
// github.com/grailbio/base/errors.E and unwrapped with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

// Fatal error kinds a caller can match on with errors.Is.
const (
	// ErrTableFull is returned when find-or-insert exhausts RehashLimit
	// rehash attempts without finding free space.
	ErrTableFull Kind = "TableFull"
)
