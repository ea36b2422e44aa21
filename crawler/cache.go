// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package crawler explores every color-consistent extension from a start
// node, walking supernode by supernode and caching unique supernodes so
// colors that share a suffix don't re-walk it.
package crawler

import "github.com/grailbio/bio/graph"

// GCacheSnode is one maximal unbranching run of nodes, deduplicated by its
// first node so two colors that pass through the same run share a cache
// entry.
type GCacheSnode struct {
	ID    int
	Nodes []graph.DBNode // in walk order
}

// First returns the supernode's entry node.
func (s *GCacheSnode) First() graph.DBNode { return s.Nodes[0] }

// GCacheStep is one supernode traversal within one path.
type GCacheStep struct {
	ID        int
	PathID    int
	Supernode int // index into GraphCache.Snodes
}

// GCachePath is one color's walk, recorded as an ordered list of steps.
type GCachePath struct {
	ID     int
	Steps  []int // indices into GraphCache.Steps
	Colors []int
}

// GraphCache accumulates the supernodes, steps, and paths produced while
// crawling from a single start node.
type GraphCache struct {
	Snodes []*GCacheSnode
	Steps  []*GCacheStep
	Paths  []*GCachePath

	snodeByFirst map[graph.DBNode]int
}

func newGraphCache() *GraphCache {
	return &GraphCache{snodeByFirst: map[graph.DBNode]int{}}
}

// addSnode returns the id of the cached supernode spanning nodes,
// reusing an existing entry if one already starts at the same node.
func (c *GraphCache) addSnode(nodes []graph.DBNode) int {
	first := nodes[0]
	if id, ok := c.snodeByFirst[first]; ok {
		return id
	}
	id := len(c.Snodes)
	c.Snodes = append(c.Snodes, &GCacheSnode{ID: id, Nodes: nodes})
	c.snodeByFirst[first] = id
	return id
}

func (c *GraphCache) addStep(pathID, snodeID int) int {
	id := len(c.Steps)
	c.Steps = append(c.Steps, &GCacheStep{ID: id, PathID: pathID, Supernode: snodeID})
	return id
}

func (c *GraphCache) newPath(color int) *GCachePath {
	p := &GCachePath{ID: len(c.Paths), Colors: []int{color}}
	c.Paths = append(c.Paths, p)
	return p
}

// Step returns the step with the given id.
func (c *GraphCache) Step(id int) *GCacheStep { return c.Steps[id] }

// Snode returns the supernode with the given id.
func (c *GraphCache) Snode(id int) *GCacheSnode { return c.Snodes[id] }

// Path returns the path with the given id.
func (c *GraphCache) Path(id int) *GCachePath { return c.Paths[id] }
