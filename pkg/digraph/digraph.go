// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package digraph is a directed graph that keeps nodes and edges in
// insertion order and attaches a sorted list of priorities to every edge.
package digraph

import (
	"slices"

	"github.com/samber/lo"
)

// Ignore tells traversals to skip a priority. An edge is skipped when all
// of its priorities are ignored. A nil Ignore keeps every edge.
type Ignore[P any] func(P) bool

type Graph[K comparable, P any] struct {
	cmp   func(a, b P) int
	nodes map[K]*node[K, P]
	order []K
}

type node[K comparable, P any] struct {
	children  []K
	parents   []K
	childPrio map[K][]P
}

// New creates an empty graph, cmp sorts the priorities of an edge from
// softest to hardest
func New[K comparable, P any](cmp func(a, b P) int) *Graph[K, P] {
	return &Graph[K, P]{
		cmp:   cmp,
		nodes: map[K]*node[K, P]{},
	}
}

func (g *Graph[K, P]) AddNode(n K) {
	if _, ok := g.nodes[n]; ok {
		return
	}
	g.nodes[n] = &node[K, P]{childPrio: map[K][]P{}}
	g.order = append(g.order, n)
}

// Add inserts an edge from parent to child carrying priority p, adding
// both nodes when missing.
func (g *Graph[K, P]) Add(child, parent K, p P) {
	g.AddNode(child)
	g.AddNode(parent)

	pn, cn := g.nodes[parent], g.nodes[child]
	prios, ok := pn.childPrio[child]
	if !ok {
		pn.children = append(pn.children, child)
		cn.parents = append(cn.parents, parent)
	}
	i, _ := slices.BinarySearchFunc(prios, p, func(e, t P) int {
		// insert after equal priorities
		if c := g.cmp(e, t); c != 0 {
			return c
		}
		return -1
	})
	pn.childPrio[child] = slices.Insert(prios, i, p)
}

func (g *Graph[K, P]) Contains(n K) bool {
	_, ok := g.nodes[n]
	return ok
}

func (g *Graph[K, P]) Len() int {
	return len(g.order)
}

// Nodes returns all nodes in insertion order
func (g *Graph[K, P]) Nodes() []K {
	return slices.Clone(g.order)
}

func (g *Graph[K, P]) Remove(n K) {
	nd, ok := g.nodes[n]
	if !ok {
		return
	}
	for _, c := range nd.children {
		cn := g.nodes[c]
		cn.parents = lo.Without(cn.parents, n)
	}
	for _, p := range nd.parents {
		pn := g.nodes[p]
		pn.children = lo.Without(pn.children, n)
		delete(pn.childPrio, n)
	}
	delete(g.nodes, n)
	g.order = lo.Without(g.order, n)
}

// Priorities returns the sorted priorities of the edge parent -> child
func (g *Graph[K, P]) Priorities(child, parent K) []P {
	pn, ok := g.nodes[parent]
	if !ok {
		return nil
	}
	return slices.Clone(pn.childPrio[child])
}

func (g *Graph[K, P]) kept(child, parent K, ignore Ignore[P]) bool {
	if ignore == nil {
		return true
	}
	return lo.SomeBy(g.nodes[parent].childPrio[child], func(p P) bool { return !ignore(p) })
}

func (g *Graph[K, P]) ChildNodes(n K, ignore Ignore[P]) []K {
	nd, ok := g.nodes[n]
	if !ok {
		return nil
	}
	return lo.Filter(nd.children, func(c K, _ int) bool { return g.kept(c, n, ignore) })
}

func (g *Graph[K, P]) ParentNodes(n K, ignore Ignore[P]) []K {
	nd, ok := g.nodes[n]
	if !ok {
		return nil
	}
	return lo.Filter(nd.parents, func(p K, _ int) bool { return g.kept(n, p, ignore) })
}

// LeafNodes returns the nodes without children, in insertion order
func (g *Graph[K, P]) LeafNodes(ignore Ignore[P]) []K {
	return lo.Filter(g.order, func(n K, _ int) bool { return len(g.ChildNodes(n, ignore)) == 0 })
}

// RootNodes returns the nodes without parents, in insertion order
func (g *Graph[K, P]) RootNodes(ignore Ignore[P]) []K {
	return lo.Filter(g.order, func(n K, _ int) bool { return len(g.ParentNodes(n, ignore)) == 0 })
}

// Reachable walks the graph breadth first from start and returns every
// visited node, start included, in visiting order.
func (g *Graph[K, P]) Reachable(start []K, ignore Ignore[P]) []K {
	seen := map[K]bool{}
	var queue, visited []K
	for _, s := range start {
		if g.Contains(s) && !seen[s] {
			seen[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited = append(visited, n)
		for _, c := range g.ChildNodes(n, ignore) {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return visited
}

// ShortestPath returns the nodes on a shortest path from start to end,
// both included, or nil when end cannot be reached. A path from a node to
// itself is just that node.
func (g *Graph[K, P]) ShortestPath(start, end K, ignore Ignore[P]) []K {
	if !g.Contains(start) || !g.Contains(end) {
		return nil
	}
	if start == end {
		return []K{start}
	}
	prev := map[K]K{}
	seen := map[K]bool{start: true}
	queue := []K{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range g.ChildNodes(n, ignore) {
			if seen[c] {
				continue
			}
			seen[c] = true
			prev[c] = n
			if c == end {
				path := []K{end}
				for cur := end; cur != start; {
					cur = prev[cur]
					path = append(path, cur)
				}
				slices.Reverse(path)
				return path
			}
			queue = append(queue, c)
		}
	}
	return nil
}

// Cycles returns one shortest cycle through every node that lies on a
// cycle. Each cycle is reported once, rotated so that it starts at the
// node inserted first.
func (g *Graph[K, P]) Cycles(ignore Ignore[P]) [][]K {
	index := map[K]int{}
	for i, n := range g.order {
		index[n] = i
	}

	var cycles [][]K
	seen := map[string]bool{}
	for _, n := range g.order {
		var shortest []K
		for _, c := range g.ChildNodes(n, ignore) {
			path := g.ShortestPath(c, n, ignore)
			if path != nil && (shortest == nil || len(path) < len(shortest)) {
				shortest = path
			}
		}
		if shortest == nil {
			continue
		}

		first := lo.MinBy(shortest, func(a, b K) bool { return index[a] < index[b] })
		i := slices.Index(shortest, first)
		rotated := append(slices.Clone(shortest[i:]), shortest[:i]...)
		key := cycleKey(rotated, index)
		if seen[key] {
			continue
		}
		seen[key] = true
		cycles = append(cycles, rotated)
	}
	return cycles
}

func cycleKey[K comparable](c []K, index map[K]int) string {
	b := make([]byte, 0, len(c)*4)
	for _, n := range c {
		i := index[n]
		b = append(b, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	}
	return string(b)
}

func (g *Graph[K, P]) Clone() *Graph[K, P] {
	c := New[K, P](g.cmp)
	for _, n := range g.order {
		c.AddNode(n)
	}
	for _, n := range g.order {
		nd := g.nodes[n]
		cn := c.nodes[n]
		cn.children = slices.Clone(nd.children)
		cn.parents = slices.Clone(nd.parents)
		for k, v := range nd.childPrio {
			cn.childPrio[k] = slices.Clone(v)
		}
	}
	return c
}
