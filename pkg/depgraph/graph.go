// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/digraph"
	"portage.dev/x/pmerge/pkg/priority"
)

// ErrStaleHandle is returned for handles of a discarded graph generation
var ErrStaleHandle = errors.New("stale node handle")

// NodeHandle refers to a package of one graph generation
type NodeHandle struct {
	Generation int
	Index      int
}

// Dependency is an edge of the graph. Parent is nil for arguments.
type Dependency struct {
	Atom     *atom.Atom
	Blocker  bool
	Child    *Package
	Parent   *Package
	Root     string
	Depth    int
	Priority priority.DepPriority
	OnlyDeps bool

	// set when the edge stands in for an edge of a collapsed package, such
	// as the provider chosen for a virtual
	CollapsedParent   *Package
	CollapsedPriority *priority.DepPriority
}

func (d *Dependency) String() string {
	parent := "argument"
	if d.Parent != nil {
		parent = d.Parent.String()
	}
	return fmt.Sprintf("%s -> %s (%s)", parent, d.Atom, d.Priority.Label())
}

// Graph holds the packages and dependencies of one resolution attempt.
// A graph is never repaired, a new attempt starts from a new generation.
type Graph struct {
	generation int
	arena      []*Package
	handles    map[PackageKey]NodeHandle
	dg         *digraph.Graph[*Package, priority.Priority]
	slots      map[SlotKey]*Package
	incoming   map[*Package][]*Dependency
	depth      map[*Package]int
	deps       []*Dependency
	blockers   []*Dependency
	conflicts  map[SlotKey][]*Package
}

func NewGraph(generation int) *Graph {
	return &Graph{
		generation: generation,
		handles:    map[PackageKey]NodeHandle{},
		dg:         digraph.New[*Package, priority.Priority](priority.Compare),
		slots:      map[SlotKey]*Package{},
		incoming:   map[*Package][]*Dependency{},
		depth:      map[*Package]int{},
		conflicts:  map[SlotKey][]*Package{},
	}
}

func (g *Graph) Generation() int {
	return g.generation
}

// AddPackage adds pkg to the graph, or returns the handle of the package
// with the same key. Packages other than uninstalls occupy their slot.
func (g *Graph) AddPackage(pkg *Package) NodeHandle {
	if h, ok := g.handles[pkg.Key()]; ok {
		return h
	}
	h := NodeHandle{Generation: g.generation, Index: len(g.arena)}
	g.arena = append(g.arena, pkg)
	g.handles[pkg.Key()] = h
	g.dg.AddNode(pkg)
	if pkg.Operation != OpUninstall {
		if _, ok := g.slots[pkg.SlotKey()]; !ok {
			g.slots[pkg.SlotKey()] = pkg
		}
	}
	return h
}

func (g *Graph) Package(h NodeHandle) (*Package, error) {
	if h.Generation != g.generation || h.Index < 0 || h.Index >= len(g.arena) {
		return nil, ErrStaleHandle
	}
	return g.arena[h.Index], nil
}

// Lookup returns the graph's own instance of a package with the same key
func (g *Graph) Lookup(pkg *Package) (*Package, bool) {
	h, ok := g.handles[pkg.Key()]
	if !ok {
		return nil, false
	}
	return g.arena[h.Index], true
}

func (g *Graph) Contains(pkg *Package) bool {
	_, ok := g.handles[pkg.Key()]
	return ok
}

// SlotOccupant returns the package holding the slot key
func (g *Graph) SlotOccupant(k SlotKey) (*Package, bool) {
	p, ok := g.slots[k]
	return p, ok
}

// AddDependency records dep. Blockers are kept aside and do not create
// edges. A child landing in a slot taken by another package fails with
// a SlotConflictError and is not added.
func (g *Graph) AddDependency(dep *Dependency) (*Dependency, error) {
	if dep.Parent != nil {
		parent, ok := g.Lookup(dep.Parent)
		if !ok {
			return nil, fmt.Errorf("parent %s is not part of the graph", dep.Parent)
		}
		dep.Parent = parent
		if minDepth := g.depth[parent] + 1; dep.Depth < minDepth {
			dep.Depth = minDepth
		}
	}

	if dep.Blocker {
		g.blockers = append(g.blockers, dep)
		return dep, nil
	}
	if dep.Child == nil {
		return nil, fmt.Errorf("dependency %s has no child", dep.Atom)
	}

	if existing, ok := g.Lookup(dep.Child); ok {
		dep.Child = existing
	} else if dep.Child.Operation != OpUninstall {
		if occupant, ok := g.slots[dep.Child.SlotKey()]; ok {
			conflict := &SlotConflictError{
				Slot:       dep.Child.SlotKey(),
				Existing:   occupant,
				Candidate:  dep.Child,
				Atom:       dep.Atom,
				Parent:     dep.Parent,
				ExistingBy: g.incoming[occupant],
			}
			g.conflicts[conflict.Slot] = lo.Uniq(append(g.conflicts[conflict.Slot], occupant, dep.Child))
			return nil, conflict
		}
	}

	g.AddPackage(dep.Child)
	child := dep.Child
	if d, ok := g.depth[child]; !ok || dep.Depth < d {
		g.depth[child] = dep.Depth
	}

	g.deps = append(g.deps, dep)
	g.incoming[child] = append(g.incoming[child], dep)
	if dep.Parent != nil {
		g.dg.Add(child, dep.Parent, dep.Priority)
	}
	return dep, nil
}

// AddOrderingEdge forces child before parent without recording a
// dependency, used for blocker resolution and uninstall ordering.
func (g *Graph) AddOrderingEdge(child, parent *Package, p priority.Priority) {
	g.AddPackage(child)
	g.AddPackage(parent)
	c, _ := g.Lookup(child)
	pa, _ := g.Lookup(parent)
	g.dg.Add(c, pa, p)
}

// Packages returns every package in discovery order
func (g *Graph) Packages() []*Package {
	return g.dg.Nodes()
}

func (g *Graph) Dependencies() []*Dependency {
	return g.deps
}

func (g *Graph) Blockers() []*Dependency {
	return g.blockers
}

// Incoming returns the dependencies pointing at pkg
func (g *Graph) Incoming(pkg *Package) []*Dependency {
	if p, ok := g.Lookup(pkg); ok {
		return g.incoming[p]
	}
	return nil
}

func (g *Graph) Depth(pkg *Package) int {
	if p, ok := g.Lookup(pkg); ok {
		return g.depth[p]
	}
	return 0
}

// SlotConflicts returns every slot key that saw more than one package
func (g *Graph) SlotConflicts() map[SlotKey][]*Package {
	return g.conflicts
}

// IsMerge reports whether pkg ends up in the merge list: it must be an
// uninstall, or a new package pulled in by at least one edge that is not
// marked onlydeps.
func (g *Graph) IsMerge(pkg *Package) bool {
	switch pkg.Operation {
	case OpUninstall:
		return g.Contains(pkg)
	case OpNoMerge:
		return false
	}
	return lo.SomeBy(g.Incoming(pkg), func(d *Dependency) bool { return !d.OnlyDeps })
}

func (g *Graph) ChildNodes(pkg *Package, ignore func(priority.Priority) bool) []*Package {
	p, ok := g.Lookup(pkg)
	if !ok {
		return nil
	}
	return g.dg.ChildNodes(p, ignore)
}

func (g *Graph) ParentNodes(pkg *Package, ignore func(priority.Priority) bool) []*Package {
	p, ok := g.Lookup(pkg)
	if !ok {
		return nil
	}
	return g.dg.ParentNodes(p, ignore)
}

// Priorities returns the sorted priorities of the edge parent -> child
func (g *Graph) Priorities(child, parent *Package) []priority.Priority {
	c, ok1 := g.Lookup(child)
	p, ok2 := g.Lookup(parent)
	if !ok1 || !ok2 {
		return nil
	}
	return g.dg.Priorities(c, p)
}

// DeepSystemRuntimeDeps returns the packages matched by the system atoms
// and everything they reach through runtime and runtime_post edges.
func (g *Graph) DeepSystemRuntimeDeps(system []*atom.Atom) []*Package {
	var start []*Package
	for _, pkg := range g.Packages() {
		if pkg.Operation == OpUninstall {
			continue
		}
		if lo.SomeBy(system, func(a *atom.Atom) bool { return a.Match(pkg.Candidate()) }) {
			start = append(start, pkg)
		}
	}
	return g.dg.Reachable(start, priority.OnlyRuntime)
}
