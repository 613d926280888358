// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/depstring"
	"portage.dev/x/pmerge/pkg/digraph"
	"portage.dev/x/pmerge/pkg/priority"
)

// Cycle is a circular dependency that was broken, or could not be broken,
// while ordering the merge list.
type Cycle struct {
	Packages []*Package
	// Level is the hardness at and below which edges were ignored to break it
	Level int
}

func (c Cycle) String() string {
	names := lo.Map(c.Packages, func(p *Package, _ int) string { return p.Cpv })
	if len(names) > 0 {
		names = append(names, names[0])
	}
	return strings.Join(names, " -> ")
}

// Category names the priorities that were ignored to break the cycle
func (c Cycle) Category() string {
	return priority.CategoryOf(c.Level)
}

// Order sorts the packages that are merged or uninstalled so that every
// package comes after its dependencies. Among the packages that are ready
// the one discovered first is taken. When only cycles remain, edges are
// ignored from the softest level up until a package becomes ready, and the
// cycles are recorded. A cycle that holds even with every level up to
// medium ignored is a CircularDependencyError; the partial order is
// returned along with it.
func (g *Graph) Order() ([]*Package, []Cycle, error) {
	work := g.dg.Clone()
	for _, pkg := range work.Nodes() {
		if !g.IsMerge(pkg) {
			work.Remove(pkg)
		}
	}

	var order []*Package
	var cycles []Cycle
	seen := map[string]bool{}

	for work.Len() > 0 {
		var ignore digraph.Ignore[priority.Priority]
		leaves := work.LeafNodes(nil)

		level := priority.Hard
		for _, l := range priority.BreakLevels {
			if len(leaves) > 0 {
				break
			}
			ignore = priority.IgnoreAtOrBelow(l)
			leaves = work.LeafNodes(ignore)
			level = l
		}

		if len(leaves) == 0 {
			hard := lo.Map(work.Cycles(ignore), func(c []*Package, _ int) Cycle {
				return Cycle{Packages: c, Level: level}
			})
			return order, cycles, &CircularDependencyError{Cycles: hard}
		}
		if ignore != nil {
			cycles = appendCycles(cycles, seen, work, level)
		}

		next := leaves[0]
		order = append(order, next)
		work.Remove(next)
	}
	return order, cycles, nil
}

func appendCycles(cycles []Cycle, seen map[string]bool, work *digraph.Graph[*Package, priority.Priority], level int) []Cycle {
	for _, c := range work.Cycles(nil) {
		cycle := Cycle{Packages: c, Level: level}
		if seen[cycle.String()] {
			continue
		}
		seen[cycle.String()] = true
		cycles = append(cycles, cycle)
	}
	return cycles
}

var unmergeKeys = []struct {
	key      string
	priority priority.UnmergeDepPriority
}{
	{KeyRdepend, priority.UnmergeDepPriority{Runtime: true}},
	{KeyPdepend, priority.UnmergeDepPriority{RuntimePost: true}},
	{KeyDepend, priority.UnmergeDepPriority{Buildtime: true}},
	{KeyBdepend, priority.UnmergeDepPriority{Buildtime: true}},
}

// UnmergeOrder sorts packages for removal so that a package is removed
// before the packages it needs. Only runtime relationships are binding,
// buildtime ones are dropped first when the packages form a cycle.
// Dependency strings that fail to parse are ignored.
func UnmergeOrder(pkgs []*Package) []*Package {
	g := digraph.New[*Package, priority.Priority](priority.Compare)
	for _, p := range pkgs {
		g.AddNode(p)
	}
	for _, p := range pkgs {
		for _, k := range unmergeKeys {
			deps, err := depstring.Reduce(p.Metadata[k.key], p.Use, p.EAPI)
			if err != nil {
				continue
			}
			for _, a := range depstring.Flatten(deps) {
				if a.IsBlocker() {
					continue
				}
				for _, other := range pkgs {
					if other != p && other.Root == p.Root && a.Match(other.Candidate()) {
						g.Add(other, p, k.priority)
					}
				}
			}
		}
	}

	var order []*Package
	for g.Len() > 0 {
		roots := g.RootNodes(nil)
		if len(roots) == 0 {
			roots = g.RootNodes(priority.IgnoreAtOrBelow(priority.UnmergeSoft))
		}
		if len(roots) == 0 {
			roots = g.Nodes()
		}
		order = append(order, roots[0])
		g.Remove(roots[0])
	}
	return order
}
