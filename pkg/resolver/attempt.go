// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/depstring"
	"portage.dev/x/pmerge/pkg/eapi"
	"portage.dev/x/pmerge/pkg/priority"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

// pending is a dependency waiting for a package to be selected
type pending struct {
	dep *depgraph.Dependency
	arg bool
}

// attempt builds one graph under fixed runtime parameters
type attempt struct {
	r      *Resolver
	params *params
	graph  *depgraph.Graph
	queue  []pending
	// byCp indexes the graph packages by root and category/package
	byCp map[string][]depgraph.NodeHandle
	// uninstalls maps an uninstall to the blocker causing it
	uninstalls map[depgraph.PackageKey]*depgraph.Dependency
}

func (r *Resolver) newAttempt(generation int, p *params) *attempt {
	return &attempt{
		r:          r,
		params:     p,
		graph:      depgraph.NewGraph(generation),
		byCp:       map[string][]depgraph.NodeHandle{},
		uninstalls: map[depgraph.PackageKey]*depgraph.Dependency{},
	}
}

// build seeds the queue with the arguments and selects packages until the
// queue is empty or a conflict stops the attempt
func (a *attempt) build(args []argument) (*conflict, error) {
	for _, arg := range args {
		a.queue = append(a.queue, pending{arg: true, dep: &depgraph.Dependency{
			Atom:     arg.atom.Evaluate(stringset.New()),
			Root:     a.r.target,
			OnlyDeps: a.r.opts.OnlyDeps,
		}})
	}

	for len(a.queue) > 0 {
		next := a.queue[0]
		a.queue = a.queue[1:]
		if c, err := a.process(next); c != nil || err != nil {
			return c, err
		}
	}
	return nil, nil
}

func (a *attempt) process(p pending) (*conflict, error) {
	dep := p.dep
	child, c, err := a.selectPackage(dep, p.arg)
	if c != nil || err != nil {
		return c, err
	}
	dep.Child = child
	if child.Operation == depgraph.OpNoMerge {
		dep.Priority.Satisfied = true
	}

	added := !a.graph.Contains(child)
	if _, err := a.graph.AddDependency(dep); err != nil {
		var sc *depgraph.SlotConflictError
		if errors.As(err, &sc) {
			return &conflict{err: sc, alternatives: a.slotConflictAlternatives(sc)}, nil
		}
		return nil, err
	}
	if !added {
		return nil, nil
	}
	a.index(child)
	return a.expand(child)
}

func (a *attempt) index(pkg *depgraph.Package) {
	key := pkg.Root + " " + pkg.Cp()
	a.byCp[key] = append(a.byCp[key], a.graph.AddPackage(pkg))
}

// inGraph returns the highest graph package matching at
func (a *attempt) inGraph(root string, at *atom.Atom) *depgraph.Package {
	var best *depgraph.Package
	for _, h := range a.byCp[root+" "+at.Cp()] {
		pkg, err := a.graph.Package(h)
		if err != nil || pkg.Operation == depgraph.OpUninstall || !at.Match(pkg.Candidate()) {
			continue
		}
		if best == nil || pkg.Version.Compare(best.Version) > 0 {
			best = pkg
		}
	}
	return best
}

// selectPackage picks the package satisfying a dependency: a matching
// graph package, else the installed package when it may be kept, else
// the best visible package.
func (a *attempt) selectPackage(dep *depgraph.Dependency, arg bool) (*depgraph.Package, *conflict, error) {
	at := dep.Atom
	if existing := a.inGraph(dep.Root, at); existing != nil {
		return existing, nil, nil
	}

	cs, err := a.candidates(dep.Root, at)
	if err != nil {
		return nil, nil, err
	}
	var installed, available []*candidate
	for _, c := range cs {
		if !c.visible() || !c.matches() {
			continue
		}
		if c.pkg.Installed() {
			installed = append(installed, c)
		} else {
			available = append(available, c)
		}
	}

	best := a.best(available)
	if inst := a.best(installed); inst != nil && a.keepInstalled(inst, best, arg) {
		return inst.pkg, nil, nil
	}
	if best != nil {
		return best.pkg, nil, nil
	}
	return nil, a.unsatisfied(dep, cs), nil
}

func (a *attempt) keepInstalled(inst, best *candidate, arg bool) bool {
	opts := a.r.opts
	switch {
	case best == nil:
		return true
	case opts.Update:
		return inst.pkg.Version.Compare(best.pkg.Version) >= 0
	case arg:
		return opts.NoReplace
	}
	return true
}

// unsatisfied turns a dependency without candidates into a conflict. The
// backtracker first tries the autounmask changes, then masks the parent.
func (a *attempt) unsatisfied(dep *depgraph.Dependency, cs []*candidate) *conflict {
	err := &UnsatisfiableDependencyError{
		Atom:       dep.Atom,
		Parent:     dep.Parent,
		Root:       dep.Root,
		Candidates: lo.Map(cs, func(c *candidate, _ int) Rejection { return c.rejection() }),
	}
	c := &conflict{err: err}
	if a.r.opts.Autounmask {
		if best := a.best(lo.Filter(cs, func(c *candidate, _ int) bool { return c.autounmaskable() })); best != nil {
			c.alternatives = append(c.alternatives, best.autounmask(dep.Root))
		}
	}
	if dep.Parent != nil {
		c.alternatives = append(c.alternatives, alternative{{mask: maskKey(dep.Parent), reason: err.Error()}})
	}
	return c
}

// slotConflictAlternatives masks one of the two packages. Installed
// packages are masked first, then the order follows the policy.
func (a *attempt) slotConflictAlternatives(e *depgraph.SlotConflictError) []alternative {
	first, second := e.Candidate, e.Existing
	switch {
	case e.Existing.Installed() != e.Candidate.Installed():
		if e.Existing.Installed() {
			first, second = e.Existing, e.Candidate
		}
	case a.r.opts.SlotConflictPolicy == config.HighestVersion:
		if e.Existing.Version.Compare(e.Candidate.Version) > 0 {
			first, second = e.Existing, e.Candidate
		}
	}
	return []alternative{
		{{mask: maskKey(first), reason: e.Error()}},
		{{mask: maskKey(second), reason: e.Error()}},
	}
}

// depClass is a dependency variable together with the edge it creates
type depClass struct {
	key  string
	prio priority.DepPriority
	root string
}

func (a *attempt) depClasses(pkg *depgraph.Package) []depClass {
	opts := a.r.opts
	runtime := []depClass{
		{depgraph.KeyRdepend, priority.DepPriority{Runtime: true}, pkg.Root},
		{depgraph.KeyPdepend, priority.DepPriority{RuntimePost: true}, pkg.Root},
	}

	if pkg.Operation == depgraph.OpNoMerge {
		if !opts.Deep {
			return nil
		}
		if opts.WithBdeps {
			runtime = append(runtime,
				depClass{depgraph.KeyDepend, priority.DepPriority{Buildtime: true, Optional: true}, a.r.host},
				depClass{depgraph.KeyBdepend, priority.DepPriority{Buildtime: true, Optional: true}, a.r.host},
			)
		}
		return runtime
	}

	dependRoot := a.r.host
	if eapi.Get(pkg.EAPI).Bdepend {
		dependRoot = pkg.Root
	}
	build := []depClass{
		{depgraph.KeyDepend, priority.DepPriority{Buildtime: true}, dependRoot},
		{depgraph.KeyBdepend, priority.DepPriority{Buildtime: true}, a.r.host},
		{depgraph.KeyIdepend, priority.DepPriority{Buildtime: true}, a.r.host},
	}
	if pkg.Type != depgraph.TypeEbuild {
		// built packages only need their build deps with --with-bdeps
		if !opts.WithBdeps {
			build = nil
		}
		for i := range build {
			build[i].prio.Optional = true
		}
	}
	return append(build, runtime...)
}

// expand queues the dependencies of a package newly added to the graph
func (a *attempt) expand(pkg *depgraph.Package) (*conflict, error) {
	depth := a.graph.Depth(pkg)
	for _, dc := range a.depClasses(pkg) {
		deps, err := depstring.Reduce(pkg.Metadata[dc.key], pkg.Use, pkg.EAPI)
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", dc.key, pkg, err)
		}
		deps, overlapping := depstring.OverlapDNF(deps)
		for _, e := range deps {
			list := depstring.List{e}
			if e.IsAnyOf() {
				var c *conflict
				if list, c, err = a.chooseAnyOf(e, dc.root, pkg, overlapping); c != nil || err != nil {
					return c, err
				}
			}
			for _, el := range list {
				if err := a.push(el.Atom, pkg, dc, depth+1); err != nil {
					return nil, err
				}
			}
		}
	}
	return nil, nil
}

func (a *attempt) push(at *atom.Atom, parent *depgraph.Package, dc depClass, depth int) error {
	dep := &depgraph.Dependency{Atom: at, Parent: parent, Root: dc.root, Depth: depth, Priority: dc.prio}
	if at.IsBlocker() {
		dep.Priority = priority.DepPriority{Blocker: true}
		_, err := a.graph.AddDependency(dep)
		return err
	}
	a.queue = append(a.queue, pending{dep: dep})
	return nil
}

// chooseAnyOf picks the branch of an any-of group: the first one already
// in the graph, else the first one installed, else the first one with a
// visible package for every atom. With fewest set, the group comes from
// merged overlapping groups and the branch pulling the fewest new packages
// wins among the installed or available ones.
func (a *attempt) chooseAnyOf(e depstring.Element, root string, parent *depgraph.Package, fewest bool) (depstring.List, *conflict, error) {
	alts := depstring.DNFConvert(depstring.List{e})[0].AnyOf

	var installed, available depstring.List
	installedAdds, availableAdds := -1, -1
	for _, alt := range alts {
		alt = lo.UniqBy(alt, depstring.Element.String)
		inGraph, inst, avail := true, true, true
		adds := 0
		for _, el := range alt {
			if el.Atom.IsBlocker() {
				continue
			}
			if a.inGraph(root, el.Atom) != nil {
				continue
			}
			inGraph = false
			cs, err := a.candidates(root, el.Atom)
			if err != nil {
				return nil, nil, err
			}
			usable := lo.Filter(cs, func(c *candidate, _ int) bool { return c.visible() && c.matches() })
			hasInstalled := lo.SomeBy(usable, func(c *candidate) bool { return c.pkg.Installed() })
			if !hasInstalled && fewest {
				adds++
			}
			inst = inst && hasInstalled
			avail = avail && len(usable) > 0
		}
		switch {
		case inGraph:
			return alt, nil, nil
		case inst && (installedAdds < 0 || adds < installedAdds):
			installed, installedAdds = alt, adds
		case avail && (availableAdds < 0 || adds < availableAdds):
			available, availableAdds = alt, adds
		}
	}
	if installedAdds >= 0 {
		return installed, nil, nil
	}
	if availableAdds >= 0 {
		return available, nil, nil
	}

	slog.Debug("no branch of any-of group is satisfiable", "group", e.String(), "parent", parent.String())
	first := lo.Filter(alts[0], func(el depstring.Element, _ int) bool { return !el.Atom.IsBlocker() })
	err := &UnsatisfiableDependencyError{
		Atom:   alts[0][0].Atom,
		Parent: parent,
		Root:   root,
		AnyOf:  lo.Map(alts, func(l depstring.List, _ int) string { return l.String() }),
	}
	c := &conflict{err: err}
	if a.r.opts.Autounmask {
		var alt alternative
		for _, el := range first {
			cs, err := a.candidates(root, el.Atom)
			if err != nil {
				return nil, nil, err
			}
			if best := a.best(lo.Filter(cs, func(c *candidate, _ int) bool { return c.autounmaskable() })); best != nil {
				alt = append(alt, best.autounmask(root)...)
			}
		}
		if len(alt) > 0 {
			c.alternatives = append(c.alternatives, alt)
		}
	}
	c.alternatives = append(c.alternatives, alternative{{mask: maskKey(parent), reason: err.Error()}})
	return nil, c, nil
}
