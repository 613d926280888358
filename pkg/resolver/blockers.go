// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/depstring"
	"portage.dev/x/pmerge/pkg/priority"
)

// installedProtected returns the installed packages of root that the
// system set reaches through runtime dependencies. Dependency strings of
// installed packages that fail to parse are skipped.
func (r *Resolver) installedProtected(root string) (map[string]bool, error) {
	rc := r.roots[root]
	system, _ := rc.Settings.Set("system")
	installed := tree{rc.Trees.Vartree, depgraph.TypeInstalled}

	g := depgraph.NewGraph(0)
	var pkgs []*depgraph.Package
	for _, cpv := range rc.Trees.Vartree.CPVAll() {
		pkg, err := r.basePackage(root, installed, cpv)
		if err != nil {
			return nil, err
		}
		g.AddPackage(pkg)
		pkgs = append(pkgs, pkg)
	}
	for _, pkg := range pkgs {
		for _, dc := range []depClass{
			{depgraph.KeyRdepend, priority.DepPriority{Runtime: true}, root},
			{depgraph.KeyPdepend, priority.DepPriority{RuntimePost: true}, root},
		} {
			deps, err := depstring.Reduce(pkg.Metadata[dc.key], pkg.Use, pkg.EAPI)
			if err != nil {
				slog.Warn("ignoring invalid dependencies of installed package", "package", pkg.String(), "key", dc.key, "error", err)
				continue
			}
			for _, at := range depstring.Flatten(deps) {
				if at.IsBlocker() {
					continue
				}
				for _, child := range pkgs {
					if child == pkg || !at.Match(child.Candidate()) {
						continue
					}
					if _, err := g.AddDependency(&depgraph.Dependency{Atom: at, Child: child, Parent: pkg, Root: root, Priority: dc.prio}); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	protected := map[string]bool{}
	for _, pkg := range g.DeepSystemRuntimeDeps(system) {
		protected[pkg.Cpv] = true
	}
	return protected, nil
}

// protected combines the installed closure of the target root with the
// packages of the graph the system set needs at runtime
func (a *attempt) protected() (map[string]bool, error) {
	protected, err := a.r.installedProtected(a.r.target)
	if err != nil {
		return nil, err
	}
	system, _ := a.r.roots[a.r.target].Settings.Set("system")
	for _, pkg := range a.graph.DeepSystemRuntimeDeps(system) {
		if pkg.Root == a.r.target {
			protected[pkg.Cpv] = true
		}
	}
	return protected, nil
}

// stays reports whether pkg is part of the system after the transaction
func (a *attempt) stays(pkg *depgraph.Package) bool {
	return pkg.Operation == depgraph.OpNoMerge || a.graph.IsMerge(pkg)
}

// resolveBlockers checks every blocker of a package that stays. Blocked
// packages of the graph are a violation. Blocked installed packages that
// nothing replaces get uninstalled, unless the system set needs them.
func (a *attempt) resolveBlockers(protected map[string]bool) ([]BlockerReport, *conflict, error) {
	var reports []BlockerReport
	for _, b := range a.graph.Blockers() {
		parent := b.Parent
		if !a.stays(parent) {
			continue
		}
		at := b.Atom.WithoutBlocker()
		blocks := func(pkg *depgraph.Package) bool {
			return pkg.Root == b.Root && pkg.SlotKey() != parent.SlotKey() && at.Match(pkg.Candidate())
		}

		blocking := lo.Filter(a.graph.Packages(), func(pkg *depgraph.Package, _ int) bool {
			return pkg.Operation != depgraph.OpUninstall && a.stays(pkg) && blocks(pkg)
		})

		uninstall, err := a.blockedInstalled(b, at, blocks)
		if err != nil {
			return nil, nil, err
		}
		var kept []*depgraph.Package
		for _, inst := range uninstall {
			if protected[inst.Cpv] {
				kept = append(kept, inst)
				continue
			}
			u := inst.WithOperation(depgraph.OpUninstall)
			a.graph.AddPackage(u)
			if b.Atom.Blocker == atom.StrongBlocker {
				a.graph.AddOrderingEdge(u, parent, priority.DepPriority{Buildtime: true})
			} else {
				a.graph.AddOrderingEdge(parent, u, priority.DepPriority{Blocker: true})
			}
			if _, ok := a.uninstalls[u.Key()]; !ok {
				a.uninstalls[u.Key()] = b
			}
		}

		if len(blocking) > 0 || len(kept) > 0 {
			return nil, a.blockerConflict(b, blocking, kept), nil
		}
		reports = append(reports, BlockerReport{
			Atom:      b.Atom.String(),
			Parent:    parent.String(),
			Satisfied: true,
			Blocking:  lo.Map(uninstall, func(p *depgraph.Package, _ int) string { return p.String() }),
		})
	}
	return reports, nil, nil
}

// blockedInstalled returns the installed packages matching the blocker
// that no package of the graph replaces
func (a *attempt) blockedInstalled(b *depgraph.Dependency, at *atom.Atom, blocks func(*depgraph.Package) bool) ([]*depgraph.Package, error) {
	rc := a.r.roots[b.Root]
	installed := tree{rc.Trees.Vartree, depgraph.TypeInstalled}
	cpvs, err := rc.Trees.Vartree.Match(at.WithoutUse())
	if err != nil {
		return nil, err
	}

	var res []*depgraph.Package
	for _, cpv := range cpvs {
		inst, err := a.r.basePackage(b.Root, installed, cpv)
		if err != nil {
			return nil, err
		}
		if !blocks(inst) || a.graph.Contains(inst) {
			continue
		}
		if occupant, ok := a.graph.SlotOccupant(inst.SlotKey()); ok && a.stays(occupant) {
			continue
		}
		res = append(res, inst)
	}
	return res, nil
}

// blockerConflict masks the blocked packages of the graph, or the parent
// when protected installed packages are blocked. This is tried once per
// resolution.
func (a *attempt) blockerConflict(b *depgraph.Dependency, blocking, kept []*depgraph.Package) *conflict {
	err := &BlockerViolationError{Blocker: b, Blocking: append(slices.Clone(blocking), kept...)}
	c := &conflict{err: err}
	if len(a.params.blockerMasked) > 0 {
		return c
	}
	for _, pkg := range blocking {
		if !pkg.Installed() {
			c.alternatives = append(c.alternatives, alternative{{mask: maskKey(pkg), blocker: true, reason: err.Error()}})
		}
	}
	if b.Parent.Operation == depgraph.OpMerge {
		c.alternatives = append(c.alternatives, alternative{{mask: maskKey(b.Parent), blocker: true, reason: err.Error()}})
	}
	return c
}

// finish handles the blockers of a complete graph and orders it
func (a *attempt) finish() (*Result, *conflict, error) {
	protected, err := a.protected()
	if err != nil {
		return nil, nil, err
	}
	blockers, c, err := a.resolveBlockers(protected)
	if c != nil || err != nil {
		return nil, c, err
	}

	order, cycles, err := a.graph.Order()
	if err != nil {
		var cd *depgraph.CircularDependencyError
		if errors.As(err, &cd) {
			return nil, a.cycleConflict(cd), nil
		}
		return nil, nil, err
	}

	res := &Result{
		Graph:      a.graph,
		Cycles:     cycles,
		Blockers:   blockers,
		Autounmask: autounmaskChanges(a.params),
		Protected:  protectedList(protected),
	}
	for _, pkg := range order {
		res.MergeList = append(res.MergeList, a.entry(pkg))
	}
	return res, nil, nil
}

// cycleConflict masks the packages of the hard cycles that are built
// from source, deepest first
func (a *attempt) cycleConflict(e *depgraph.CircularDependencyError) *conflict {
	var pkgs []*depgraph.Package
	for _, cycle := range e.Cycles {
		pkgs = append(pkgs, cycle.Packages...)
	}
	pkgs = lo.UniqBy(lo.Filter(pkgs, func(p *depgraph.Package, _ int) bool {
		return p.Type == depgraph.TypeEbuild && p.Operation == depgraph.OpMerge
	}), func(p *depgraph.Package) string { return maskKey(p) })
	slices.SortStableFunc(pkgs, func(x, y *depgraph.Package) int {
		return a.graph.Depth(y) - a.graph.Depth(x)
	})
	return &conflict{err: e, alternatives: lo.Map(pkgs, func(p *depgraph.Package, _ int) alternative {
		return alternative{{mask: maskKey(p), reason: e.Error()}}
	})}
}

func (a *attempt) entry(pkg *depgraph.Package) *Entry {
	if pkg.Operation == depgraph.OpUninstall {
		b := a.uninstalls[pkg.Key()]
		reason := "uninstall"
		if b != nil {
			reason = "blocked by " + b.Parent.String() + " (" + b.Atom.String() + ")"
		}
		return &Entry{Package: pkg, Operation: EntryUninstallBlockedBy, Reason: reason, Status: StatusUninstall}
	}

	reason := "dependency"
	for _, d := range a.graph.Incoming(pkg) {
		if d.OnlyDeps {
			continue
		}
		if d.Parent == nil {
			reason = "argument"
			break
		}
		if reason == "dependency" {
			reason = "required by " + d.Parent.String()
		}
	}
	return &Entry{Package: pkg, Operation: EntryMerge, Reason: reason, Status: a.status(pkg)}
}

func (a *attempt) status(pkg *depgraph.Package) string {
	rc := a.r.roots[pkg.Root]
	installed := tree{rc.Trees.Vartree, depgraph.TypeInstalled}
	cpvs, _ := rc.Trees.Vartree.Match(atom.MustParse(pkg.Cp()))
	status := StatusNew
	for _, cpv := range cpvs {
		inst, err := a.r.basePackage(pkg.Root, installed, cpv)
		if err != nil || inst.Slot != pkg.Slot {
			continue
		}
		switch cmp := pkg.Version.Compare(inst.Version); {
		case cmp == 0:
			return StatusReinstall
		case cmp > 0:
			status = StatusUpgrade
		default:
			status = StatusDowngrade
		}
	}
	return status
}
