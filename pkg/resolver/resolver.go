// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/depgraph"
)

type Resolver struct {
	roots  map[string]*config.RootConfig
	target string
	host   string
	opts   Options

	pkgCache map[string]*depgraph.Package
}

// New returns a resolver installing into target. Build time dependencies
// are resolved in host, which may be the same root.
func New(roots map[string]*config.RootConfig, target, host string, opts Options) (*Resolver, error) {
	for _, root := range []string{target, host} {
		if _, ok := roots[root]; !ok {
			return nil, fmt.Errorf("no configuration for root %q", root)
		}
	}
	if opts.SlotConflictPolicy == "" {
		opts.SlotConflictPolicy = config.HighestVersion
	}
	return &Resolver{
		roots:    roots,
		target:   target,
		host:     host,
		opts:     opts,
		pkgCache: map[string]*depgraph.Package{},
	}, nil
}

type state int

const (
	statePendingAtoms state = iota
	stateExpanding
	stateStable
	stateConflict
	stateBacktrack
	stateDone
)

func (s state) String() string {
	return [...]string{"PENDING_ATOMS", "EXPANDING", "STABLE", "CONFLICT", "BACKTRACK", "DONE"}[s]
}

// Resolve computes the transaction installing args. Every attempt builds
// a new graph; conflicts feed the backtracker, which picks the runtime
// parameters of the next attempt. Parse errors and ambiguous names are
// returned immediately.
func (r *Resolver) Resolve(ctx context.Context, args []string) (*Result, error) {
	var (
		st        = statePendingAtoms
		argv      []argument
		p         = newParams()
		bt        = newBacktracker(r.opts.Backtrack, p)
		a         *attempt
		c         *conflict
		res       *Result
		attempts  int
		conflicts []error
		err       error
	)

	for st != stateDone {
		slog.Debug("resolver state", "state", st, "attempt", attempts)
		switch st {
		case statePendingAtoms:
			if argv, err = r.expandArgs(args); err != nil {
				return nil, err
			}
			st = stateExpanding

		case stateExpanding:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempts++
			a = r.newAttempt(attempts, p)
			if c, err = a.build(argv); err != nil {
				return nil, err
			}
			st = stateStable
			if c != nil {
				st = stateConflict
			}

		case stateStable:
			if res, c, err = a.finish(); err != nil {
				return nil, err
			}
			st = stateDone
			if c != nil {
				st = stateConflict
			}

		case stateConflict:
			slog.Debug("resolution attempt failed", "attempt", attempts, "params", p.String(), "err", c.err)
			bt.feedback(p, c)
			st = stateBacktrack

		case stateBacktrack:
			next, ok := bt.next()
			if !ok {
				if bt.limited {
					return nil, &BacktrackLimitExceededError{Attempts: attempts, Last: c.err, Prior: conflicts}
				}
				return nil, c.err
			}
			if attempts >= r.opts.maxAttempts() {
				return nil, &BacktrackLimitExceededError{Attempts: attempts, Last: c.err, Prior: conflicts}
			}
			conflicts = append(conflicts, c.err)
			p = next
			st = stateExpanding
		}
	}

	res.Attempts = attempts
	res.Conflicts = conflicts
	slog.Info("resolved", "packages", len(res.MergeList), "attempts", attempts)
	return res, nil
}

// Unmerge lists the installed packages matching args in removal order.
// Packages needed at runtime by the system set are kept.
func (r *Resolver) Unmerge(ctx context.Context, args []string) (*Result, error) {
	argv, err := r.expandArgs(args)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc := r.roots[r.target]
	installed := tree{rc.Trees.Vartree, depgraph.TypeInstalled}
	protected, err := r.installedProtected(r.target)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var pkgs []*depgraph.Package
	for _, arg := range argv {
		cpvs, err := rc.Trees.Vartree.Match(arg.atom.WithoutUse())
		if err != nil {
			return nil, err
		}
		if len(cpvs) == 0 {
			slog.Warn("no installed package matches", "atom", arg.atom.String())
		}
		for _, cpv := range cpvs {
			if seen[cpv] {
				continue
			}
			seen[cpv] = true
			pkg, err := r.basePackage(r.target, installed, cpv)
			if err != nil {
				return nil, err
			}
			if !arg.atom.Match(pkg.Candidate()) {
				continue
			}
			if protected[cpv] {
				slog.Warn("not unmerging package needed by the system set", "package", pkg.String())
				continue
			}
			pkgs = append(pkgs, pkg.WithOperation(depgraph.OpUninstall))
		}
	}

	res := &Result{Protected: protectedList(protected)}
	for _, pkg := range depgraph.UnmergeOrder(pkgs) {
		res.MergeList = append(res.MergeList, &Entry{Package: pkg, Operation: EntryUninstall, Reason: "requested"})
	}
	return res, nil
}
