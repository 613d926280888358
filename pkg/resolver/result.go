// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"maps"
	"slices"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/depgraph"
)

type EntryOperation string

const (
	EntryMerge              EntryOperation = "merge"
	EntryUninstall          EntryOperation = "uninstall"
	EntryUninstallBlockedBy EntryOperation = "uninstall-blocked-by"
)

// Merge status against the installed packages of the same slot
const (
	StatusNew       = "N"
	StatusUpgrade   = "U"
	StatusDowngrade = "D"
	StatusReinstall = "R"
	StatusUninstall = "X"
)

// Entry is one step of the transaction
type Entry struct {
	Package   *depgraph.Package
	Operation EntryOperation
	Reason    string
	Status    string
}

// BlockerReport tells how a blocker of the transaction was dealt with
type BlockerReport struct {
	Atom   string
	Parent string
	// Satisfied is false when the blocked packages stay in the transaction
	Satisfied bool
	Blocking  []string
}

// AutounmaskChange is a configuration change the transaction depends on
type AutounmaskChange struct {
	Root       string
	Cpv        string
	Repo       string
	UseChanges map[string]bool
	Keyword    string
}

type Result struct {
	Graph      *depgraph.Graph
	MergeList  []*Entry
	Cycles     []depgraph.Cycle
	Blockers   []BlockerReport
	Autounmask []AutounmaskChange
	// Protected lists the installed packages the system set needs at runtime
	Protected []string
	Attempts  int
	// Conflicts hit by earlier attempts
	Conflicts []error
}

// Packages returns the packages of the merge list, in order
func (r *Result) Packages() []*depgraph.Package {
	return lo.Map(r.MergeList, func(e *Entry, _ int) *depgraph.Package { return e.Package })
}

func autounmaskChanges(p *params) []AutounmaskChange {
	targets := map[configTarget]bool{}
	for t := range p.useChanges {
		targets[t] = true
	}
	for t := range p.keywords {
		targets[t] = true
	}
	var res []AutounmaskChange
	for _, t := range sortedTargets(targets) {
		c := AutounmaskChange{Root: t.Root, Cpv: t.Cpv, Repo: t.Repo, Keyword: p.keywords[t]}
		if use := p.useChanges[t]; len(use) > 0 {
			c.UseChanges = maps.Clone(use)
		}
		res = append(res, c)
	}
	return res
}

func protectedList(protected map[string]bool) []string {
	if len(protected) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(protected))
}
