// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"portage.dev/x/pmerge/pkg/depgraph"
)

// maskKey identifies a package independently of its USE assignment
func maskKey(p *depgraph.Package) string {
	return fmt.Sprintf("%s %s %s::%s", p.Root, p.Type, p.Cpv, p.Repo)
}

// configTarget identifies the ebuild an autounmask change applies to
type configTarget struct {
	Root string
	Cpv  string
	Repo string
}

func (t configTarget) String() string {
	return fmt.Sprintf("%s %s::%s", t.Root, t.Cpv, t.Repo)
}

func configKey(root, cpv, repo string) configTarget {
	return configTarget{Root: root, Cpv: cpv, Repo: repo}
}

func sortedTargets[V any](m map[configTarget]V) []configTarget {
	return slices.SortedFunc(maps.Keys(m), func(a, b configTarget) int {
		return strings.Compare(a.String(), b.String())
	})
}

// change is one adjustment the backtracker tries after a conflict
type change struct {
	mask    string
	blocker bool

	useKey  configTarget
	useFlag string
	enable  bool

	keywordKey configTarget
	keyword    string

	reason string
}

func (c change) String() string {
	switch {
	case c.mask != "":
		return "mask " + c.mask
	case c.useFlag != "":
		return fmt.Sprintf("use %s %s=%t", c.useKey, c.useFlag, c.enable)
	default:
		return fmt.Sprintf("keyword %s %s", c.keywordKey, c.keyword)
	}
}

// params are the runtime parameters of one attempt. They only grow: every
// backtrack step adds one change to a copy.
type params struct {
	masked        map[string]string
	blockerMasked map[string]bool
	useChanges    map[configTarget]map[string]bool
	keywords      map[configTarget]string
}

func newParams() *params {
	return &params{
		masked:        map[string]string{},
		blockerMasked: map[string]bool{},
		useChanges:    map[configTarget]map[string]bool{},
		keywords:      map[configTarget]string{},
	}
}

func (p *params) with(c change) *params {
	n := &params{
		masked:        maps.Clone(p.masked),
		blockerMasked: maps.Clone(p.blockerMasked),
		useChanges:    map[configTarget]map[string]bool{},
		keywords:      maps.Clone(p.keywords),
	}
	for k, v := range p.useChanges {
		n.useChanges[k] = maps.Clone(v)
	}
	switch {
	case c.mask != "":
		n.masked[c.mask] = c.reason
		if c.blocker {
			n.blockerMasked[c.mask] = true
		}
	case c.useFlag != "":
		if n.useChanges[c.useKey] == nil {
			n.useChanges[c.useKey] = map[string]bool{}
		}
		n.useChanges[c.useKey][c.useFlag] = c.enable
	case c.keyword != "":
		n.keywords[c.keywordKey] = c.keyword
	}
	return n
}

// applies reports whether c would change anything
func (p *params) applies(c change) bool {
	switch {
	case c.mask != "":
		_, ok := p.masked[c.mask]
		return !ok
	case c.useFlag != "":
		v, ok := p.useChanges[c.useKey][c.useFlag]
		return !ok || v != c.enable
	case c.keyword != "":
		_, ok := p.keywords[c.keywordKey]
		return !ok
	}
	return false
}

func (p *params) masks() int {
	return len(p.masked)
}

func (p *params) fingerprint() string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(p.masked)) {
		parts = append(parts, "mask "+k)
	}
	for _, k := range sortedTargets(p.useChanges) {
		for _, f := range slices.Sorted(maps.Keys(p.useChanges[k])) {
			parts = append(parts, fmt.Sprintf("use %s %s=%t", k, f, p.useChanges[k][f]))
		}
	}
	for _, k := range sortedTargets(p.keywords) {
		parts = append(parts, fmt.Sprintf("keyword %s %s", k, p.keywords[k]))
	}
	return strings.Join(parts, "\n")
}

func (p *params) String() string {
	if f := p.fingerprint(); f != "" {
		return strings.ReplaceAll(f, "\n", ", ")
	}
	return "none"
}

// useOverride returns the autounmask USE changes of an ebuild
func (p *params) useOverride(key configTarget) map[string]bool {
	return p.useChanges[key]
}

func (p *params) hasAutounmask() bool {
	return len(p.useChanges) > 0 || len(p.keywords) > 0
}
