// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/resolutionerrors"
)

// AmbiguousPackageNameError is returned for a bare package name found in
// more than one category
type AmbiguousPackageNameError struct {
	Name    string
	Matches []string
}

func (e *AmbiguousPackageNameError) Error() string {
	return fmt.Sprintf("package name %q is ambiguous, specify one of: %s", e.Name, strings.Join(e.Matches, ", "))
}

func (e *AmbiguousPackageNameError) Code() string {
	return resolutionerrors.AmbiguousPackageName
}

// Rejection is a candidate that was considered for an atom and turned down
type Rejection struct {
	Cpv     string
	Repo    string
	Type    depgraph.PkgType
	Reasons []string
}

func (r Rejection) String() string {
	s := r.Cpv
	if r.Repo != "" {
		s += "::" + r.Repo
	}
	return fmt.Sprintf("%s (%s): %s", s, r.Type, strings.Join(r.Reasons, ", "))
}

// UnsatisfiableDependencyError is returned when no visible package
// satisfies an atom, or no branch of an any-of group can be satisfied
type UnsatisfiableDependencyError struct {
	Atom   *atom.Atom
	Parent *depgraph.Package
	Root   string
	// AnyOf holds the alternatives when an any-of group failed
	AnyOf      []string
	Candidates []Rejection
}

func (e *UnsatisfiableDependencyError) Error() string {
	by := "argument"
	if e.Parent != nil {
		by = e.Parent.String()
	}
	what := fmt.Sprintf("%q", e.Atom.String())
	if len(e.AnyOf) > 0 {
		what = fmt.Sprintf("any of (%s)", strings.Join(e.AnyOf, " | "))
	}
	msg := fmt.Sprintf("no visible package satisfies %s required by %s", what, by)
	if len(e.Candidates) > 0 {
		msg += ": " + strings.Join(lo.Map(e.Candidates, func(r Rejection, _ int) string { return r.String() }), "; ")
	}
	return msg
}

func (e *UnsatisfiableDependencyError) Code() string {
	return resolutionerrors.UnsatisfiableDep
}

// BlockerViolationError is returned when a blocked package remains part of
// the merge list
type BlockerViolationError struct {
	Blocker  *depgraph.Dependency
	Blocking []*depgraph.Package
}

func (e *BlockerViolationError) Error() string {
	return fmt.Sprintf("%s blocks %s (%s)", e.Blocker.Parent, strings.Join(lo.Map(e.Blocking, func(p *depgraph.Package, _ int) string {
		return p.String()
	}), ", "), e.Blocker.Atom)
}

func (e *BlockerViolationError) Code() string {
	return resolutionerrors.BlockerViolation
}

// BacktrackLimitExceededError is returned when the conflicts could not be
// worked around within the allowed number of masks and attempts
type BacktrackLimitExceededError struct {
	Attempts int
	Last     error
	Prior    []error
}

func (e *BacktrackLimitExceededError) Error() string {
	msg := fmt.Sprintf("gave up after %d attempts: %s", e.Attempts, e.Last)
	if len(e.Prior) > 0 {
		msg += fmt.Sprintf(" (%d earlier conflicts: %s)", len(e.Prior), strings.Join(e.Summary(), "; "))
	}
	return msg
}

// Summary lists the distinct earlier conflicts
func (e *BacktrackLimitExceededError) Summary() []string {
	return lo.Uniq(lo.Map(e.Prior, func(err error, _ int) string { return err.Error() }))
}

func (e *BacktrackLimitExceededError) Unwrap() error {
	return e.Last
}

func (e *BacktrackLimitExceededError) Code() string {
	return resolutionerrors.BacktrackLimitExceeded
}

var (
	_ resolutionerrors.Coder = (*AmbiguousPackageNameError)(nil)
	_ resolutionerrors.Coder = (*UnsatisfiableDependencyError)(nil)
	_ resolutionerrors.Coder = (*BlockerViolationError)(nil)
	_ resolutionerrors.Coder = (*BacktrackLimitExceededError)(nil)
)
