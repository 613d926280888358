// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
)

// SlotConflictError reports a package that could not be added because
// another package already holds its slot.
type SlotConflictError struct {
	Slot       SlotKey
	Existing   *Package
	Candidate  *Package
	Atom       *atom.Atom
	Parent     *Package
	ExistingBy []*Dependency
}

func (e *SlotConflictError) Error() string {
	by := "argument"
	if e.Parent != nil {
		by = e.Parent.String()
	}
	return fmt.Sprintf("slot conflict in %s: %s pulled in by %s (%s) conflicts with %s",
		e.Slot, e.Candidate, by, e.Atom, e.Existing)
}

func (e *SlotConflictError) Code() string {
	return "SLOT_CONFLICT"
}

// Packages returns the conflicting packages, the one already in the graph first
func (e *SlotConflictError) Packages() []*Package {
	return []*Package{e.Existing, e.Candidate}
}

type CircularDependencyError struct {
	Cycles []Cycle
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependencies: %s",
		strings.Join(lo.Map(e.Cycles, func(c Cycle, _ int) string { return c.String() }), "; "))
}

func (e *CircularDependencyError) Code() string {
	return "CIRCULAR_DEPENDENCY"
}
