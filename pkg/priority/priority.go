// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package priority

import (
	"cmp"
	"strings"
)

// Hardness levels. Levels at or below Soft may always be ignored when
// ordering the merge list.
const (
	Hard       = 0
	Medium     = -1
	MediumSoft = -2
	Soft       = -3
	Min        = -4
)

// Priority is anything attached to a dependency graph edge
type Priority interface {
	Hardness() int
	String() string
}

// DepPriority describes why a package depends on another one
type DepPriority struct {
	Buildtime   bool
	Runtime     bool
	RuntimePost bool
	Blocker     bool
	Satisfied   bool
	Optional    bool
	Ignored     bool
}

// not satisfied and buildtime      0  hard
// not satisfied and runtime       -1  medium
// blocker                         -1  medium
// not satisfied and runtime_post  -2  medium-soft
// satisfied or optional           -3  soft
// ignored or none of the above    -4  soft
func (p DepPriority) Hardness() int {
	switch {
	case p.Ignored:
		return Min
	case p.Satisfied, p.Optional:
		return Soft
	case p.Buildtime:
		return Hard
	case p.Runtime, p.Blocker:
		return Medium
	case p.RuntimePost:
		return MediumSoft
	}
	return Min
}

func (p DepPriority) Category() string {
	return CategoryOf(p.Hardness())
}

// CategoryOf names a hardness level
func CategoryOf(h int) string {
	switch {
	case h > Medium:
		return "hard"
	case h > MediumSoft:
		return "medium"
	case h > Soft:
		return "medium-soft"
	}
	return "soft"
}

// Label names the dependency types of the edge
func (p DepPriority) Label() string {
	var parts []string
	if p.Buildtime {
		parts = append(parts, "buildtime")
	}
	if p.Runtime {
		parts = append(parts, "runtime")
	}
	if p.RuntimePost {
		parts = append(parts, "runtime_post")
	}
	if p.Blocker {
		parts = append(parts, "blocker")
	}
	if p.Satisfied {
		parts = append(parts, "satisfied")
	}
	if p.Optional {
		parts = append(parts, "optional")
	}
	if p.Ignored {
		parts = append(parts, "ignored")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

func (p DepPriority) String() string {
	return p.Category()
}

// UnmergeDepPriority orders uninstalls: a package must be removed before
// the packages it depends on at runtime.
type UnmergeDepPriority struct {
	Buildtime   bool
	Runtime     bool
	RuntimePost bool
}

// UnmergeSoft is the upper bound of soft unmerge priorities
const UnmergeSoft = -2

// runtime        0  hard
// runtime_post  -1  hard
// buildtime     -2  soft
// none          -2  soft
func (p UnmergeDepPriority) Hardness() int {
	switch {
	case p.Runtime:
		return 0
	case p.RuntimePost:
		return -1
	}
	return UnmergeSoft
}

func (p UnmergeDepPriority) Hard() bool {
	return p.Hardness() > UnmergeSoft
}

func (p UnmergeDepPriority) String() string {
	if p.Hard() {
		return "hard"
	}
	return "soft"
}

// Compare sorts priorities from softest to hardest
func Compare(a, b Priority) int {
	return cmp.Compare(a.Hardness(), b.Hardness())
}

// IgnoreAtOrBelow ignores every priority whose hardness is at most level
func IgnoreAtOrBelow(level int) func(Priority) bool {
	return func(p Priority) bool {
		return p.Hardness() <= level
	}
}

// IgnoreSoft keeps hard, medium and medium-soft edges
var IgnoreSoft = IgnoreAtOrBelow(Soft)

// OnlyRuntime ignores everything except runtime and runtime_post
// dependencies, whether or not they are already satisfied.
func OnlyRuntime(p Priority) bool {
	switch dp := p.(type) {
	case DepPriority:
		return !(dp.Runtime || dp.RuntimePost)
	case UnmergeDepPriority:
		return !(dp.Runtime || dp.RuntimePost)
	}
	return true
}

// BreakLevels are the successive levels ignored when a cycle blocks the
// merge order, softest first.
var BreakLevels = []int{Min, Soft, MediumSoft, Medium}
