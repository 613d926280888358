// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package atom

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/versions"
)

type Operator string

const (
	OpNone         Operator = ""
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpTilde        Operator = "~"
	OpGlob         Operator = "=*"
)

type Blocker int

const (
	NoBlocker Blocker = iota
	WeakBlocker
	StrongBlocker
)

func (b Blocker) String() string {
	switch b {
	case WeakBlocker:
		return "!"
	case StrongBlocker:
		return "!!"
	}
	return ""
}

type SlotOperator string

const (
	SlotOpNone  SlotOperator = ""
	SlotOpEqual SlotOperator = "="
	SlotOpAny   SlotOperator = "*"
)

// Atom is a parsed package constraint. Atoms are treated as immutable,
// methods that change an atom return a modified copy.
type Atom struct {
	Blocker  Blocker
	Operator Operator
	Category string
	Name     string
	Version  *versions.Version
	Slot     string
	SubSlot  string
	SlotOp   SlotOperator
	Repo     string
	BuildID  int
	Use      []UseDep
}

// Cp returns category/name
func (a *Atom) Cp() string {
	if a.Category == "" {
		return a.Name
	}
	return a.Category + "/" + a.Name
}

// Cpv returns category/name-version, or Cp when there is no version
func (a *Atom) Cpv() string {
	if a.Version == nil {
		return a.Cp()
	}
	return a.Cp() + "-" + a.Version.String()
}

func (a *Atom) IsBlocker() bool {
	return a.Blocker != NoBlocker
}

func (a *Atom) String() string {
	var sb strings.Builder
	sb.WriteString(a.Blocker.String())

	switch a.Operator {
	case OpGlob:
		sb.WriteString("=")
	default:
		sb.WriteString(string(a.Operator))
	}

	sb.WriteString(a.Cpv())
	if a.Operator == OpGlob {
		sb.WriteString("*")
	}
	if a.BuildID != 0 {
		sb.WriteString("-" + strconv.Itoa(a.BuildID))
	}

	if a.Slot != "" || a.SlotOp != SlotOpNone {
		sb.WriteString(":")
		sb.WriteString(a.Slot)
		if a.SubSlot != "" {
			sb.WriteString("/" + a.SubSlot)
		}
		sb.WriteString(string(a.SlotOp))
	}

	if a.Repo != "" {
		sb.WriteString("::" + a.Repo)
	}

	if len(a.Use) > 0 {
		sb.WriteString("[")
		sb.WriteString(strings.Join(lo.Map(a.Use, func(u UseDep, _ int) string { return u.String() }), ","))
		sb.WriteString("]")
	}
	return sb.String()
}

func (a *Atom) clone() *Atom {
	c := *a
	c.Use = append([]UseDep(nil), a.Use...)
	return &c
}

func (a *Atom) WithoutBlocker() *Atom {
	c := a.clone()
	c.Blocker = NoBlocker
	return c
}

func (a *Atom) WithoutUse() *Atom {
	c := a.clone()
	c.Use = nil
	return c
}

func (a *Atom) WithoutRepo() *Atom {
	c := a.clone()
	c.Repo = ""
	return c
}

// WithCategory fills in the category of an atom that was parsed without one
func (a *Atom) WithCategory(category string) *Atom {
	c := a.clone()
	c.Category = category
	return c
}

// Specificity ranks atoms so that configuration entries with more specific
// atoms override less specific ones.
func (a *Atom) Specificity() int {
	var rank int
	switch a.Operator {
	case OpEqual:
		rank = 6
	case OpTilde:
		rank = 5
	case OpGlob:
		rank = 4
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		rank = 2
	default:
		rank = 1
		if a.Slot != "" {
			rank = 3
		}
	}
	rank *= 2
	if a.Repo != "" {
		rank++
	}
	return rank
}
