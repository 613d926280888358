// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package atom

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

type UseDepKind int

const (
	UseEnabled    UseDepKind = iota // [flag]
	UseDisabled                     // [-flag]
	UseEqual                        // [flag=]
	UseOpposite                     // [!flag=]
	UseIfEnabled                    // [flag?]
	UseIfDisabled                   // [!flag?]
)

type UseDefault int

const (
	DefaultNone     UseDefault = iota
	DefaultEnabled             // (+)
	DefaultDisabled            // (-)
)

type UseDep struct {
	Flag    string
	Kind    UseDepKind
	Default UseDefault
}

var useDepRegexp = regexp.MustCompile(`^([!-]?)([A-Za-z0-9][\w+@-]*)(\([+-]\))?([?=]?)$`)

func parseUseDep(s string) (UseDep, bool) {
	m := useDepRegexp.FindStringSubmatch(s)
	if m == nil {
		return UseDep{}, false
	}
	prefix, flag, def, suffix := m[1], m[2], m[3], m[4]

	u := UseDep{Flag: flag}
	switch def {
	case "(+)":
		u.Default = DefaultEnabled
	case "(-)":
		u.Default = DefaultDisabled
	}

	switch {
	case prefix == "" && suffix == "":
		u.Kind = UseEnabled
	case prefix == "-" && suffix == "":
		u.Kind = UseDisabled
	case prefix == "" && suffix == "=":
		u.Kind = UseEqual
	case prefix == "!" && suffix == "=":
		u.Kind = UseOpposite
	case prefix == "" && suffix == "?":
		u.Kind = UseIfEnabled
	case prefix == "!" && suffix == "?":
		u.Kind = UseIfDisabled
	default:
		return UseDep{}, false
	}
	return u, true
}

func (u UseDep) String() string {
	var prefix, suffix string
	switch u.Kind {
	case UseDisabled:
		prefix = "-"
	case UseEqual:
		suffix = "="
	case UseOpposite:
		prefix, suffix = "!", "="
	case UseIfEnabled:
		suffix = "?"
	case UseIfDisabled:
		prefix, suffix = "!", "?"
	}

	def := ""
	switch u.Default {
	case DefaultEnabled:
		def = "(+)"
	case DefaultDisabled:
		def = "(-)"
	}
	return prefix + u.Flag + def + suffix
}

func (u UseDep) Conditional() bool {
	return u.Kind != UseEnabled && u.Kind != UseDisabled
}

// Evaluate resolves conditional USE deps against the USE flags of the
// package that declares the dependency. The result only carries enabled
// and disabled requirements.
func (a *Atom) Evaluate(parentUse stringset.StringSet) *Atom {
	if !lo.SomeBy(a.Use, UseDep.Conditional) {
		return a
	}

	c := a.clone()
	c.Use = nil
	for _, u := range a.Use {
		on := parentUse.Contains(u.Flag)
		switch u.Kind {
		case UseEqual:
			u.Kind = lo.Ternary(on, UseEnabled, UseDisabled)
		case UseOpposite:
			u.Kind = lo.Ternary(on, UseDisabled, UseEnabled)
		case UseIfEnabled:
			if !on {
				continue
			}
			u.Kind = UseEnabled
		case UseIfDisabled:
			if on {
				continue
			}
			u.Kind = UseDisabled
		}
		c.Use = append(c.Use, u)
	}
	return c
}

// UseRequirements returns the flags an evaluated atom requires to be
// enabled and disabled.
func (a *Atom) UseRequirements() (enabled, disabled []string) {
	for _, u := range a.Use {
		switch u.Kind {
		case UseEnabled:
			enabled = append(enabled, u.Flag)
		case UseDisabled:
			disabled = append(disabled, u.Flag)
		}
	}
	return enabled, disabled
}

// IUSESet strips the +/- default markers of IUSE entries
func IUSESet(iuse []string) stringset.StringSet {
	return stringset.New(lo.Map(iuse, func(f string, _ int) string {
		return strings.TrimLeft(f, "+-")
	})...)
}
