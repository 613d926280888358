// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package atom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"portage.dev/x/pmerge/pkg/eapi"
	"portage.dev/x/pmerge/pkg/versions"
)

var (
	categoryRegexp = regexp.MustCompile(`^[\w+][\w+.-]*$`)
	nameRegexp     = regexp.MustCompile(`^[\w+][\w+-]*$`)
	slotRegexp     = regexp.MustCompile(`^[\w+][\w+.-]*$`)
	repoRegexp     = regexp.MustCompile(`^[\w][\w-]*$`)
	buildIDRegexp  = regexp.MustCompile(`^(.*)-(\d+)$`)
)

type Options struct {
	// EAPI restricts the syntax to what the given EAPI allows, empty allows everything
	EAPI string
	// AllowRepo permits ::repo pins
	AllowRepo bool
	// AllowBuildID permits a trailing -N build id on = atoms
	AllowBuildID bool
	// AllowMissingCategory permits bare package names
	AllowMissingCategory bool
	// AllowBlocker permits ! and !! prefixes
	AllowBlocker bool
}

// DefaultOptions accepts everything a user may type on the command line
var DefaultOptions = Options{AllowRepo: true, AllowBuildID: true, AllowBlocker: true}

func Parse(s string, opts Options) (*Atom, error) {
	invalid := func(reason string, args ...any) error {
		return &InvalidAtomError{Atom: s, Reason: fmt.Sprintf(reason, args...)}
	}

	attrs := eapi.Get(opts.EAPI)
	if opts.EAPI != "" && !eapi.Supported(opts.EAPI) {
		return nil, invalid("unsupported EAPI %q", opts.EAPI)
	}

	a := &Atom{}
	rest := s

	switch {
	case strings.HasPrefix(rest, "!!"):
		if !attrs.StrongBlocks {
			return nil, invalid("strong blockers are not allowed in EAPI %s", opts.EAPI)
		}
		a.Blocker = StrongBlocker
		rest = rest[2:]
	case strings.HasPrefix(rest, "!"):
		a.Blocker = WeakBlocker
		rest = rest[1:]
	}
	if a.Blocker != NoBlocker && !opts.AllowBlocker {
		return nil, invalid("blockers are not allowed here")
	}

	if strings.HasSuffix(rest, "]") {
		open := strings.LastIndex(rest, "[")
		if open < 0 {
			return nil, invalid("unbalanced USE dependency brackets")
		}
		if !attrs.UseDeps {
			return nil, invalid("USE dependencies are not allowed in EAPI %s", opts.EAPI)
		}
		for _, tok := range strings.Split(rest[open+1:len(rest)-1], ",") {
			u, ok := parseUseDep(tok)
			if !ok {
				return nil, invalid("invalid USE dependency %q", tok)
			}
			if u.Default != DefaultNone && !attrs.UseDepDefaults {
				return nil, invalid("USE dependency defaults are not allowed in EAPI %s", opts.EAPI)
			}
			a.Use = append(a.Use, u)
		}
		rest = rest[:open]
	}

	if i := strings.Index(rest, "::"); i >= 0 {
		if !opts.AllowRepo {
			return nil, invalid("repository dependencies are not allowed here")
		}
		a.Repo = rest[i+2:]
		if !repoRegexp.MatchString(a.Repo) {
			return nil, invalid("invalid repository name %q", a.Repo)
		}
		rest = rest[:i]
	}

	if i := strings.Index(rest, ":"); i >= 0 {
		if !attrs.SlotDeps {
			return nil, invalid("slot dependencies are not allowed in EAPI %s", opts.EAPI)
		}
		if err := parseSlot(a, rest[i+1:], attrs); err != nil {
			return nil, invalid("%s", err)
		}
		rest = rest[:i]
	}

	for _, op := range []Operator{OpGreaterEqual, OpLessEqual, OpEqual, OpGreater, OpLess, OpTilde} {
		if strings.HasPrefix(rest, string(op)) {
			a.Operator = op
			rest = rest[len(op):]
			break
		}
	}

	if a.Operator == OpNone {
		if err := parseCp(a, rest, opts.AllowMissingCategory); err != nil {
			return nil, invalid("%s", err)
		}
		return a, nil
	}

	if strings.HasSuffix(rest, "*") {
		if a.Operator != OpEqual {
			return nil, invalid("wildcard versions require the = operator")
		}
		a.Operator = OpGlob
		rest = strings.TrimSuffix(rest, "*")
	}

	if err := parseCpv(a, rest, opts); err != nil {
		return nil, invalid("%s", err)
	}

	if a.Operator == OpTilde && a.Version.HasRevision() {
		return nil, invalid("the ~ operator requires a version without revision")
	}
	if a.BuildID != 0 && a.Operator != OpEqual {
		return nil, invalid("a build id requires the = operator")
	}
	return a, nil
}

func MustParse(s string) *Atom {
	a, err := Parse(s, DefaultOptions)
	if err != nil {
		panic(err)
	}
	return a
}

func parseSlot(a *Atom, s string, attrs eapi.Attrs) error {
	switch {
	case strings.HasSuffix(s, "="):
		a.SlotOp = SlotOpEqual
		s = strings.TrimSuffix(s, "=")
	case s == "*":
		a.SlotOp = SlotOpAny
		s = ""
	}
	if a.SlotOp != SlotOpNone && !attrs.SlotOperator {
		return fmt.Errorf("slot operators are not allowed in this EAPI")
	}

	if s == "" {
		if a.SlotOp == SlotOpNone {
			return fmt.Errorf("empty slot")
		}
		return nil
	}

	slot, sub, hasSub := strings.Cut(s, "/")
	if !slotRegexp.MatchString(slot) {
		return fmt.Errorf("invalid slot %q", slot)
	}
	if hasSub {
		if !attrs.SlotOperator {
			return fmt.Errorf("sub-slots are not allowed in this EAPI")
		}
		if !slotRegexp.MatchString(sub) {
			return fmt.Errorf("invalid sub-slot %q", sub)
		}
		a.SubSlot = sub
	}
	a.Slot = slot
	return nil
}

func parseCp(a *Atom, s string, allowMissingCategory bool) error {
	cat, name, ok := strings.Cut(s, "/")
	if !ok {
		if !allowMissingCategory {
			return fmt.Errorf("missing category")
		}
		cat, name = "", s
	} else if !categoryRegexp.MatchString(cat) {
		return fmt.Errorf("invalid category %q", cat)
	}

	if !nameRegexp.MatchString(name) || !versions.ValidPackageName(name) {
		if versions.Valid(name) || strings.Contains(name, "-") {
			return fmt.Errorf("invalid package name %q (versions require an operator)", name)
		}
		return fmt.Errorf("invalid package name %q", name)
	}
	a.Category, a.Name = cat, name
	return nil
}

func parseCpv(a *Atom, s string, opts Options) error {
	if !strings.Contains(s, "/") && opts.AllowMissingCategory {
		s = "null/" + s
		defer func() { a.Category = "" }()
	}

	cat, name, ver, ok := versions.CatPkgSplit(s)
	if !ok && opts.AllowBuildID && a.Operator == OpEqual {
		if m := buildIDRegexp.FindStringSubmatch(s); m != nil {
			if cat, name, ver, ok = versions.CatPkgSplit(m[1]); ok {
				id, err := strconv.Atoi(m[2])
				if err != nil || id == 0 {
					return fmt.Errorf("invalid build id %q", m[2])
				}
				a.BuildID = id
			}
		}
	}
	if !ok {
		if a.Operator == OpGlob && strings.HasSuffix(s, "-") {
			return fmt.Errorf("wildcard without a version")
		}
		return fmt.Errorf("missing or invalid version")
	}
	if !categoryRegexp.MatchString(cat) {
		return fmt.Errorf("invalid category %q", cat)
	}
	a.Category, a.Name = cat, name
	a.Version = versions.MustParse(ver)
	return nil
}
