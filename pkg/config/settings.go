// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

var configAtomOptions = atom.Options{AllowRepo: true, AllowBuildID: true}

type packageTokens struct {
	atom   *atom.Atom
	tokens []string
}

// Settings answers the configuration questions asked during resolution:
// which USE flags a package gets, and whether its keywords, license and
// mask state make it visible.
type Settings struct {
	Arch string

	use            []string
	acceptKeywords []string
	acceptLicense  []string
	licenseGroups  map[string][]string

	packageUse      []packageTokens
	packageKeywords []packageTokens
	packageMask     []*atom.Atom
	packageUnmask   []*atom.Atom

	sets map[string][]*atom.Atom
}

func NewSettings(p *ProfileSpec) (*Settings, error) {
	s := &Settings{
		Arch:           p.Arch,
		use:            p.Use,
		acceptKeywords: p.AcceptKeywords,
		acceptLicense:  p.AcceptLicense,
		licenseGroups:  p.LicenseGroups,
		sets:           map[string][]*atom.Atom{},
	}
	if len(s.acceptKeywords) == 0 && s.Arch != "" {
		s.acceptKeywords = []string{s.Arch}
	}
	if len(s.acceptLicense) == 0 {
		s.acceptLicense = []string{"*"}
	}

	var err error
	if s.packageUse, err = parsePackageTokens("package-use", p.PackageUse); err != nil {
		return nil, err
	}
	if s.packageKeywords, err = parsePackageTokens("package-accept-keywords", p.PackageAcceptKeywords); err != nil {
		return nil, err
	}
	if s.packageMask, err = parseAtoms("package-mask", p.PackageMask); err != nil {
		return nil, err
	}
	if s.packageUnmask, err = parseAtoms("package-unmask", p.PackageUnmask); err != nil {
		return nil, err
	}
	for name, atoms := range p.Sets {
		if s.sets[name], err = parseAtoms("sets."+name, atoms); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// parsePackageTokens parses "atom token..." entries, ordered so the most
// specific atom is applied last
func parsePackageTokens(field string, entries []string) ([]packageTokens, error) {
	res := make([]packageTokens, 0, len(entries))
	for _, e := range entries {
		fields := strings.Fields(e)
		if len(fields) == 0 {
			continue
		}
		a, err := atom.Parse(fields[0], configAtomOptions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		res = append(res, packageTokens{atom: a, tokens: fields[1:]})
	}
	slices.SortStableFunc(res, func(a, b packageTokens) int {
		return a.atom.Specificity() - b.atom.Specificity()
	})
	return res, nil
}

func parseAtoms(field string, entries []string) ([]*atom.Atom, error) {
	res := make([]*atom.Atom, 0, len(entries))
	for _, e := range entries {
		a, err := atom.Parse(strings.TrimSpace(e), configAtomOptions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		res = append(res, a)
	}
	return res, nil
}

// applyIncremental applies portage style incremental tokens: "flag"
// enables, "-flag" disables and "-*" clears
func applyIncremental(set stringset.StringSet, tokens []string) {
	for _, t := range tokens {
		switch {
		case t == "-*":
			for k := range set {
				set.Remove(k)
			}
		case strings.HasPrefix(t, "-"):
			set.Remove(t[1:])
		default:
			set.Add(strings.TrimPrefix(t, "+"))
		}
	}
}

// Use computes the USE flags enabled for c: IUSE defaults, then the global
// USE, then matching package-use entries, restricted to IUSE
func (s *Settings) Use(c atom.Candidate, iuse []string) stringset.StringSet {
	enabled := stringset.New()
	for _, f := range iuse {
		if strings.HasPrefix(f, "+") {
			enabled.Add(f[1:])
		}
	}
	applyIncremental(enabled, s.use)
	for _, pu := range s.packageUse {
		if pu.atom.WithoutUse().Match(c) {
			applyIncremental(enabled, pu.tokens)
		}
	}
	valid := atom.IUSESet(iuse)
	for f := range enabled {
		if !valid.Contains(f) {
			enabled.Remove(f)
		}
	}
	return enabled
}

// AcceptedKeywords is ACCEPT_KEYWORDS extended by the package-accept-keywords
// entries matching c. An entry without keywords accepts ~arch.
func (s *Settings) AcceptedKeywords(c atom.Candidate) stringset.StringSet {
	accepted := stringset.New()
	applyIncremental(accepted, s.acceptKeywords)
	for _, pk := range s.packageKeywords {
		if !pk.atom.WithoutUse().Match(c) {
			continue
		}
		if len(pk.tokens) == 0 {
			accepted.Add("~" + s.Arch)
			continue
		}
		applyIncremental(accepted, pk.tokens)
	}
	return accepted
}

// KeywordsAccepted reports whether any of the package KEYWORDS is accepted
func (s *Settings) KeywordsAccepted(c atom.Candidate, keywords string) bool {
	return KeywordsAccepted(s.AcceptedKeywords(c), keywords)
}

func KeywordsAccepted(accepted stringset.StringSet, keywords string) bool {
	if accepted.Contains("**") {
		return true
	}
	for _, kw := range strings.Fields(keywords) {
		switch {
		case strings.HasPrefix(kw, "-"):
		case accepted.Contains(kw):
			return true
		case strings.HasPrefix(kw, "~") && accepted.Contains("~*"):
			return true
		case !strings.HasPrefix(kw, "~") && accepted.Contains("*"):
			return true
		}
	}
	return false
}

// NeededKeyword is the keyword to accept to make a package with the given
// KEYWORDS visible: ~arch when it is in testing, ** otherwise
func (s *Settings) NeededKeyword(keywords string) string {
	if lo.Contains(strings.Fields(keywords), "~"+s.Arch) {
		return "~" + s.Arch
	}
	return "**"
}

// Masked reports whether c is matched by package-mask and not by package-unmask
func (s *Settings) Masked(c atom.Candidate) bool {
	match := func(a *atom.Atom) bool { return a.WithoutUse().Match(c) }
	return lo.ContainsBy(s.packageMask, match) && !lo.ContainsBy(s.packageUnmask, match)
}

// Set returns the atoms of a profile set
func (s *Settings) Set(name string) ([]*atom.Atom, bool) {
	atoms, ok := s.sets[name]
	return atoms, ok
}

func (s *Settings) SetNames() []string {
	names := lo.Keys(s.sets)
	slices.Sort(names)
	return names
}
