// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/dbapi"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/eapi"
)

// candidate is a package considered for an atom
type candidate struct {
	pkg *depgraph.Package
	// keyword is set when accepting it would lift the only keyword mask
	keyword string
	// useNeeded holds the flips that would make the package match the atom
	useNeeded map[string]bool
	// mismatch explains why a visible package does not match the atom
	mismatch string
}

func (c *candidate) visible() bool {
	return c.pkg.Visible()
}

func (c *candidate) matches() bool {
	return c.mismatch == ""
}

func (c *candidate) rejection() Rejection {
	reasons := slices.Clone(c.pkg.Masks)
	if c.mismatch != "" {
		reasons = append(reasons, c.mismatch)
	}
	return Rejection{Cpv: c.pkg.Cpv, Repo: c.pkg.Repo, Type: c.pkg.Type, Reasons: reasons}
}

// autounmaskable reports whether the candidate would be chosen if its
// keyword were accepted and the USE flips were made
func (c *candidate) autounmaskable() bool {
	if c.pkg.Type != depgraph.TypeEbuild {
		return false
	}
	onlyKeyword := c.pkg.Visible() || (len(c.pkg.Masks) == 1 && c.keyword != "")
	return onlyKeyword && (c.matches() || len(c.useNeeded) > 0) && (c.keyword != "" || len(c.useNeeded) > 0)
}

func (c *candidate) autounmask(root string) alternative {
	key := configKey(root, c.pkg.Cpv, c.pkg.Repo)
	var alt alternative
	if c.keyword != "" {
		alt = append(alt, change{keywordKey: key, keyword: c.keyword})
	}
	for _, f := range lo.Keys(c.useNeeded) {
		alt = append(alt, change{useKey: key, useFlag: f, enable: c.useNeeded[f]})
	}
	slices.SortFunc(alt, func(a, b change) int { return strings.Compare(a.String(), b.String()) })
	return alt
}

type tree struct {
	db  dbapi.DBAPI
	typ depgraph.PkgType
}

func (r *Resolver) trees(rc *config.RootConfig) []tree {
	trees := []tree{{rc.Trees.Vartree, depgraph.TypeInstalled}, {rc.Trees.Porttree, depgraph.TypeEbuild}}
	if r.opts.UsePkg && rc.Trees.Bintree != nil {
		trees = append(trees, tree{rc.Trees.Bintree, depgraph.TypeBinary})
	}
	return lo.Filter(trees, func(t tree, _ int) bool { return t.db != nil })
}

// basePackage loads a package with the USE recorded in its metadata. The
// cache lives for the whole run since databases do not change meanwhile.
func (r *Resolver) basePackage(root string, t tree, cpv string) (*depgraph.Package, error) {
	key := fmt.Sprintf("%s %s %s", root, t.typ, cpv)
	if p, ok := r.pkgCache[key]; ok {
		return p, nil
	}
	md, err := dbapi.AuxGetMap(t.db, cpv, depgraph.MetadataKeys)
	if err != nil {
		return nil, err
	}
	p, err := depgraph.NewPackage(root, cpv, t.typ, md)
	if err != nil {
		return nil, err
	}
	r.pkgCache[key] = p
	return p, nil
}

// candidates returns every package of root matching the atom's name,
// version, slot and repository, lowest version first within each tree.
// USE dependencies are evaluated per candidate.
func (a *attempt) candidates(root string, at *atom.Atom) ([]*candidate, error) {
	rc := a.r.roots[root]
	bare := at.WithoutBlocker().WithoutUse()

	var res []*candidate
	for _, t := range a.r.trees(rc) {
		cpvs, err := t.db.Match(bare)
		if err != nil {
			return nil, err
		}
		for _, cpv := range cpvs {
			base, err := a.r.basePackage(root, t, cpv)
			if err != nil {
				return nil, err
			}
			res = append(res, a.evaluate(rc, base, at))
		}
	}
	return res, nil
}

// evaluate applies configuration and visibility to a package and matches
// it against the USE dependencies of the atom
func (a *attempt) evaluate(rc *config.RootConfig, base *depgraph.Package, at *atom.Atom) *candidate {
	pkg := a.configure(rc, base)
	c := &candidate{}

	var masks []string
	if reason, ok := a.params.masked[maskKey(pkg)]; ok {
		masks = append(masks, "masked while backtracking: "+reason)
	}
	if pkg.Type != depgraph.TypeInstalled {
		cand := pkg.Candidate()
		if !eapi.Supported(pkg.EAPI) {
			masks = append(masks, fmt.Sprintf("EAPI %s is not supported", pkg.EAPI))
		}
		if rc.Settings.Masked(cand) {
			masks = append(masks, "package.mask")
		}
		accepted := rc.Settings.AcceptedKeywords(cand)
		if kw, ok := a.params.keywords[configKey(pkg.Root, pkg.Cpv, pkg.Repo)]; ok {
			accepted.Add(kw)
		}
		kws := strings.Join(pkg.Keywords, " ")
		if !config.KeywordsAccepted(accepted, kws) {
			c.keyword = rc.Settings.NeededKeyword(kws)
			masks = append(masks, fmt.Sprintf("missing keyword (needs %s)", c.keyword))
		}
		missing, err := rc.Settings.MissingLicenses(pkg.License, pkg.Use)
		if err != nil {
			masks = append(masks, err.Error())
		} else if len(missing) > 0 {
			masks = append(masks, "license: "+strings.Join(missing, " "))
		}
	}
	if len(masks) > 0 {
		pkg = pkg.WithMasks(masks)
	}
	c.pkg = pkg

	cand := pkg.Candidate()
	if missing := at.MissingIUSE(cand); len(missing) > 0 {
		c.mismatch = "missing IUSE: " + strings.Join(missing, " ")
		return c
	}
	if at.WithoutBlocker().Match(cand) {
		return c
	}

	needed := map[string]bool{}
	fixable := true
	var unmet []string
	for _, u := range at.Use {
		if u.Kind != atom.UseEnabled && u.Kind != atom.UseDisabled {
			continue
		}
		want := u.Kind == atom.UseEnabled
		if !pkg.IUSE.Contains(u.Flag) {
			if (u.Default == atom.DefaultEnabled) != want {
				unmet = append(unmet, u.String())
				fixable = false
			}
			continue
		}
		if pkg.Use.Contains(u.Flag) != want {
			needed[u.Flag] = want
			unmet = append(unmet, u.String())
		}
	}
	if len(unmet) == 0 {
		c.mismatch = "does not match " + at.String()
		return c
	}
	c.mismatch = "USE requirement not met: " + strings.Join(unmet, " ")
	if fixable {
		c.useNeeded = needed
	}
	return c
}

// configure computes the USE of an ebuild from the settings and the
// autounmask changes. Built packages keep the USE they were built with.
func (a *attempt) configure(rc *config.RootConfig, base *depgraph.Package) *depgraph.Package {
	if base.Type != depgraph.TypeEbuild {
		return base
	}
	use := rc.Settings.Use(base.Candidate(), strings.Fields(base.Metadata[depgraph.KeyIUSE]))
	for f, on := range a.params.useOverride(configKey(base.Root, base.Cpv, base.Repo)) {
		if on {
			use.Add(f)
		} else {
			use.Remove(f)
		}
	}
	return base.WithUse(use)
}

// best returns the highest version among cs. Binary packages win over
// ebuilds of the same version when usepkg is set.
func (a *attempt) best(cs []*candidate) *candidate {
	var best *candidate
	for _, c := range cs {
		if best == nil {
			best = c
			continue
		}
		switch cmp := c.pkg.Version.Compare(best.pkg.Version); {
		case cmp > 0:
			best = c
		case cmp == 0 && a.r.opts.UsePkg && c.pkg.Type == depgraph.TypeBinary && best.pkg.Type != depgraph.TypeBinary:
			best = c
		}
	}
	return best
}
