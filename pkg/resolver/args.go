// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
)

// argument is an atom requested by the user, directly or through a set
type argument struct {
	text string
	atom *atom.Atom
}

var argOptions = atom.Options{AllowRepo: true, AllowBuildID: true, AllowMissingCategory: true}

func (r *Resolver) expandArgs(args []string) ([]argument, error) {
	rc := r.roots[r.target]
	var res []argument
	for _, text := range args {
		if name, ok := strings.CutPrefix(text, "@"); ok {
			atoms, err := rc.Set(name)
			if err != nil {
				return nil, err
			}
			for _, a := range atoms {
				res = append(res, argument{text: text, atom: a})
			}
			continue
		}

		a, err := atom.Parse(text, argOptions)
		if err != nil {
			return nil, err
		}
		if a.Category == "" {
			if a, err = r.qualify(a); err != nil {
				return nil, err
			}
		}
		res = append(res, argument{text: text, atom: a})
	}
	return res, nil
}

// qualify finds the category of a bare package name. When several
// categories carry the name, the one with an installed package wins if
// it is the only one.
func (r *Resolver) qualify(a *atom.Atom) (*atom.Atom, error) {
	rc := r.roots[r.target]
	var matches []string
	for _, t := range r.trees(rc) {
		for _, cp := range t.db.CPAll() {
			if _, name, ok := strings.Cut(cp, "/"); ok && name == a.Name {
				matches = append(matches, cp)
			}
		}
	}
	matches = lo.Uniq(matches)
	slices.Sort(matches)

	if len(matches) > 1 {
		installed := lo.Filter(matches, func(cp string, _ int) bool {
			return slices.Contains(rc.Trees.Vartree.CPAll(), cp)
		})
		if len(installed) == 1 {
			matches = installed
		}
	}

	switch len(matches) {
	case 0:
		return nil, &UnsatisfiableDependencyError{Atom: a, Root: r.target}
	case 1:
		category, _, _ := strings.Cut(matches[0], "/")
		return a.WithCategory(category), nil
	}
	return nil, &AmbiguousPackageNameError{Name: a.Name, Matches: matches}
}
