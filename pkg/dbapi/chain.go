// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dbapi

import (
	"errors"
	"slices"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/versions"
)

// Chain stacks databases, such as a main repository and its overlays.
// When several databases know a cpv the last one wins.
type Chain []DBAPI

func (c Chain) Match(a *atom.Atom) ([]string, error) {
	var all []string
	for _, db := range c {
		m, err := db.Match(a)
		if err != nil {
			return nil, err
		}
		all = append(all, m...)
	}
	all = lo.Uniq(all)
	slices.SortStableFunc(all, func(x, y string) int {
		_, _, vx, _ := versions.CatPkgSplit(x)
		_, _, vy, _ := versions.CatPkgSplit(y)
		return versions.MustParse(vx).Compare(versions.MustParse(vy))
	})
	return all, nil
}

func (c Chain) AuxGet(cpv string, keys []string) ([]string, error) {
	for i := len(c) - 1; i >= 0; i-- {
		values, err := c[i].AuxGet(cpv, keys)
		var keyErr *KeyError
		if errors.As(err, &keyErr) {
			continue
		}
		return values, err
	}
	return nil, &KeyError{Cpv: cpv}
}

func (c Chain) CPAll() []string {
	cps := lo.Uniq(lo.FlatMap(c, func(db DBAPI, _ int) []string { return db.CPAll() }))
	slices.Sort(cps)
	return cps
}

var _ DBAPI = Chain(nil)
