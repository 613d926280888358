// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dbapi provides the package metadata databases queried during
// resolution: ebuild repositories, binary packages and installed packages.
package dbapi

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/utils/stringset"
	"portage.dev/x/pmerge/pkg/versions"
)

type DBAPI interface {
	// Match returns the cpvs matching the atom, lowest version first. USE
	// dependencies are not applied since USE of unbuilt packages depends on
	// configuration.
	Match(a *atom.Atom) ([]string, error)
	// AuxGet returns the values of keys for cpv, in order. Unknown keys
	// yield empty values.
	AuxGet(cpv string, keys []string) ([]string, error)
	// CPAll lists every category/package name
	CPAll() []string
}

type KeyError struct {
	Cpv string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("unknown package %q", e.Cpv)
}

// AuxGetMap is AuxGet returning a key -> value map
func AuxGetMap(db DBAPI, cpv string, keys []string) (map[string]string, error) {
	values, err := db.AuxGet(cpv, keys)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(lo.Zip2(keys, values), func(t lo.Tuple2[string, string]) (string, string) {
		return t.A, t.B
	}), nil
}

// MemDB keeps package metadata in memory
type MemDB struct {
	name string
	pkgs map[string]map[string]string
	byCp map[string][]string
}

func NewMemDB(name string) *MemDB {
	return &MemDB{
		name: name,
		pkgs: map[string]map[string]string{},
		byCp: map[string][]string{},
	}
}

func (db *MemDB) Name() string {
	return db.name
}

// Add registers cpv. The repository key defaults to the database name.
func (db *MemDB) Add(cpv string, metadata map[string]string) error {
	cat, pn, _, ok := versions.CatPkgSplit(cpv)
	if !ok {
		return fmt.Errorf("invalid cpv %q", cpv)
	}
	md := lo.Assign(metadata)
	if md["repository"] == "" && db.name != "" {
		md["repository"] = db.name
	}

	cp := cat + "/" + pn
	if _, exists := db.pkgs[cpv]; !exists {
		db.byCp[cp] = append(db.byCp[cp], cpv)
		slices.SortStableFunc(db.byCp[cp], func(a, b string) int {
			_, _, va, _ := versions.CatPkgSplit(a)
			_, _, vb, _ := versions.CatPkgSplit(b)
			return versions.MustParse(va).Compare(versions.MustParse(vb))
		})
	}
	db.pkgs[cpv] = md
	return nil
}

func (db *MemDB) Remove(cpv string) {
	if _, ok := db.pkgs[cpv]; !ok {
		return
	}
	delete(db.pkgs, cpv)
	cp := versions.CpvGetKey(cpv)
	db.byCp[cp] = lo.Without(db.byCp[cp], cpv)
	if len(db.byCp[cp]) == 0 {
		delete(db.byCp, cp)
	}
}

func (db *MemDB) CPAll() []string {
	cps := lo.Keys(db.byCp)
	slices.Sort(cps)
	return cps
}

// CPVAll lists every cpv, grouped by package and sorted by version
func (db *MemDB) CPVAll() []string {
	return lo.FlatMap(db.CPAll(), func(cp string, _ int) []string { return db.byCp[cp] })
}

func (db *MemDB) Match(a *atom.Atom) ([]string, error) {
	if a.Category == "" {
		return nil, fmt.Errorf("atom %s has no category", a)
	}
	bare := a.WithoutUse().WithoutBlocker()
	return lo.Filter(db.byCp[a.Cp()], func(cpv string, _ int) bool {
		return bare.Match(candidate(cpv, db.pkgs[cpv]))
	}), nil
}

func (db *MemDB) AuxGet(cpv string, keys []string) ([]string, error) {
	md, ok := db.pkgs[cpv]
	if !ok {
		return nil, &KeyError{Cpv: cpv}
	}
	return lo.Map(keys, func(k string, _ int) string { return md[k] }), nil
}

func candidate(cpv string, md map[string]string) atom.Candidate {
	slot, sub, _ := strings.Cut(md["SLOT"], "/")
	c := atom.Candidate{
		Cpv:     cpv,
		Slot:    slot,
		SubSlot: sub,
		Repo:    md["repository"],
		Use:     stringset.New(strings.Fields(md["USE"])...),
		IUSE:    atom.IUSESet(strings.Fields(md["IUSE"])),
	}
	if id := md["BUILD_ID"]; id != "" {
		c.BuildID, _ = strconv.Atoi(id)
	}
	return c
}

var _ DBAPI = (*MemDB)(nil)
