// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/dbapi"
)

// Trees are the package databases visible from a root
type Trees struct {
	Porttree dbapi.DBAPI
	Bintree  dbapi.DBAPI
	Vartree  *dbapi.MemDB
}

type RootConfig struct {
	Root     string
	Settings *Settings
	Trees    Trees
	// Selected are the atoms of the world file
	Selected []*atom.Atom
}

// Set resolves a package set name. world is system plus selected.
func (rc *RootConfig) Set(name string) ([]*atom.Atom, error) {
	switch name {
	case "selected":
		return rc.Selected, nil
	case "world":
		system, _ := rc.Settings.Set("system")
		return lo.UniqBy(append(append([]*atom.Atom{}, system...), rc.Selected...), func(a *atom.Atom) string {
			return a.String()
		}), nil
	}
	atoms, ok := rc.Settings.Set(name)
	if !ok {
		return nil, fmt.Errorf("unknown package set @%s", name)
	}
	return atoms, nil
}

// SetNames lists every set that Set resolves
func (rc *RootConfig) SetNames() []string {
	return lo.Uniq(append([]string{"selected", "system", "world"}, rc.Settings.SetNames()...))
}

// Load builds the root configs of cfg, keyed by root. Repositories, binary
// packages and settings are shared; every root has its own installed
// package database.
func Load(ctx context.Context, cfg *Config) (map[string]*RootConfig, error) {
	profile, err := ReadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	settings, err := NewSettings(profile.Spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProfile, profile.AbsPath, err)
	}

	var porttree dbapi.Chain
	for _, r := range cfg.Repositories {
		db, err := dbapi.Load(r.DocumentPath(), dbapi.RepositoryKind)
		if err != nil {
			return nil, fmt.Errorf("failed to load repository %q: %w", r.Name, err)
		}
		slog.Debug("loaded repository", "name", r.Name, "packages", len(db.CPVAll()))
		porttree = append(porttree, db)
	}

	var bintree dbapi.DBAPI = dbapi.NewMemDB("binpkgs")
	if cfg.BinaryPackages != "" {
		if bintree, err = dbapi.Load(cfg.BinaryPackages, dbapi.BinaryPackagesKind); err != nil {
			return nil, fmt.Errorf("failed to load binary packages: %w", err)
		}
	}

	selected, err := ReadWorld(cfg.WorldPath())
	if err != nil {
		return nil, err
	}
	selectedAtoms, err := parseAtoms("world", selected)
	if err != nil {
		return nil, err
	}

	roots := map[string]*RootConfig{}
	for _, root := range cfg.Roots() {
		vartree, err := dbapi.LoadInstalled(ctx, cfg.InstalledPath(root))
		if err != nil {
			return nil, fmt.Errorf("failed to load installed packages of %s: %w", root, err)
		}
		rc := &RootConfig{
			Root:     root,
			Settings: settings,
			Trees:    Trees{Porttree: porttree, Bintree: bintree, Vartree: vartree},
		}
		if root == cfg.Root {
			rc.Selected = selectedAtoms
		}
		roots[root] = rc
	}
	return roots, nil
}
