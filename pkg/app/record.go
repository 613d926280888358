// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/dbapi"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/resolution"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/scheduler"
	"portage.dev/x/pmerge/pkg/utils"
)

// Execute runs the transaction with the scheduler and records every step
// that succeeded in the installed databases. The statuses are returned in
// merge-list order.
func (s *Session) Execute(ctx context.Context, t *resolution.Transaction, res *resolver.Result, sched *scheduler.Scheduler) ([]scheduler.Status, error) {
	if len(t.MergeList) != len(res.MergeList) {
		return nil, fmt.Errorf("transaction does not match the resolution")
	}

	var statuses []scheduler.Status
	err := utils.WithLock(ctx, filepath.Join(s.Config.Root, config.MergeLockPath), func() error {
		jobs := scheduler.JobsFromTransaction(t)
		statuses = scheduler.Wait(sched.Submit(ctx, jobs), len(jobs))
		return s.record(ctx, res, statuses)
	})
	return statuses, err
}

func (s *Session) record(ctx context.Context, res *resolver.Result, statuses []scheduler.Status) error {
	touched := map[string]bool{}
	for i, st := range statuses {
		if !st.Succeeded() {
			continue
		}
		e := res.MergeList[i]
		pkg := e.Package
		rc, ok := s.Roots[pkg.Root]
		if !ok {
			return fmt.Errorf("no configuration for root %q", pkg.Root)
		}
		vartree := rc.Trees.Vartree

		if e.Operation != resolver.EntryMerge {
			slog.Debug("recording uninstall", "package", pkg.Cpv, "root", pkg.Root)
			vartree.Remove(pkg.Cpv)
			touched[pkg.Root] = true
			continue
		}

		cpvs, err := vartree.Match(atom.MustParse(pkg.Cp()))
		if err != nil {
			return err
		}
		for _, cpv := range cpvs {
			md, err := dbapi.AuxGetMap(vartree, cpv, []string{depgraph.KeySlot})
			if err != nil {
				return err
			}
			if slot, _, _ := strings.Cut(md[depgraph.KeySlot], "/"); lo.CoalesceOrEmpty(slot, "0") == pkg.Slot {
				vartree.Remove(cpv)
			}
		}

		md := lo.PickBy(pkg.Metadata, func(_ string, v string) bool { return v != "" })
		md[depgraph.KeyUse] = strings.Join(pkg.Use.Sorted(), " ")
		md[depgraph.KeyRepo] = pkg.Repo
		if err := vartree.Add(pkg.Cpv, md); err != nil {
			return err
		}
		slog.Debug("recording merge", "package", pkg.Cpv, "root", pkg.Root)
		touched[pkg.Root] = true
	}

	for root := range touched {
		if err := dbapi.SaveInstalled(ctx, s.Config.InstalledPath(root), s.Roots[root].Trees.Vartree); err != nil {
			return err
		}
	}
	return nil
}

// UpdateWorld adds atoms to the world file of the target root and drops
// the entries naming a package of remove
func (s *Session) UpdateWorld(add []string, remove []string) error {
	path := s.Config.WorldPath()
	world, err := config.ReadWorld(path)
	if err != nil {
		return err
	}
	world = lo.Filter(append(world, add...), func(entry string, _ int) bool {
		a, err := atom.Parse(entry, atom.Options{AllowRepo: true})
		return err != nil || !lo.Contains(remove, a.Cp())
	})
	world = lo.Uniq(world)
	slices.Sort(world)
	slog.Debug("updating world", "path", path, "atoms", len(world))
	return config.WriteWorld(path, world)
}
