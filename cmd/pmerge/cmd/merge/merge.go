// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/resolve"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/builtincommand"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/scheduler"
	"portage.dev/x/pmerge/pkg/utils"
)

var (
	ErrAutounmaskPending = errors.New("the transaction needs configuration changes, apply them to the profile and try again")
	ErrMergeFailed       = errors.New("some packages failed to merge")
)

func Cmd(cfg *config.Config) *cobra.Command {
	f := &resolve.Flags{}
	var pretend, oneshot, keepGoing bool
	var jobs int

	cmd := &cobra.Command{
		Use:          string(builtincommand.Merge) + " [atom|@set]...",
		Short:        "resolve and merge packages",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.NewSession(ctx, cfg)
			if err != nil {
				return err
			}

			t, res, err := resolve.Resolve(ctx, s, f, args)
			if err != nil {
				return err
			}
			resolve.PrintTransaction(cmd, t)
			if pretend || len(t.MergeList) == 0 {
				return nil
			}
			if len(t.Autounmask) > 0 {
				return ErrAutounmaskPending
			}

			sched := scheduler.New(Runner(cmd, cfg), jobs)
			sched.KeepGoing = keepGoing
			statuses, err := s.Execute(ctx, t, res, sched)
			if err != nil {
				return err
			}
			failed := PrintStatuses(cmd, statuses)

			if !oneshot && !f.OnlyDeps {
				if err := s.UpdateWorld(worldAtoms(args, res, statuses), nil); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrMergeFailed, failed, len(statuses))
			}
			return nil
		},
	}

	f.Register(cmd, cfg)
	cmd.Flags().BoolVarP(&pretend, "pretend", "p", false, "only display what would be merged")
	cmd.Flags().BoolVarP(&oneshot, "oneshot", "1", false, "do not add the arguments to the world file")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue with unrelated packages after a failure")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", cfg.Jobs, "number of packages merged at once")
	return cmd
}

// Runner runs the configured merge command, or only records the
// transaction when there is none
func Runner(cmd *cobra.Command, cfg *config.Config) scheduler.Runner {
	if len(cfg.MergeCommand) == 0 {
		return scheduler.DryRunner{}
	}
	return &scheduler.CommandRunner{Command: cfg.MergeCommand, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
}

// PrintStatuses reports the outcome of every job and returns how many did
// not succeed
func PrintStatuses(p utils.RawPrinter, statuses []scheduler.Status) int {
	failed := 0
	for _, st := range statuses {
		switch {
		case st.Succeeded():
			verb := lo.Ternary(st.Job.Entry.Operation == string(resolver.EntryMerge), "merged", "unmerged")
			p.Printf(">>> %s %s\n", verb, color.GreenString(st.Job.Entry.String()))
		case st.Skipped:
			failed++
			p.Printf(">>> skipped %s: %s\n", color.YellowString(st.Job.Entry.String()), st.Err)
		case st.Err != nil:
			failed++
			p.Printf(">>> failed %s: %s\n", color.RedString(st.Job.Entry.String()), st.Err)
		default:
			failed++
			p.Printf(">>> failed %s: exit code %d\n", color.RedString(st.Job.Entry.String()), st.ExitCode)
		}
	}
	return failed
}

// worldAtoms selects the packages to remember: those merged as arguments
// given by name. Sets are not recorded.
func worldAtoms(args []string, res *resolver.Result, statuses []scheduler.Status) []string {
	named := lo.FilterMap(args, func(arg string, _ int) (*atom.Atom, bool) {
		if strings.HasPrefix(arg, "@") {
			return nil, false
		}
		a, err := atom.Parse(arg, atom.Options{AllowRepo: true, AllowBuildID: true, AllowMissingCategory: true})
		return a, err == nil
	})

	var merged []string
	for i, e := range res.MergeList {
		if e.Operation != resolver.EntryMerge || e.Reason != "argument" || !statuses[i].Succeeded() {
			continue
		}
		pkg := e.Package
		if lo.ContainsBy(named, func(a *atom.Atom) bool {
			return a.Name == pkg.Name && (a.Category == "" || a.Category == pkg.Category)
		}) {
			merged = append(merged, pkg.Cp())
		}
	}
	return merged
}
