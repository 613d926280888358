// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package unmerge

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/merge"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/resolve"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/builtincommand"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/resolution"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/scheduler"
)

func Cmd(cfg *config.Config) *cobra.Command {
	var pretend bool

	cmd := &cobra.Command{
		Use:          string(builtincommand.Unmerge) + " [atom|@set]...",
		Short:        "remove installed packages",
		Long:         "remove installed packages. Packages the system set needs at runtime are kept.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.NewSession(ctx, cfg)
			if err != nil {
				return err
			}
			r, err := s.Resolver(resolver.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			res, err := r.Unmerge(ctx, args)
			if err != nil {
				return err
			}

			t := resolution.FromResult(res)
			resolve.PrintTransaction(cmd, t)
			if pretend || len(t.MergeList) == 0 {
				return nil
			}

			// removal order is sequential
			statuses, err := s.Execute(ctx, t, res, scheduler.New(merge.Runner(cmd, cfg), 1))
			if err != nil {
				return err
			}
			if failed := merge.PrintStatuses(cmd, statuses); failed > 0 {
				return fmt.Errorf("%w: %d of %d", merge.ErrMergeFailed, failed, len(statuses))
			}
			return s.UpdateWorld(nil, lo.Uniq(lo.Map(res.MergeList, func(e *resolver.Entry, _ int) string {
				return e.Package.Cp()
			})))
		},
	}

	cmd.Flags().BoolVarP(&pretend, "pretend", "p", false, "only display what would be unmerged")
	return cmd
}
