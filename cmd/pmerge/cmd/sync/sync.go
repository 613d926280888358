// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/pkg/builtincommand"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/reposync"
)

var ErrUnknownRepository = errors.New("unknown repository")

func Cmd(cfg *config.Config) *cobra.Command {
	var skipHooks bool

	cmd := &cobra.Command{
		Use:   string(builtincommand.Sync) + " [repository]...",
		Short: "update repositories from their sync-uri",
		Long: `update repositories from their sync-uri

	All repositories with a sync-type are synced when none is named.
	Executables in the postsync.d directory of the pmerge home run after
	every synced repository.
`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if !lo.ContainsBy(cfg.Repositories, func(r *config.RepositoryConfig) bool { return r.Name == name }) {
					return fmt.Errorf("%w: %s", ErrUnknownRepository, name)
				}
			}
			repos := lo.Filter(cfg.Repositories, func(r *config.RepositoryConfig, _ int) bool {
				return len(args) == 0 || lo.Contains(args, r.Name)
			})

			hooksDir := filepath.Join(cfg.HomePath, config.PostSyncHooksDir)
			var errs []error
			for _, repo := range repos {
				if repo.SyncType == "" {
					if len(args) > 0 {
						errs = append(errs, fmt.Errorf("%w: %s", reposync.ErrNoSyncType, repo.Name))
					} else {
						slog.Debug("skipping repository without sync-type", "repository", repo.Name)
					}
					continue
				}

				res, err := reposync.Sync(cmd.Context(), repo)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				verb := lo.Ternary(res.Created, "created", "synced")
				cmd.Printf("%s %s at %s\n", verb, color.GreenString(res.Repository), res.Head)

				if skipHooks {
					continue
				}
				if err := reposync.RunHooks(cmd.Context(), hooksDir, repo); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&skipHooks, "no-hooks", false, "do not run post-sync hooks")
	return cmd
}
