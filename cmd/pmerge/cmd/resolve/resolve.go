// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/builtincommand"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/resolution"
	"portage.dev/x/pmerge/pkg/resolutionerrors"
	"portage.dev/x/pmerge/pkg/resolver"
)

const (
	OutputPretty = "pretty"
	OutputYaml   = "yaml"
)

// Flags are the resolution options shared by the commands that resolve
type Flags struct {
	Update, Deep, NoReplace, OnlyDeps bool
	UsePkg, WithBdeps, Autounmask     bool
	Backtrack                         int
	SlotConflictPolicy                string
}

func (f *Flags) Register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().BoolVarP(&f.Update, "update", "u", false, "update packages to the best version available")
	cmd.Flags().BoolVarP(&f.Deep, "deep", "D", false, "consider the entire dependency tree of packages")
	cmd.Flags().BoolVarP(&f.NoReplace, "noreplace", "n", false, "skip packages that are already installed")
	cmd.Flags().BoolVarP(&f.OnlyDeps, "onlydeps", "o", false, "only merge the dependencies of the arguments")
	cmd.Flags().BoolVarP(&f.UsePkg, "usepkg", "k", false, "use binary packages when available")
	cmd.Flags().BoolVar(&f.WithBdeps, "with-bdeps", false, "pull build time dependencies of installed packages with --deep")
	cmd.Flags().BoolVar(&f.Autounmask, "autounmask", cfg.Autounmask, "propose USE and keyword changes to satisfy dependencies")
	cmd.Flags().IntVar(&f.Backtrack, "backtrack", cfg.Backtrack, "number of masks to try before giving up")
	cmd.Flags().StringVar(&f.SlotConflictPolicy, "slot-conflict-policy", string(cfg.SlotConflictPolicy),
		fmt.Sprintf("which package of a slot conflict is masked first: %s, %s", config.HighestVersion, config.LastPulled))
}

func (f *Flags) Options() (resolver.Options, error) {
	policy := config.SlotConflictPolicy(f.SlotConflictPolicy)
	if policy != config.HighestVersion && policy != config.LastPulled {
		return resolver.Options{}, resolutionerrors.NewInvalidConfigError(fmt.Errorf("invalid slot conflict policy %q", f.SlotConflictPolicy))
	}
	return resolver.Options{
		Update:             f.Update,
		Deep:               f.Deep,
		NoReplace:          f.NoReplace,
		OnlyDeps:           f.OnlyDeps,
		UsePkg:             f.UsePkg,
		WithBdeps:          f.WithBdeps,
		Autounmask:         f.Autounmask,
		Backtrack:          f.Backtrack,
		SlotConflictPolicy: policy,
	}, nil
}

// Resolve builds the transaction of args. A failed resolution yields a
// transaction carrying the errors along with the error itself.
func Resolve(ctx context.Context, s *app.Session, f *Flags, args []string) (*resolution.Transaction, *resolver.Result, error) {
	opts, err := f.Options()
	if err != nil {
		return nil, nil, err
	}
	r, err := s.Resolver(opts)
	if err != nil {
		return nil, nil, err
	}
	res, err := r.Resolve(ctx, args)
	if err != nil {
		slog.DebugContext(ctx, "resolution failed", "error", err)
		return resolution.FromError(err), nil, err
	}
	return resolution.FromResult(res), res, nil
}

func Cmd(cfg *config.Config) *cobra.Command {
	f := &Flags{}
	var output, file string

	cmd := &cobra.Command{
		Use:          string(builtincommand.Resolve) + " [atom|@set]...",
		Short:        "compute the merge list of packages without merging them",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != OutputPretty && output != OutputYaml {
				return fmt.Errorf("output format not supported: %s", output)
			}
			s, err := app.NewSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			t, _, resolveErr := Resolve(cmd.Context(), s, f, args)
			if t == nil {
				return resolveErr
			}
			if file != "" {
				if err := t.Write(file); err != nil {
					return err
				}
			}

			switch output {
			case OutputYaml:
				bytes, err := yaml.Marshal(t)
				if err != nil {
					return err
				}
				cmd.Print(string(bytes))
			default:
				if resolveErr == nil {
					PrintTransaction(cmd, t)
				}
			}
			return resolveErr
		},
	}

	f.Register(cmd, cfg)
	cmd.Flags().StringVar(&output, "output", OutputPretty, "output format: pretty, yaml")
	cmd.Flags().StringVarP(&file, "file", "f", "", "also write the transaction to this file")
	return cmd
}
