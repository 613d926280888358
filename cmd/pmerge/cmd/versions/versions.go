// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/builtincommand"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/versions"
)

type output struct {
	Package  string           `yaml:"package"`
	Versions versions.Entries `yaml:"versions"`
}

func Cmd(cfg *config.Config) *cobra.Command {
	var format string
	var usePkg bool

	cmd := &cobra.Command{
		Use:   string(builtincommand.Versions) + " <package>",
		Short: "show the installed and available versions of a package",
		Long: `show the installed and available versions of a package

	I marks installed versions, * the version an update would pick.
	Masked versions are listed with the reasons they are masked.
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.NewSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts := resolver.OptionsFromConfig(cfg)
			opts.UsePkg = usePkg
			r, err := s.Resolver(opts)
			if err != nil {
				return err
			}
			cp, entries, err := r.Versions(args[0])
			if err != nil {
				return err
			}

			switch format {
			case "table":
				cmd.Println(cp)
				cmd.Println(entries.Table())
			case "yaml":
				data, err := yaml.Marshal(output{Package: cp, Versions: entries})
				if err != nil {
					return err
				}
				cmd.Print(string(data))
			default:
				return fmt.Errorf("output format not supported: %s", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table, yaml")
	cmd.Flags().BoolVarP(&usePkg, "usepkg", "k", false, "include binary packages")
	return cmd
}
