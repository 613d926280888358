// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/merge"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/resolve"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/sync"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/unmerge"
	"portage.dev/x/pmerge/cmd/pmerge/cmd/versions"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/buildinfo"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/logging"
)

const (
	packageGroupId    = "packages"
	repositoryGroupId = "repositories"
	PmergeName        = "pmerge"
)

func RootCmd(ctx context.Context, p *app.Pmerge) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   PmergeName,
		Short: "resolve dependencies and merge packages in order",
	}

	defer p.SetOutputStreams(cmd)

	if len(p.OsArgs) == 0 {
		return nil, fmt.Errorf("Pmerge.OsArgs must contain at least one entry similar to os.Args")
	}

	cmd.SetArgs(p.OsArgs[1:])
	cmd.AddGroup(&cobra.Group{
		ID:    packageGroupId,
		Title: "Package Commands",
	})
	cmd.AddGroup(&cobra.Group{
		ID:    repositoryGroupId,
		Title: "Repository Commands",
	})

	if err := logging.InitLogging(); err != nil {
		return nil, err
	}

	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}

	cmd.AddCommand(
		setGroup(resolve.Cmd(cfg), packageGroupId),
		setGroup(merge.Cmd(cfg), packageGroupId),
		setGroup(unmerge.Cmd(cfg), packageGroupId),
		setGroup(versions.Cmd(cfg), packageGroupId),
		setGroup(sync.Cmd(cfg), repositoryGroupId),
	)

	version, err := yaml.Marshal(buildinfo.Get())
	if err != nil {
		return nil, err
	}
	cmd.Version = string(version)
	cmd.SetVersionTemplate("{{.Version}}")

	return cmd, nil
}

func setGroup(cmd *cobra.Command, id string) *cobra.Command {
	cmd.GroupID = id
	return cmd
}
