// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/resolver"
)

type Pmerge struct {
	Stderr, Stdout, Stdin *os.File
	ExitFn                func(exitCode int)
	// must contain at least one argument, namely the pmerge binary name, similar to os.Args
	OsArgs []string
}

func (p *Pmerge) SetOutputStreams(cmd *cobra.Command) {
	cmd.SetOut(p.Stdout)
	cmd.SetErr(p.Stderr)
	cmd.SetIn(p.Stdin)

	lo.ForEach(cmd.Commands(), func(sub *cobra.Command, _ int) {
		p.SetOutputStreams(sub)
	})
}

// Session is what a command needs to resolve against the configured roots
type Session struct {
	Config *config.Config
	Roots  map[string]*config.RootConfig
}

// NewSession loads the repositories, profile and installed databases of
// every configured root
func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	roots, err := config.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("session loaded", "root", cfg.Root, "host-root", cfg.HostRoot, "repositories", len(cfg.Repositories))
	return &Session{Config: cfg, Roots: roots}, nil
}

func (s *Session) Resolver(opts resolver.Options) (*resolver.Resolver, error) {
	r, err := resolver.New(s.Roots, s.Config.Root, s.Config.HostRoot, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}
	return r, nil
}

// Target is the configuration of the root packages are merged into
func (s *Session) Target() *config.RootConfig {
	return s.Roots[s.Config.Root]
}
