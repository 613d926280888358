// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package reposync fetches the latest version of configured repositories
package reposync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"portage.dev/x/pmerge/pkg/config"
)

const (
	SyncTypeGit   = "git"
	SyncTypeLocal = "local"
)

var ErrNoSyncType = errors.New("repository has no sync-type")

// Syncer keeps the location of one repository up to date
type Syncer interface {
	// Exists reports whether the location holds a synced repository
	Exists(ctx context.Context) (bool, error)
	// New creates the repository at its location
	New(ctx context.Context) error
	// Sync updates an existing repository
	Sync(ctx context.Context) error
	// RetrieveHead identifies the synced revision
	RetrieveHead(ctx context.Context) (string, error)
}

func New(repo *config.RepositoryConfig) (Syncer, error) {
	switch repo.SyncType {
	case SyncTypeGit:
		return newGitSyncer(repo)
	case SyncTypeLocal:
		return &localSyncer{repo: repo}, nil
	case "":
		return nil, fmt.Errorf("%w: %s", ErrNoSyncType, repo.Name)
	default:
		return nil, fmt.Errorf("unsupported sync-type %q for repository %s", repo.SyncType, repo.Name)
	}
}

type Result struct {
	Repository string
	Head       string
	// Created is true when the repository did not exist before
	Created bool
}

// Sync brings a repository to its latest revision, creating it when needed
func Sync(ctx context.Context, repo *config.RepositoryConfig) (*Result, error) {
	s, err := New(repo)
	if err != nil {
		return nil, err
	}
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		slog.Debug("syncing repository", "repository", repo.Name, "location", repo.Location)
		err = s.Sync(ctx)
	} else {
		slog.Debug("creating repository", "repository", repo.Name, "location", repo.Location, "uri", repo.SyncURI)
		err = s.New(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sync repository %s: %w", repo.Name, err)
	}

	head, err := s.RetrieveHead(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Repository: repo.Name, Head: head, Created: !exists}, nil
}

// RunHooks runs the executables of dir in name order after a sync. Each
// gets the repository name, sync URI and location as arguments.
func RunHooks(ctx context.Context, dir string, repo *config.RepositoryConfig) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var errs []error
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return err
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			slog.Warn("post-sync hook is not executable", "hook", e.Name())
			continue
		}
		hook := filepath.Join(dir, e.Name())
		slog.Debug("running post-sync hook", "hook", hook, "repository", repo.Name)
		cmd := exec.CommandContext(ctx, hook, repo.Name, repo.SyncURI, repo.Location)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			errs = append(errs, fmt.Errorf("post-sync hook %s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}
