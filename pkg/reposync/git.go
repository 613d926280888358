// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package reposync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/jdx/go-netrc"
	"portage.dev/x/pmerge/pkg/config"
)

const netrcEnvVar = "NETRC"

type gitSyncer struct {
	repo *config.RepositoryConfig
	auth transport.AuthMethod
}

func newGitSyncer(repo *config.RepositoryConfig) (*gitSyncer, error) {
	if repo.SyncURI == "" {
		return nil, fmt.Errorf("repository %s has sync-type git but no sync-uri", repo.Name)
	}
	auth, err := netrcAuth(repo.SyncURI)
	if err != nil {
		return nil, err
	}
	return &gitSyncer{repo: repo, auth: auth}, nil
}

func (g *gitSyncer) Exists(_ context.Context) (bool, error) {
	_, err := git.PlainOpen(g.repo.Location)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	return err == nil, err
}

func (g *gitSyncer) New(ctx context.Context) error {
	opts := &git.CloneOptions{
		URL:  g.repo.SyncURI,
		Auth: g.auth,
	}
	if g.repo.SyncBranch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(g.repo.SyncBranch)
		opts.SingleBranch = true
	}
	_, err := git.PlainCloneContext(ctx, g.repo.Location, false, opts)
	return err
}

func (g *gitSyncer) Sync(ctx context.Context) error {
	r, err := git.PlainOpen(g.repo.Location)
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return err
	}
	opts := &git.PullOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       g.auth,
		Force:      true,
	}
	if g.repo.SyncBranch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(g.repo.SyncBranch)
		opts.SingleBranch = true
	}
	if err := w.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

func (g *gitSyncer) RetrieveHead(_ context.Context) (string, error) {
	r, err := git.PlainOpen(g.repo.Location)
	if err != nil {
		return "", err
	}
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

// netrcAuth looks up credentials for http(s) remotes in the netrc file
func netrcAuth(uri string) (transport.AuthMethod, error) {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, nil
	}

	path, ok := os.LookupEnv(netrcEnvVar)
	if !ok {
		usr, err := user.Current()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(usr.HomeDir, ".netrc")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	n, err := netrc.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	machine := n.Machine(u.Hostname())
	if machine == nil {
		return nil, nil
	}
	return &http.BasicAuth{
		Username: machine.Get("login"),
		Password: machine.Get("password"),
	}, nil
}
