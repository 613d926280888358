// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package reposync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/dbapi"
	"portage.dev/x/pmerge/pkg/utils"
)

// localSyncer copies a repository document from another path
type localSyncer struct {
	repo *config.RepositoryConfig
}

func (l *localSyncer) source() string {
	if ok, _ := utils.DirExists(l.repo.SyncURI); ok {
		return filepath.Join(l.repo.SyncURI, config.RepositoryFileName)
	}
	return l.repo.SyncURI
}

func (l *localSyncer) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(l.repo.DocumentPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (l *localSyncer) New(ctx context.Context) error {
	return l.Sync(ctx)
}

// Sync validates the source document before replacing the local copy
func (l *localSyncer) Sync(ctx context.Context) error {
	if l.repo.SyncURI == "" {
		return fmt.Errorf("repository %s has sync-type local but no sync-uri", l.repo.Name)
	}
	src := l.source()
	if _, err := dbapi.Read(src, dbapi.RepositoryKind); err != nil {
		return err
	}
	contents, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	dest := l.repo.DocumentPath()
	if err := utils.EnsureDirs(filepath.Dir(dest)); err != nil {
		return err
	}
	return utils.WithLock(ctx, dest+".lock", func() error {
		return utils.WriteFile(dest, contents)
	})
}

// RetrieveHead is the digest of the synced document
func (l *localSyncer) RetrieveHead(_ context.Context) (string, error) {
	contents, err := os.ReadFile(l.repo.DocumentPath())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:]), nil
}
