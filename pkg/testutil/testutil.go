// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TestdataPath gives absolute path within the common 'testdata'
func TestdataPath(t *testing.T, path ...string) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	p := []string{filepath.Dir(file), "testdata"}
	p = append(p, path...)
	return filepath.Join(p...)
}

// Env var names are repeated here since config imports testutil in its tests
const (
	homeEnvVar     = "PMERGE_HOME"
	rootEnvVar     = "PMERGE_ROOT"
	hostRootEnvVar = "PMERGE_HOST_ROOT"
)

// System is a throwaway home directory and root, wired to the testdata
// repository and profile
type System struct {
	Home string
	Root string
}

// NewSystem writes a pmerge-config.yaml pointing at the testdata
// repository and the given profile, and exports it through the env
func NewSystem(t *testing.T, profile string) *System {
	s := &System{Home: t.TempDir(), Root: t.TempDir()}

	cfg := "profile: " + TestdataPath(t, "profiles", profile) + "\n" +
		"repositories:\n" +
		"  - name: gentoo\n" +
		"    location: " + TestdataPath(t, "repos", "gentoo.yaml") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.Home, "pmerge-config.yaml"), []byte(cfg), 0o644))

	t.Setenv(homeEnvVar, s.Home)
	t.Setenv(rootEnvVar, s.Root)
	t.Setenv(hostRootEnvVar, s.Root)
	return s
}

// Install copies an installed package database fixture into the root
func (s *System) Install(t *testing.T, fixture string) {
	bytes, err := os.ReadFile(TestdataPath(t, "repos", fixture))
	require.NoError(t, err)
	p := filepath.Join(s.Root, "var", "db", "pmerge", "installed.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, bytes, 0o644))
}

type CommonSetupSuite struct {
	suite.Suite
}

func (suite *CommonSetupSuite) SetupTest() {
	// set PMERGE_HOME to a randomized temp dir before every test,
	// otherwise every test shares the default ~/.pmerge
	suite.T().Setenv(homeEnvVar, suite.T().TempDir())
}

func Context(t *testing.T) context.Context {
	ctx, stopFn := context.WithCancel(context.Background())
	t.Cleanup(stopFn)
	return ctx
}
