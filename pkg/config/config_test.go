// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/testutil"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestGetDefaults(t *testing.T) {
	unsetEnv(t, RootEnvVar, HostRootEnvVar, BacktrackEnvVar, AutounmaskEnvVar, JobsEnvVar, ProfileEnvVar)
	home := t.TempDir()

	c, err := GetWithCustomHome(home)
	require.NoError(t, err)
	assert.Equal(t, home, c.HomePath)
	assert.Equal(t, "/", c.Root)
	assert.Equal(t, []string{"/"}, c.Roots())
	assert.Equal(t, filepath.Join(home, ProfileFileName), c.ProfilePath)
	assert.Equal(t, DefaultBacktrack, c.Backtrack)
	assert.Equal(t, DefaultJobs, c.Jobs)
	assert.Equal(t, HighestVersion, c.SlotConflictPolicy)
	assert.False(t, c.Autounmask)
	assert.Equal(t, "/var/db/pmerge/installed.yaml", c.InstalledPath(c.Root))
}

func TestGetFileAndEnv(t *testing.T) {
	unsetEnv(t, RootEnvVar, HostRootEnvVar, ProfileEnvVar)
	home := t.TempDir()
	contents := `
root: target
backtrack: 3
jobs: 4
slot-conflict-policy: last-pulled
repositories:
  - name: gentoo
    location: repos/gentoo
    sync-type: git
    sync-uri: https://example.com/gentoo.git
`
	require.NoError(t, os.WriteFile(filepath.Join(home, ConfigFileName), []byte(contents), 0o644))

	c, err := GetWithCustomHome(home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "target"), c.Root)
	assert.Equal(t, []string{filepath.Join(home, "target"), "/"}, c.Roots())
	assert.Equal(t, 3, c.Backtrack)
	assert.Equal(t, 4, c.Jobs)
	assert.Equal(t, LastPulled, c.SlotConflictPolicy)
	require.Len(t, c.Repositories, 1)
	assert.Equal(t, filepath.Join(home, "repos", "gentoo"), c.Repositories[0].Location)

	t.Setenv(BacktrackEnvVar, "0")
	t.Setenv(AutounmaskEnvVar, "true")
	t.Setenv(JobsEnvVar, "2")
	t.Setenv(RootEnvVar, "/mnt/target")
	c, err = GetWithCustomHome(home)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Backtrack)
	assert.True(t, c.Autounmask)
	assert.Equal(t, 2, c.Jobs)
	assert.Equal(t, "/mnt/target", c.Root)
	assert.Equal(t, "/mnt/target/var/lib/pmerge/world.yaml", c.WorldPath())

	t.Setenv(JobsEnvVar, "many")
	_, err = GetWithCustomHome(home)
	assert.Error(t, err)
}

func TestGetInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{"unknown field", "bactrack: 3\n"},
		{"bad policy", "slot-conflict-policy: newest\n"},
		{"repository without location", "repositories:\n  - name: gentoo\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			home := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(home, ConfigFileName), []byte(tc.contents), 0o644))
			_, err := GetWithCustomHome(home)
			assert.Error(t, err)
		})
	}
}

func testingSettings(t *testing.T) *Settings {
	p, err := ReadProfile(testutil.TestdataPath(t, "profiles", "testing.yaml"))
	require.NoError(t, err)
	s, err := NewSettings(p.Spec)
	require.NoError(t, err)
	return s
}

func TestSettingsUse(t *testing.T) {
	s := testingSettings(t)
	iuse := []string{"+asm", "static-libs", "ssl"}

	testCases := []struct {
		cpv      string
		expected []string
	}{
		{"dev-libs/openssl-3.0.13", []string{"asm", "ssl"}},
		{"dev-libs/openssl-3.1.0", []string{"asm", "ssl", "static-libs"}},
		{"dev-libs/libressl-3.8.2", []string{"asm", "ssl"}},
	}
	for _, tc := range testCases {
		t.Run(tc.cpv, func(t *testing.T) {
			use := s.Use(atom.Candidate{Cpv: tc.cpv, Repo: "gentoo"}, iuse)
			assert.Equal(t, tc.expected, use.Sorted())
		})
	}

	use := s.Use(atom.Candidate{Cpv: "app-misc/hello-2.12"}, []string{"nls"})
	assert.Equal(t, []string{"nls"}, use.Sorted())
}

func TestSettingsKeywords(t *testing.T) {
	s := testingSettings(t)

	testCases := []struct {
		cpv      string
		keywords string
		expected bool
	}{
		{"sys-libs/zlib-1.2.13", "amd64 arm64", true},
		{"sys-libs/zlib-1.3", "~amd64 ~arm64", true},
		{"sys-libs/zlib-1.3-r1", "~amd64 ~arm64", false},
		{"sys-libs/zlib-1.4", "", false},
		{"sys-libs/zlib-1.4", "-amd64 arm64", false},
	}
	for _, tc := range testCases {
		t.Run(tc.cpv+" "+tc.keywords, func(t *testing.T) {
			assert.Equal(t, tc.expected, s.KeywordsAccepted(atom.Candidate{Cpv: tc.cpv}, tc.keywords))
		})
	}

	assert.True(t, KeywordsAccepted(stringset.New("amd64", "~*"), "~x86"))
	assert.True(t, KeywordsAccepted(stringset.New("**"), ""))
	assert.True(t, KeywordsAccepted(stringset.New("*"), "x86"))
	assert.False(t, KeywordsAccepted(stringset.New("*"), "~x86"))

	assert.Equal(t, "~amd64", s.NeededKeyword("~amd64 ~arm64"))
	assert.Equal(t, "**", s.NeededKeyword("arm64"))
}

func TestSettingsLicense(t *testing.T) {
	s := testingSettings(t)
	assert.True(t, s.LicenseAccepted("GPL-3+"))
	assert.False(t, s.LicenseAccepted("MIT"))

	testCases := []struct {
		license  string
		use      []string
		expected []string
	}{
		{"GPL-3+", nil, nil},
		{"|| ( MIT GPL-3+ )", nil, nil},
		{"|| ( MIT BSD )", nil, []string{"MIT"}},
		{"MIT ssl? ( BSD )", []string{"ssl"}, []string{"MIT", "BSD"}},
		{"MIT ssl? ( BSD )", nil, []string{"MIT"}},
		{"!ssl? ( BSD ) ( ZLIB MIT )", []string{"ssl"}, []string{"MIT"}},
		{"MIT MIT", nil, []string{"MIT"}},
	}
	for _, tc := range testCases {
		t.Run(tc.license, func(t *testing.T) {
			missing, err := s.MissingLicenses(tc.license, stringset.New(tc.use...))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, missing)
		})
	}

	for _, invalid := range []string{"|| MIT", "( MIT", "MIT )"} {
		_, err := s.MissingLicenses(invalid, stringset.New())
		assert.Error(t, err, invalid)
	}
}

func TestSettingsMask(t *testing.T) {
	s := testingSettings(t)
	assert.False(t, s.Masked(atom.Candidate{Cpv: "sys-libs/zlib-1.2.13", Repo: "gentoo"}))
	assert.False(t, s.Masked(atom.Candidate{Cpv: "sys-libs/zlib-1.3", Repo: "gentoo"}))
	assert.True(t, s.Masked(atom.Candidate{Cpv: "sys-libs/zlib-1.3", Repo: "local"}))
	assert.True(t, s.Masked(atom.Candidate{Cpv: "sys-libs/zlib-1.4", Repo: "gentoo"}))
}

func TestInvalidProfile(t *testing.T) {
	_, err := ReadProfileFromContents([]byte("apiVersion: portage.dev/v1\nkind: World\n"), "/p.yaml")
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = NewSettings(&ProfileSpec{PackageMask: []string{"not an atom"}})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	sys := testutil.NewSystem(t, "testing.yaml")
	sys.Install(t, "installed.yaml")
	ctx := testutil.Context(t)

	cfg, err := Get()
	require.NoError(t, err)
	require.NoError(t, WriteWorld(cfg.WorldPath(), []string{"app-misc/hello"}))

	roots, err := Load(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	rc := roots[sys.Root]
	require.NotNil(t, rc)

	assert.Equal(t, []string{"sys-libs/zlib-1.2.13"}, rc.Trees.Vartree.CPVAll())
	m, err := rc.Trees.Porttree.Match(atom.MustParse("app-misc/hello"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/hello-2.12"}, m)

	world, err := rc.Set("world")
	require.NoError(t, err)
	assert.Equal(t, []string{"sys-libs/zlib", "app-misc/hello"}, atomStrings(world))

	tools, err := rc.Set("tools")
	require.NoError(t, err)
	assert.Len(t, tools, 2)

	_, err = rc.Set("nope")
	assert.Error(t, err)
	assert.Equal(t, []string{"selected", "system", "world", "tools"}, rc.SetNames())
}

func atomStrings(atoms []*atom.Atom) []string {
	res := make([]string, len(atoms))
	for i, a := range atoms {
		res[i] = a.String()
	}
	return res
}
