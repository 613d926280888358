// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolution

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/dbapi"
	"portage.dev/x/pmerge/pkg/resolutionerrors"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/schema"
	"portage.dev/x/pmerge/pkg/testutil"
)

func newResolver(t *testing.T, opts resolver.Options) *resolver.Resolver {
	repo := dbapi.NewMemDB("gentoo")
	for cpv, md := range map[string]map[string]string{
		"app-misc/a-1":   {"RDEPEND": "dev-libs/lib[ssl] !app-misc/old"},
		"dev-libs/lib-1": {"IUSE": "ssl +static"},
	} {
		md["EAPI"] = "8"
		md["KEYWORDS"] = "amd64"
		require.NoError(t, repo.Add(cpv, md))
	}
	installed := dbapi.NewMemDB("installed")
	require.NoError(t, installed.Add("app-misc/old-1", map[string]string{"EAPI": "8"}))

	settings, err := config.NewSettings(&config.ProfileSpec{Arch: "amd64"})
	require.NoError(t, err)
	rc := &config.RootConfig{Root: "/", Settings: settings, Trees: config.Trees{Porttree: repo, Vartree: installed}}
	r, err := resolver.New(map[string]*config.RootConfig{"/": rc}, "/", "/", opts)
	require.NoError(t, err)
	return r
}

func TestFromResult(t *testing.T) {
	ctx := testutil.Context(t)
	res, err := newResolver(t, resolver.Options{Backtrack: 10, Autounmask: true}).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)

	tr := FromResult(res)
	assert.Equal(t, schema.Meta(Kind), tr.ManifestMeta)
	assert.False(t, tr.Failed())
	require.Len(t, tr.MergeList, 3)

	lib := tr.MergeList[0]
	assert.Equal(t, "dev-libs/lib-1", lib.Cpv)
	assert.Equal(t, []string{"ssl", "static"}, lib.Use)
	assert.Empty(t, lib.DependsOn)

	a := tr.MergeList[1]
	assert.Equal(t, "app-misc/a-1", a.Cpv)
	assert.Equal(t, "merge", a.Operation)
	assert.Equal(t, "N", a.Status)
	assert.Equal(t, []int{0}, a.DependsOn)

	old := tr.MergeList[2]
	assert.Equal(t, "app-misc/old-1", old.Cpv)
	assert.Equal(t, "uninstall-blocked-by", old.Operation)
	assert.Equal(t, []int{1}, old.DependsOn)

	require.Len(t, tr.Blockers, 1)
	assert.Equal(t, "!app-misc/old", tr.Blockers[0].Atom)
	assert.True(t, tr.Blockers[0].Satisfied)

	require.Len(t, tr.Autounmask, 1)
	assert.Equal(t, "dev-libs/lib-1", tr.Autounmask[0].Cpv)
	assert.Equal(t, []string{"ssl"}, tr.Autounmask[0].UseChanges)

	path := filepath.Join(t.TempDir(), "out", "transaction.yaml")
	require.NoError(t, tr.Write(path))
	read, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, tr.MergeList, read.MergeList)
	assert.Equal(t, tr.Autounmask, read.Autounmask)
}

func TestFromError(t *testing.T) {
	ctx := testutil.Context(t)
	_, err := newResolver(t, resolver.Options{Backtrack: 10}).Resolve(ctx, []string{"app-misc/a"})
	require.Error(t, err)

	tr := FromError(err)
	assert.True(t, tr.Failed())
	require.Len(t, tr.Errors, 1)
	assert.Equal(t, resolutionerrors.UnsatisfiableDep, tr.Errors[0].Code)

	_, err = newResolver(t, resolver.Options{Backtrack: 10, MaxAttempts: 1}).Resolve(ctx, []string{"app-misc/a"})
	tr = FromError(err)
	require.Len(t, tr.Errors, 1)
	assert.Equal(t, resolutionerrors.BacktrackLimitExceeded, tr.Errors[0].Code)
}

func TestReadInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{"wrong kind", "apiVersion: portage.dev/v1\nkind: Profile\nmerge-list: []\n"},
		{"unknown field", "apiVersion: portage.dev/v1\nkind: Transaction\nmergelist: []\n"},
		{"forward dependency", `apiVersion: portage.dev/v1
kind: Transaction
merge-list:
  - cpv: app-misc/a-1
    root: /
    type: ebuild
    operation: merge
    depends-on: [1]
  - cpv: app-misc/b-1
    root: /
    type: ebuild
    operation: merge
`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadFromContents([]byte(tc.contents))
			assert.ErrorIs(t, err, ErrInvalidTransaction)
		})
	}
}
