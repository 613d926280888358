// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/dbapi"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/resolutionerrors"
	"portage.dev/x/pmerge/pkg/testutil"
)

type pkgs map[string]map[string]string

func memDB(t *testing.T, name string, p pkgs) *dbapi.MemDB {
	db := dbapi.NewMemDB(name)
	for cpv, md := range p {
		md = lo.Assign(map[string]string{"EAPI": "8", "KEYWORDS": "x86", "SLOT": "0"}, md)
		require.NoError(t, db.Add(cpv, md))
	}
	return db
}

type fixture struct {
	repo      pkgs
	installed pkgs
	binpkgs   pkgs
	system    []string
	// acceptLicense defaults to every license
	acceptLicense []string
}

func (f fixture) rootConfig(t *testing.T, root string) *config.RootConfig {
	settings, err := config.NewSettings(&config.ProfileSpec{
		Arch:          "x86",
		AcceptLicense: f.acceptLicense,
		Sets:          map[string][]string{"system": f.system},
	})
	require.NoError(t, err)

	return &config.RootConfig{
		Root:     root,
		Settings: settings,
		Trees: config.Trees{
			Porttree: memDB(t, "gentoo", f.repo),
			Bintree:  memDB(t, "binpkgs", f.binpkgs),
			Vartree:  memDB(t, "installed", f.installed),
		},
	}
}

func (f fixture) resolver(t *testing.T, opts Options) *Resolver {
	r, err := New(map[string]*config.RootConfig{"/": f.rootConfig(t, "/")}, "/", "/", opts)
	require.NoError(t, err)
	return r
}

// crossResolver installs into /target and resolves build deps in /
func crossResolver(t *testing.T, target, host fixture, opts Options) *Resolver {
	roots := map[string]*config.RootConfig{
		"/target": target.rootConfig(t, "/target"),
		"/":       host.rootConfig(t, "/"),
	}
	r, err := New(roots, "/target", "/", opts)
	require.NoError(t, err)
	return r
}

var defaultOptions = Options{Backtrack: 10}

func mergeList(res *Result) []string {
	return lo.Map(res.MergeList, func(e *Entry, _ int) string { return e.Package.Cpv })
}

func TestStableKeywordPreferred(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{
		"app-misc/a-1": {},
		"app-misc/a-2": {"KEYWORDS": "~x86"},
	}}

	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/a-1"}, mergeList(res))
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "argument", res.MergeList[0].Reason)
	assert.Equal(t, StatusNew, res.MergeList[0].Status)

	_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"=app-misc/a-2"})
	var unsatisfied *UnsatisfiableDependencyError
	require.ErrorAs(t, err, &unsatisfied)
	require.Len(t, unsatisfied.Candidates, 1)
	assert.Equal(t, "app-misc/a-2", unsatisfied.Candidates[0].Cpv)
	assert.Contains(t, unsatisfied.Candidates[0].Reasons, "missing keyword (needs ~x86)")
	assert.Equal(t, resolutionerrors.UnsatisfiableDep, resolutionerrors.Standardize(err).Code)
}

func TestAutounmaskKeyword(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{
		"app-misc/a-1": {},
		"app-misc/a-2": {"KEYWORDS": "~x86"},
	}}
	opts := defaultOptions
	opts.Autounmask = true

	res, err := f.resolver(t, opts).Resolve(ctx, []string{"=app-misc/a-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/a-2"}, mergeList(res))
	assert.Equal(t, []AutounmaskChange{{Root: "/", Cpv: "app-misc/a-2", Repo: "gentoo", Keyword: "~x86"}}, res.Autounmask)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, res.Conflicts, 1)
}

func TestAutounmaskUse(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{
		"app-misc/a-1":   {"RDEPEND": "dev-libs/lib[ssl]"},
		"dev-libs/lib-1": {"IUSE": "ssl"},
	}}

	_, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	var unsatisfied *UnsatisfiableDependencyError
	require.ErrorAs(t, err, &unsatisfied)

	opts := defaultOptions
	opts.Autounmask = true
	res, err := f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-libs/lib-1", "app-misc/a-1"}, mergeList(res))
	assert.Equal(t, []AutounmaskChange{{Root: "/", Cpv: "dev-libs/lib-1", Repo: "gentoo", UseChanges: map[string]bool{"ssl": true}}}, res.Autounmask)
	assert.True(t, res.MergeList[0].Package.Use.Contains("ssl"))
}

var slotConflictRepo = pkgs{
	"app-misc/a-1": {"RDEPEND": "=app-misc/c-1 app-misc/b"},
	"app-misc/b-1": {"RDEPEND": "=app-misc/c-1"},
	"app-misc/b-2": {"RDEPEND": "=app-misc/c-2"},
	"app-misc/c-1": {},
	"app-misc/c-2": {},
}

func TestSlotConflictBacktracking(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: slotConflictRepo}

	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/c-1", "app-misc/b-1", "app-misc/a-1"}, mergeList(res))
	assert.Equal(t, 3, res.Attempts)
	require.Len(t, res.Conflicts, 2)
	var sc *depgraph.SlotConflictError
	assert.ErrorAs(t, res.Conflicts[0], &sc)
	assert.Equal(t, "required by app-misc/a-1::gentoo", res.MergeList[1].Reason)
}

func TestSlotConflictPolicy(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{
		"app-misc/a-1": {"RDEPEND": "app-misc/b app-misc/c"},
		"app-misc/b-1": {"RDEPEND": "<app-misc/c-2"},
		"app-misc/c-1": {},
		"app-misc/c-2": {},
	}}

	testCases := []struct {
		policy   config.SlotConflictPolicy
		attempts int
	}{
		{config.HighestVersion, 2},
		{config.LastPulled, 5},
	}
	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			opts := defaultOptions
			opts.SlotConflictPolicy = tc.policy
			res, err := f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"app-misc/a-1", "app-misc/b-1", "app-misc/c-1"}, mergeList(res))
			assert.Equal(t, tc.attempts, res.Attempts)
		})
	}
}

func TestBacktrackLimitExceeded(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: slotConflictRepo}

	_, err := f.resolver(t, Options{}).Resolve(ctx, []string{"app-misc/a"})
	var limit *BacktrackLimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 1, limit.Attempts)
	assert.Empty(t, limit.Prior)
	var sc *depgraph.SlotConflictError
	assert.ErrorAs(t, err, &sc)
	assert.Equal(t, resolutionerrors.BacktrackLimitExceeded, resolutionerrors.Standardize(err).Code)

	_, err = f.resolver(t, Options{Backtrack: 10, MaxAttempts: 2}).Resolve(ctx, []string{"app-misc/a"})
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.Attempts)
	assert.Len(t, limit.Prior, 1)
	assert.Len(t, limit.Summary(), 1)
}

func TestOnlyDeps(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		repo: pkgs{
			"app-misc/a-1": {"RDEPEND": "app-misc/b"},
			"app-misc/b-1": {},
		},
		installed: pkgs{"app-misc/b-1": {}},
	}
	opts := defaultOptions
	opts.OnlyDeps = true

	res, err := f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a", "app-misc/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/b-1"}, mergeList(res))
	assert.Equal(t, StatusReinstall, res.MergeList[0].Status)
}

func TestInstalledPackages(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		repo: pkgs{
			"app-misc/a-1": {"RDEPEND": "app-misc/b"},
			"app-misc/b-1": {},
			"app-misc/b-2": {},
		},
		installed: pkgs{
			"app-misc/a-1": {"RDEPEND": "app-misc/b"},
			"app-misc/b-1": {},
		},
	}

	testCases := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{"reinstall argument", Options{}, []string{"app-misc/a-1"}},
		{"noreplace", Options{NoReplace: true}, nil},
		{"update", Options{Update: true}, nil},
		{"deep update", Options{Update: true, Deep: true}, []string{"app-misc/b-2"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Backtrack = 10
			res, err := f.resolver(t, tc.opts).Resolve(ctx, []string{"app-misc/a"})
			require.NoError(t, err)
			if tc.expected == nil {
				assert.Empty(t, res.MergeList)
				return
			}
			assert.Equal(t, tc.expected, mergeList(res))
		})
	}
}

func TestAnyOf(t *testing.T) {
	ctx := testutil.Context(t)
	repo := pkgs{
		"app-misc/a-1": {"RDEPEND": "|| ( app-misc/x app-misc/y )"},
		"app-misc/x-1": {},
		"app-misc/y-1": {},
	}

	f := fixture{repo: repo}
	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/x-1", "app-misc/a-1"}, mergeList(res))

	f = fixture{repo: repo, installed: pkgs{"app-misc/y-1": {}}}
	res, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/a-1"}, mergeList(res))

	f = fixture{repo: pkgs{"app-misc/a-1": {"RDEPEND": "|| ( app-misc/x app-misc/y )"}}}
	_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	var unsatisfied *UnsatisfiableDependencyError
	require.ErrorAs(t, err, &unsatisfied)
}

func TestOverlappingAnyOf(t *testing.T) {
	ctx := testutil.Context(t)
	repo := pkgs{
		"app-misc/p-1": {"RDEPEND": "|| ( x/a x/b ) || ( x/b x/c )"},
		"x/a-1":        {},
		"x/b-1":        {},
		"x/c-1":        {},
	}

	f := fixture{repo: repo}
	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x/b-1", "app-misc/p-1"}, mergeList(res))

	f = fixture{repo: repo, installed: pkgs{"x/a-1": {}, "x/c-1": {}}}
	res, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/p-1"}, mergeList(res))
}

func TestBlockerNeverCoOccurs(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{
		"app-misc/a-1": {"RDEPEND": "!app-misc/x"},
		"app-misc/b-1": {"RDEPEND": "app-misc/z"},
		"app-misc/z-1": {},
		"app-misc/z-2": {"RDEPEND": "app-misc/x"},
		"app-misc/x-1": {},
	}}

	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a", "app-misc/b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-misc/a-1", "app-misc/b-1", "app-misc/z-1"}, mergeList(res))
	var violation *BlockerViolationError
	require.NotEmpty(t, res.Conflicts)
	assert.ErrorAs(t, res.Conflicts[0], &violation)
}

func TestBlockedInstalledPackage(t *testing.T) {
	ctx := testutil.Context(t)
	installed := pkgs{"app-misc/x-1": {}}

	testCases := []struct {
		blocker  string
		expected []string
	}{
		{"!app-misc/x", []string{"app-misc/a-1", "app-misc/x-1"}},
		{"!!app-misc/x", []string{"app-misc/x-1", "app-misc/a-1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.blocker, func(t *testing.T) {
			f := fixture{repo: pkgs{"app-misc/a-1": {"RDEPEND": tc.blocker}}, installed: installed}
			res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, mergeList(res))

			uninstall, ok := lo.Find(res.MergeList, func(e *Entry) bool { return e.Operation == EntryUninstallBlockedBy })
			require.True(t, ok)
			assert.Equal(t, "app-misc/x-1", uninstall.Package.Cpv)
			assert.Equal(t, "blocked by app-misc/a-1::gentoo ("+tc.blocker+")", uninstall.Reason)

			require.Len(t, res.Blockers, 1)
			assert.True(t, res.Blockers[0].Satisfied)
			assert.Len(t, res.Blockers[0].Blocking, 1)
		})
	}

	f := fixture{
		repo:      pkgs{"app-misc/a-1": {"RDEPEND": "!app-misc/x"}},
		installed: installed,
		system:    []string{"app-misc/x"},
	}
	_, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	assert.Error(t, err)
}

func TestProtectedFollowsRuntimeDeps(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		repo: pkgs{
			"sys-apps/s-1": {"DEPEND": "dev-util/t", "RDEPEND": "sys-libs/r"},
			"dev-util/t-1": {},
			"sys-libs/r-1": {},
		},
		system: []string{"sys-apps/s"},
	}

	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"@system"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-util/t-1", "sys-libs/r-1", "sys-apps/s-1"}, mergeList(res))
	assert.Equal(t, []string{"sys-apps/s-1", "sys-libs/r-1"}, res.Protected)
	assert.NotContains(t, res.Protected, "dev-util/t-1")
}

func TestCircularDependencies(t *testing.T) {
	ctx := testutil.Context(t)

	f := fixture{repo: pkgs{
		"app-misc/a-1": {"RDEPEND": "app-misc/b"},
		"app-misc/b-1": {"RDEPEND": "app-misc/a"},
	}}
	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Len(t, res.MergeList, 2)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, "medium", res.Cycles[0].Category())

	f = fixture{repo: pkgs{
		"app-misc/a-1": {"DEPEND": "app-misc/b"},
		"app-misc/b-1": {},
		"app-misc/b-2": {"DEPEND": "app-misc/a"},
	}}
	res, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/b-1", "app-misc/a-1"}, mergeList(res))
	var cd *depgraph.CircularDependencyError
	require.NotEmpty(t, res.Conflicts)
	assert.ErrorAs(t, res.Conflicts[0], &cd)
}

func TestArguments(t *testing.T) {
	ctx := testutil.Context(t)
	repo := pkgs{
		"app-misc/foo-1": {},
		"dev-libs/foo-1": {},
		"app-misc/bar-1": {},
	}

	f := fixture{repo: repo}
	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"bar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/bar-1"}, mergeList(res))

	_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"foo"})
	var ambiguous *AmbiguousPackageNameError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"app-misc/foo", "dev-libs/foo"}, ambiguous.Matches)
	assert.True(t, resolutionerrors.Fatal(resolutionerrors.Standardize(err).Code))

	f = fixture{repo: repo, installed: pkgs{"dev-libs/foo-1": {}}}
	res, err = f.resolver(t, Options{Backtrack: 10, NoReplace: true}).Resolve(ctx, []string{"foo"})
	require.NoError(t, err)
	assert.Empty(t, res.MergeList)

	for _, invalid := range []string{"=app-misc/foo", "app-misc/foo[", "@nope"} {
		_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{invalid})
		assert.Error(t, err, invalid)
	}

	_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"baz"})
	assert.ErrorAs(t, err, new(*UnsatisfiableDependencyError))
}

func TestInvalidDependString(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: pkgs{"app-misc/a-1": {"RDEPEND": "|| ( app-misc/b"}}}

	_, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.Error(t, err)
	assert.Equal(t, resolutionerrors.InvalidDependString, resolutionerrors.Standardize(err).Code)
}

func TestUnmerge(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		installed: pkgs{
			"app-misc/y-1": {},
			"app-misc/x-1": {"RDEPEND": "app-misc/y"},
			"sys-apps/z-1": {},
		},
		system: []string{"sys-apps/z"},
	}

	res, err := f.resolver(t, defaultOptions).Unmerge(ctx, []string{"app-misc/y", "app-misc/x", "sys-apps/z", "app-misc/nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/x-1", "app-misc/y-1"}, mergeList(res))
	assert.True(t, lo.EveryBy(res.MergeList, func(e *Entry) bool { return e.Operation == EntryUninstall }))
	assert.Equal(t, []string{"sys-apps/z-1"}, res.Protected)
}

func TestCancelledContext(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{repo: slotConflictRepo}
	r := f.resolver(t, defaultOptions)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := r.Resolve(cancelled, []string{"app-misc/a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewUnknownRoot(t *testing.T) {
	_, err := New(nil, "/", "/", Options{})
	assert.Error(t, err)
}

func TestVersions(t *testing.T) {
	f := fixture{
		repo: pkgs{
			"app-misc/a-1": {},
			"app-misc/a-2": {"KEYWORDS": "~x86"},
		},
		installed: pkgs{"app-misc/a-1": {}},
	}
	r := f.resolver(t, defaultOptions)

	cp, entries, err := r.Versions("a")
	require.NoError(t, err)
	assert.Equal(t, "app-misc/a", cp)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Installed)
	assert.True(t, entries[0].Available)
	assert.Equal(t, "gentoo", entries[0].Repo)
	assert.Equal(t, []string{"missing keyword (needs ~x86)"}, entries[1].Masks)

	best, ok := entries.Best()
	require.True(t, ok)
	assert.Equal(t, "1", best.Version.String())

	_, _, err = r.Versions("@system")
	assert.Error(t, err)
}

func TestUsePkg(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		repo:    pkgs{"app-misc/a-1": {}},
		binpkgs: pkgs{"app-misc/a-1": {"repository": "gentoo", "BUILD_ID": "2"}},
	}

	testCases := []struct {
		usePkg   bool
		expected depgraph.PkgType
	}{
		{false, depgraph.TypeEbuild},
		{true, depgraph.TypeBinary},
	}
	for _, tc := range testCases {
		opts := defaultOptions
		opts.UsePkg = tc.usePkg
		res, err := f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
		require.NoError(t, err)
		require.Equal(t, []string{"app-misc/a-1"}, mergeList(res))
		assert.Equal(t, tc.expected, res.MergeList[0].Package.Type)
	}
}

func TestWithBdeps(t *testing.T) {
	ctx := testutil.Context(t)
	a := map[string]string{"DEPEND": "dev-util/t", "RDEPEND": "app-misc/r"}
	f := fixture{
		repo: pkgs{
			"app-misc/a-1": a,
			"app-misc/r-1": {},
			"dev-util/t-1": {},
		},
		installed: pkgs{
			"app-misc/a-1": a,
			"app-misc/r-1": {},
		},
	}

	opts := Options{Backtrack: 10, Update: true, Deep: true}
	res, err := f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Empty(t, res.MergeList)

	opts.WithBdeps = true
	res, err = f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-util/t-1"}, mergeList(res))
	assert.Equal(t, "required by app-misc/a-1::installed", res.MergeList[0].Reason)

	opts.Deep = false
	res, err = f.resolver(t, opts).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Empty(t, res.MergeList)
}

func TestBuildDepsRoot(t *testing.T) {
	ctx := testutil.Context(t)
	deps := pkgs{
		"dev-libs/d-1": {},
		"dev-util/b-1": {},
		"dev-util/i-1": {},
	}

	testCases := []struct {
		name     string
		metadata map[string]string
		expected map[string]string
	}{
		{
			name:     "EAPI 8",
			metadata: map[string]string{"DEPEND": "dev-libs/d", "BDEPEND": "dev-util/b", "IDEPEND": "dev-util/i"},
			expected: map[string]string{
				"dev-libs/d-1": "/target",
				"dev-util/b-1": "/",
				"dev-util/i-1": "/",
				"app-misc/p-1": "/target",
			},
		},
		{
			name:     "EAPI 6",
			metadata: map[string]string{"EAPI": "6", "DEPEND": "dev-libs/d"},
			expected: map[string]string{
				"dev-libs/d-1": "/",
				"app-misc/p-1": "/target",
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := fixture{repo: lo.Assign(deps, pkgs{"app-misc/p-1": tc.metadata})}
			host := fixture{repo: deps}

			res, err := crossResolver(t, target, host, defaultOptions).Resolve(ctx, []string{"app-misc/p"})
			require.NoError(t, err)
			roots := map[string]string{}
			for _, e := range res.MergeList {
				roots[e.Package.Cpv] = e.Package.Root
			}
			assert.Equal(t, tc.expected, roots)
			assert.Equal(t, "app-misc/p-1", res.MergeList[len(res.MergeList)-1].Package.Cpv)
		})
	}
}

func TestMasking(t *testing.T) {
	ctx := testutil.Context(t)

	testCases := []struct {
		name          string
		repo          pkgs
		acceptLicense []string
		reason        string
	}{
		{
			name:   "unsupported EAPI",
			repo:   pkgs{"app-misc/a-1": {}, "app-misc/a-2": {"EAPI": "9"}},
			reason: "EAPI 9 is not supported",
		},
		{
			name:          "license",
			repo:          pkgs{"app-misc/a-1": {"LICENSE": "GPL-2"}, "app-misc/a-2": {"LICENSE": "commercial"}},
			acceptLicense: []string{"GPL-2"},
			reason:        "license: commercial",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := fixture{repo: tc.repo, acceptLicense: tc.acceptLicense}

			res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
			require.NoError(t, err)
			assert.Equal(t, []string{"app-misc/a-1"}, mergeList(res))
			assert.True(t, res.MergeList[0].Package.Visible())

			_, err = f.resolver(t, defaultOptions).Resolve(ctx, []string{"=app-misc/a-2"})
			var unsatisfied *UnsatisfiableDependencyError
			require.ErrorAs(t, err, &unsatisfied)
			require.Len(t, unsatisfied.Candidates, 1)
			assert.Equal(t, []string{tc.reason}, unsatisfied.Candidates[0].Reasons)
		})
	}
}

func TestInvalidInstalledDependString(t *testing.T) {
	ctx := testutil.Context(t)
	f := fixture{
		repo:      pkgs{"app-misc/a-1": {}},
		installed: pkgs{"app-misc/x-1": {"RDEPEND": "|| ( app-misc/b"}},
		system:    []string{"app-misc/x"},
	}

	res, err := f.resolver(t, defaultOptions).Resolve(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-misc/a-1"}, mergeList(res))

	res, err = f.resolver(t, defaultOptions).Unmerge(ctx, []string{"app-misc/a"})
	require.NoError(t, err)
	assert.Empty(t, res.MergeList)
	assert.Equal(t, []string{"app-misc/x-1"}, res.Protected)
}
