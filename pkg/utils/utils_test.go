// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvVars(t *testing.T) {
	t.Setenv("PMERGE_TEST_BOOL", "true")
	t.Setenv("PMERGE_TEST_INT", "12")
	t.Setenv("PMERGE_TEST_BAD", "nope")

	b, ok, err := BoolEnvVar("PMERGE_TEST_BOOL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)

	_, ok, err = BoolEnvVar("PMERGE_TEST_UNSET")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = BoolEnvVar("PMERGE_TEST_BAD")
	assert.Error(t, err)

	i, ok, err := IntEnvVar("PMERGE_TEST_INT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	_, _, err = IntEnvVar("PMERGE_TEST_BAD")
	assert.Error(t, err)
}

func TestWithLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.lock")

	called := false
	err := WithLock(context.Background(), path, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, WithLock(context.Background(), path, func() error { return boom }), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, WithLock(ctx, path, func() error { return nil }), context.Canceled)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/base", "repo"), ResolvePath("/base", "repo"))
	assert.Equal(t, filepath.Clean("/abs/repo"), ResolvePath("/base", "/abs/repo/"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "db", "installed.yaml")
	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(contents))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}
