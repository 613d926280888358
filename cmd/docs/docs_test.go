// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/testutil"
)

func TestGenDocs(t *testing.T) {
	tests := []struct {
		format string
		files  []string
	}{
		{format: "md", files: []string{"pmerge.md", "pmerge_merge.md", "pmerge_sync.md"}},
		{format: "rst", files: []string{"pmerge.rst", "pmerge_resolve.rst", "index.rst"}},
		{format: "man", files: []string{"pmerge.1", "pmerge-unmerge.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Setenv(config.HomeEnvVar, t.TempDir())
			dir := filepath.Join(t.TempDir(), "docs")
			require.NoError(t, genDocs(testutil.Context(t), dir, tt.format))

			for _, f := range tt.files {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, f)
			}
		})
	}

	t.Run("unsupported format", func(t *testing.T) {
		assert.Error(t, genDocs(testutil.Context(t), t.TempDir(), "html"))
	})
}

func TestFrontMatter(t *testing.T) {
	assert.Contains(t, prependFrontMatter("/tmp/pmerge_merge.md"), "title: pmerge merge\n")
	assert.Equal(t, "pmerge sync\n===========\n\n", prependRSTHeader("pmerge_sync.rst"))
}
