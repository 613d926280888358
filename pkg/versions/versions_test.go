// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries(t *testing.T) {
	installed := []*Entry{{Version: MustParse("1.0"), Slot: "0"}}
	available := []*Entry{
		{Version: MustParse("2.0"), Slot: "0", Repo: "gentoo", Masks: []string{"~amd64 keyword"}},
		{Version: MustParse("1.0"), Slot: "0", Repo: "gentoo"},
		{Version: MustParse("1.5"), Slot: "0", Repo: "gentoo"},
	}

	entries := New(installed, available)
	require.Len(t, entries, 3)
	assert.Equal(t, "1.0", entries[0].Version.String())
	assert.True(t, entries[0].Installed)
	assert.True(t, entries[0].Available)
	assert.Equal(t, "gentoo", entries[0].Repo)
	assert.Equal(t, "2.0", entries[2].Version.String())

	best, ok := entries.Best()
	require.True(t, ok)
	assert.Equal(t, "1.5", best.Version.String())

	tbl := entries.Table()
	assert.Contains(t, tbl, "1.5::gentoo")
	assert.Contains(t, tbl, "~amd64 keyword")
}

func TestEntriesNoVisible(t *testing.T) {
	entries := New([]*Entry{{Version: MustParse("3")}}, nil)
	_, ok := entries.Best()
	assert.False(t, ok)
}
