// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVercmp(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2", "1.10", -1},
		{"1.0_alpha", "1.0", -1},
		{"1.0-r1", "1.0", 1},
		{"1.0", "1.0", 0},
		{"1.0-r0", "1.0", 0},
		{"1.0.0", "1.0", 1},
		{"1.02", "1.1", -1},
		{"1.01", "1.1", -1},
		{"1.0a", "1.0", 1},
		{"12.2.5", "12.2b", 1},
		{"1.0_rc1", "1.0_beta5", 1},
		{"1.0_p1", "1.0", 1},
		{"1.0_p", "1.0", 1},
		{"1.0_pre1", "1.0_rc", -1},
		{"1.0_alpha1_p2", "1.0_alpha1", 1},
		{"1.0_alpha1_beta", "1.0_alpha1", -1},
		{"2", "10", -1},
		{"999999999999999999999", "1000000000000000000000", -1},
		{"1.0-r2", "1.0-r10", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := Vercmp(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sign(got))

			rev, err := Vercmp(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, sign(rev))
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, v := range []string{"", "a1", "1.", ".1", "1.0-r", "1_foo", "1.0AB", "1-1"} {
		_, err := Parse(v)
		assert.ErrorIs(t, err, ErrInvalidVersion, v)
	}
}

func TestRevision(t *testing.T) {
	v := MustParse("1.2.3_rc1-r4")
	assert.Equal(t, "4", v.Revision())
	assert.True(t, v.HasRevision())
	assert.Equal(t, "1.2.3_rc1", v.WithoutRevision())

	v = MustParse("1.2")
	assert.Equal(t, "0", v.Revision())
	assert.Equal(t, "1.2", v.WithoutRevision())
}

func TestCatPkgSplit(t *testing.T) {
	cat, pn, ver, ok := CatPkgSplit("dev-libs/foo-bar-1.0-r1")
	require.True(t, ok)
	assert.Equal(t, "dev-libs", cat)
	assert.Equal(t, "foo-bar", pn)
	assert.Equal(t, "1.0-r1", ver)

	_, _, _, ok = CatPkgSplit("dev-libs/foo")
	assert.False(t, ok)

	assert.Equal(t, "app-misc/a", CpvGetKey("app-misc/a-2_p1"))
	assert.False(t, ValidPackageName("foo-1"))
	assert.True(t, ValidPackageName("foo1"))
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	}
	return 0
}
