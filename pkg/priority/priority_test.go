// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package priority

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepPriorityHardness(t *testing.T) {
	tests := []struct {
		p        DepPriority
		hardness int
		category string
	}{
		{DepPriority{Buildtime: true}, 0, "hard"},
		{DepPriority{Buildtime: true, Runtime: true}, 0, "hard"},
		{DepPriority{Runtime: true}, -1, "medium"},
		{DepPriority{Blocker: true}, -1, "medium"},
		{DepPriority{RuntimePost: true}, -2, "medium-soft"},
		{DepPriority{Runtime: true, Optional: true}, -3, "soft"},
		{DepPriority{Buildtime: true, Satisfied: true}, -3, "soft"},
		{DepPriority{}, -4, "soft"},
		{DepPriority{Buildtime: true, Ignored: true}, -4, "soft"},
	}

	for _, tt := range tests {
		t.Run(tt.p.Label(), func(t *testing.T) {
			assert.Equal(t, tt.hardness, tt.p.Hardness())
			assert.Equal(t, tt.category, tt.p.Category())
		})
	}
}

func TestUnmergeDepPriority(t *testing.T) {
	assert.Equal(t, 0, UnmergeDepPriority{Runtime: true, Buildtime: true}.Hardness())
	assert.Equal(t, -1, UnmergeDepPriority{RuntimePost: true}.Hardness())
	assert.Equal(t, -2, UnmergeDepPriority{Buildtime: true}.Hardness())
	assert.Equal(t, -2, UnmergeDepPriority{}.Hardness())
	assert.True(t, UnmergeDepPriority{RuntimePost: true}.Hard())
	assert.Equal(t, "soft", UnmergeDepPriority{Buildtime: true}.String())
}

func TestOrdering(t *testing.T) {
	ps := []Priority{
		DepPriority{RuntimePost: true},
		DepPriority{Buildtime: true},
		DepPriority{},
		DepPriority{Optional: true},
		DepPriority{Runtime: true},
	}
	slices.SortFunc(ps, Compare)
	assert.Equal(t, []Priority{
		DepPriority{},
		DepPriority{Optional: true},
		DepPriority{RuntimePost: true},
		DepPriority{Runtime: true},
		DepPriority{Buildtime: true},
	}, ps)
}

func TestPredicates(t *testing.T) {
	assert.True(t, IgnoreSoft(DepPriority{Satisfied: true, Buildtime: true}))
	assert.False(t, IgnoreSoft(DepPriority{RuntimePost: true}))
	assert.True(t, IgnoreAtOrBelow(MediumSoft)(DepPriority{RuntimePost: true}))

	assert.False(t, OnlyRuntime(DepPriority{Runtime: true, Satisfied: true}))
	assert.False(t, OnlyRuntime(DepPriority{RuntimePost: true}))
	assert.True(t, OnlyRuntime(DepPriority{Buildtime: true}))
	assert.False(t, OnlyRuntime(UnmergeDepPriority{Runtime: true}))
}
