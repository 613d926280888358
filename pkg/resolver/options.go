// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"portage.dev/x/pmerge/pkg/config"
)

type Options struct {
	// Update selects the best version even when an installed one matches
	Update bool
	// Deep expands the dependencies of installed packages
	Deep bool
	// NoReplace keeps installed packages matching the arguments
	NoReplace bool
	// OnlyDeps merges the dependencies of the arguments but not the arguments
	OnlyDeps bool
	// UsePkg prefers binary packages over ebuilds of the same version
	UsePkg bool
	// WithBdeps pulls build time dependencies of installed packages with --deep
	WithBdeps bool
	// Autounmask proposes USE and keyword changes instead of failing
	Autounmask bool

	// Backtrack is the number of masks a resolution may accumulate
	Backtrack int
	// MaxAttempts bounds the number of graphs built, 0 derives it from Backtrack
	MaxAttempts int

	SlotConflictPolicy config.SlotConflictPolicy
}

// OptionsFromConfig carries over the resolution settings of the tool config
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Autounmask:         c.Autounmask,
		Backtrack:          c.Backtrack,
		SlotConflictPolicy: c.SlotConflictPolicy,
	}
}

func (o Options) maxAttempts() int {
	if o.MaxAttempts > 0 {
		return o.MaxAttempts
	}
	return 2*o.Backtrack + 1
}
