// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

const (
	ConfigFileName  = "pmerge-config.yaml"
	ProfileFileName = "profile.yaml"

	// InstalledDBPath is where the installed package database lives, relative to a root
	InstalledDBPath = "var/db/pmerge/installed.yaml"
	// WorldFilePath holds the selected set, relative to a root
	WorldFilePath = "var/lib/pmerge/world.yaml"
	// MergeLockPath is held while a transaction changes a root
	MergeLockPath = "var/lib/pmerge/merge.lock"

	// PostSyncHooksDir holds executables run after every repository sync, relative to the home directory
	PostSyncHooksDir = "postsync.d"

	DefaultBacktrack = 10
	DefaultJobs      = 1
)
