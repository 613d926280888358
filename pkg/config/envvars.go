// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

const envVarPrefix = "PMERGE_"

const (
	// HomeEnvVar
	// PMERGE_HOME is the absolute path to the `pmerge` home directory,
	// holding pmerge-config.yaml and the default profile
	HomeEnvVar = envVarPrefix + "HOME"

	// RootEnvVar
	// PMERGE_ROOT is the root packages are merged into.
	// 	Default: /
	RootEnvVar = envVarPrefix + "ROOT"

	// HostRootEnvVar
	// PMERGE_HOST_ROOT is the root build time dependencies are merged into.
	// 	Default: /
	HostRootEnvVar = envVarPrefix + "HOST_ROOT"

	// LogLevelEnvVar
	// PMERGE_LOG_LEVEL sets the log level.
	// 	Default: info
	//  Possible values: info error warning debug
	LogLevelEnvVar = envVarPrefix + "LOG_LEVEL"

	// BacktrackEnvVar
	// PMERGE_BACKTRACK overrides the number of masks the resolver may try
	// before giving up
	BacktrackEnvVar = envVarPrefix + "BACKTRACK"

	// AutounmaskEnvVar
	// PMERGE_AUTOUNMASK lets the resolver propose USE and keyword changes
	AutounmaskEnvVar = envVarPrefix + "AUTOUNMASK"

	// JobsEnvVar
	// PMERGE_JOBS limits how many merges run concurrently
	JobsEnvVar = envVarPrefix + "JOBS"

	// ProfileEnvVar
	// PMERGE_PROFILE overrides the path of the profile document
	ProfileEnvVar = envVarPrefix + "PROFILE"
)

// Injected into the merge command of every job
const (
	CpvInjectedEnvVar        = envVarPrefix + "CPV"
	RootInjectedEnvVar       = envVarPrefix + "MERGE_ROOT"
	OperationInjectedEnvVar  = envVarPrefix + "OPERATION"
	RepositoryInjectedEnvVar = envVarPrefix + "REPOSITORY"
	UseInjectedEnvVar        = envVarPrefix + "USE"
)
