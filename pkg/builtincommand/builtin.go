// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package builtincommand

type BuiltinCommand string

const (
	Resolve  BuiltinCommand = "resolve"
	Merge    BuiltinCommand = "merge"
	Unmerge  BuiltinCommand = "unmerge"
	Versions BuiltinCommand = "versions"
	Sync     BuiltinCommand = "sync"
)
