// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"portage.dev/x/pmerge/pkg/config"
)

func TestInitLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	t.Setenv(config.LogLevelEnvVar, "warn")
	require.NoError(t, InitLoggingTo(&buf))
	slog.Info("hidden")
	slog.Warn("shown", "package", "app-misc/a-1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "package=app-misc/a-1")

	t.Setenv(config.LogLevelEnvVar, "loud")
	assert.Error(t, InitLoggingTo(&buf))
}
