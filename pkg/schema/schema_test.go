// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSchema(t *testing.T) {
	want := Meta("Repository")

	assert.NoError(t, want.ValidateSchema(ManifestMeta{APIVersion: "portage.dev/v1", Kind: "Repository"}))
	assert.ErrorContains(t, want.ValidateSchema(ManifestMeta{APIVersion: "portage.dev/v1"}), "missing required field 'kind'")
	assert.ErrorContains(t, want.ValidateSchema(ManifestMeta{APIVersion: "portage.dev/v1", Kind: "Transaction"}), "unsupported kind")
	assert.ErrorContains(t, want.ValidateSchema(ManifestMeta{Kind: "Repository"}), "missing required field 'apiVersion'")
	assert.ErrorContains(t, want.ValidateSchema(ManifestMeta{APIVersion: "portage.dev/v2", Kind: "Repository"}), "unsupported apiVersion")
}
