// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package eapi

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Default is assumed for metadata that carries no EAPI
const Default = "0"

var (
	supported      = mustConstraint("<= 8")
	slotDeps       = mustConstraint(">= 1")
	useDeps        = mustConstraint(">= 2")
	strongBlocks   = mustConstraint(">= 2")
	useDepDefaults = mustConstraint(">= 4")
	slotOperator   = mustConstraint(">= 5")
	bdepend        = mustConstraint(">= 7")
	idepend        = mustConstraint(">= 8")
)

// Attrs describes the syntax features available under an EAPI.
type Attrs struct {
	SlotDeps       bool
	UseDeps        bool
	StrongBlocks   bool
	UseDepDefaults bool
	SlotOperator   bool
	Bdepend        bool
	Idepend        bool
}

// All enables every feature, used when atoms are parsed outside of any ebuild (user input, config files)
var All = Attrs{
	SlotDeps:       true,
	UseDeps:        true,
	StrongBlocks:   true,
	UseDepDefaults: true,
	SlotOperator:   true,
	Bdepend:        true,
	Idepend:        true,
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

func Parse(eapi string) (*semver.Version, error) {
	if eapi == "" {
		eapi = Default
	}
	v, err := semver.NewVersion(eapi)
	if err != nil {
		return nil, fmt.Errorf("invalid EAPI %q: %w", eapi, err)
	}
	return v, nil
}

// Supported reports whether packages using this EAPI can be resolved at all
func Supported(eapi string) bool {
	v, err := Parse(eapi)
	if err != nil {
		return false
	}
	return supported.Check(v)
}

// Get returns the attributes of eapi. An empty string yields All.
func Get(eapi string) Attrs {
	if eapi == "" {
		return All
	}
	v, err := Parse(eapi)
	if err != nil {
		return Attrs{}
	}
	return Attrs{
		SlotDeps:       slotDeps.Check(v),
		UseDeps:        useDeps.Check(v),
		StrongBlocks:   strongBlocks.Check(v),
		UseDepDefaults: useDepDefaults.Check(v),
		SlotOperator:   slotOperator.Check(v),
		Bdepend:        bdepend.Check(v),
		Idepend:        idepend.Check(v),
	}
}
