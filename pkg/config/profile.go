// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"portage.dev/x/pmerge/pkg/schema"
	"portage.dev/x/pmerge/pkg/utils"
)

const (
	ProfileKind = "Profile"
	WorldKind   = "World"
)

var ErrInvalidProfile = fmt.Errorf("invalid profile")

// Profile holds the user and profile configuration of a system.
// Package entries are written like portage's package.* files: an atom
// followed by its tokens, e.g. "app-misc/hello nls -X".
type Profile struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *ProfileSpec `yaml:"spec"`

	AbsPath string `yaml:"-"`
}

type ProfileSpec struct {
	Arch           string   `yaml:"arch"`
	Use            []string `yaml:"use,omitempty"`
	AcceptKeywords []string `yaml:"accept-keywords,omitempty"`
	AcceptLicense  []string `yaml:"accept-license,omitempty"`

	LicenseGroups map[string][]string `yaml:"license-groups,omitempty"`

	PackageUse            []string `yaml:"package-use,omitempty"`
	PackageMask           []string `yaml:"package-mask,omitempty"`
	PackageUnmask         []string `yaml:"package-unmask,omitempty"`
	PackageAcceptKeywords []string `yaml:"package-accept-keywords,omitempty"`

	// Sets maps a set name to its atoms, "system" among them
	Sets map[string][]string `yaml:"sets,omitempty"`
}

func ReadProfile(path string) (*Profile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ReadProfileFromContents(bytes, abs)
}

func ReadProfileFromContents(contents []byte, absPath string) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalWithOptions(contents, &p, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProfile, absPath, err)
	}
	if err := schema.Meta(ProfileKind).ValidateSchema(p.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidProfile, absPath, err.Error())
	}
	if p.Spec == nil {
		p.Spec = &ProfileSpec{}
	}
	p.AbsPath = absPath
	return &p, nil
}

// World is the selected set: packages the user asked for explicitly
type World struct {
	schema.ManifestMeta `yaml:",inline"`
	Atoms               []string `yaml:"atoms"`
}

// ReadWorld returns the atoms of the world file, none when it does not exist
func ReadWorld(path string) ([]string, error) {
	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var w World
	if err := yaml.UnmarshalWithOptions(bytes, &w, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("invalid world file %s: %w", path, err)
	}
	if err := schema.Meta(WorldKind).ValidateSchema(w.ManifestMeta); err != nil {
		return nil, fmt.Errorf("invalid world file %s: %s", path, err.Error())
	}
	return w.Atoms, nil
}

func WriteWorld(path string, atoms []string) error {
	bytes, err := yaml.Marshal(World{ManifestMeta: schema.Meta(WorldKind), Atoms: atoms})
	if err != nil {
		return err
	}
	return utils.WriteFile(path, bytes)
}
