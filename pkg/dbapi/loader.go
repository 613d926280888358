// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dbapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/schema"
	"portage.dev/x/pmerge/pkg/utils"
)

const (
	RepositoryKind        = "Repository"
	BinaryPackagesKind    = "BinaryPackages"
	InstalledPackagesKind = "InstalledPackages"
)

var ErrInvalidDocument = fmt.Errorf("invalid package database")

type Document struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *Spec `yaml:"spec"`

	AbsPath string `yaml:"-"`
}

type Spec struct {
	Name     string          `yaml:"name,omitempty"`
	Packages []*PackageEntry `yaml:"packages"`
}

type PackageEntry struct {
	Cpv      string            `yaml:"cpv"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// Read loads a package database document of the given kind
func Read(path, kind string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ReadFromContents(bytes, abs, kind)
}

func ReadFromContents(contents []byte, absPath, kind string) (*Document, error) {
	var d Document
	if err := yaml.UnmarshalWithOptions(contents, &d, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, absPath, err)
	}

	if err := schema.Meta(kind).ValidateSchema(d.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidDocument, absPath, err.Error())
	}
	if d.Spec == nil {
		return nil, fmt.Errorf("%w: %s: missing required field 'spec'", ErrInvalidDocument, absPath)
	}
	d.AbsPath = absPath
	return &d, nil
}

// DB builds the in-memory database described by the document. Unnamed
// documents take the file name without extension.
func (d *Document) DB() (*MemDB, error) {
	name := d.Spec.Name
	if name == "" && d.AbsPath != "" {
		base := filepath.Base(d.AbsPath)
		name = base[:len(base)-len(filepath.Ext(base))]
	}
	db := NewMemDB(name)
	for _, p := range d.Spec.Packages {
		if err := db.Add(p.Cpv, p.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, d.AbsPath, err)
		}
	}
	return db, nil
}

// Load reads a document of the given kind straight into a database
func Load(path, kind string) (*MemDB, error) {
	d, err := Read(path, kind)
	if err != nil {
		return nil, err
	}
	return d.DB()
}

// LoadInstalled reads the installed package database under its lock.
// A missing file means nothing is installed.
func LoadInstalled(ctx context.Context, path string) (*MemDB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewMemDB("installed"), nil
	}
	var db *MemDB
	err := utils.WithLock(ctx, path+".lock", func() error {
		var err error
		db, err = Load(path, InstalledPackagesKind)
		return err
	})
	return db, err
}

// Write serializes db as a document of the given kind
func Write(path, kind string, db *MemDB) error {
	d := Document{
		ManifestMeta: schema.Meta(kind),
		Spec: &Spec{
			Name: db.Name(),
			Packages: lo.Map(db.CPVAll(), func(cpv string, _ int) *PackageEntry {
				return &PackageEntry{Cpv: cpv, Metadata: db.pkgs[cpv]}
			}),
		},
	}
	bytes, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return utils.WriteFile(path, bytes)
}

// SaveInstalled writes the installed package database under its lock
func SaveInstalled(ctx context.Context, path string, db *MemDB) error {
	return utils.WithLock(ctx, path+".lock", func() error {
		return Write(path, InstalledPackagesKind, db)
	})
}
