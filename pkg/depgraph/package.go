// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"fmt"
	"strconv"
	"strings"

	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/eapi"
	"portage.dev/x/pmerge/pkg/utils/stringset"
	"portage.dev/x/pmerge/pkg/versions"
)

type PkgType string

const (
	TypeEbuild    PkgType = "ebuild"
	TypeBinary    PkgType = "binary"
	TypeInstalled PkgType = "installed"
)

type Operation string

const (
	OpMerge     Operation = "merge"
	OpNoMerge   Operation = "nomerge"
	OpUninstall Operation = "uninstall"
)

// Metadata keys understood by the graph
const (
	KeySlot     = "SLOT"
	KeyKeywords = "KEYWORDS"
	KeyIUSE     = "IUSE"
	KeyUse      = "USE"
	KeyEAPI     = "EAPI"
	KeyDepend   = "DEPEND"
	KeyRdepend  = "RDEPEND"
	KeyBdepend  = "BDEPEND"
	KeyPdepend  = "PDEPEND"
	KeyIdepend  = "IDEPEND"
	KeyRestrict = "RESTRICT"
	KeyLicense  = "LICENSE"
	KeyRepo     = "repository"
	KeyBuildID  = "BUILD_ID"
)

// MetadataKeys is the list of keys fetched for every candidate
var MetadataKeys = []string{
	KeySlot, KeyKeywords, KeyIUSE, KeyUse, KeyEAPI,
	KeyDepend, KeyRdepend, KeyBdepend, KeyPdepend, KeyIdepend,
	KeyRestrict, KeyLicense, KeyRepo, KeyBuildID,
}

// Package is a node of the dependency graph. Packages are never modified
// once created, the With* methods return copies.
type Package struct {
	Root      string
	Cpv       string
	Category  string
	Name      string
	Version   *versions.Version
	Slot      string
	SubSlot   string
	Repo      string
	BuildID   int
	Type      PkgType
	Operation Operation
	EAPI      string
	IUSE      stringset.StringSet
	Use       stringset.StringSet
	Keywords  []string
	License   string
	Metadata  map[string]string
	// Masks lists why the package may not be selected
	Masks []string
}

// NewPackage builds a package from the metadata returned by a package
// database. USE is taken from the metadata, callers resolving USE for
// ebuilds replace it with WithUse.
func NewPackage(root, cpv string, typ PkgType, metadata map[string]string) (*Package, error) {
	cat, name, ver, ok := versions.CatPkgSplit(cpv)
	if !ok {
		return nil, fmt.Errorf("invalid cpv %q", cpv)
	}
	v, err := versions.Parse(ver)
	if err != nil {
		return nil, err
	}

	p := &Package{
		Root:      root,
		Cpv:       cpv,
		Category:  cat,
		Name:      name,
		Version:   v,
		Type:      typ,
		Operation: OpMerge,
		EAPI:      metadata[KeyEAPI],
		Repo:      metadata[KeyRepo],
		License:   metadata[KeyLicense],
		Keywords:  strings.Fields(metadata[KeyKeywords]),
		Metadata:  metadata,
	}
	if p.EAPI == "" {
		p.EAPI = eapi.Default
	}
	if typ == TypeInstalled {
		p.Operation = OpNoMerge
	}

	slot := strings.TrimSpace(metadata[KeySlot])
	if slot == "" {
		slot = "0"
	}
	p.Slot, p.SubSlot, _ = strings.Cut(slot, "/")
	if p.SubSlot == "" {
		p.SubSlot = p.Slot
	}

	iuse := strings.Fields(metadata[KeyIUSE])
	p.IUSE = atom.IUSESet(iuse)
	p.Use = stringset.New(strings.Fields(metadata[KeyUse])...)

	if id := metadata[KeyBuildID]; id != "" {
		p.BuildID, err = strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("invalid build id %q for %s: %w", id, cpv, err)
		}
	}
	return p, nil
}

func (p *Package) Cp() string {
	return p.Category + "/" + p.Name
}

type SlotKey struct {
	Root string
	Cp   string
	Slot string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s:%s", k.Cp, k.Slot)
}

func (p *Package) SlotKey() SlotKey {
	return SlotKey{Root: p.Root, Cp: p.Cp(), Slot: p.Slot}
}

// PackageKey identifies a package within a graph
type PackageKey struct {
	Root      string
	Cpv       string
	Repo      string
	Type      PkgType
	Operation Operation
	BuildID   int
	Use       string
}

func (p *Package) Key() PackageKey {
	return PackageKey{
		Root:      p.Root,
		Cpv:       p.Cpv,
		Repo:      p.Repo,
		Type:      p.Type,
		Operation: p.Operation,
		BuildID:   p.BuildID,
		Use:       strings.Join(p.Use.Sorted(), " "),
	}
}

func (p *Package) Candidate() atom.Candidate {
	return atom.Candidate{
		Cpv:     p.Cpv,
		Slot:    p.Slot,
		SubSlot: p.SubSlot,
		Repo:    p.Repo,
		BuildID: p.BuildID,
		Use:     p.Use,
		IUSE:    p.IUSE,
	}
}

func (p *Package) Installed() bool {
	return p.Type == TypeInstalled
}

// Visible reports whether nothing masks the package
func (p *Package) Visible() bool {
	return len(p.Masks) == 0
}

func (p *Package) String() string {
	s := p.Cpv
	if p.Repo != "" {
		s += "::" + p.Repo
	}
	return s
}

// Describe renders the package the way merge lists show it
func (p *Package) Describe() string {
	s := fmt.Sprintf("[%s %s] %s", p.Type, p.Operation, p)
	if p.Root != "/" && p.Root != "" {
		s += " to " + p.Root
	}
	return s
}

func (p *Package) clone() *Package {
	c := *p
	return &c
}

func (p *Package) WithUse(use stringset.StringSet) *Package {
	c := p.clone()
	c.Use = use
	return c
}

func (p *Package) WithOperation(op Operation) *Package {
	c := p.clone()
	c.Operation = op
	return c
}

func (p *Package) WithMasks(masks []string) *Package {
	c := p.clone()
	c.Masks = masks
	return c
}
