// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resolution holds the transaction document produced by a
// resolution and consumed by the merge scheduler.
package resolution

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/resolutionerrors"
	"portage.dev/x/pmerge/pkg/resolver"
	"portage.dev/x/pmerge/pkg/schema"
	"portage.dev/x/pmerge/pkg/utils"
)

const Kind = "Transaction"

var ErrInvalidTransaction = errors.New("invalid transaction")

type Transaction struct {
	schema.ManifestMeta `yaml:",inline"`
	MergeList           []*MergeEntry                       `yaml:"merge-list"`
	Blockers            []*Blocker                          `yaml:"blockers,omitempty"`
	Autounmask          []*AutounmaskChange                 `yaml:"autounmask,omitempty"`
	Protected           []string                            `yaml:"protected,omitempty"`
	Cycles              []string                            `yaml:"cycles,omitempty"`
	Errors              []*resolutionerrors.ResolutionError `yaml:"errors,omitempty"`
}

type MergeEntry struct {
	Cpv        string `yaml:"cpv"`
	Repository string `yaml:"repository,omitempty"`
	Root       string `yaml:"root"`
	Type       string `yaml:"type"`
	// Operation is one of merge, uninstall, uninstall-blocked-by
	Operation string   `yaml:"operation"`
	Status    string   `yaml:"status,omitempty"`
	Reason    string   `yaml:"reason,omitempty"`
	Use       []string `yaml:"use,omitempty"`
	// DependsOn holds the merge-list positions that must complete first
	DependsOn []int `yaml:"depends-on,omitempty"`
}

func (e *MergeEntry) String() string {
	s := e.Cpv
	if e.Repository != "" {
		s += "::" + e.Repository
	}
	return s
}

type Blocker struct {
	Atom             string   `yaml:"atom"`
	Parent           string   `yaml:"parent"`
	Satisfied        bool     `yaml:"satisfied"`
	BlockingPackages []string `yaml:"blocking-packages,omitempty"`
}

type AutounmaskChange struct {
	Cpv        string `yaml:"cpv"`
	Repository string `yaml:"repository,omitempty"`
	Root       string `yaml:"root"`
	// UseChanges lists flags as package.use would, disabled ones prefixed with -
	UseChanges []string `yaml:"use-changes,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`
}

// FromResult converts a successful resolution
func FromResult(res *resolver.Result) *Transaction {
	t := &Transaction{
		ManifestMeta: schema.Meta(Kind),
		MergeList:    []*MergeEntry{},
		Protected:    res.Protected,
	}

	position := map[*depgraph.Package]int{}
	for i, e := range res.MergeList {
		position[e.Package] = i
	}
	for i, e := range res.MergeList {
		entry := &MergeEntry{
			Cpv:        e.Package.Cpv,
			Repository: e.Package.Repo,
			Root:       e.Package.Root,
			Type:       string(e.Package.Type),
			Operation:  string(e.Operation),
			Status:     e.Status,
			Reason:     e.Reason,
		}
		if e.Operation == resolver.EntryMerge {
			entry.Use = e.Package.Use.Sorted()
		}
		if res.Graph != nil {
			for _, child := range res.Graph.ChildNodes(e.Package, nil) {
				if p, ok := position[child]; ok && p < i {
					entry.DependsOn = append(entry.DependsOn, p)
				}
			}
			slices.Sort(entry.DependsOn)
		}
		t.MergeList = append(t.MergeList, entry)
	}

	for _, b := range res.Blockers {
		t.Blockers = append(t.Blockers, &Blocker{
			Atom:             b.Atom,
			Parent:           b.Parent,
			Satisfied:        b.Satisfied,
			BlockingPackages: b.Blocking,
		})
	}
	for _, c := range res.Autounmask {
		change := &AutounmaskChange{Cpv: c.Cpv, Repository: c.Repo, Root: c.Root}
		for _, flag := range lo.Keys(c.UseChanges) {
			change.UseChanges = append(change.UseChanges, lo.Ternary(c.UseChanges[flag], flag, "-"+flag))
		}
		slices.SortFunc(change.UseChanges, func(a, b string) int {
			return strings.Compare(strings.TrimPrefix(a, "-"), strings.TrimPrefix(b, "-"))
		})
		if c.Keyword != "" {
			change.Keywords = []string{c.Keyword}
		}
		t.Autounmask = append(t.Autounmask, change)
	}
	for _, c := range res.Cycles {
		t.Cycles = append(t.Cycles, fmt.Sprintf("%s (%s)", c, c.Category()))
	}
	return t
}

// FromError reports a failed resolution. The conflicts met before the
// backtrack limit was hit are listed after the final error.
func FromError(err error) *Transaction {
	t := &Transaction{
		ManifestMeta: schema.Meta(Kind),
		MergeList:    []*MergeEntry{},
		Errors:       []*resolutionerrors.ResolutionError{resolutionerrors.Standardize(err)},
	}
	var limit *resolver.BacktrackLimitExceededError
	if errors.As(err, &limit) {
		for _, prior := range limit.Prior {
			t.Errors = append(t.Errors, resolutionerrors.Standardize(prior))
		}
	}
	return t
}

func (t *Transaction) Failed() bool {
	return len(t.Errors) > 0
}

func Read(path string) (*Transaction, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadFromContents(bytes)
}

func ReadFromContents(contents []byte) (*Transaction, error) {
	var t Transaction
	if err := yaml.UnmarshalWithOptions(contents, &t, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if err := schema.Meta(Kind).ValidateSchema(t.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	for i, e := range t.MergeList {
		for _, d := range e.DependsOn {
			if d < 0 || d >= i {
				return nil, fmt.Errorf("%w: entry %d (%s) depends on entry %d", ErrInvalidTransaction, i, e, d)
			}
		}
	}
	return &t, nil
}

func (t *Transaction) Write(path string) error {
	bytes, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return utils.WriteFile(path, bytes)
}
