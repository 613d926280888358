// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

// Entry is one available or installed version of a package
type Entry struct {
	Version   *Version `yaml:"version"`
	Slot      string   `yaml:"slot,omitempty"`
	Repo      string   `yaml:"repo,omitempty"`
	Installed bool     `yaml:"installed,omitempty"`
	Available bool     `yaml:"available,omitempty"`
	Masks     []string `yaml:"masks,omitempty"`
}

type Entries []*Entry

type entriesMap map[string]*Entry

// New merges the installed and available entries of a package so each
// version appears once.
func New(installed []*Entry, available []*Entry) Entries {
	m := entriesMap{}
	var order []string

	for _, e := range installed {
		e.Installed = true
		order = m.add(e, order)
	}
	for _, e := range available {
		e.Available = true
		order = m.add(e, order)
	}

	r := Entries(lo.Map(order, func(k string, _ int) *Entry { return m[k] }))
	r.Sort()
	return r
}

func (m entriesMap) add(e *Entry, order []string) []string {
	key := e.Version.String() + ":" + e.Slot
	existing, ok := m[key]

	if !ok {
		m[key] = e
		return append(order, key)
	}

	existing.Installed = existing.Installed || e.Installed
	existing.Available = existing.Available || e.Available
	existing.Masks = lo.Uniq(append(existing.Masks, e.Masks...))
	if existing.Repo == "" {
		existing.Repo = e.Repo
	}
	return order
}

// Sort by version
func (v Entries) Sort() {
	slices.SortStableFunc(v, func(a, b *Entry) int {
		return a.Version.Compare(b.Version)
	})
}

// Best returns the highest unmasked available entry
func (v Entries) Best() (*Entry, bool) {
	visible := lo.Filter(v, func(e *Entry, _ int) bool {
		return e.Available && len(e.Masks) == 0
	})
	if len(visible) == 0 {
		return nil, false
	}
	return lo.MaxBy(visible, func(a, b *Entry) bool {
		return a.Version.Compare(b.Version) > 0
	}), true
}

func (v Entries) Table() string {
	best, hasBest := v.Best()

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Rows(lo.Map(v, func(row *Entry, _ int) []string {
			indicator := ""
			if row.Installed {
				indicator = "I"
			}

			version := row.Version.String()
			if row.Slot != "" && row.Slot != "0" {
				version = fmt.Sprintf("%s:%s", version, row.Slot)
			}
			if row.Repo != "" {
				version = fmt.Sprintf("%s::%s", version, row.Repo)
			}

			if len(row.Masks) > 0 {
				version = fmt.Sprintf("%s\t(%s)", version, strings.Join(row.Masks, ", "))
			}

			switch {
			case hasBest && row == best:
				indicator += "*"
				version = lipgloss.NewStyle().
					Foreground(lipgloss.Color("2")).
					Bold(true).
					Render(version)
			case len(row.Masks) > 0:
				version = lipgloss.NewStyle().
					Faint(true).
					Italic(true).
					Render(version)
			}

			return []string{
				indicator,
				version,
			}
		})...).
		String()
}
