// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package atom

import (
	"strings"

	"portage.dev/x/pmerge/pkg/utils/stringset"
	"portage.dev/x/pmerge/pkg/versions"
)

// Candidate is the subset of package metadata an atom is matched against
type Candidate struct {
	Cpv     string
	Slot    string
	SubSlot string
	Repo    string
	BuildID int
	Use     stringset.StringSet
	IUSE    stringset.StringSet
}

// Match reports whether the candidate satisfies the atom, ignoring the
// blocker flag. Conditional USE deps must be evaluated beforehand and are
// skipped here.
func (a *Atom) Match(c Candidate) bool {
	cat, name, ver, ok := versions.CatPkgSplit(c.Cpv)
	if !ok {
		return false
	}
	if a.Category != "" && a.Category != cat {
		return false
	}
	if a.Name != name {
		return false
	}

	if a.Version != nil {
		v, err := versions.Parse(ver)
		if err != nil || !a.matchVersion(v) {
			return false
		}
	}

	if a.Slot != "" {
		slot := c.Slot
		if slot == "" {
			slot = "0"
		}
		if a.Slot != slot {
			return false
		}
		if a.SubSlot != "" {
			sub := c.SubSlot
			if sub == "" {
				sub = slot
			}
			if a.SubSlot != sub {
				return false
			}
		}
	}

	if a.Repo != "" && a.Repo != c.Repo {
		return false
	}
	if a.BuildID != 0 && a.BuildID != c.BuildID {
		return false
	}

	return a.matchUse(c)
}

// MatchVersion applies only the version operator of the atom
func (a *Atom) MatchVersion(v *versions.Version) bool {
	if a.Version == nil {
		return true
	}
	return a.matchVersion(v)
}

func (a *Atom) matchVersion(v *versions.Version) bool {
	switch a.Operator {
	case OpEqual:
		return v.Compare(a.Version) == 0
	case OpTilde:
		return versions.MustParse(v.WithoutRevision()).Compare(a.Version) == 0
	case OpGlob:
		return globMatch(a.Version.String(), v.String())
	case OpGreater:
		return v.Compare(a.Version) > 0
	case OpGreaterEqual:
		return v.Compare(a.Version) >= 0
	case OpLess:
		return v.Compare(a.Version) < 0
	case OpLessEqual:
		return v.Compare(a.Version) <= 0
	}
	return true
}

// globMatch is a literal prefix match that only stops on a boundary between
// version parts, so 1* does not match 10.
func globMatch(prefix, v string) bool {
	prefix = trimLeadingZeros(prefix)
	v = trimLeadingZeros(v)
	if !strings.HasPrefix(v, prefix) {
		return false
	}
	if len(v) == len(prefix) {
		return true
	}
	next := v[len(prefix)]
	if strings.ContainsRune("._-", rune(next)) {
		return true
	}
	return isDigit(prefix[len(prefix)-1]) != isDigit(next)
}

func trimLeadingZeros(v string) string {
	t := strings.TrimLeft(v, "0")
	if t == "" || !isDigit(t[0]) {
		t = "0" + t
	}
	return t
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (a *Atom) matchUse(c Candidate) bool {
	for _, u := range a.Use {
		switch u.Kind {
		case UseEnabled:
			if c.IUSE.Contains(u.Flag) {
				if !c.Use.Contains(u.Flag) {
					return false
				}
			} else if u.Default != DefaultEnabled {
				return false
			}
		case UseDisabled:
			if c.IUSE.Contains(u.Flag) {
				if c.Use.Contains(u.Flag) {
					return false
				}
			} else if u.Default != DefaultDisabled {
				return false
			}
		}
	}
	return true
}

// MissingIUSE lists USE dep flags the candidate does not declare and for
// which the atom gives no default.
func (a *Atom) MissingIUSE(c Candidate) []string {
	var missing []string
	for _, u := range a.Use {
		if u.Default == DefaultNone && !c.IUSE.Contains(u.Flag) {
			missing = append(missing, u.Flag)
		}
	}
	return missing
}
