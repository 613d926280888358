// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	verRegexp    = regexp.MustCompile(`^(\d+)((?:\.\d+)*)([a-z]?)((?:_(?:pre|p|beta|alpha|rc)\d*)*)(?:-r(\d+))?$`)
	suffixRegexp = regexp.MustCompile(`^(alpha|beta|rc|pre|p)(\d*)$`)
	cpvRegexp    = regexp.MustCompile(`^([\w+][\w+.-]*)/([\w+][\w+-]*?)-(\d+(?:\.\d+)*[a-z]?(?:_(?:pre|p|beta|alpha|rc)\d*)*(?:-r\d+)?)$`)
	pnInvalid    = regexp.MustCompile(`-\d+(?:\.\d+)*[a-z]?(?:_(?:pre|p|beta|alpha|rc)\d*)*(?:-r\d+)?$`)
)

// suffixRank orders release suffixes, a missing suffix ranks between rc and p
var suffixRank = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"p":     0,
}

// Version is a parsed package version such as 1.2.3b_rc4-r1
type Version struct {
	raw        string
	components []string
	letter     string
	suffixes   []suffix
	revision   string
}

type suffix struct {
	name string
	num  string
}

// ErrInvalidVersion is wrapped by every version parsing failure
var ErrInvalidVersion = fmt.Errorf("invalid version")

func Parse(v string) (*Version, error) {
	m := verRegexp.FindStringSubmatch(v)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	ver := &Version{
		raw:        v,
		components: []string{m[1]},
		letter:     m[3],
		revision:   m[5],
	}
	if m[2] != "" {
		ver.components = append(ver.components, strings.Split(m[2][1:], ".")...)
	}
	if m[4] != "" {
		for _, s := range strings.Split(m[4][1:], "_") {
			sm := suffixRegexp.FindStringSubmatch(s)
			ver.suffixes = append(ver.suffixes, suffix{name: sm[1], num: sm[2]})
		}
	}
	return ver, nil
}

func MustParse(v string) *Version {
	ver, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return ver
}

func Valid(v string) bool {
	return verRegexp.MatchString(v)
}

func (v *Version) String() string {
	return v.raw
}

func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.raw), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

// Revision returns the numeric revision, "0" when the version carries none
func (v *Version) Revision() string {
	if v.revision == "" {
		return "0"
	}
	return v.revision
}

func (v *Version) HasRevision() bool {
	return v.revision != ""
}

// WithoutRevision returns the version string with any -rN stripped
func (v *Version) WithoutRevision() string {
	if v.revision == "" {
		return v.raw
	}
	return strings.TrimSuffix(v.raw, "-r"+v.revision)
}

// Compare returns a negative number, zero or a positive number when v is
// respectively lower than, equal to or greater than o.
func (v *Version) Compare(o *Version) int {
	if v.raw == o.raw {
		return 0
	}

	if c := compareDigits(v.components[0], o.components[0]); c != 0 {
		return c
	}

	n := max(len(v.components), len(o.components))
	for i := 1; i < n; i++ {
		// an implicit component is lower than any explicit one, so 1.0.0 > 1.0
		if i >= len(v.components) {
			return -1
		}
		if i >= len(o.components) {
			return 1
		}
		a, b := v.components[i], o.components[i]
		var c int
		if a[0] == '0' || b[0] == '0' {
			// leading zeros make the component a decimal fraction: 1.02 < 1.1
			width := max(len(a), len(b))
			c = strings.Compare(padRight(a, width), padRight(b, width))
		} else {
			c = compareDigits(a, b)
		}
		if c != 0 {
			return c
		}
	}

	if v.letter != o.letter {
		if v.letter == "" {
			return -1
		}
		if o.letter == "" {
			return 1
		}
		return strings.Compare(v.letter, o.letter)
	}

	n = max(len(v.suffixes), len(o.suffixes))
	for i := 0; i < n; i++ {
		// a missing suffix behaves as _p-1, so 1.0 < 1.0_p0 but 1.0 > 1.0_rc
		s1, s2 := suffix{name: "p"}, suffix{name: "p"}
		implicit1, implicit2 := true, true
		if i < len(v.suffixes) {
			s1, implicit1 = v.suffixes[i], false
		}
		if i < len(o.suffixes) {
			s2, implicit2 = o.suffixes[i], false
		}
		if s1.name != s2.name {
			return cmpInt(suffixRank[s1.name], suffixRank[s2.name])
		}
		if implicit1 != implicit2 {
			if implicit1 {
				return -1
			}
			return 1
		}
		if c := compareDigits(orZero(s1.num), orZero(s2.num)); c != 0 {
			return c
		}
	}

	return compareDigits(v.Revision(), o.Revision())
}

// Vercmp compares two version strings.
func Vercmp(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// CatPkgSplit splits cat/pkg-1.0-r1 into its category, package name and version
func CatPkgSplit(cpv string) (category, name, version string, ok bool) {
	m := cpvRegexp.FindStringSubmatch(cpv)
	if m == nil {
		return "", "", "", false
	}
	if pnInvalid.MatchString(m[2]) {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// CpvGetKey returns the cat/pkg part of a cpv
func CpvGetKey(cpv string) string {
	cat, pn, _, ok := CatPkgSplit(cpv)
	if !ok {
		return cpv
	}
	return cat + "/" + pn
}

// ValidPackageName reports whether pn may be used as a package name.
// Names must not end in something that looks like a version.
func ValidPackageName(pn string) bool {
	return !pnInvalid.MatchString(pn)
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return cmpInt(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func padRight(s string, width int) string {
	return s + strings.Repeat("0", width-len(s))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
