// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

// LicenseAccepted reports whether name is accepted by ACCEPT_LICENSE.
// The last matching token wins: "*" accepts everything, "@GROUP" a
// license group, and a "-" prefix rejects.
func (s *Settings) LicenseAccepted(name string) bool {
	accepted := false
	for _, t := range s.acceptLicense {
		neg := strings.HasPrefix(t, "-")
		t = strings.TrimPrefix(t, "-")
		if t == "*" || t == name || (strings.HasPrefix(t, "@") && lo.Contains(s.licenseGroups[t[1:]], name)) {
			accepted = !neg
		}
	}
	return accepted
}

// MissingLicenses returns the licenses of a LICENSE string that need to be
// accepted. For "|| ( a b )" groups the first alternative is reported when
// none is accepted.
func (s *Settings) MissingLicenses(license string, use stringset.StringSet) ([]string, error) {
	tokens := strings.Fields(license)
	missing, _, err := s.missingLicenses(tokens, use, false, false)
	if err != nil {
		return nil, fmt.Errorf("invalid LICENSE %q: %w", license, err)
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return lo.Uniq(missing), nil
}

// missingLicenses consumes tokens up to the closing paren of the current
// group
func (s *Settings) missingLicenses(tokens []string, use stringset.StringSet, nested, anyOf bool) ([]string, []string, error) {
	var missing []string
	satisfied := false
	var firstMissing []string
	record := func(m []string) {
		if anyOf {
			if len(m) == 0 {
				satisfied = true
			} else if firstMissing == nil {
				firstMissing = m
			}
			return
		}
		missing = append(missing, m...)
	}

	for len(tokens) > 0 {
		t := tokens[0]
		tokens = tokens[1:]
		switch {
		case t == ")":
			if !nested {
				return nil, nil, fmt.Errorf("unbalanced ')'")
			}
			if anyOf && !satisfied {
				return firstMissing, tokens, nil
			}
			return missing, tokens, nil
		case t == "||" || t == "(" || strings.HasSuffix(t, "?"):
			group := t == "||"
			cond := strings.HasSuffix(t, "?")
			if t != "(" {
				if len(tokens) == 0 || tokens[0] != "(" {
					return nil, nil, fmt.Errorf("missing '(' after %q", t)
				}
				tokens = tokens[1:]
			}
			var m []string
			var err error
			m, tokens, err = s.missingLicenses(tokens, use, true, group)
			if err != nil {
				return nil, nil, err
			}
			if cond {
				flag := strings.TrimSuffix(t, "?")
				enabled := use.Contains(strings.TrimPrefix(flag, "!"))
				if strings.HasPrefix(flag, "!") == enabled {
					continue
				}
			}
			record(m)
		default:
			if s.LicenseAccepted(t) {
				record(nil)
			} else {
				record([]string{t})
			}
		}
	}
	if nested {
		return nil, nil, fmt.Errorf("missing ')'")
	}
	return missing, nil, nil
}
