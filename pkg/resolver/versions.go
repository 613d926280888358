// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"strings"

	"portage.dev/x/pmerge/pkg/depgraph"
	"portage.dev/x/pmerge/pkg/versions"
)

// Versions lists the installed and available versions of the package
// named by arg in the target root, with the reasons masked ones are not
// visible
func (r *Resolver) Versions(arg string) (string, versions.Entries, error) {
	if strings.HasPrefix(arg, "@") {
		return "", nil, fmt.Errorf("%q does not name a single package", arg)
	}
	argv, err := r.expandArgs([]string{arg})
	if err != nil {
		return "", nil, err
	}
	at := argv[0].atom

	rc := r.roots[r.target]
	a := r.newAttempt(0, newParams())
	var installed, available []*versions.Entry
	for _, t := range r.trees(rc) {
		cpvs, err := t.db.Match(at.WithoutUse())
		if err != nil {
			return "", nil, err
		}
		for _, cpv := range cpvs {
			base, err := r.basePackage(r.target, t, cpv)
			if err != nil {
				return "", nil, err
			}
			c := a.evaluate(rc, base, at)
			e := &versions.Entry{Version: c.pkg.Version, Slot: c.pkg.Slot}
			if t.typ == depgraph.TypeInstalled {
				installed = append(installed, e)
				continue
			}
			e.Repo = c.pkg.Repo
			e.Masks = c.pkg.Masks
			available = append(available, e)
		}
	}
	return at.Cp(), versions.New(installed, available), nil
}
