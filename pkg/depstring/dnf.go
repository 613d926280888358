// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depstring

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/digraph"
)

// DNFConvert rewrites a reduced list into disjunctive normal form. When the
// list holds an any-of group next to plain atoms or other groups, the result
// is a single any-of group whose alternatives are every combination of one
// alternative per group, each prefixed with the plain atoms. Alternatives
// keep source order and duplicates are kept.
func DNFConvert(l List) List {
	var conjunction List
	var disjunctions [][]List

	for _, e := range l {
		if !e.IsAnyOf() {
			conjunction = append(conjunction, e)
			continue
		}

		var alts []List
		for _, alt := range e.AnyOf {
			if len(alt) == 1 && !alt[0].IsAnyOf() {
				alts = append(alts, alt)
				continue
			}
			converted := DNFConvert(alt)
			if containsAnyOf(converted) {
				alts = append(alts, converted[0].AnyOf...)
			} else {
				alts = append(alts, converted)
			}
		}
		disjunctions = append(disjunctions, alts)
	}

	if len(disjunctions) == 0 || (len(conjunction) == 0 && len(disjunctions) == 1) {
		r := slices.Clone(conjunction)
		for _, d := range disjunctions {
			r = append(r, Element{AnyOf: d})
		}
		return r
	}

	var product []List
	var walk func(i int, acc List)
	walk = func(i int, acc List) {
		if i == len(disjunctions) {
			product = append(product, slices.Clone(acc))
			return
		}
		for _, alt := range disjunctions[i] {
			walk(i+1, append(slices.Clip(acc), alt...))
		}
	}
	walk(0, slices.Clone(conjunction))

	return List{{AnyOf: product}}
}

func containsAnyOf(l List) bool {
	return lo.SomeBy(l, Element.IsAnyOf)
}

// OverlapDNF converts only the any-of groups that share a package with
// another group, which lets a caller pick one package satisfying
// "|| ( a b ) || ( b c )". Groups that overlap with nothing are kept as they
// are since the conversion grows exponentially. The second result reports
// whether any conversion happened.
func OverlapDNF(l List) (List, bool) {
	if !containsAnyOf(l) {
		return l, false
	}

	cpGroups := map[string][]int{}
	overlap := digraph.New[string, int](cmp.Compare[int])
	var result List

	for i, e := range l {
		if !e.IsAnyOf() {
			result = append(result, e)
			continue
		}
		prev := ""
		for _, a := range Flatten(List{e}) {
			if a.IsBlocker() {
				continue
			}
			cpGroups[a.Cp()] = append(cpGroups[a.Cp()], i)
			overlap.AddNode(a.Cp())
			if prev != "" {
				overlap.Add(a.Cp(), prev, 0)
			}
			prev = a.Cp()
		}
		if prev == "" {
			result = append(result, e)
		}
	}

	converted := false
	traversed := map[string]bool{}
	for _, cp := range overlap.Nodes() {
		if traversed[cp] {
			continue
		}
		groups := map[int]bool{}
		stack := []string{cp}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			traversed[cur] = true
			for _, g := range cpGroups[cur] {
				groups[g] = true
			}
			for _, other := range append(overlap.ChildNodes(cur, nil), overlap.ParentNodes(cur, nil)...) {
				if !traversed[other] {
					stack = append(stack, other)
				}
			}
		}

		indexes := lo.Keys(groups)
		slices.Sort(indexes)
		if len(indexes) > 1 {
			converted = true
			result = append(result, DNFConvert(lo.Map(indexes, func(i int, _ int) Element { return l[i] }))...)
		} else {
			result = append(result, l[indexes[0]])
		}
	}

	if !converted {
		return l, false
	}
	return result, true
}
