// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depstring

import (
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
	"portage.dev/x/pmerge/pkg/utils/stringset"
)

// Element is either an atom or an any-of group. Every alternative of an
// any-of group is a conjunction.
type Element struct {
	Atom  *atom.Atom
	AnyOf []List
}

// List is a conjunction of elements
type List []Element

func (e Element) IsAnyOf() bool {
	return e.Atom == nil
}

func (e Element) String() string {
	if e.Atom != nil {
		return e.Atom.String()
	}
	alts := lo.Map(e.AnyOf, func(l List, _ int) string {
		if len(l) == 1 && l[0].Atom != nil {
			return l.String()
		}
		return "( " + l.String() + " )"
	})
	return "|| ( " + strings.Join(alts, " ") + " )"
}

func (l List) String() string {
	return strings.Join(lo.Map(l, func(e Element, _ int) string { return e.String() }), " ")
}

// Reduce parses s and drops the USE conditional groups not selected by
// use. Conditional USE deps on atoms are evaluated against use as well.
func Reduce(s string, use stringset.StringSet, eapi string) (List, error) {
	root, err := Parse(s, eapi)
	if err != nil {
		return nil, err
	}
	return ReduceNode(root, use), nil
}

func ReduceNode(n *Node, use stringset.StringSet) List {
	return reduceAll(n.Children, use)
}

func reduceAll(nodes []*Node, use stringset.StringSet) List {
	var l List
	for _, n := range nodes {
		switch n.Kind {
		case KindAtom:
			l = append(l, Element{Atom: n.Atom.Evaluate(use)})
		case KindAll:
			l = append(l, reduceAll(n.Children, use)...)
		case KindUseEnabled, KindUseDisabled:
			if active(n, use) {
				l = append(l, reduceAll(n.Children, use)...)
			}
		case KindAnyOf:
			alts := reduceAnyOf(n.Children, use)
			switch len(alts) {
			case 0:
			case 1:
				l = append(l, alts[0]...)
			default:
				l = append(l, Element{AnyOf: alts})
			}
		}
	}
	return l
}

func reduceAnyOf(nodes []*Node, use stringset.StringSet) []List {
	var alts []List
	for _, n := range nodes {
		switch n.Kind {
		case KindAtom:
			alts = append(alts, List{{Atom: n.Atom.Evaluate(use)}})
		case KindAnyOf:
			alts = append(alts, reduceAnyOf(n.Children, use)...)
		case KindUseEnabled, KindUseDisabled:
			if !active(n, use) {
				continue
			}
			fallthrough
		case KindAll:
			conj := reduceAll(n.Children, use)
			switch {
			case len(conj) == 0:
			case len(conj) == 1 && conj[0].IsAnyOf():
				alts = append(alts, conj[0].AnyOf...)
			default:
				alts = append(alts, conj)
			}
		}
	}
	return alts
}

func active(n *Node, use stringset.StringSet) bool {
	on := use.Contains(n.Flag)
	if n.Kind == KindUseDisabled {
		return !on
	}
	return on
}

// Flatten lists every atom of l, alternatives included, in source order
func Flatten(l List) []*atom.Atom {
	var r []*atom.Atom
	for _, e := range l {
		if e.Atom != nil {
			r = append(r, e.Atom)
			continue
		}
		for _, alt := range e.AnyOf {
			r = append(r, Flatten(alt)...)
		}
	}
	return r
}
