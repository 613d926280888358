// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package depstring parses dependency strings such as
//
//	dev-libs/a ssl? ( dev-libs/openssl ) || ( app-misc/b app-misc/c )
//
// and reduces them against a USE flag assignment.
package depstring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/atom"
)

type Kind int

const (
	KindAtom        Kind = iota
	KindAll              // ( ... )
	KindAnyOf            // || ( ... )
	KindUseEnabled       // flag? ( ... )
	KindUseDisabled      // !flag? ( ... )
)

// Node is one element of a parsed dependency string. The root node of a
// parsed string is a KindAll group.
type Node struct {
	Kind     Kind
	Atom     *atom.Atom
	Flag     string
	Children []*Node
}

func (n *Node) String() string {
	if n.Kind == KindAtom {
		return n.Atom.String()
	}
	inner := strings.Join(lo.Map(n.Children, func(c *Node, _ int) string { return c.String() }), " ")
	switch n.Kind {
	case KindAnyOf:
		return "|| ( " + inner + " )"
	case KindUseEnabled:
		return n.Flag + "? ( " + inner + " )"
	case KindUseDisabled:
		return "!" + n.Flag + "? ( " + inner + " )"
	}
	return "( " + inner + " )"
}

type tokenType int

const (
	tokOpen tokenType = iota
	tokClose
	tokAnyOf
	tokExactlyOneOf
	tokAtMostOneOf
	tokUseEnabled
	tokUseDisabled
	tokAtom
)

var useFlagRegexp = regexp.MustCompile(`^[A-Za-z0-9][\w+@-]*$`)

type token struct {
	typ  tokenType
	text string
	flag string
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i, f := range strings.Fields(s) {
		t := token{text: f, pos: i + 1}
		switch f {
		case "(":
			t.typ = tokOpen
		case ")":
			t.typ = tokClose
		case "||":
			t.typ = tokAnyOf
		case "^^":
			t.typ = tokExactlyOneOf
		case "??":
			t.typ = tokAtMostOneOf
		default:
			if strings.HasSuffix(f, "?") {
				flag := strings.TrimSuffix(f, "?")
				t.typ = tokUseEnabled
				if strings.HasPrefix(flag, "!") {
					flag = flag[1:]
					t.typ = tokUseDisabled
				}
				if !useFlagRegexp.MatchString(flag) {
					return nil, fmt.Errorf("invalid USE flag %q in conditional %q, token %d", flag, f, t.pos)
				}
				t.flag = flag
				break
			}
			for _, x := range []string{"(", ")", "||"} {
				if strings.HasPrefix(f, x) || strings.HasSuffix(f, x) {
					return nil, fmt.Errorf("missing whitespace around %q at %q, token %d", x, f, t.pos)
				}
			}
			t.typ = tokAtom
		}
		toks = append(toks, t)
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
	opts atom.Options
}

// Parse builds the dependency tree of s. Atoms are validated against eapi.
func Parse(s string, eapi string) (*Node, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, &InvalidDependStringError{DepString: s, Reason: err.Error()}
	}
	p := &parser{
		toks: toks,
		opts: atom.Options{EAPI: eapi, AllowBlocker: true, AllowRepo: true},
	}

	root := &Node{Kind: KindAll}
	for p.pos < len(p.toks) {
		n, err := p.node()
		if err != nil {
			return nil, &InvalidDependStringError{DepString: s, Reason: err.Error()}
		}
		root.Children = append(root.Children, n)
	}
	return root, nil
}

func (p *parser) node() (*Node, error) {
	t := p.toks[p.pos]
	p.pos++

	switch t.typ {
	case tokAtom:
		a, err := atom.Parse(t.text, p.opts)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindAtom, Atom: a}, nil
	case tokOpen:
		children, err := p.group(t)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindAll, Children: children}, nil
	case tokAnyOf, tokUseEnabled, tokUseDisabled:
		if p.pos >= len(p.toks) || p.toks[p.pos].typ != tokOpen {
			return nil, fmt.Errorf("expected: '(' after %q, token %d", t.text, t.pos)
		}
		open := p.toks[p.pos]
		p.pos++
		children, err := p.group(open)
		if err != nil {
			return nil, err
		}
		n := &Node{Children: children, Flag: t.flag}
		switch t.typ {
		case tokAnyOf:
			n.Kind = KindAnyOf
		case tokUseEnabled:
			n.Kind = KindUseEnabled
		case tokUseDisabled:
			n.Kind = KindUseDisabled
		}
		return n, nil
	case tokExactlyOneOf, tokAtMostOneOf:
		return nil, fmt.Errorf("%q groups are not allowed in dependency strings, token %d", t.text, t.pos)
	case tokClose:
		return nil, fmt.Errorf("no matching '(' for ')', token %d", t.pos)
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}

func (p *parser) group(open token) ([]*Node, error) {
	var children []*Node
	for {
		if p.pos >= len(p.toks) {
			return nil, fmt.Errorf("no matching ')' for '(', token %d", open.pos)
		}
		if p.toks[p.pos].typ == tokClose {
			p.pos++
			if len(children) == 0 {
				return nil, fmt.Errorf("expected: dependency string, got: ')', token %d", open.pos+1)
			}
			return children, nil
		}
		n, err := p.node()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
}
