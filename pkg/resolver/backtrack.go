// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"log/slog"
)

// alternative is a set of changes applied together
type alternative []change

// conflict stops an attempt. The alternatives are tried in order.
type conflict struct {
	err          error
	alternatives []alternative
}

// backtracker walks the runtime parameter space depth first: the
// alternatives of the latest conflict are tried before older ones.
type backtracker struct {
	stack    []*params
	seen     map[string]bool
	maxMasks int
	// limited is set once an alternative was dropped for needing too many masks
	limited bool
}

func newBacktracker(maxMasks int, initial *params) *backtracker {
	return &backtracker{
		seen:     map[string]bool{initial.fingerprint(): true},
		maxMasks: maxMasks,
	}
}

func (b *backtracker) feedback(current *params, c *conflict) {
	var next []*params
	for _, alt := range c.alternatives {
		p := current
		for _, ch := range alt {
			if p.applies(ch) {
				p = p.with(ch)
			}
		}
		if p == current {
			continue
		}
		if p.masks() > b.maxMasks {
			b.limited = true
			slog.Debug("backtrack alternative exceeds mask limit", "params", p.String())
			continue
		}
		fp := p.fingerprint()
		if b.seen[fp] {
			continue
		}
		b.seen[fp] = true
		next = append(next, p)
	}
	for i := len(next) - 1; i >= 0; i-- {
		b.stack = append(b.stack, next[i])
	}
}

func (b *backtracker) next() (*params, bool) {
	if len(b.stack) == 0 {
		return nil, false
	}
	p := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return p, true
}
