package stringset

import (
	"slices"

	"github.com/samber/lo"
)

type StringSet map[string]struct{}

func New(items ...string) StringSet {
	ss := make(StringSet, len(items))
	for _, s := range items {
		ss.Add(s)
	}
	return ss
}

func (ss StringSet) Add(s string) StringSet {
	ss[s] = struct{}{}
	return ss
}

func (ss StringSet) Remove(s string) StringSet {
	delete(ss, s)
	return ss
}

func (ss StringSet) Contains(s string) bool {
	_, ok := ss[s]
	return ok
}

func (ss StringSet) Clone() StringSet {
	r := make(StringSet, len(ss))
	for s := range ss {
		r.Add(s)
	}
	return r
}

// Sorted returns the members in lexical order
func (ss StringSet) Sorted() []string {
	r := lo.Keys(ss)
	slices.Sort(r)
	return r
}
