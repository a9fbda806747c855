package pta

import (
	"strings"
)

// smallSetLimit is the size up to which membership is a linear scan; the
// index map is only allocated past it.
const smallSetLimit = 8

// PointsToSet is a monotone set of context-sensitive heap objects.
// Iteration order is insertion order and is stable as long as the caller
// does not add elements mid-iteration; the solver's delta discipline
// guarantees it never does.
type PointsToSet struct {
	objs  []*CSObj
	index map[*CSObj]struct{}
}

// NewPointsToSet returns a set holding the given objects.
func NewPointsToSet(objs ...*CSObj) *PointsToSet {
	s := new(PointsToSet)
	for _, o := range objs {
		s.Add(o)
	}
	return s
}

func (s *PointsToSet) IsEmpty() bool { return len(s.objs) == 0 }

func (s *PointsToSet) Len() int { return len(s.objs) }

func (s *PointsToSet) Contains(o *CSObj) bool {
	if s.index != nil {
		_, ok := s.index[o]
		return ok
	}
	for _, x := range s.objs {
		if x == o {
			return true
		}
	}
	return false
}

// Add inserts o and reports whether it was newly inserted.
func (s *PointsToSet) Add(o *CSObj) bool {
	if s.Contains(o) {
		return false
	}
	s.objs = append(s.objs, o)
	if s.index == nil && len(s.objs) > smallSetLimit {
		s.index = make(map[*CSObj]struct{}, len(s.objs))
		for _, x := range s.objs {
			s.index[x] = struct{}{}
		}
	} else if s.index != nil {
		s.index[o] = struct{}{}
	}
	return true
}

// AddAll inserts every object of other and returns the strictly new ones.
func (s *PointsToSet) AddAll(other *PointsToSet) *PointsToSet {
	delta := new(PointsToSet)
	for _, o := range other.Objects() {
		if s.Add(o) {
			delta.Add(o)
		}
	}
	return delta
}

// Objects returns the elements in insertion order. The returned slice is
// the set's backing store; callers must not modify it.
func (s *PointsToSet) Objects() []*CSObj { return s.objs }

func (s *PointsToSet) String() string {
	elems := make([]string, len(s.objs))
	for i, o := range s.objs {
		elems[i] = o.String()
	}
	return "{" + strings.Join(elems, ", ") + "}"
}
