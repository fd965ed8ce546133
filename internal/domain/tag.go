package domain

import (
	"sort"
	"strings"
)

// TagSet is a set of user-defined labels attached to a Location.
// Labels are trimmed on insert; identity is the trimmed label, case preserved.
type TagSet map[string]struct{}

// NewTagSet builds a TagSet from labels, dropping blanks and duplicates.
func NewTagSet(labels ...string) TagSet {
	s := make(TagSet, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

// Add inserts label and reports whether it was not already present.
// Blank labels are ignored.
func (s TagSet) Add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	if _, ok := s[label]; ok {
		return false
	}
	s[label] = struct{}{}
	return true
}

// Remove deletes label and reports whether it was present.
func (s TagSet) Remove(label string) bool {
	label = strings.TrimSpace(label)
	if _, ok := s[label]; !ok {
		return false
	}
	delete(s, label)
	return true
}

// Has reports whether label is in the set.
func (s TagSet) Has(label string) bool {
	_, ok := s[strings.TrimSpace(label)]
	return ok
}

// Sorted returns the labels in ascending order.
// Always returns a non-nil slice.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set. A nil set clones to an empty one.
func (s TagSet) Clone() TagSet {
	c := make(TagSet, len(s))
	for l := range s {
		c[l] = struct{}{}
	}
	return c
}
