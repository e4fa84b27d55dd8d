package scan

import (
	"sort"

	"typescan/internal/typeinfo"
)

// Stats counts what a query saw.
type Stats struct {
	Namespaces int `json:"namespaces"`
	Roots      int `json:"roots"`
	Candidates int `json:"candidates"`
	Matched    int `json:"matched"`
	Rejected   int `json:"rejected"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// MatchSet is the immutable result of a query, keyed by type identifier.
type MatchSet struct {
	handles map[string]typeinfo.Handle
	stats   Stats
}

func (s *MatchSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.handles)
}

func (s *MatchSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.handles[id]
	return ok
}

func (s *MatchSet) Get(id string) (typeinfo.Handle, bool) {
	if s == nil {
		return nil, false
	}
	h, ok := s.handles[id]
	return h, ok
}

// IDs returns the matched identifiers in sorted order.
func (s *MatchSet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handles returns the matched handles ordered by identifier.
func (s *MatchSet) Handles() []typeinfo.Handle {
	ids := s.IDs()
	out := make([]typeinfo.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.handles[id])
	}
	return out
}

// Equal reports whether both sets hold the same identifiers.
func (s *MatchSet) Equal(other *MatchSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.IDs() {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

func (s *MatchSet) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return s.stats
}
