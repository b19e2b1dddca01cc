// Package diagnostic implements the global deduplicated diagnostic store
// (spec.md §3, §4.F): a case-insensitive set of report lines, each
// contributing at most once to the final report regardless of how many
// times it is raised during the reference walk.
package diagnostic

import (
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// Set is a case-insensitive deduplicating collection of diagnostic lines.
// The mutex guards against any future concurrent checker, though the
// driver (spec.md §5) runs it single-threaded today.
type Set struct {
	mu   sync.Mutex
	seen map[uint64]string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[uint64]string)}
}

func dedupeKey(s string) uint64 {
	return xxh3.HashString(strings.ToLower(s))
}

// Add records line, returning true if it was not already present. Case is
// preserved for the first occurrence; later additions differing only in
// case are silently dropped.
func (s *Set) Add(line string) bool {
	key := dedupeKey(line)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = line
	return true
}

// Len returns the number of distinct diagnostics recorded.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Sorted returns every recorded diagnostic line, lexicographically
// ascending, matching spec.md §4.F/§5's deterministic ordering guarantee.
func (s *Set) Sorted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.seen))
	for _, line := range s.seen {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
