package feed

import "sort"

// SeenSet holds the entry identifiers already acted on for one feed.
// Identifiers are only ever added.
type SeenSet map[string]struct{}

func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add records id. Empty identifiers are ignored.
func (s SeenSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

func (s SeenSet) Len() int {
	return len(s)
}

func (s SeenSet) Clone() SeenSet {
	c := make(SeenSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the identifiers in lexical order for stable persistence.
func (s SeenSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SeenEntries maps a FeedConfig ID to its SeenSet. A key with an empty set
// means the feed was registered but had nothing to record yet; a missing key
// means the feed was never seeded.
type SeenEntries map[string]SeenSet

func (e SeenEntries) Known(feedID string) (SeenSet, bool) {
	s, ok := e[feedID]
	return s, ok
}
