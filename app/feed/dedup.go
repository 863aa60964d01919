package feed

import "github.com/samber/lo"

// ComputeNew returns the entries of parsed that are not in known, oldest
// first, together with known extended by their identifiers. known is not
// modified. Entries without an identifier are never reported or recorded.
//
// Identifiers are recorded at detection time. Whether a later delivery
// succeeds does not matter: a failed notification is not retried.
func ComputeNew(parsed *ParsedFeed, known SeenSet) ([]Item, SeenSet) {
	updated := known.Clone()
	if parsed == nil {
		return nil, updated
	}

	var fresh []Item
	for _, item := range parsed.Items {
		if item.ID == "" || updated.Has(item.ID) {
			continue
		}
		fresh = append(fresh, item)
		updated.Add(item.ID)
	}

	// Source order is newest first; deliver oldest first.
	return lo.Reverse(fresh), updated
}

// SeedKnownSet prepares the seen set of a feed that has never been checked.
// Every identified entry except the newest is marked seen; the newest is
// returned so the caller can deliver it and then record its identifier.
// latest is nil when the feed has no identified entries.
func SeedKnownSet(parsed *ParsedFeed) (*Item, SeenSet) {
	seeded := NewSeenSet()
	if parsed == nil {
		return nil, seeded
	}

	var latest *Item
	for i := range parsed.Items {
		item := parsed.Items[i]
		if item.ID == "" {
			continue
		}
		if latest == nil {
			latest = &item
			continue
		}
		if item.ID != latest.ID {
			seeded.Add(item.ID)
		}
	}

	return latest, seeded
}
