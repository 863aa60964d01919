package database

import (
	"fmt"

	"github.com/lysyi3m/rss-herald/app/feed"
)

// SeenRepository stores the seen-entry document. Save replaces the whole
// document in one transaction; feeds with an empty set keep their key.
type SeenRepository struct {
	db *DB
}

func NewSeenRepository(db *DB) *SeenRepository {
	return &SeenRepository{db: db}
}

func (r *SeenRepository) Load() (feed.SeenEntries, error) {
	entries := make(feed.SeenEntries)

	feedRows, err := r.db.Query(`SELECT feed_id FROM seen_feeds`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen feeds: %w", err)
	}
	for feedRows.Next() {
		var feedID string
		if err := feedRows.Scan(&feedID); err != nil {
			feedRows.Close()
			return nil, fmt.Errorf("failed to scan seen feed: %w", err)
		}
		entries[feedID] = feed.NewSeenSet()
	}
	feedRows.Close()
	if err := feedRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen feeds: %w", err)
	}

	rows, err := r.db.Query(`SELECT feed_id, entry_id FROM seen_entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedID, entryID string
		if err := rows.Scan(&feedID, &entryID); err != nil {
			return nil, fmt.Errorf("failed to scan seen entry: %w", err)
		}
		set, ok := entries[feedID]
		if !ok {
			set = feed.NewSeenSet()
			entries[feedID] = set
		}
		set.Add(entryID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen entries: %w", err)
	}

	return entries, nil
}

func (r *SeenRepository) Save(entries feed.SeenEntries) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM seen_entries`); err != nil {
		return fmt.Errorf("failed to clear seen entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM seen_feeds`); err != nil {
		return fmt.Errorf("failed to clear seen feeds: %w", err)
	}

	feedStmt, err := tx.Prepare(`INSERT INTO seen_feeds (feed_id, updated_at) VALUES (?, CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("failed to prepare feed insert: %w", err)
	}
	defer feedStmt.Close()

	entryStmt, err := tx.Prepare(`INSERT INTO seen_entries (feed_id, entry_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer entryStmt.Close()

	for feedID, set := range entries {
		if _, err := feedStmt.Exec(feedID); err != nil {
			return fmt.Errorf("failed to insert seen feed %s: %w", feedID, err)
		}
		for _, entryID := range set.Sorted() {
			if _, err := entryStmt.Exec(feedID, entryID); err != nil {
				return fmt.Errorf("failed to insert seen entry for %s: %w", feedID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seen entries: %w", err)
	}

	return nil
}

func (r *SeenRepository) Count() (feeds int, entries int, err error) {
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM seen_feeds`).Scan(&feeds); err != nil {
		return 0, 0, fmt.Errorf("failed to count seen feeds: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM seen_entries`).Scan(&entries); err != nil {
		return 0, 0, fmt.Errorf("failed to count seen entries: %w", err)
	}
	return feeds, entries, nil
}
