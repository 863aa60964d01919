package tasks

import (
	"context"

	"github.com/lysyi3m/rss-herald/app/database"
	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/notify"
)

// SeenStore persists the seen-entry document as a whole.
type SeenStore interface {
	Load() (feed.SeenEntries, error)
	Save(entries feed.SeenEntries) error
}

// SettingsStore persists the configuration document as a whole.
type SettingsStore interface {
	Load() (*feed.Settings, error)
	Save(settings *feed.Settings) error
}

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*feed.ParsedFeed, error)
}

type MessageSender interface {
	Send(ctx context.Context, endpoint string, msg notify.Message) error
}

// SettingsUpdater applies fn to the current settings and saves the result.
type SettingsUpdater interface {
	UpdateSettings(fn func(settings *feed.Settings) error) (*feed.Settings, error)
}

var (
	_ SeenStore       = (*database.SeenRepository)(nil)
	_ SettingsStore   = (*feed.ConfigStore)(nil)
	_ FeedFetcher     = (*feed.Fetcher)(nil)
	_ MessageSender   = (*notify.Notifier)(nil)
	_ SettingsUpdater = (*Runner)(nil)
)
