package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-herald/app/feed"
)

var ErrEmptyFeedURL = errors.New("feed url is required")

type RegisterFeedTask struct {
	Task
	Name string
	URL  string
	Feed *feed.FeedConfig

	settings SettingsUpdater
	seen     SeenStore
	fetcher  FeedFetcher
	sender   MessageSender
}

func NewRegisterFeedTask(name, url string, settings SettingsUpdater, seen SeenStore, fetcher FeedFetcher, sender MessageSender) *RegisterFeedTask {
	url = strings.TrimSpace(url)

	return &RegisterFeedTask{
		Task:     NewTask(TaskTypeRegisterFeed, url),
		Name:     strings.TrimSpace(name),
		URL:      url,
		settings: settings,
		seen:     seen,
		fetcher:  fetcher,
		sender:   sender,
	}
}

// Execute adds the feed to the configuration, then delivers only its newest
// entry and marks everything else seen. Once the feed is saved, later failures
// leave it registered without a seen set; the next check cycle seeds it.
func (t *RegisterFeedTask) Execute(ctx context.Context) error {
	if t.URL == "" {
		return ErrEmptyFeedURL
	}

	fc := feed.FeedConfig{
		ID:      uuid.NewString(),
		URL:     t.URL,
		Name:    cmp.Or(t.Name, hostname(t.URL)),
		Enabled: true,
	}

	settings, err := t.settings.UpdateSettings(func(s *feed.Settings) error {
		s.Feeds = append(s.Feeds, fc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register feed: %w", err)
	}
	t.Feed = &fc

	parsed, err := t.fetcher.Fetch(ctx, fc.URL)
	if err != nil {
		slog.Warn("Initial fetch failed, feed registered without seeding", "feed", fc.Name, "url", fc.URL, "error", err)
		return nil
	}

	seen, err := t.seen.Load()
	if err != nil {
		slog.Warn("Failed to load seen entries, feed registered without seeding", "feed", fc.Name, "error", err)
		return nil
	}

	latest, seeded := feed.SeedKnownSet(parsed)
	if latest != nil {
		deliver(ctx, t.sender, settings.WebhookURL, cmp.Or(fc.Name, parsed.Title), *latest)
		seeded.Add(latest.ID)
	}
	seen[fc.ID] = seeded

	if err := t.seen.Save(seen); err != nil {
		slog.Warn("Failed to save seen entries, feed registered without seeding", "feed", fc.Name, "error", err)
		return nil
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"feed", fc.Name,
		"id", fc.ID,
		"duration", t.GetDuration(),
		"seen", seeded.Len())

	return nil
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}
