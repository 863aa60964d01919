package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/rss-herald/app/feed"
)

// Runner executes check cycles and registrations one at a time so that
// their load-modify-save sequences on the seen store never interleave.
// Configuration edits are serialized separately.
type Runner struct {
	mu         sync.Mutex
	settingsMu sync.Mutex

	settings SettingsStore
	seen     SeenStore
	fetcher  FeedFetcher
	sender   MessageSender
}

func NewRunner(settings SettingsStore, seen SeenStore, fetcher FeedFetcher, sender MessageSender) *Runner {
	return &Runner{
		settings: settings,
		seen:     seen,
		fetcher:  fetcher,
		sender:   sender,
	}
}

// CheckFeeds runs one check-all-feeds cycle.
func (r *Runner) CheckFeeds(ctx context.Context) (CheckResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := NewCheckFeedsTask(r.settings, r.seen, r.fetcher, r.sender)
	err := r.execute(ctx, task)
	return task.Result, err
}

// RegisterFeed adds a feed to the configuration and seeds its seen set.
func (r *Runner) RegisterFeed(ctx context.Context, name, url string) (*feed.FeedConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := NewRegisterFeedTask(name, url, r, r.seen, r.fetcher, r.sender)
	if err := r.execute(ctx, task); err != nil {
		return nil, err
	}
	return task.Feed, nil
}

func (r *Runner) Settings() (*feed.Settings, error) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	return r.settings.Load()
}

func (r *Runner) UpdateSettings(fn func(settings *feed.Settings) error) (*feed.Settings, error) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	settings, err := r.settings.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := fn(settings); err != nil {
		return nil, err
	}

	if err := r.settings.Save(settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	return settings, nil
}

func (r *Runner) execute(ctx context.Context, task TaskInterface) error {
	task.Start()

	err := task.Execute(ctx)
	if err != nil {
		slog.Error("Task execution failed",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"target", task.GetTarget(),
			"duration", task.GetDuration(),
			"error", err)
	}

	return err
}
