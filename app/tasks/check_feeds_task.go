package tasks

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/metrics"
	"github.com/lysyi3m/rss-herald/app/notify"
)

type CheckResult struct {
	Checked   int `json:"checked"`
	Failed    int `json:"failed"`
	New       int `json:"new"`
	Delivered int `json:"delivered"`
}

type CheckFeedsTask struct {
	Task
	Result CheckResult

	settings SettingsStore
	seen     SeenStore
	fetcher  FeedFetcher
	sender   MessageSender
}

func NewCheckFeedsTask(settings SettingsStore, seen SeenStore, fetcher FeedFetcher, sender MessageSender) *CheckFeedsTask {
	return &CheckFeedsTask{
		Task:     NewTask(TaskTypeCheckFeeds, "all"),
		settings: settings,
		seen:     seen,
		fetcher:  fetcher,
		sender:   sender,
	}
}

func (t *CheckFeedsTask) Execute(ctx context.Context) error {
	settings, err := t.settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	seen, err := t.seen.Load()
	if err != nil {
		return fmt.Errorf("failed to load seen entries: %w", err)
	}

	for _, fc := range settings.Feeds {
		if !fc.Enabled {
			slog.Debug("Feed disabled, skipping", "feed", fc.Name)
			continue
		}

		t.Result.Checked++

		if err := t.checkFeed(ctx, settings.WebhookURL, fc, seen); err != nil {
			t.Result.Failed++
			metrics.FeedChecksTotal.WithLabelValues("failed").Inc()
			slog.Warn("Feed check failed", "feed", fc.Name, "url", fc.URL, "error", err)
			continue
		}

		metrics.FeedChecksTotal.WithLabelValues("ok").Inc()
	}

	if err := t.seen.Save(seen); err != nil {
		return fmt.Errorf("failed to save seen entries: %w", err)
	}

	metrics.CheckCyclesTotal.Inc()
	metrics.NewEntriesTotal.Add(float64(t.Result.New))
	metrics.CheckCycleDuration.Observe(t.GetDuration().Seconds())

	if t.Result.New == 0 {
		slog.Info("Check completed, no new entries",
			"id", t.ID,
			"checked", t.Result.Checked,
			"failed", t.Result.Failed,
			"duration", t.GetDuration())
		return nil
	}

	slog.Info("Check completed",
		"id", t.ID,
		"checked", t.Result.Checked,
		"failed", t.Result.Failed,
		"new", t.Result.New,
		"delivered", t.Result.Delivered,
		"duration", t.GetDuration())

	return nil
}

// checkFeed updates seen[fc.ID] in place. A panic is turned into an error so
// the remaining feeds are still checked.
func (t *CheckFeedsTask) checkFeed(ctx context.Context, webhook string, fc feed.FeedConfig, seen feed.SeenEntries) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while checking feed: %v", r)
		}
	}()

	parsed, err := t.fetcher.Fetch(ctx, fc.URL)
	if err != nil {
		return err
	}

	siteName := cmp.Or(fc.Name, parsed.Title)

	known, ok := seen.Known(fc.ID)
	if !ok {
		latest, seeded := feed.SeedKnownSet(parsed)
		seen[fc.ID] = seeded
		slog.Info("Seeded feed on first successful fetch", "feed", fc.Name, "seeded", seeded.Len())

		if latest != nil {
			t.Result.New++
			if deliver(ctx, t.sender, webhook, siteName, *latest) {
				t.Result.Delivered++
			}
			seeded.Add(latest.ID)
		}
		return nil
	}

	fresh, updated := feed.ComputeNew(parsed, known)
	seen[fc.ID] = updated

	if len(fresh) == 0 {
		slog.Debug("No new entries", "feed", fc.Name)
		return nil
	}

	slog.Info("New entries found", "feed", fc.Name, "count", len(fresh))

	for _, item := range fresh {
		t.Result.New++
		if deliver(ctx, t.sender, webhook, siteName, item) {
			t.Result.Delivered++
		}
	}

	return nil
}

// deliver reports whether the endpoint accepted the message. Failures are
// logged by the sender and never returned: the entry stays seen.
func deliver(ctx context.Context, sender MessageSender, webhook, siteName string, item feed.Item) bool {
	if webhook == "" {
		slog.Debug("No webhook configured, entry not delivered", "title", item.Title)
		return false
	}

	msg := notify.Message{
		Title:    item.Title,
		Link:     item.Link,
		SiteName: siteName,
		ImageURL: item.ImageURL,
	}

	return sender.Send(ctx, webhook, msg) == nil
}
