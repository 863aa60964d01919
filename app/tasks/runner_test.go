package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-herald/app/feed"
)

func TestRunnerSerializesCycles(t *testing.T) {
	a := feedConfig("a", true)
	seen := newMemSeen(feed.SeenEntries{"a": feed.NewSeenSet()})
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "1")
	fetcher.set("https://b.example.com/rss", "1")
	fetcher.onCall = func() { time.Sleep(5 * time.Millisecond) }
	runner := NewRunner(newMemSettings(webhook, a), seen, fetcher, &recordingSender{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.CheckFeeds(context.Background())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.RegisterFeed(context.Background(), "b", "https://b.example.com/rss")
	}()
	wg.Wait()

	assert.False(t, seen.overlap)
	assert.Equal(t, 9, seen.saves)
}

func TestRunnerUpdateSettings(t *testing.T) {
	settings := newMemSettings(webhook, feedConfig("a", true))
	runner := NewRunner(settings, newMemSeen(nil), newFakeFetcher(), &recordingSender{})

	updated, err := runner.UpdateSettings(func(s *feed.Settings) error {
		s.CheckInterval = 60
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.CheckInterval)
	assert.Equal(t, 60, settings.snapshot().CheckInterval)

	rejected := errors.New("rejected")
	_, err = runner.UpdateSettings(func(s *feed.Settings) error {
		s.CheckInterval = 1
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 60, settings.snapshot().CheckInterval)
}
