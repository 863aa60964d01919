package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-herald/app/feed"
)

const webhook = "https://hooks.example.com/abc"

func feedConfig(id string, enabled bool) feed.FeedConfig {
	return feed.FeedConfig{ID: id, URL: "https://" + id + ".example.com/rss", Name: id, Enabled: enabled}
}

func runCheck(t *testing.T, settings *memSettings, seen *memSeen, fetcher *fakeFetcher, sender *recordingSender) CheckResult {
	t.Helper()

	result, err := NewRunner(settings, seen, fetcher, sender).CheckFeeds(context.Background())
	require.NoError(t, err)
	return result
}

func TestCheckFeedsDeliversOldestFirst(t *testing.T) {
	a := feedConfig("a", true)
	settings := newMemSettings(webhook, a)
	seen := newMemSeen(feed.SeenEntries{"a": feed.NewSeenSet("1")})
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "4", "3", "2", "1")
	sender := &recordingSender{}

	result := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, []string{"Post 2", "Post 3", "Post 4"}, sender.titles())
	assert.Equal(t, CheckResult{Checked: 1, New: 3, Delivered: 3}, result)

	known, ok := seen.known("a")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2", "3", "4"}, known.Sorted())
	assert.Equal(t, 1, seen.saves)

	for _, m := range sender.sent {
		assert.Equal(t, webhook, m.endpoint)
		assert.Equal(t, "a", m.msg.SiteName)
	}
}

func TestCheckFeedsIsIdempotent(t *testing.T) {
	a := feedConfig("a", true)
	settings := newMemSettings(webhook, a)
	seen := newMemSeen(feed.SeenEntries{"a": feed.NewSeenSet()})
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "2", "1")
	sender := &recordingSender{}

	first := runCheck(t, settings, seen, fetcher, sender)
	second := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, 2, first.New)
	assert.Equal(t, 0, second.New)
	assert.Len(t, sender.sent, 2)
}

func TestCheckFeedsSurvivesFailingFeeds(t *testing.T) {
	bad := feedConfig("bad", true)
	panicky := feedConfig("panicky", true)
	good := feedConfig("good", true)

	settings := newMemSettings(webhook, bad, panicky, good)
	seen := newMemSeen(feed.SeenEntries{
		"bad":     feed.NewSeenSet("x"),
		"panicky": feed.NewSeenSet("y"),
		"good":    feed.NewSeenSet("1"),
	})
	fetcher := newFakeFetcher()
	fetcher.errs[bad.URL] = &feed.FetchError{Kind: feed.FetchMalformed, URL: bad.URL, Err: errors.New("not xml")}
	fetcher.panics[panicky.URL] = true
	fetcher.set(good.URL, "2", "1")
	sender := &recordingSender{}

	result := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, CheckResult{Checked: 3, Failed: 2, New: 1, Delivered: 1}, result)
	assert.Equal(t, []string{"Post 2"}, sender.titles())

	badSet, _ := seen.known("bad")
	assert.Equal(t, []string{"x"}, badSet.Sorted())
	goodSet, _ := seen.known("good")
	assert.Equal(t, []string{"1", "2"}, goodSet.Sorted())
}

func TestCheckFeedsSkipsDisabledFeeds(t *testing.T) {
	off := feedConfig("off", false)
	settings := newMemSettings(webhook, off)
	seen := newMemSeen(feed.SeenEntries{"off": feed.NewSeenSet()})
	fetcher := newFakeFetcher()
	fetcher.set(off.URL, "1")
	sender := &recordingSender{}

	result := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, CheckResult{}, result)
	assert.Zero(t, fetcher.callCount())
	assert.Empty(t, sender.sent)
}

func TestCheckFeedsMarksSeenWhenDeliveryFails(t *testing.T) {
	a := feedConfig("a", true)
	settings := newMemSettings(webhook, a)
	seen := newMemSeen(feed.SeenEntries{"a": feed.NewSeenSet()})
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "2", "1")
	sender := &recordingSender{err: errors.New("endpoint down")}

	result := runCheck(t, settings, seen, fetcher, sender)
	assert.Equal(t, CheckResult{Checked: 1, New: 2}, result)

	sender.err = nil
	again := runCheck(t, settings, seen, fetcher, sender)
	assert.Zero(t, again.New)
	assert.Len(t, sender.sent, 2)
}

func TestCheckFeedsWithoutWebhook(t *testing.T) {
	a := feedConfig("a", true)
	settings := newMemSettings("", a)
	seen := newMemSeen(feed.SeenEntries{"a": feed.NewSeenSet()})
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "1")
	sender := &recordingSender{}

	result := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, CheckResult{Checked: 1, New: 1}, result)
	assert.Empty(t, sender.sent)
	known, _ := seen.known("a")
	assert.True(t, known.Has("1"))
}

func TestCheckFeedsSeedsFeedWithoutSeenSet(t *testing.T) {
	a := feedConfig("a", true)
	settings := newMemSettings(webhook, a)
	seen := newMemSeen(nil)
	fetcher := newFakeFetcher()
	fetcher.set(a.URL, "5", "4", "3", "2", "1")
	sender := &recordingSender{}

	result := runCheck(t, settings, seen, fetcher, sender)

	assert.Equal(t, []string{"Post 5"}, sender.titles())
	assert.Equal(t, 1, result.New)
	known, ok := seen.known("a")
	require.True(t, ok)
	assert.Equal(t, 5, known.Len())
}

func TestCheckFeedsStoreErrors(t *testing.T) {
	t.Run("settings", func(t *testing.T) {
		settings := newMemSettings(webhook)
		settings.loadErr = errors.New("disk gone")
		seen := newMemSeen(nil)

		_, err := NewRunner(settings, seen, newFakeFetcher(), &recordingSender{}).CheckFeeds(context.Background())

		assert.ErrorIs(t, err, settings.loadErr)
		assert.Zero(t, seen.saves)
	})

	t.Run("seen", func(t *testing.T) {
		seen := newMemSeen(nil)
		seen.loadErr = errors.New("db locked")

		_, err := NewRunner(newMemSettings(webhook), seen, newFakeFetcher(), &recordingSender{}).CheckFeeds(context.Background())

		assert.ErrorIs(t, err, seen.loadErr)
		assert.Zero(t, seen.saves)
	})
}
