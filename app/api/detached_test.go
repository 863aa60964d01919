package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-herald/app/database"
	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/notify"
	"github.com/lysyi3m/rss-herald/app/tasks"
)

func rssWith(guids ...string) string {
	var items strings.Builder
	for _, g := range guids {
		fmt.Fprintf(&items, "<item><title>Post %s</title><link>https://blog.example.com/%s</link><guid>%s</guid></item>", g, g, g)
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Blog</title>` + items.String() + `</channel></rss>`
}

type webhookRecorder struct {
	mu     sync.Mutex
	posts  int
	onPost func()
}

func (w *webhookRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	w.posts++
	onPost := w.onPost
	w.onPost = nil
	w.mu.Unlock()

	if onPost != nil {
		onPost()
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.posts
}

type stack struct {
	router  http.Handler
	seen    *database.SeenRepository
	configs *feed.ConfigStore
}

func newStack(t *testing.T, feedURL, webhookURL string, seen feed.SeenEntries) *stack {
	t.Helper()

	dir := t.TempDir()

	configs := feed.NewConfigStore(filepath.Join(dir, "config.yml"), 300)
	settings := &feed.Settings{WebhookURL: webhookURL, CheckInterval: 300, Feeds: []feed.FeedConfig{}}
	if seen != nil {
		settings.Feeds = append(settings.Feeds, feed.FeedConfig{ID: "blog", URL: feedURL, Name: "Blog", Enabled: true})
	}
	require.NoError(t, configs.Save(settings))

	db, err := database.Open(filepath.Join(dir, "seen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewSeenRepository(db)
	if seen != nil {
		require.NoError(t, repo.Save(seen))
	}

	notifier := notify.NewNotifier(nil, 5*time.Second, 0)
	runner := tasks.NewRunner(configs, repo, feed.NewFetcher(nil, nil, "test-agent", 5*time.Second), notifier)

	return &stack{
		router:  NewServer(NewHandler(runner, &fakeMonitor{}, &fakeDiscoverer{}, notifier), ""),
		seen:    repo,
		configs: configs,
	}
}

func TestCheckNowDeliversWholeBatchAfterClientLeaves(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssWith("3", "2", "1", "0"))
	}))
	defer feedSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hook := &webhookRecorder{onPost: cancel}
	hookSrv := httptest.NewServer(hook)
	defer hookSrv.Close()

	s := newStack(t, feedSrv.URL, hookSrv.URL, feed.SeenEntries{"blog": feed.NewSeenSet("0")})

	req := httptest.NewRequest(http.MethodPost, "/api/check", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Error(t, ctx.Err())
	assert.Equal(t, 3, hook.count())
	assert.Contains(t, w.Body.String(), `"delivered":3`)

	entries, err := s.seen.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3"}, entries["blog"].Sorted())
}

func TestAddFeedSeedsAfterClientLeaves(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssWith("2", "1"))
	}))
	defer feedSrv.Close()

	hook := &webhookRecorder{}
	hookSrv := httptest.NewServer(hook)
	defer hookSrv.Close()

	s := newStack(t, feedSrv.URL, hookSrv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := fmt.Sprintf(`{"url": %q, "name": "Blog"}`, feedSrv.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/feeds", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, hook.count())

	settings, err := s.configs.Load()
	require.NoError(t, err)
	require.Len(t, settings.Feeds, 1)

	entries, err := s.seen.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, entries[settings.Feeds[0].ID].Sorted())
}
