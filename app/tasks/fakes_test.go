package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/notify"
)

type memSettings struct {
	mu       sync.Mutex
	settings feed.Settings
	loadErr  error
	panics   int
	loads    int
}

func newMemSettings(webhook string, feeds ...feed.FeedConfig) *memSettings {
	return &memSettings{settings: feed.Settings{WebhookURL: webhook, CheckInterval: 1, Feeds: feeds}}
}

func (m *memSettings) Load() (*feed.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.panics > 0 {
		m.panics--
		panic("settings exploded")
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}

	s := m.settings
	s.Feeds = append([]feed.FeedConfig(nil), m.settings.Feeds...)
	return &s, nil
}

func (m *memSettings) Save(settings *feed.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = *settings
	m.settings.Feeds = append([]feed.FeedConfig(nil), settings.Feeds...)
	return nil
}

func (m *memSettings) snapshot() feed.Settings {
	s, _ := m.Load()
	return *s
}

// memSeen flags overlapping load/save sequences.
type memSeen struct {
	mu      sync.Mutex
	entries feed.SeenEntries
	loadErr error
	saveErr error
	open    int
	overlap bool
	saves   int
}

func newMemSeen(entries feed.SeenEntries) *memSeen {
	if entries == nil {
		entries = feed.SeenEntries{}
	}
	return &memSeen{entries: entries}
}

func (m *memSeen) Load() (feed.SeenEntries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	m.open++
	if m.open > 1 {
		m.overlap = true
	}
	return cloneEntries(m.entries), nil
}

func (m *memSeen) Save(entries feed.SeenEntries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open--
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries = cloneEntries(entries)
	return nil
}

func (m *memSeen) known(feedID string) (feed.SeenSet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.entries[feedID]
	return set.Clone(), ok
}

func cloneEntries(in feed.SeenEntries) feed.SeenEntries {
	out := make(feed.SeenEntries, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

type fakeFetcher struct {
	mu     sync.Mutex
	feeds  map[string]*feed.ParsedFeed
	errs   map[string]error
	panics map[string]bool
	calls  int
	onCall func()
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds:  map[string]*feed.ParsedFeed{},
		errs:   map[string]error{},
		panics: map[string]bool{},
	}
}

func (f *fakeFetcher) set(url string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parsed := &feed.ParsedFeed{Title: "Feed " + url}
	for _, id := range ids {
		parsed.Items = append(parsed.Items, feed.Item{ID: id, Title: "Post " + id, Link: url + "/" + id})
	}
	f.feeds[url] = parsed
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*feed.ParsedFeed, error) {
	f.mu.Lock()
	f.calls++
	onCall := f.onCall
	parsed, err, panics := f.feeds[url], f.errs[url], f.panics[url]
	f.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if panics {
		panic("fetcher exploded")
	}
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, &feed.FetchError{Kind: feed.FetchNetworkFailure, URL: url, Err: errors.New("no such feed")}
	}
	return parsed, nil
}

type sentMessage struct {
	endpoint string
	msg      notify.Message
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, endpoint string, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, sentMessage{endpoint: endpoint, msg: msg})
	return s.err
}

func (s *recordingSender) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var titles []string
	for _, m := range s.sent {
		titles = append(titles, m.msg.Title)
	}
	return titles
}
