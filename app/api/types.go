package api

import (
	"context"
	"errors"

	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/tasks"
)

var errFeedNotFound = errors.New("feed not found")

type FeedRunner interface {
	CheckFeeds(ctx context.Context) (tasks.CheckResult, error)
	RegisterFeed(ctx context.Context, name, url string) (*feed.FeedConfig, error)
	Settings() (*feed.Settings, error)
	UpdateSettings(fn func(settings *feed.Settings) error) (*feed.Settings, error)
}

type Monitor interface {
	Start() bool
	Stop() bool
	IsRunning() bool
}

type FeedDiscoverer interface {
	Discover(ctx context.Context, url string) ([]feed.DiscoveredFeed, error)
	SiteInfo(ctx context.Context, url string) feed.SiteInfo
}

var (
	_ FeedRunner     = (*tasks.Runner)(nil)
	_ Monitor        = (*tasks.Scheduler)(nil)
	_ FeedDiscoverer = (*feed.Discoverer)(nil)
)

type Handler struct {
	runner     FeedRunner
	monitor    Monitor
	discoverer FeedDiscoverer
	sender     tasks.MessageSender
}

type configRequest struct {
	WebhookURL    *string `json:"webhook_url"`
	CheckInterval *int    `json:"check_interval"`
}

type addFeedRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// updateFeedRequest only renames: a new URL would inherit the old feed's
// seen set.
type updateFeedRequest struct {
	Name *string `json:"name"`
}

type detectFeedRequest struct {
	URL string `json:"url"`
}
