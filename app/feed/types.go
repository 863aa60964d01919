package feed

// Feed processing types

type ParsedFeed struct {
	Title string
	Link  string
	Items []Item // source order, typically newest first
}

type Item struct {
	ID       string // guid/id, else link, else empty (unidentifiable)
	Title    string
	Link     string
	ImageURL string
}

// Configuration types

type Settings struct {
	WebhookURL    string       `yaml:"webhook_url"`
	CheckInterval int          `yaml:"check_interval"` // seconds
	Feeds         []FeedConfig `yaml:"feeds"`
}

type FeedConfig struct {
	ID      string `yaml:"id" json:"id"`
	URL     string `yaml:"url" json:"url"`
	Name    string `yaml:"name" json:"name"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

func (s *Settings) HasWebhook() bool {
	return s.WebhookURL != ""
}

func (s *Settings) FindFeed(id string) (int, *FeedConfig) {
	for i := range s.Feeds {
		if s.Feeds[i].ID == id {
			return i, &s.Feeds[i]
		}
	}
	return -1, nil
}

// Discovery types

type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyLinkTag    Strategy = "link_tag"
	StrategyCommonPath Strategy = "common_path"
	StrategyAnchorTag  Strategy = "anchor_tag"
)

type DiscoveredFeed struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Strategy Strategy `json:"type"`
}

type SiteInfo struct {
	Title      string `json:"title"`
	SiteName   string `json:"site_name,omitempty"`
	FaviconURL string `json:"favicon,omitempty"`
	Domain     string `json:"domain"`
}
