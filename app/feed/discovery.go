package feed

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	neturl "net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CommonFeedPaths are probed against the site origin when a page does not
// advertise its feeds.
var CommonFeedPaths = []string{
	"/feed/", "/feed", "/rss/", "/rss", "/rss.xml", "/feed.xml",
	"/atom.xml", "/index.xml", "/feeds/posts/default",
	"/?feed=rss2", "/?feed=rss", "/?feed=atom",
	"/blog/feed/", "/blog/rss/",
}

var (
	feedLinkType = regexp.MustCompile(`application/(rss|atom)\+xml`)
	feedHrefHint = regexp.MustCompile(`(?i)(rss|feed|atom)`)
)

type Discoverer struct {
	fetcher *Fetcher
}

func NewDiscoverer(fetcher *Fetcher) *Discoverer {
	return &Discoverer{fetcher: fetcher}
}

// Discover finds candidate feeds for url. A url that is itself a feed with
// entries short-circuits every other strategy. Failing to fetch the page
// returns a *DiscoveryError; failed candidate probes are skipped.
func (d *Discoverer) Discover(ctx context.Context, url string) ([]DiscoveredFeed, error) {
	host := hostOf(url)

	if parsed, err := d.fetcher.Fetch(ctx, url); err == nil && len(parsed.Items) > 0 {
		return []DiscoveredFeed{{
			URL:      url,
			Title:    cmp.Or(parsed.Title, host),
			Strategy: StrategyDirect,
		}}, nil
	}

	page, err := d.fetcher.get(ctx, url)
	if err != nil {
		return nil, &DiscoveryError{Kind: DiscoveryPageFetchFailure, URL: url, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &DiscoveryError{Kind: DiscoveryPageFetchFailure, URL: url, Err: err}
	}

	siteTitle := cmp.Or(strings.TrimSpace(doc.Find("title").First().Text()), host)
	c := &collector{found: make(map[string]bool), probed: make(map[string]bool)}

	doc.Find("link[type]").Each(func(_ int, s *goquery.Selection) {
		linkType, _ := s.Attr("type")
		href, _ := s.Attr("href")
		if !feedLinkType.MatchString(linkType) || href == "" {
			return
		}
		feedURL, ok := resolve(url, href)
		if !ok {
			return
		}
		title, _ := s.Attr("title")
		c.add(feedURL, cmp.Or(title, siteTitle), StrategyLinkTag)
	})

	if origin, ok := originOf(url); ok {
		for _, path := range CommonFeedPaths {
			candidate, ok := resolve(origin, path)
			if !ok || !c.shouldProbe(candidate) {
				continue
			}
			if feedTitle, ok := d.probe(ctx, candidate); ok {
				c.add(candidate, cmp.Or(feedTitle, siteTitle), StrategyCommonPath)
			}
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !feedHrefHint.MatchString(href) {
			return
		}
		candidate, ok := resolve(url, href)
		if !ok || !c.shouldProbe(candidate) {
			return
		}
		if feedTitle, ok := d.probe(ctx, candidate); ok {
			c.add(candidate, cmp.Or(feedTitle, strings.TrimSpace(s.Text()), siteTitle), StrategyAnchorTag)
		}
	})

	slog.Debug("Feed discovery finished", "url", url, "found", len(c.feeds))
	return c.feeds, nil
}

// probe reports whether candidate parses as a feed with at least one entry.
func (d *Discoverer) probe(ctx context.Context, candidate string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	parsed, err := d.fetcher.Fetch(ctx, candidate)
	if err != nil {
		slog.Debug("Feed candidate rejected", "url", candidate, "error", err)
		return "", false
	}
	if len(parsed.Items) == 0 {
		return "", false
	}
	return parsed.Title, true
}

type collector struct {
	feeds  []DiscoveredFeed
	found  map[string]bool
	probed map[string]bool
}

// shouldProbe skips URLs already discovered or already rejected.
func (c *collector) shouldProbe(url string) bool {
	if c.found[url] || c.probed[url] {
		return false
	}
	c.probed[url] = true
	return true
}

func (c *collector) add(url, title string, strategy Strategy) {
	if c.found[url] {
		return
	}
	c.found[url] = true
	c.feeds = append(c.feeds, DiscoveredFeed{URL: url, Title: title, Strategy: strategy})
}

func resolve(base, href string) (string, bool) {
	b, err := neturl.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := b.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}

func originOf(url string) (string, bool) {
	u, err := neturl.Parse(url)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

func hostOf(url string) string {
	u, err := neturl.Parse(url)
	if err != nil {
		return ""
	}
	return u.Host
}
