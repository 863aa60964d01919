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
	readability "github.com/go-shiori/go-readability"
)

var iconRel = regexp.MustCompile(`(?i)icon`)

// SiteInfo fetches page metadata for url. It never fails: on any error the
// result degrades to the domain alone.
func (d *Discoverer) SiteInfo(ctx context.Context, url string) SiteInfo {
	host := hostOf(url)
	info := SiteInfo{Title: host, Domain: host}

	page, err := d.fetcher.get(ctx, url)
	if err != nil {
		slog.Debug("Site info unavailable", "url", url, "error", err)
		return info
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		slog.Debug("Site info unavailable", "url", url, "error", err)
		return info
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		info.Title = title
	}

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		href, _ := s.Attr("href")
		if !iconRel.MatchString(rel) || href == "" {
			return true
		}
		if favicon, ok := resolve(url, href); ok {
			info.FaviconURL = favicon
		}
		return false
	})

	pageURL, _ := neturl.Parse(url)
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		slog.Debug("Readability extraction failed", "url", url, "error", err)
		return info
	}

	info.SiteName = strings.TrimSpace(article.SiteName)
	info.FaviconURL = cmp.Or(info.FaviconURL, article.Favicon)

	return info
}
