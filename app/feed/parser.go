package feed

import (
	"bytes"
	"cmp"
	"io"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/text/unicode/norm"
)

// UntitledPlaceholder is used for entries that carry no title.
const UntitledPlaceholder = "Untitled"

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses raw RSS/Atom/JSON feed data. Structurally invalid input yields a
// *FetchError of kind FetchMalformed.
func (p *Parser) Run(data []byte) (*ParsedFeed, error) {
	return p.parse("", bytes.NewReader(data))
}

func (p *Parser) parse(url string, r io.Reader) (*ParsedFeed, error) {
	feed, err := p.gofeedParser.Parse(r)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformed, URL: url, Err: err}
	}

	parsed := &ParsedFeed{
		Title: strings.TrimSpace(feed.Title),
		Link:  feed.Link,
		Items: make([]Item, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Items = append(parsed.Items, p.normalizeItem(item))
	}

	return parsed, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	title := norm.NFC.String(strings.TrimSpace(item.Title))

	return Item{
		ID:       cmp.Or(strings.TrimSpace(item.GUID), strings.TrimSpace(item.Link)),
		Title:    cmp.Or(title, UntitledPlaceholder),
		Link:     strings.TrimSpace(item.Link),
		ImageURL: extractImage(item),
	}
}

// extractImage resolves an entry image. Order matters: media thumbnails are
// the most reliable, inline <img> tags the least.
func extractImage(item *gofeed.Item) string {
	media := item.Extensions["media"]

	if url := firstThumbnail(media); url != "" {
		return url
	}

	if url := imageFromMediaContent(mediaContents(media)); url != "" {
		return url
	}

	html := cmp.Or(item.Content, item.Description)
	if m := imgSrcPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}

	return ""
}

func firstThumbnail(media map[string][]ext.Extension) string {
	for _, thumb := range media["thumbnail"] {
		if url := thumb.Attrs["url"]; url != "" {
			return url
		}
	}
	for _, group := range media["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return ""
}

func mediaContents(media map[string][]ext.Extension) []ext.Extension {
	contents := append([]ext.Extension{}, media["content"]...)
	for _, group := range media["group"] {
		contents = append(contents, group.Children["content"]...)
	}
	return contents
}

func imageFromMediaContent(contents []ext.Extension) string {
	if len(contents) == 0 {
		return ""
	}

	for _, c := range contents {
		if c.Attrs["medium"] == "image" || strings.HasPrefix(c.Attrs["type"], "image/") {
			if url := c.Attrs["url"]; url != "" {
				return url
			}
		}
	}

	return contents[0].Attrs["url"]
}
