// Package feed turns raw RSS text into RawFeedItems. Parsing is tolerant of
// the tag soup third-party feeds actually serve; items missing a title or
// link are dropped rather than half-filled.
package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/buildwellai/news-scraper/internal/model"
)

var descriptionImg = regexp.MustCompile(`(?i)<img[^>]+src=['"]([^'"]+)['"]`)

type Parser struct {
	inner    *gofeed.Parser
	maxItems int
}

// NewParser builds a parser that keeps at most maxItems entries per feed.
// The cap bounds per-source work; it is policy, not a parsing limitation.
func NewParser(maxItems int) *Parser {
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Parser{
		inner:    gofeed.NewParser(),
		maxItems: maxItems,
	}
}

// Parse is a pure function of the feed text. Input order is preserved, so
// the most recent entries of a well-formed feed come first.
func (p *Parser) Parse(text string) ([]model.RawFeedItem, error) {
	parsed, err := p.inner.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.RawFeedItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		raw, ok := convertItem(item)
		if !ok {
			continue
		}
		items = append(items, raw)
		if len(items) == p.maxItems {
			break
		}
	}

	return items, nil
}

func convertItem(item *gofeed.Item) (model.RawFeedItem, bool) {
	title := strings.TrimSpace(item.Title)

	// Some feeds put the permalink only in guid.
	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = strings.TrimSpace(item.GUID)
	}

	if title == "" || link == "" {
		return model.RawFeedItem{}, false
	}

	pubDate := time.Now().UTC()
	if item.PublishedParsed != nil {
		pubDate = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		pubDate = item.UpdatedParsed.UTC()
	}

	return model.RawFeedItem{
		Title:       title,
		Link:        link,
		Description: strings.TrimSpace(item.Description),
		PubDate:     pubDate,
		ImageURL:    itemImage(item),
	}, true
}

// itemImage pulls an image hint out of the item itself; the extractor later
// upgrades or replaces it from the article page.
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if m := descriptionImg.FindStringSubmatch(item.Description); m != nil {
		return m[1]
	}
	return ""
}
