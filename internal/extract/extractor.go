// Package extract isolates the main text and a representative image from
// arbitrary third-party article markup. Extraction is best-effort: every
// strategy may fail, so Extract always returns a value and never an error.
package extract

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/buildwellai/news-scraper/internal/model"
)

// FailedContent marks a degraded result after a fetch or parse failure.
const FailedContent = "Content extraction failed"

const bodyFallbackLimit = 2000

// Ordered container heuristics; first match wins.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	".content",
	"main",
	".main-content",
	"[role=main]",
}

const noiseSelector = "script, style, nav, header, footer, aside, .advertisement, .ads, .ad, .sidebar, .social-share"

var (
	whitespace = regexp.MustCompile(`\s+`)
	imageExt   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(\?|$)`)
)

type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

type Extractor struct {
	fetcher HTMLFetcher
}

func New(fetcher HTMLFetcher) *Extractor {
	return &Extractor{fetcher: fetcher}
}

// Extract fetches the article page and returns its plain text plus an image
// URL when one can be found. A failure at any stage degrades the result
// instead of propagating; extraction must never abort a source's processing.
func (e *Extractor) Extract(ctx context.Context, articleURL string) model.ExtractedContent {
	html, err := e.fetcher.FetchHTML(ctx, articleURL)
	if err != nil {
		slog.Debug("article fetch failed", "url", articleURL, "err", err)
		return model.ExtractedContent{Content: FailedContent}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.ExtractedContent{Content: FailedContent}
	}

	imageURL := extractImage(doc, articleURL)

	content := readableText(html, articleURL)
	if content == "" {
		content = selectorText(doc)
	}
	if content == "" {
		content = FailedContent
	}

	return model.ExtractedContent{Content: content, ImageURL: imageURL}
}

// readableText runs go-readability over the page. It handles the common case
// well but gives up on some sparse or malformed pages, hence the selector
// chain behind it.
func readableText(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return CleanText(article.TextContent)
}

func selectorText(doc *goquery.Document) string {
	doc.Find(noiseSelector).Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := CleanText(sel.Text()); text != "" {
			return text
		}
	}

	body := CleanText(doc.Find("body").Text())
	if len(body) > bodyFallbackLimit {
		cut := bodyFallbackLimit
		// Back up to a rune boundary so the tail stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return body
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func extractImage(doc *goquery.Document, articleURL string) string {
	candidates := imageCandidates(doc)

	for _, raw := range candidates {
		resolved := resolveImageURL(raw, articleURL)
		if resolved == "" {
			continue
		}
		if isNoiseImage(resolved) || !looksLikeImage(resolved) {
			continue
		}
		return resolved
	}
	return ""
}

// imageCandidates returns candidate URLs in priority order: Open Graph,
// Twitter card, class-hinted article images, then anything.
func imageCandidates(doc *goquery.Document) []string {
	var out []string

	if v, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		out = append(out, v)
	}
	if v, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok {
		out = append(out, v)
	}
	doc.Find(`img[class*="featured"], img[class*="hero"], img[class*="article"], img[class*="main"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok {
			out = append(out, v)
		}
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok {
			out = append(out, v)
		}
	})

	return out
}

// resolveImageURL makes protocol-relative and root-relative candidates
// absolute against the article's origin and drops anything that does not
// parse as an http(s) URL.
func resolveImageURL(raw, articleURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	base, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		raw = base.Scheme + "://" + base.Host + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ""
	}
	return raw
}

var noiseImageKeywords = []string{"logo", "icon", "favicon", "pixel", "sprite", "avatar", "spacer", "blank", "1x1"}

func isNoiseImage(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	for _, kw := range noiseImageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// looksLikeImage accepts known extensions or hosting-pattern keywords; feeds
// often serve images from CDN paths with no extension at all.
func looksLikeImage(imageURL string) bool {
	if imageExt.MatchString(imageURL) {
		return true
	}
	lower := strings.ToLower(imageURL)
	for _, kw := range []string{"images", "media", "cdn", "amazonaws"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
