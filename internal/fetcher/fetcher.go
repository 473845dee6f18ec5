// Package fetcher is the leaf HTTP component: one GET per call, custom headers, typed failures.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const clientTimeout = 30 * time.Second

// FetchError reports a network failure or non-2xx response. Callers treat it
// as recoverable: skip the item or source, do not abort the run.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func New(userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: clientTimeout},
		userAgent: userAgent,
	}
}

// FetchText retrieves a feed document, advertising RSS/XML accept types.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	return f.get(ctx, url, "application/rss+xml, application/xml, text/xml")
}

// FetchHTML retrieves an article page.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	return f.get(ctx, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}

func (f *Fetcher) get(ctx context.Context, url, accept string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	return string(body), nil
}
