// Package ingest drives one scraping session end to end: feed fetch, item
// parsing, content extraction, deduplication, summarization and persistence,
// with progress recorded after every significant step.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/buildwellai/news-scraper/internal/dedup"
	"github.com/buildwellai/news-scraper/internal/model"
	"github.com/buildwellai/news-scraper/internal/reporter"
	"github.com/buildwellai/news-scraper/internal/source"
	"github.com/buildwellai/news-scraper/internal/summary"
)

// ErrAlreadyRunning is returned when a run is requested while a session is
// still in flight. Sessions are strictly one at a time.
var ErrAlreadyRunning = errors.New("scraping session already running")

var errCancelled = errors.New("session cancelled")

type ArticleStorage interface {
	Store(ctx context.Context, article model.Article) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
}

type SessionStorage interface {
	Create(ctx context.Context, session model.ScrapingSession) error
	Get(ctx context.Context, id string) (*model.ScrapingSession, error)
	UpdateCounters(ctx context.Context, session model.ScrapingSession) error
	Finalize(ctx context.Context, id string, status model.SessionStatus, errorMessage string) error
}

type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type FeedParser interface {
	Parse(text string) ([]model.RawFeedItem, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, url string) model.ExtractedContent
}

type Summarizer interface {
	Summarize(ctx context.Context, candidate model.CandidateArticle) (model.Summary, error)
}

// Options carries the pacing and volume limits. The delays are scraping
// etiquette towards third-party sites, the caps bound per-source work.
type Options struct {
	SourceDelay       time.Duration
	ArticleDelay      time.Duration
	ArticlesPerSource int
}

type Ingestor struct {
	articles   ArticleStorage
	sessions   SessionStorage
	logs       reporter.LogStorage
	fetcher    TextFetcher
	parser     FeedParser
	extractor  ContentExtractor
	summarizer Summarizer
	sources    []model.Source
	opts       Options

	running atomic.Bool
}

func New(
	articles ArticleStorage,
	sessions SessionStorage,
	logs reporter.LogStorage,
	fetcher TextFetcher,
	parser FeedParser,
	extractor ContentExtractor,
	summarizer Summarizer,
	sources []model.Source,
	opts Options,
) *Ingestor {
	if opts.ArticlesPerSource <= 0 {
		opts.ArticlesPerSource = 5
	}
	return &Ingestor{
		articles:   articles,
		sessions:   sessions,
		logs:       logs,
		fetcher:    fetcher,
		parser:     parser,
		extractor:  extractor,
		summarizer: summarizer,
		sources:    sources,
		opts:       opts,
	}
}

// IsRunning reports whether a session is currently in flight.
func (i *Ingestor) IsRunning() bool {
	return i.running.Load()
}

// Start runs sessions on a fixed interval until the context is cancelled.
// A failed session is logged and the schedule keeps going.
func (i *Ingestor) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := i.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] scraping run failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run executes one full session and returns its id. Per-source and
// per-article failures are absorbed into counters and log entries; only an
// error in the orchestrator's own bookkeeping fails the session.
func (i *Ingestor) Run(ctx context.Context) (string, error) {
	if !i.running.CompareAndSwap(false, true) {
		return "", ErrAlreadyRunning
	}
	defer i.running.Store(false)

	eligible := source.Eligible(i.sources)

	session := model.ScrapingSession{
		ID:           uuid.NewString(),
		Status:       model.SessionRunning,
		TotalSources: len(eligible),
		StartedAt:    time.Now().UTC(),
	}

	// Session bookkeeping must land even after ctx dies: the driver fails
	// every statement on a cancelled context, which would otherwise leave
	// the session row stuck in running after a shutdown.
	bctx := context.WithoutCancel(ctx)

	if err := i.sessions.Create(bctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	rep := reporter.New(i.logs, session.ID)
	rep.Record(bctx, model.LevelInfo,
		fmt.Sprintf("Starting scraping session with %d sources", session.TotalSources))

	err := i.processSources(ctx, &session, eligible, rep)
	switch {
	case errors.Is(err, errCancelled):
		// Completed work is retained; the canceller flipped the status, we
		// only make sure the run leaves a finalized row behind.
		if uerr := i.sessions.UpdateCounters(bctx, session); uerr != nil {
			log.Printf("[ERROR] failed to persist counters for cancelled session %s: %v", session.ID, uerr)
		}
		if ferr := i.sessions.Finalize(bctx, session.ID, model.SessionCancelled, ""); ferr != nil {
			log.Printf("[ERROR] failed to finalize cancelled session %s: %v", session.ID, ferr)
		}
		rep.Record(bctx, model.LevelWarning, "Scraping session cancelled")
		return session.ID, nil
	case err != nil:
		if ferr := i.sessions.Finalize(bctx, session.ID, model.SessionFailed, err.Error()); ferr != nil {
			log.Printf("[ERROR] failed to finalize failed session %s: %v", session.ID, ferr)
		}
		rep.Record(bctx, model.LevelError, fmt.Sprintf("Scraping failed: %v", err))
		return session.ID, err
	}

	if err := i.sessions.Finalize(bctx, session.ID, model.SessionCompleted, ""); err != nil {
		return session.ID, fmt.Errorf("finalize session: %w", err)
	}
	rep.Record(bctx, model.LevelSuccess, fmt.Sprintf(
		"Scraping completed: %d new articles, %d duplicates filtered, %d sources failed",
		session.NewArticles, session.DuplicateArticles, session.FailedSources))

	return session.ID, nil
}

func (i *Ingestor) processSources(ctx context.Context, session *model.ScrapingSession, sources []model.Source, rep *reporter.Reporter) error {
	for idx, src := range sources {
		if idx > 0 {
			if err := sleep(ctx, i.opts.SourceDelay); err != nil {
				return errCancelled
			}
		}

		// External cancellation is cooperative: the session row is re-read
		// between sources, never mid-source.
		if cancelled, err := i.cancelRequested(ctx, session.ID); err != nil {
			return err
		} else if cancelled {
			return errCancelled
		}

		rep.RecordSource(ctx, model.LevelInfo,
			fmt.Sprintf("Processing source: %s", src.Organisation), src.Organisation, 0)

		found, err := i.processSource(ctx, session, src, rep)
		if errors.Is(err, errCancelled) {
			// A half-finished source is neither processed nor failed; the
			// caller persists the counters accumulated so far.
			return errCancelled
		}
		if err != nil {
			session.FailedSources++
			rep.RecordSource(ctx, model.LevelError,
				fmt.Sprintf("Failed to process %s: %v", src.Organisation, err), src.Organisation, 0)
		} else {
			session.ProcessedSources++
			rep.RecordSource(ctx, model.LevelSuccess,
				fmt.Sprintf("Completed %s: %d articles found", src.Organisation, found), src.Organisation, found)
		}

		if err := i.sessions.UpdateCounters(context.WithoutCancel(ctx), *session); err != nil {
			return fmt.Errorf("persist session counters: %w", err)
		}
	}

	return nil
}

// processSource handles one source's feed: fetch, parse, then the per-item
// extract/dedup/summarize/store chain. The returned count is the number of
// items handled, duplicates included; errCancelled means the run's context
// died partway through and the remaining items were never attempted.
func (i *Ingestor) processSource(ctx context.Context, session *model.ScrapingSession, src model.Source, rep *reporter.Reporter) (int, error) {
	text, err := i.fetcher.FetchText(ctx, src.FeedURL)
	if err != nil {
		return 0, err
	}

	items, err := i.parser.Parse(text)
	if err != nil {
		return 0, err
	}
	if len(items) > i.opts.ArticlesPerSource {
		items = items[:i.opts.ArticlesPerSource]
	}

	for n, item := range items {
		if n > 0 {
			if err := sleep(ctx, i.opts.ArticleDelay); err != nil {
				return n, errCancelled
			}
		}
		i.processItem(ctx, session, src, item, rep)
	}

	return len(items), nil
}

func (i *Ingestor) processItem(ctx context.Context, session *model.ScrapingSession, src model.Source, item model.RawFeedItem, rep *reporter.Reporter) {
	extracted := i.extractor.Extract(ctx, item.Link)

	imageURL := extracted.ImageURL
	if imageURL == "" {
		imageURL = item.ImageURL
	}

	candidate := model.CandidateArticle{
		URL:           item.Link,
		Title:         item.Title,
		Content:       extracted.Content,
		PublishedDate: item.PubDate,
		SourceID:      src.ID,
		ImageURL:      imageURL,
	}

	session.TotalArticles++

	hash := dedup.Fingerprint(candidate.Title, candidate.Content, candidate.SourceID)
	exists, err := i.articles.ExistsByHash(ctx, hash)
	if err != nil {
		rep.RecordSource(ctx, model.LevelError,
			fmt.Sprintf("Duplicate check failed for %s: %v", candidate.Title, err), src.Organisation, 0)
		return
	}
	if exists {
		session.DuplicateArticles++
		rep.RecordSource(ctx, model.LevelInfo,
			fmt.Sprintf("Duplicate: %s", candidate.Title), src.Organisation, 0)
		return
	}

	sum, err := i.summarizer.Summarize(ctx, candidate)
	if err != nil {
		sum = summary.Fallback(fmt.Sprintf("Summary unavailable: %v", err))
		rep.RecordSource(ctx, model.LevelWarning,
			fmt.Sprintf("Summarization fell back for %s: %v", candidate.Title, err), src.Organisation, 0)
	}

	article := buildArticle(candidate, item, sum, hash)
	if err := i.articles.Store(ctx, article); err != nil {
		rep.RecordSource(ctx, model.LevelError,
			fmt.Sprintf("Failed to store %s: %v", article.Title, err), src.Organisation, 0)
		return
	}

	session.NewArticles++
	rep.RecordSource(ctx, model.LevelSuccess,
		fmt.Sprintf("Added: %s", article.Title), src.Organisation, 1)
}

func (i *Ingestor) cancelRequested(ctx context.Context, sessionID string) (bool, error) {
	select {
	case <-ctx.Done():
		return true, nil
	default:
	}

	current, err := i.sessions.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("reload session: %w", err)
	}
	return current.Status == model.SessionCancelled, nil
}

func buildArticle(candidate model.CandidateArticle, item model.RawFeedItem, sum model.Summary, hash string) model.Article {
	return model.Article{
		ID:            uuid.NewString(),
		Title:         candidate.Title,
		Content:       candidate.Content,
		Summary:       sum.Summary,
		Excerpt:       excerpt(item.Description, 200),
		Category:      sum.Category,
		PublishedDate: candidate.PublishedDate,
		ReadTime:      readTime(candidate.Content),
		SourceID:      candidate.SourceID,
		URL:           candidate.URL,
		ImageURL:      candidate.ImageURL,
		ContentHash:   hash,
		Status:        model.StatusApproved,
		Featured:      false,
	}
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)
var spaces = regexp.MustCompile(`\s+`)

// excerpt turns the feed description into a short plain-text teaser.
func excerpt(description string, limit int) string {
	text := htmlTags.ReplaceAllString(description, " ")
	text = strings.TrimSpace(spaces.ReplaceAllString(text, " "))
	runes := []rune(text)
	if len(runes) > limit {
		return strings.TrimSpace(string(runes[:limit])) + "..."
	}
	return text
}

// readTime estimates reading time at 200 words per minute.
func readTime(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
