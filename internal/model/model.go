// Package model defines the data structures passed through the ingestion pipeline: configured Sources, transient feed items and candidate articles, and the persisted Article, ScrapingSession and ScrapingLogEntry records.
package model

import "time"

type FeedAvailability string

const (
	FeedYes     FeedAvailability = "yes"
	FeedNo      FeedAvailability = "no"
	FeedPartial FeedAvailability = "partial"
)

type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

type ArticleStatus string

const (
	StatusPending  ArticleStatus = "pending"
	StatusApproved ArticleStatus = "approved"
	StatusRejected ArticleStatus = "rejected"
)

// Source is a configured publication. The directory is loaded once from YAML
// and never mutated at runtime.
type Source struct {
	ID               string           `yaml:"id"`
	Organisation     string           `yaml:"organisation"`
	Description      string           `yaml:"description"`
	Website          string           `yaml:"website"`
	FeedURL          string           `yaml:"feed_url"`
	FeedAvailability FeedAvailability `yaml:"feed_availability"`
	Category         string           `yaml:"category"`
	TrustScore       int              `yaml:"trust_score"`
}

// HasFeed reports whether the source can be scraped in a pipeline run.
func (s Source) HasFeed() bool {
	return s.FeedURL != "" && s.FeedAvailability != FeedNo
}

// RawFeedItem is one entry pulled out of an RSS document. It has no identity
// beyond its link and is discarded after conversion to a candidate article.
type RawFeedItem struct {
	Title       string
	Link        string
	Description string
	PubDate     time.Time
	ImageURL    string
}

// CandidateArticle is the unit passed through extraction and summarization
// within a single ingestion pass.
type CandidateArticle struct {
	URL           string
	Title         string
	Content       string
	PublishedDate time.Time
	SourceID      string
	ImageURL      string
}

// Summary is the summarizer's output: a short factual summary and one
// category from the closed set.
type Summary struct {
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// ExtractedContent is the content extractor's best-effort result.
type ExtractedContent struct {
	Content  string
	ImageURL string
}

type Article struct {
	ID            string
	Title         string
	Content       string
	Summary       string
	Excerpt       string
	Category      string
	PublishedDate time.Time
	ReadTime      string
	SourceID      string
	URL           string
	ImageURL      string
	ContentHash   string
	Status        ArticleStatus
	Featured      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScrapingSession is the durable record of one end-to-end pipeline run.
// Owned exclusively by the orchestrator.
type ScrapingSession struct {
	ID                string
	Status            SessionStatus
	TotalSources      int
	ProcessedSources  int
	TotalArticles     int
	NewArticles       int
	DuplicateArticles int
	FailedSources     int
	StartedAt         time.Time
	CompletedAt       *time.Time
	ErrorMessage      string
}

// ScrapingLogEntry is one row of the append-only session audit trail.
type ScrapingLogEntry struct {
	ID            int64
	SessionID     string
	Level         LogLevel
	Message       string
	SourceName    string
	ArticlesFound int
	Timestamp     time.Time
}
