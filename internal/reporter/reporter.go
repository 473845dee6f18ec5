package reporter

import (
	"context"
	"log/slog"

	"github.com/buildwellai/news-scraper/internal/model"
)

type LogStorage interface {
	Append(ctx context.Context, entry model.ScrapingLogEntry) error
}

// Reporter records pipeline progress as append-only log entries tied to one
// session, mirroring each entry to slog. It is nil-safe: a nil receiver is a
// no-op, and a failed write never fails the pipeline.
type Reporter struct {
	logs      LogStorage
	sessionID string
}

func New(logs LogStorage, sessionID string) *Reporter {
	return &Reporter{logs: logs, sessionID: sessionID}
}

func (r *Reporter) Record(ctx context.Context, level model.LogLevel, message string) {
	r.record(ctx, level, message, "", 0)
}

// RecordSource attaches the source name and an article count to the entry.
func (r *Reporter) RecordSource(ctx context.Context, level model.LogLevel, message, sourceName string, articlesFound int) {
	r.record(ctx, level, message, sourceName, articlesFound)
}

func (r *Reporter) record(ctx context.Context, level model.LogLevel, message, sourceName string, articlesFound int) {
	if r == nil || r.logs == nil {
		return
	}

	// Entries written while the pipeline shuts down still have to land.
	ctx = context.WithoutCancel(ctx)

	slog.Info(message, "session", r.sessionID, "level", level, "source", sourceName)

	entry := model.ScrapingLogEntry{
		SessionID:     r.sessionID,
		Level:         level,
		Message:       message,
		SourceName:    sourceName,
		ArticlesFound: articlesFound,
	}
	if err := r.logs.Append(ctx, entry); err != nil {
		slog.Error("failed to append scraping log entry", "err", err)
	}
}
