package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/buildwellai/news-scraper/internal/model"
)

type LogPostgresStorage struct {
	db *sqlx.DB
}

func NewLogStorage(db *sqlx.DB) *LogPostgresStorage {
	return &LogPostgresStorage{db: db}
}

type dbLogEntry struct {
	ID            int64     `db:"id"`
	SessionID     string    `db:"session_id"`
	Level         string    `db:"level"`
	Message       string    `db:"message"`
	SourceName    string    `db:"source_name"`
	ArticlesFound int       `db:"articles_found"`
	Timestamp     time.Time `db:"timestamp"`
}

// Append writes one audit-trail entry. Entries are write-once: nothing in
// the codebase updates or deletes them.
func (s *LogPostgresStorage) Append(ctx context.Context, entry model.ScrapingLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scraping_logs (session_id, level, message, source_name, articles_found)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.SessionID, entry.Level, entry.Message, entry.SourceName, entry.ArticlesFound)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a session, newest first.
func (s *LogPostgresStorage) Recent(ctx context.Context, sessionID string, limit uint64) ([]model.ScrapingLogEntry, error) {
	var rows []dbLogEntry
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM scraping_logs
		 WHERE session_id = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("select log entries: %w", err)
	}

	return lo.Map(rows, func(row dbLogEntry, _ int) model.ScrapingLogEntry {
		return model.ScrapingLogEntry{
			ID:            row.ID,
			SessionID:     row.SessionID,
			Level:         model.LogLevel(row.Level),
			Message:       row.Message,
			SourceName:    row.SourceName,
			ArticlesFound: row.ArticlesFound,
			Timestamp:     row.Timestamp,
		}
	}), nil
}
