package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/buildwellai/news-scraper/internal/model"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

type SessionPostgresStorage struct {
	db *sqlx.DB
}

func NewSessionStorage(db *sqlx.DB) *SessionPostgresStorage {
	return &SessionPostgresStorage{db: db}
}

type dbSession struct {
	ID                string     `db:"id"`
	Status            string     `db:"status"`
	TotalSources      int        `db:"total_sources"`
	ProcessedSources  int        `db:"processed_sources"`
	TotalArticles     int        `db:"total_articles"`
	NewArticles       int        `db:"new_articles"`
	DuplicateArticles int        `db:"duplicate_articles"`
	FailedSources     int        `db:"failed_sources"`
	StartedAt         time.Time  `db:"started_at"`
	CompletedAt       *time.Time `db:"completed_at"`
	ErrorMessage      string     `db:"error_message"`
}

func (s *SessionPostgresStorage) Create(ctx context.Context, session model.ScrapingSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scraping_sessions (id, status, total_sources)
		 VALUES ($1, $2, $3)`,
		session.ID, session.Status, session.TotalSources)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionPostgresStorage) Get(ctx context.Context, id string) (*model.ScrapingSession, error) {
	var row dbSession
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM scraping_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session := sessionFromRow(row)
	return &session, nil
}

// Latest returns the most recently started session.
func (s *SessionPostgresStorage) Latest(ctx context.Context) (*model.ScrapingSession, error) {
	var row dbSession
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM scraping_sessions ORDER BY started_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest session: %w", err)
	}
	session := sessionFromRow(row)
	return &session, nil
}

// UpdateCounters persists the aggregate counters after each processed source.
func (s *SessionPostgresStorage) UpdateCounters(ctx context.Context, session model.ScrapingSession) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scraping_sessions
		 SET processed_sources = $1, total_articles = $2, new_articles = $3,
		     duplicate_articles = $4, failed_sources = $5
		 WHERE id = $6`,
		session.ProcessedSources,
		session.TotalArticles,
		session.NewArticles,
		session.DuplicateArticles,
		session.FailedSources,
		session.ID)
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return nil
}

// Finalize moves the session out of running and stamps completion time.
func (s *SessionPostgresStorage) Finalize(ctx context.Context, id string, status model.SessionStatus, errorMessage string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scraping_sessions
		 SET status = $1, error_message = $2, completed_at = NOW()
		 WHERE id = $3`,
		status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	return nil
}

// CancelRunning marks every running session cancelled and returns how many
// were affected. The orchestrator notices between sources.
func (s *SessionPostgresStorage) CancelRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scraping_sessions
		 SET status = $1, completed_at = NOW()
		 WHERE status = $2`,
		model.SessionCancelled, model.SessionRunning)
	if err != nil {
		return 0, fmt.Errorf("cancel running sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel running sessions: %w", err)
	}
	return affected, nil
}

func sessionFromRow(row dbSession) model.ScrapingSession {
	return model.ScrapingSession{
		ID:                row.ID,
		Status:            model.SessionStatus(row.Status),
		TotalSources:      row.TotalSources,
		ProcessedSources:  row.ProcessedSources,
		TotalArticles:     row.TotalArticles,
		NewArticles:       row.NewArticles,
		DuplicateArticles: row.DuplicateArticles,
		FailedSources:     row.FailedSources,
		StartedAt:         row.StartedAt,
		CompletedAt:       row.CompletedAt,
		ErrorMessage:      row.ErrorMessage,
	}
}
