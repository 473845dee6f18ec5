// Package storage persists articles, scraping sessions and log entries in Postgres.
package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/buildwellai/news-scraper/internal/model"
)

type ArticlePostgresStorage struct {
	db *sqlx.DB
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{db: db}
}

type dbArticle struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Content       string    `db:"content"`
	Summary       string    `db:"summary"`
	Excerpt       string    `db:"excerpt"`
	Category      string    `db:"category"`
	PublishedDate time.Time `db:"published_date"`
	ReadTime      string    `db:"read_time"`
	SourceID      string    `db:"source_id"`
	URL           string    `db:"url"`
	ImageURL      string    `db:"image_url"`
	ContentHash   string    `db:"content_hash"`
	Status        string    `db:"status"`
	Featured      bool      `db:"featured"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (s *ArticlePostgresStorage) Store(ctx context.Context, article model.Article) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles
		   (id, title, content, summary, excerpt, category, published_date,
		    read_time, source_id, url, image_url, content_hash, status, featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		article.ID,
		article.Title,
		article.Content,
		article.Summary,
		article.Excerpt,
		article.Category,
		article.PublishedDate,
		article.ReadTime,
		article.SourceID,
		article.URL,
		article.ImageURL,
		article.ContentHash,
		article.Status,
		article.Featured,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ExistsByHash is the authoritative duplicate check: the unique constraint on
// content_hash is the single source of truth, there is no process-local
// seen-set to drift from it.
func (s *ArticlePostgresStorage) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE content_hash = $1)`, hash)
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	return exists, nil
}

// ListFilter narrows List to a category and/or featured flag.
type ListFilter struct {
	Category string
	Featured *bool
	Limit    uint64
}

// List returns approved articles, newest first.
func (s *ArticlePostgresStorage) List(ctx context.Context, filter ListFilter) ([]model.Article, error) {
	qb := sq.Select(
		"id", "title", "content", "summary", "excerpt", "category",
		"published_date", "read_time", "source_id", "url", "image_url",
		"content_hash", "status", "featured", "created_at", "updated_at",
	).
		From("articles").
		Where(sq.Eq{"status": model.StatusApproved}).
		OrderBy("published_date DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Category != "" {
		qb = qb.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Featured != nil {
		qb = qb.Where(sq.Eq{"featured": *filter.Featured})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(filter.Limit)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []dbArticle
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return lo.Map(rows, func(row dbArticle, _ int) model.Article {
		return articleFromRow(row)
	}), nil
}

// UpdateStatus belongs to the moderation surface, not the pipeline.
func (s *ArticlePostgresStorage) UpdateStatus(ctx context.Context, id string, status model.ArticleStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	return nil
}

// SetFeatured belongs to the moderation surface, not the pipeline.
func (s *ArticlePostgresStorage) SetFeatured(ctx context.Context, id string, featured bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles SET featured = $1, updated_at = NOW() WHERE id = $2`, featured, id)
	if err != nil {
		return fmt.Errorf("update article featured flag: %w", err)
	}
	return nil
}

func articleFromRow(row dbArticle) model.Article {
	return model.Article{
		ID:            row.ID,
		Title:         row.Title,
		Content:       row.Content,
		Summary:       row.Summary,
		Excerpt:       row.Excerpt,
		Category:      row.Category,
		PublishedDate: row.PublishedDate,
		ReadTime:      row.ReadTime,
		SourceID:      row.SourceID,
		URL:           row.URL,
		ImageURL:      row.ImageURL,
		ContentHash:   row.ContentHash,
		Status:        model.ArticleStatus(row.Status),
		Featured:      row.Featured,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
