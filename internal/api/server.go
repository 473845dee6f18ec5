// Package api exposes the trigger and status surface: start/stop a scraping
// run, poll session progress, and list approved articles.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/buildwellai/news-scraper/internal/model"
	"github.com/buildwellai/news-scraper/internal/storage"
)

const (
	recentLogLimit      = 20
	defaultArticleLimit = 50
	maxArticleLimit     = 200
)

type Runner interface {
	Run(ctx context.Context) (string, error)
	IsRunning() bool
}

type SessionReader interface {
	Latest(ctx context.Context) (*model.ScrapingSession, error)
	CancelRunning(ctx context.Context) (int64, error)
}

type LogReader interface {
	Recent(ctx context.Context, sessionID string, limit uint64) ([]model.ScrapingLogEntry, error)
}

type ArticleLister interface {
	List(ctx context.Context, filter storage.ListFilter) ([]model.Article, error)
}

type Server struct {
	runner   Runner
	sessions SessionReader
	logs     LogReader
	articles ArticleLister
}

func NewServer(runner Runner, sessions SessionReader, logs LogReader, articles ArticleLister) *Server {
	return &Server{
		runner:   runner,
		sessions: sessions,
		logs:     logs,
		articles: articles,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.HandleFunc("POST /api/scrape/stop", s.handleStop)
	mux.HandleFunc("GET /api/scraping-status", s.handleStatus)
	mux.HandleFunc("GET /api/articles", s.handleArticles)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleScrape starts a session in the background. The run outlives the
// request, so it gets its own context; progress is observed by polling.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.runner.IsRunning() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   "scraping session already running",
		})
		return
	}

	go func() {
		if _, err := s.runner.Run(context.Background()); err != nil {
			log.Printf("[ERROR] scraping run failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"status":  "started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	cancelled, err := s.sessions.CancelRunning(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"cancelled": cancelled,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Latest(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"currentSession": nil,
			"recentLogs":     []logJSON{},
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.logs.Recent(r.Context(), session.ID, recentLogLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"currentSession": sessionToJSON(*session),
		"recentLogs": lo.Map(entries, func(e model.ScrapingLogEntry, _ int) logJSON {
			return logToJSON(e)
		}),
	})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	filter := storage.ListFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    defaultArticleLimit,
	}

	if v := r.URL.Query().Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "featured must be a boolean",
			})
			return
		}
		filter.Featured = &featured
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 32)
		if err != nil || limit == 0 || limit > maxArticleLimit {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "limit must be between 1 and 200",
			})
			return
		}
		filter.Limit = limit
	}

	articles, err := s.articles.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"articles": lo.Map(articles, func(a model.Article, _ int) articleJSON {
			return articleToJSON(a)
		}),
	})
}

type sessionJSON struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	TotalSources      int        `json:"totalSources"`
	ProcessedSources  int        `json:"processedSources"`
	TotalArticles     int        `json:"totalArticles"`
	NewArticles       int        `json:"newArticles"`
	DuplicateArticles int        `json:"duplicateArticles"`
	FailedSources     int        `json:"failedSources"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
}

type logJSON struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"sessionId"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	SourceName    string    `json:"sourceName,omitempty"`
	ArticlesFound int       `json:"articlesFound"`
	Timestamp     time.Time `json:"timestamp"`
}

type articleJSON struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Excerpt       string    `json:"excerpt"`
	Category      string    `json:"category"`
	PublishedDate time.Time `json:"publishedDate"`
	ReadTime      string    `json:"readTime"`
	SourceID      string    `json:"sourceId"`
	URL           string    `json:"url"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Featured      bool      `json:"featured"`
}

func sessionToJSON(s model.ScrapingSession) sessionJSON {
	return sessionJSON{
		ID:                s.ID,
		Status:            string(s.Status),
		TotalSources:      s.TotalSources,
		ProcessedSources:  s.ProcessedSources,
		TotalArticles:     s.TotalArticles,
		NewArticles:       s.NewArticles,
		DuplicateArticles: s.DuplicateArticles,
		FailedSources:     s.FailedSources,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		ErrorMessage:      s.ErrorMessage,
	}
}

func logToJSON(e model.ScrapingLogEntry) logJSON {
	return logJSON{
		ID:            e.ID,
		SessionID:     e.SessionID,
		Level:         string(e.Level),
		Message:       e.Message,
		SourceName:    e.SourceName,
		ArticlesFound: e.ArticlesFound,
		Timestamp:     e.Timestamp,
	}
}

func articleToJSON(a model.Article) articleJSON {
	return articleJSON{
		ID:            a.ID,
		Title:         a.Title,
		Summary:       a.Summary,
		Excerpt:       a.Excerpt,
		Category:      a.Category,
		PublishedDate: a.PublishedDate,
		ReadTime:      a.ReadTime,
		SourceID:      a.SourceID,
		URL:           a.URL,
		ImageURL:      a.ImageURL,
		Featured:      a.Featured,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
