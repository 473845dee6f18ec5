package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildwellai/news-scraper/internal/model"
	"github.com/buildwellai/news-scraper/internal/storage"
)

type fakeRunner struct {
	running bool
	started chan struct{}
}

func (f *fakeRunner) Run(context.Context) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	return "session-1", nil
}

func (f *fakeRunner) IsRunning() bool { return f.running }

type fakeSessionReader struct {
	latest    *model.ScrapingSession
	latestErr error
	cancelled int64
}

func (f *fakeSessionReader) Latest(context.Context) (*model.ScrapingSession, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeSessionReader) CancelRunning(context.Context) (int64, error) {
	return f.cancelled, nil
}

type fakeLogReader struct {
	entries []model.ScrapingLogEntry
}

func (f *fakeLogReader) Recent(_ context.Context, _ string, limit uint64) ([]model.ScrapingLogEntry, error) {
	if uint64(len(f.entries)) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeArticleLister struct {
	articles   []model.Article
	lastFilter storage.ListFilter
}

func (f *fakeArticleLister) List(_ context.Context, filter storage.ListFilter) ([]model.Article, error) {
	f.lastFilter = filter
	return f.articles, nil
}

type serverFixture struct {
	runner   *fakeRunner
	sessions *fakeSessionReader
	logs     *fakeLogReader
	articles *fakeArticleLister
	handler  http.Handler
}

func newServerFixture() *serverFixture {
	fx := &serverFixture{
		runner:   &fakeRunner{},
		sessions: &fakeSessionReader{},
		logs:     &fakeLogReader{},
		articles: &fakeArticleLister{},
	}
	fx.handler = NewServer(fx.runner, fx.sessions, fx.logs, fx.articles).Handler()
	return fx
}

func (fx *serverFixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestScrapeStartsRun(t *testing.T) {
	fx := newServerFixture()
	fx.runner.started = make(chan struct{})

	rec, body := fx.do(t, http.MethodPost, "/api/scrape")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "started", body["status"])

	select {
	case <-fx.runner.started:
	case <-time.After(time.Second):
		t.Fatal("run was never started")
	}
}

func TestScrapeConflictsWhileRunning(t *testing.T) {
	fx := newServerFixture()
	fx.runner.running = true

	rec, body := fx.do(t, http.MethodPost, "/api/scrape")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "already running")
}

func TestStopReportsCancelledCount(t *testing.T) {
	fx := newServerFixture()
	fx.sessions.cancelled = 1

	rec, body := fx.do(t, http.MethodPost, "/api/scrape/stop")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["cancelled"])
}

func TestStatusWithNoSessions(t *testing.T) {
	fx := newServerFixture()
	fx.sessions.latestErr = storage.ErrNotFound

	rec, body := fx.do(t, http.MethodGet, "/api/scraping-status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["currentSession"])
	assert.Empty(t, body["recentLogs"])
}

func TestStatusReturnsSessionAndLogs(t *testing.T) {
	fx := newServerFixture()
	fx.sessions.latest = &model.ScrapingSession{
		ID:               "s-1",
		Status:           model.SessionRunning,
		TotalSources:     12,
		ProcessedSources: 4,
		StartedAt:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	fx.logs.entries = []model.ScrapingLogEntry{
		{ID: 2, SessionID: "s-1", Level: model.LevelSuccess, Message: "Processed Building", SourceName: "Building", ArticlesFound: 5},
		{ID: 1, SessionID: "s-1", Level: model.LevelInfo, Message: "Session started"},
	}

	rec, body := fx.do(t, http.MethodGet, "/api/scraping-status")
	assert.Equal(t, http.StatusOK, rec.Code)

	session, ok := body["currentSession"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s-1", session["id"])
	assert.Equal(t, "running", session["status"])
	assert.Equal(t, float64(12), session["totalSources"])
	assert.NotContains(t, session, "completedAt")

	logs, ok := body["recentLogs"].([]any)
	require.True(t, ok)
	require.Len(t, logs, 2)
	first := logs[0].(map[string]any)
	assert.Equal(t, "success", first["level"])
	assert.Equal(t, "Building", first["sourceName"])
}

func TestArticlesDefaultFilter(t *testing.T) {
	fx := newServerFixture()
	fx.articles.articles = []model.Article{{
		ID:       "a-1",
		Title:    "Levy announced",
		Category: "regulation",
		ReadTime: "2 min read",
	}}

	rec, body := fx.do(t, http.MethodGet, "/api/articles")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(50), fx.articles.lastFilter.Limit)
	assert.Empty(t, fx.articles.lastFilter.Category)
	assert.Nil(t, fx.articles.lastFilter.Featured)

	articles, ok := body["articles"].([]any)
	require.True(t, ok)
	require.Len(t, articles, 1)
	assert.Equal(t, "Levy announced", articles[0].(map[string]any)["title"])
}

func TestArticlesQueryFilters(t *testing.T) {
	fx := newServerFixture()

	rec, _ := fx.do(t, http.MethodGet, "/api/articles?category=housing&featured=true&limit=5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "housing", fx.articles.lastFilter.Category)
	require.NotNil(t, fx.articles.lastFilter.Featured)
	assert.True(t, *fx.articles.lastFilter.Featured)
	assert.Equal(t, uint64(5), fx.articles.lastFilter.Limit)
}

func TestArticlesRejectsBadFeatured(t *testing.T) {
	fx := newServerFixture()

	rec, body := fx.do(t, http.MethodGet, "/api/articles?featured=banana")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestArticlesRejectsOutOfRangeLimit(t *testing.T) {
	fx := newServerFixture()

	for _, limit := range []string{"0", "201", "-3", "abc"} {
		rec, _ := fx.do(t, http.MethodGet, fmt.Sprintf("/api/articles?limit=%s", limit))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestHealthz(t *testing.T) {
	fx := newServerFixture()

	rec, _ := fx.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
