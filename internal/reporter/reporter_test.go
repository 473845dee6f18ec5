package reporter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildwellai/news-scraper/internal/model"
)

// strictLogs fails the write when the passed context is dead, the way a real
// database driver does.
type strictLogs struct {
	entries []model.ScrapingLogEntry
}

func (s *strictLogs) Append(ctx context.Context, entry model.ScrapingLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	logs := &strictLogs{}
	r := New(logs, "session-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, model.LevelWarning, "Scraping session cancelled")

	require.Len(t, logs.entries, 1)
	assert.Equal(t, model.LevelWarning, logs.entries[0].Level)
	assert.Equal(t, "session-1", logs.entries[0].SessionID)
}

func TestRecordNilSafe(t *testing.T) {
	var r *Reporter
	r.Record(context.Background(), model.LevelInfo, "ignored")

	r = New(nil, "session-1")
	r.RecordSource(context.Background(), model.LevelInfo, "ignored", "src", 0)
}
