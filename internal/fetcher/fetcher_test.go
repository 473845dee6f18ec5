package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTextSendsIdentifyingHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	f := New("BuildwellAI News Aggregator 1.0")
	body, err := f.FetchText(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<rss></rss>", body)
	assert.Equal(t, "BuildwellAI News Aggregator 1.0", gotUA)
	assert.Contains(t, gotAccept, "application/rss+xml")
}

func TestFetchHTMLAcceptsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := New("test-agent")
	body, err := f.FetchHTML(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html></html>", body)
}

func TestFetchNon2xxReturnsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New("test-agent")
	_, err := f.FetchText(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Equal(t, srv.URL, fetchErr.URL)
}

func TestFetchNetworkFailureReturnsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	f := New("test-agent")
	_, err := f.FetchHTML(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.Status)
	assert.Error(t, errors.Unwrap(fetchErr))
}

func TestFetchRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New("test-agent")
	_, err := f.FetchText(ctx, srv.URL)
	assert.Error(t, err)
}
