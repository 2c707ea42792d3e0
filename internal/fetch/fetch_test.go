package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-valid-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestURL_HTTPErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, int32(1), calls.Load())

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestURL_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.RetryDelay = 5 * time.Millisecond

	result, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.HTML)
	assert.Equal(t, int32(3), calls.Load())
}

func TestURL_GivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.RetryDelay = time.Millisecond
	opts.MaxTries = 2

	result, err := URL(context.Background(), server.URL, opts)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusTooManyRequests, result.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSummarize(t *testing.T) {
	html := `<html><head><title> Senior Engineer - Acme </title></head><body>
		<nav>Navigation</nav>
		<main><h1>Senior Engineer</h1><p>Build   distributed systems.</p></main>
		<footer>Footer</footer>
	</body></html>`

	summary, err := Summarize(html, 0)
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer - Acme", summary.Title)
	assert.Equal(t, "Senior Engineer Build distributed systems.", summary.Text)

	summary, err = Summarize(html, 6)
	require.NoError(t, err)
	assert.Equal(t, "Senior...", summary.Text)
}

func TestSummarize_FallsBackToH1AndBody(t *testing.T) {
	summary, err := Summarize(`<html><body><h1>Data Analyst</h1><p>Remote</p></body></html>`, 0)
	require.NoError(t, err)
	assert.Equal(t, "Data Analyst", summary.Title)
	assert.Equal(t, "Data Analyst Remote", summary.Text)
}
