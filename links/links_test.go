package links

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport returns a Transport that calls fn for each request
type mockTransport func(*http.Request) (*http.Response, error)

func (m mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m(req)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestClassify(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		p, err := Classify("https://example.com", []string{"https://example.com/a", "https://other.com/b", "not a url"})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/a"}, p.Internal)
		assert.Equal(t, []string{"https://other.com/b"}, p.External)
	})

	t.Run("host equality not substring", func(t *testing.T) {
		p, err := Classify("https://example.com/page", []string{
			"https://example.com.evil.net/x",
			"https://sub.example.com/y",
			"https://EXAMPLE.com/z",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://EXAMPLE.com/z"}, p.Internal)
		assert.Equal(t, []string{"https://example.com.evil.net/x", "https://sub.example.com/y"}, p.External)
	})

	t.Run("completeness", func(t *testing.T) {
		input := []string{
			"https://example.com/1",
			"http://example.com/2",
			"/relative",
			"mailto:someone@example.com",
			"https://cdn.example.org/lib.js",
			"",
			"https://example.com:8443/other-port",
		}
		p, err := Classify("https://example.com", input)
		require.NoError(t, err)

		seen := map[string]int{}
		for _, u := range append(append([]string{}, p.Internal...), p.External...) {
			seen[u]++
		}
		for _, u := range input {
			if _, err := Host(u); err != nil {
				assert.Zero(t, seen[u], "unparsable %q must be dropped", u)
				continue
			}
			assert.Equal(t, 1, seen[u], "%q must appear exactly once", u)
		}
		assert.Equal(t, []string{"https://example.com/1", "http://example.com/2"}, p.Internal)
	})

	t.Run("invalid base", func(t *testing.T) {
		_, err := Classify("not a url", []string{"https://example.com"})
		assert.True(t, errors.Is(err, ErrInvalidBase))
	})
}

func TestCheckerBroken(t *testing.T) {
	client := &http.Client{
		Transport: mockTransport(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, http.MethodHead, req.Method)
			switch {
			case strings.Contains(req.URL.Path, "missing"):
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
			case strings.Contains(req.URL.Path, "down"):
				return nil, errors.New("connection refused")
			case strings.Contains(req.URL.Path, "moved"):
				return &http.Response{StatusCode: http.StatusMovedPermanently, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
		}),
	}

	checker := NewChecker(client, CheckerOptions{Concurrency: 2}, nil, quietLogger())
	urls := []string{
		"https://example.com/ok",
		"https://example.com/missing",
		"https://example.com/down",
		"https://example.com/moved",
		"https://example.com/missing-too",
		"::bad::",
	}

	broken := checker.Broken(context.Background(), urls)
	assert.Equal(t, []string{
		"https://example.com/missing",
		"https://example.com/down",
		"https://example.com/missing-too",
		"::bad::",
	}, broken)
}

func TestCheckerAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewChecker(nil, CheckerOptions{Timeout: time.Second}, nil, quietLogger())
	broken := checker.Broken(context.Background(), []string{server.URL + "/", server.URL + "/gone"})
	assert.Equal(t, []string{server.URL + "/gone"}, broken)

	assert.Empty(t, checker.Broken(context.Background(), nil))
}

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (r *countingRecorder) RecordLink(hit bool) {
	if hit {
		r.hits.Add(1)
		return
	}
	r.misses.Add(1)
}

func TestCheckerCache(t *testing.T) {
	var requests atomic.Int32
	client := &http.Client{
		Transport: mockTransport(func(req *http.Request) (*http.Response, error) {
			requests.Add(1)
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
		}),
	}
	recorder := &countingRecorder{}
	checker := NewChecker(client, CheckerOptions{CacheTTL: time.Minute}, recorder, quietLogger())

	ctx := context.Background()
	assert.True(t, checker.IsAccessible(ctx, "https://example.com/a"))
	assert.True(t, checker.IsAccessible(ctx, "https://example.com/a"))

	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(1), recorder.hits.Load())
	assert.Equal(t, int32(1), recorder.misses.Load())
	assert.Equal(t, 0, checker.PurgeExpired())
}
