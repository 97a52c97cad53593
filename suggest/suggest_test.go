package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/dashboard/scraper"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "Title: Old title")
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestLLMGeneratorSuggest(t *testing.T) {
	answer := "```json\n" + `{
		"title": " Better title for widgets ",
		"description": "A better description",
		"h1": "Better H1",
		"h2s": ["First", "Second"],
		"title_context": "shorter and keyword first",
		"h2_context": "clearer sections"
	}` + "\n```"
	server := chatServer(t, http.StatusOK, answer)
	defer server.Close()

	g := NewLLMGenerator(LLMOptions{BaseURL: server.URL + "/v1/", APIKey: "test-key", Model: "test-model"})
	out, err := g.Suggest(context.Background(), Request{
		URL:   "https://acme.test",
		Title: "Old title",
		H2s:   []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Better title for widgets", out.Title)
	assert.Equal(t, "Better H1", out.H1)
	assert.Equal(t, []string{"First", "Second"}, out.H2s)
	assert.NotNil(t, out.H3s)
	assert.Empty(t, out.H4s)
	assert.Equal(t, "shorter and keyword first", out.TitleContext)
	assert.Equal(t, "clearer sections", out.H2Context)
}

func TestLLMGeneratorFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"upstream error", http.StatusInternalServerError, ""},
		{"not json", http.StatusOK, "Sure! Here are some ideas."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, tt.status, tt.content)
			defer server.Close()

			g := NewLLMGenerator(LLMOptions{BaseURL: server.URL + "/v1", APIKey: "test-key", Model: "test-model"})
			_, err := g.Suggest(context.Background(), Request{Title: "Old title"})
			assert.ErrorIs(t, err, ErrProvider)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}

func TestHeuristicGenerator(t *testing.T) {
	g := NewHeuristicGenerator()

	t.Run("short title gets site name", func(t *testing.T) {
		out, err := g.Suggest(context.Background(), Request{URL: "https://www.acme.com/", Title: "Widgets"})
		require.NoError(t, err)
		assert.Equal(t, "Widgets | Acme", out.Title)
		assert.Contains(t, out.TitleContext, "too short")
		assert.Equal(t, "Widgets", out.H1)
	})

	t.Run("long title is cut on a word boundary", func(t *testing.T) {
		long := strings.Repeat("widget ", 15)
		out, err := g.Suggest(context.Background(), Request{URL: "https://acme.com", Title: long})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out.Title), titleMax)
		assert.False(t, strings.HasSuffix(out.Title, " "))
		assert.Contains(t, out.TitleContext, "too long")
	})

	t.Run("description filled from text", func(t *testing.T) {
		text := strings.Repeat("quality widgets ", 20)
		out, err := g.Suggest(context.Background(), Request{URL: "https://acme.com", Text: text})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(out.Description), descriptionMin)
		assert.LessOrEqual(t, len(out.Description), descriptionMax)
		assert.Contains(t, out.DescriptionContext, "missing")
	})

	t.Run("headings stay aligned", func(t *testing.T) {
		out, err := g.Suggest(context.Background(), Request{H2s: []string{" One  ", "one"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"One", "one"}, out.H2s)
		assert.Contains(t, out.H2Context, "Duplicate")
		assert.Contains(t, out.H3Context, "No H3")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Suggest(ctx, Request{})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

type stubChecker struct {
	got []string
}

func (s *stubChecker) Broken(_ context.Context, urls []string) []string {
	s.got = urls
	out := []string{}
	for _, u := range urls {
		if strings.Contains(u, "dead") {
			out = append(out, u)
		}
	}
	return out
}

func TestEnrich(t *testing.T) {
	page := &scraper.PageMetadata{
		URL:            "https://acme.test/",
		Text:           "one two three four five",
		TextFragments:  []string{"The cat sat.", "It was happy."},
		Links:          []string{"https://acme.test/a", "https://acme.test/dead", "https://other.test/b", "::bad"},
		Images:         map[string]string{"https://acme.test/logo.png": "Logo"},
		LoadTime:       1234 * time.Millisecond,
		MobileFriendly: true,
		PageSize:       2048,
	}
	checker := &stubChecker{}
	m := NewEnricher(checker, nil).Enrich(context.Background(), page)

	assert.Equal(t, []string{"https://acme.test/a", "https://acme.test/dead"}, m.InternalLinks)
	assert.Equal(t, []string{"https://other.test/b"}, m.ExternalLinks)
	assert.Equal(t, []string{"https://acme.test/dead"}, m.BrokenLinks)
	assert.Len(t, checker.got, 3)
	assert.Equal(t, 5, m.ContentLength)
	assert.Greater(t, m.Readability, 0.0)
	assert.Equal(t, 1.23, m.PageSpeed)
	assert.False(t, m.PageSpeedSimulated)
	assert.True(t, m.MobileFriendly)
	assert.Equal(t, "Logo", m.ImageAlts["https://acme.test/logo.png"])
}

func TestEnrichDegradesOnBadBase(t *testing.T) {
	page := &scraper.PageMetadata{URL: "not a url", Links: []string{"https://acme.test/a"}}
	m := NewEnricher(nil, nil).Enrich(context.Background(), page)
	assert.Empty(t, m.InternalLinks)
	assert.Empty(t, m.ExternalLinks)
	assert.NotNil(t, m.BrokenLinks)
}

func TestRecommendationsAndScore(t *testing.T) {
	weak := Signals{
		Images:   map[string]string{"a.png": ""},
		LoadTime: 4 * time.Second,
		PageSize: 6 * 1024 * 1024,
	}
	recs := Recommendations(weak)
	assert.Contains(t, recs, "Add a title tag to your page")
	assert.Contains(t, recs, "Add a meta description")
	assert.Contains(t, recs, "Add alt text to all images")
	assert.Equal(t, "critical", PageSizeSeverity(weak.PageSize))
	assert.Equal(t, "critical", LoadTimeSeverity(weak.LoadTime))

	strong := Signals{
		Title:          strings.Repeat("t", 45),
		Description:    strings.Repeat("d", 140),
		H1:             "Heading",
		ContentLength:  800,
		Images:         map[string]string{"a.png": "alt"},
		LoadTime:       300 * time.Millisecond,
		PageSize:       100 * 1024,
		MobileFriendly: true,
		InternalLinks:  10,
		ExternalLinks:  4,
	}
	assert.Empty(t, Recommendations(strong))
	assert.InDelta(t, 100.0, Score(strong), 0.001)
	assert.Less(t, Score(weak), Score(strong))
}
