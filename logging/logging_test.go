package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/dashboard/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Structured: true}, &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("url", "https://acme.test").Info("scraped")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "https://acme.test", entry["url"])
	assert.Equal(t, "scraped", entry["msg"])

	fallback := newLogger(config.LoggingConfig{Level: "loud"}, &buf)
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://acme.test/", "https://acme.test"},
		{"https://acme.test/shop/?q=1", "https://acme.test/shop"},
		{"http://localhost:8082/x", ""},
		{"https://acme.test/api/analyze", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanURL(tt.in), tt.in)
	}
}

func TestStatistics(t *testing.T) {
	dir := t.TempDir()

	stats, err := NewStatistics(dir, true)
	require.NoError(t, err)

	stats.TrackVisitor("10.0.0.1")
	stats.TrackVisitor("10.0.0.2")
	stats.TrackVisitor("10.0.0.1")
	stats.TrackAnalysis("https://acme.test/", "Acme", 100, false)
	stats.TrackAnalysis("https://acme.test", "Acme", 300, true)
	stats.TrackAnalysis("https://globex.test/", "", 200, false)

	assert.Equal(t, 2, stats.GetUniqueVisitorsCount())
	assert.Equal(t, 3, stats.TotalRequests())
	assert.InDelta(t, 33.33, stats.GetErrorRate(), 0.01)
	assert.Equal(t, []Counted{{"https://acme.test", 2}, {"https://globex.test", 1}}, stats.GetPopularURLs(5))
	assert.Equal(t, []Counted{{"Acme", 2}}, stats.GetPopularCompanies(5))

	summary := stats.GetStatistics()
	assert.Equal(t, 200.0, summary["averageLoadTime"])
	assert.Contains(t, summary, "popularUrls")

	require.NoError(t, stats.Save())

	reloaded, err := NewStatistics(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.TotalRequests())
	assert.Equal(t, 2, reloaded.GetPopularURLs(5)[0].Count)

	limited := reloaded.GetStatistics()
	assert.NotContains(t, limited, "popularUrls")
	assert.NotContains(t, limited, "popularCompanies")

	reloaded.TrackAnalysis("https://acme.test/", "", 400, false)
	assert.Equal(t, 250.0, reloaded.GetStatistics()["averageLoadTime"])
}
