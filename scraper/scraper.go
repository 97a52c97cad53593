package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/seo-optimizer/dashboard/cache"
	"github.com/seo-optimizer/dashboard/textmetrics"
)

var (
	// ErrFetch is returned when the page cannot be retrieved
	ErrFetch = errors.New("page could not be fetched")
	// ErrNoMetadata is returned when a page has neither title nor description
	ErrNoMetadata = errors.New("page has no title or description")
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Renderer produces the final HTML of a page, typically through a headless browser
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Recorder receives scrape cache hit/miss events
type Recorder interface {
	RecordScrape(hit bool)
}

// Options configures a Scraper
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	Client   *http.Client
	Renderer Renderer
	Cache    cache.Cache
	Recorder Recorder
	Logger   logrus.FieldLogger
}

// Scraper fetches pages and extracts their metadata
type Scraper struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	renderer  Renderer
	cache     cache.Cache
	recorder  Recorder
	logger    logrus.FieldLogger
}

// New creates a Scraper
func New(opts Options) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = "SEODashboard/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 6 * 1024 * 1024
	}
	client := opts.Client
	if client == nil {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
		client = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scraper{
		client:    client,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		renderer:  opts.Renderer,
		cache:     opts.Cache,
		recorder:  opts.Recorder,
		logger:    logger.WithField("component", "scraper"),
	}
}

// Scrape returns the metadata of the page at url, served from cache when
// a fresh copy exists
func (s *Scraper) Scrape(ctx context.Context, url string) (*PageMetadata, error) {
	if meta, ok := s.fromCache(ctx, url); ok {
		return meta, nil
	}

	meta, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if meta.Title == "" && meta.Description == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoMetadata, url)
	}

	s.toCache(ctx, url, meta)
	return meta, nil
}

func (s *Scraper) fromCache(ctx context.Context, url string) (*PageMetadata, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, cache.Key(url))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithError(err).WithField("url", url).Warn("scrape cache lookup failed")
		}
		s.record(false)
		return nil, false
	}

	var meta PageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.WithError(err).WithField("url", url).Warn("discarding undecodable cache entry")
		_ = s.cache.Delete(ctx, cache.Key(url))
		s.record(false)
		return nil, false
	}
	s.record(true)
	return &meta, true
}

func (s *Scraper) toCache(ctx context.Context, url string, meta *PageMetadata) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.Key(url), data); err != nil {
		s.logger.WithError(err).WithField("url", url).Warn("scrape cache store failed")
	}
}

func (s *Scraper) record(hit bool) {
	if s.recorder != nil {
		s.recorder.RecordScrape(hit)
	}
}

func (s *Scraper) fetch(ctx context.Context, url string) (*PageMetadata, error) {
	startTime := time.Now()

	var (
		body     []byte
		rendered bool
	)
	if s.renderer != nil {
		html, err := s.renderer.Render(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
		}
		body = []byte(html)
		rendered = true
	} else {
		raw, err := s.get(ctx, url)
		if err != nil {
			return nil, err
		}
		body = raw
	}

	// Load time covers the network round trip only
	loadTime := time.Since(startTime)

	meta, err := Extract(bytes.NewReader(body), url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse: %v", ErrFetch, url, err)
	}
	meta.Text = textmetrics.Normalize(string(body))
	meta.ContentHash = textmetrics.ContentHash(meta.Text)
	meta.PageSize = len(body)
	meta.LoadTime = loadTime
	meta.Rendered = rendered
	meta.FetchedAt = time.Now().UTC()

	s.logger.WithFields(logrus.Fields{
		"url":      url,
		"bytes":    meta.PageSize,
		"load_ms":  loadTime.Milliseconds(),
		"rendered": rendered,
	}).Debug("page scraped")
	return meta, nil
}

// get downloads the page and decodes it to UTF-8
func (s *Scraper) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, url, resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, s.maxBody)); err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrFetch, url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("%w: %s: unexpected content type %q", ErrFetch, url, contentType)
	}

	reader, err := charset.NewReader(bytes.NewReader(buf.Bytes()), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode charset: %v", ErrFetch, url, err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode charset: %v", ErrFetch, url, err)
	}
	return decoded, nil
}
