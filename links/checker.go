package links

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Recorder receives link cache hit/miss events
type Recorder interface {
	RecordLink(hit bool)
}

// CheckerOptions configures a Checker
type CheckerOptions struct {
	Timeout     time.Duration
	Concurrency int
	CacheTTL    time.Duration
	UserAgent   string
}

// Link cache entry
type linkCacheEntry struct {
	accessible bool
	timestamp  time.Time
}

// Checker reports which links fail a HEAD liveness check.
type Checker struct {
	client      *http.Client
	concurrency int
	userAgent   string
	cacheTTL    time.Duration

	mu    sync.RWMutex
	cache map[string]linkCacheEntry

	recorder Recorder
	logger   logrus.FieldLogger
}

// NewChecker creates a new Checker. A nil client gets a default one with the
// configured timeout.
func NewChecker(client *http.Client, opts CheckerOptions, recorder Recorder, logger logrus.FieldLogger) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "SEODashboard/1.0"
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Checker{
		client:      client,
		concurrency: opts.Concurrency,
		userAgent:   opts.UserAgent,
		cacheTTL:    opts.CacheTTL,
		cache:       make(map[string]linkCacheEntry),
		recorder:    recorder,
		logger:      logger,
	}
}

// Broken checks every URL independently and returns the ones that failed, in
// input order. A failed check is never retried.
func (c *Checker) Broken(ctx context.Context, urls []string) []string {
	results := make([]bool, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = !c.IsAccessible(gctx, u)
			return nil
		})
	}
	// Checks never return errors, a failing link is only a result
	_ = g.Wait()

	broken := []string{}
	for i, u := range urls {
		if results[i] {
			broken = append(broken, u)
		}
	}
	return broken
}

// IsAccessible issues a HEAD request for url. Any 2xx or 3xx answer is live,
// other statuses and transport failures are broken.
func (c *Checker) IsAccessible(ctx context.Context, url string) bool {
	if accessible, ok := c.cached(url); ok {
		return accessible
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return c.store(url, false)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"url": url}).WithError(err).Debug("Link check failed")
		return c.store(url, false)
	}
	defer resp.Body.Close()

	accessible := resp.StatusCode >= 200 && resp.StatusCode < 400
	return c.store(url, accessible)
}

func (c *Checker) cached(url string) (bool, bool) {
	if c.cacheTTL <= 0 {
		return false, false
	}
	c.mu.RLock()
	entry, found := c.cache[url]
	c.mu.RUnlock()

	hit := found && time.Since(entry.timestamp) < c.cacheTTL
	if c.recorder != nil {
		c.recorder.RecordLink(hit)
	}
	return entry.accessible, hit
}

func (c *Checker) store(url string, accessible bool) bool {
	if c.cacheTTL <= 0 {
		return accessible
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[url] = linkCacheEntry{accessible: accessible, timestamp: time.Now()}
	return accessible
}

// PurgeExpired drops link cache entries older than the TTL
func (c *Checker) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.cache {
		if time.Since(entry.timestamp) >= c.cacheTTL {
			delete(c.cache, key)
			removed++
		}
	}
	return removed
}
