package stats

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir, quietLogger())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("IncrementStats", func(t *testing.T) {
		storage.IncrementStats(1, 2, 3, 4)
		stats := storage.GetCurrentStats()

		if stats.ScrapeCacheHits != 1 {
			t.Errorf("Expected 1 scrape hit, got %d", stats.ScrapeCacheHits)
		}
		if stats.ScrapeCacheMisses != 2 {
			t.Errorf("Expected 2 scrape misses, got %d", stats.ScrapeCacheMisses)
		}
		if stats.LinkCacheHits != 3 {
			t.Errorf("Expected 3 link hits, got %d", stats.LinkCacheHits)
		}
		if stats.LinkCacheMisses != 4 {
			t.Errorf("Expected 4 link misses, got %d", stats.LinkCacheMisses)
		}
	})

	t.Run("Recorders", func(t *testing.T) {
		before := storage.GetCurrentStats()
		storage.RecordScrape(true)
		storage.RecordLink(false)
		after := storage.GetCurrentStats()

		if after.ScrapeCacheHits != before.ScrapeCacheHits+1 {
			t.Errorf("RecordScrape(true) did not count a hit")
		}
		if after.LinkCacheMisses != before.LinkCacheMisses+1 {
			t.Errorf("RecordLink(false) did not count a miss")
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		oldMonth := time.Now().AddDate(0, -3, 0).Format("2006-01")
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{ScrapeCacheHits: 100}
		storage.mutex.Unlock()

		storage.Cleanup(2)

		if _, exists := storage.GetMonthlyStats(oldMonth); exists {
			t.Error("Old stats should have been cleaned up")
		}
		if months := storage.GetAllMonths(); len(months) != 1 || months[0] != currentMonth() {
			t.Errorf("Expected only the current month, got %v", months)
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		before := storage.GetCurrentStats()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					storage.IncrementStats(1, 0, 1, 0)
					storage.GetCurrentStats()
				}
			}()
		}
		wg.Wait()

		after := storage.GetCurrentStats()
		if got := after.ScrapeCacheHits - before.ScrapeCacheHits; got != 1000 {
			t.Errorf("Expected 1000 new scrape hits, got %d", got)
		}
		if got := after.LinkCacheHits - before.LinkCacheHits; got != 1000 {
			t.Errorf("Expected 1000 new link hits, got %d", got)
		}
	})

	t.Run("PersistenceOnShutdown", func(t *testing.T) {
		want := storage.GetCurrentStats()
		if err := storage.Shutdown(); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tempDir, "cache_stats.json")); err != nil {
			t.Fatalf("Stats file missing after shutdown: %v", err)
		}

		reloaded, err := NewStorage(tempDir, quietLogger())
		if err != nil {
			t.Fatalf("Failed to create second storage: %v", err)
		}
		defer reloaded.Shutdown()

		got := reloaded.GetCurrentStats()
		if got.ScrapeCacheHits != want.ScrapeCacheHits || got.LinkCacheHits != want.LinkCacheHits {
			t.Errorf("Reloaded stats %+v do not match %+v", got, want)
		}
	})
}
