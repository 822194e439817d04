package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
	"github.com/username/divitrack/backend/src/processors"
	"github.com/username/divitrack/backend/src/storage"
)

func init() {
	logger.InitLogger("error")
}

// fakeScrapeService returns canned records per ticker and counts calls.
type fakeScrapeService struct {
	records map[string][]models.DividendRecord
	errs    map[string]error
	calls   map[string]int
}

func newFakeScrapeService() *fakeScrapeService {
	return &fakeScrapeService{
		records: make(map[string][]models.DividendRecord),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeScrapeService) FetchDividendHistory(_ context.Context, ticker string) ([]models.DividendRecord, error) {
	f.calls[ticker]++
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	if recs, ok := f.records[ticker]; ok {
		return recs, nil
	}
	return nil, fmt.Errorf("ticker %s: %w", ticker, ErrExtractionFailed)
}

func newTestService(t *testing.T, scrape ScrapeService, ttl time.Duration) (DividendService, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewDividendService(
		scrape,
		storage.NewHistoryStore(),
		processors.NewMergeProcessor(),
		cache.New(ttl, time.Minute),
		ttl,
		dir,
	)
	return svc, dir
}

func TestGetDividendHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("Pipeline persists the merged history and returns it sorted", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["KO"] = []models.DividendRecord{
			{ExDividendDate: "2025-06-30", CashAmount: "$0.48"},
			{ExDividendDate: "2025-09-30", CashAmount: "$0.49"},
		}
		svc, dir := newTestService(t, scrape, time.Hour)

		history, err := svc.GetDividendHistory(ctx, "KO")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "2025-09-30", history[0].ExDividendDate)

		store := storage.NewHistoryStore()
		assert.Equal(t, history, store.Load(dir, "KO"))
	})

	t.Run("Cache hit skips the scrape entirely", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["ko"] = []models.DividendRecord{{ExDividendDate: "2025-09-30", CashAmount: "$0.49"}}
		svc, _ := newTestService(t, scrape, time.Hour)

		first, err := svc.GetDividendHistory(ctx, "ko")
		require.NoError(t, err)
		second, err := svc.GetDividendHistory(ctx, "KO")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 0, scrape.calls["KO"])
		assert.Equal(t, 1, scrape.calls["ko"])
	})

	t.Run("Zero TTL means every request re-scrapes", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["KO"] = []models.DividendRecord{{ExDividendDate: "2025-09-30", CashAmount: "$0.49"}}
		svc, _ := newTestService(t, scrape, 0)

		_, err := svc.GetDividendHistory(ctx, "KO")
		require.NoError(t, err)
		_, err = svc.GetDividendHistory(ctx, "KO")
		require.NoError(t, err)

		assert.Equal(t, 2, scrape.calls["KO"])
	})

	t.Run("Merge keeps persisted rows and admits only newer harvested ones", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["KO"] = []models.DividendRecord{
			{ExDividendDate: "2025-11-01", CashAmount: "$0.50"},
			{ExDividendDate: "2025-10-01", CashAmount: "$0.49"},
			{ExDividendDate: "2025-09-01", CashAmount: "$0.48"},
		}
		svc, dir := newTestService(t, scrape, time.Hour)

		store := storage.NewHistoryStore()
		require.NoError(t, store.Save(dir, "KO", []models.DividendRecord{
			{ExDividendDate: "2025-10-01", CashAmount: "$0.49"},
		}))

		history, err := svc.GetDividendHistory(ctx, "KO")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "2025-11-01", history[0].ExDividendDate)
		assert.Equal(t, "2025-10-01", history[1].ExDividendDate)
	})

	t.Run("Empty ticker maps to ErrInvalidInput", func(t *testing.T) {
		svc, _ := newTestService(t, newFakeScrapeService(), time.Hour)
		_, err := svc.GetDividendHistory(ctx, "   ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Scrape errors propagate unchanged", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.errs["BAD"] = fmt.Errorf("ticker BAD: %w", ErrTickerNotFound)
		svc, _ := newTestService(t, scrape, time.Hour)

		_, err := svc.GetDividendHistory(ctx, "BAD")
		assert.ErrorIs(t, err, ErrTickerNotFound)
	})
}

// slowScrapeService simulates a slow upstream and counts scrapes safely
// across goroutines.
type slowScrapeService struct {
	calls atomic.Int32
	delay time.Duration
}

func (f *slowScrapeService) FetchDividendHistory(_ context.Context, _ string) ([]models.DividendRecord, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return []models.DividendRecord{{ExDividendDate: "2025-09-30", CashAmount: "$0.49"}}, nil
}

func TestGetDividendHistoryConcurrent(t *testing.T) {
	t.Run("Concurrent requests for casing variants of one ticker scrape once", func(t *testing.T) {
		scrape := &slowScrapeService{delay: 50 * time.Millisecond}
		svc, dir := newTestService(t, scrape, time.Hour)

		variants := []string{"ko", "KO", "Ko", "kO", "KO", "ko"}
		results := make([][]models.DividendRecord, len(variants))
		var wg sync.WaitGroup
		for i, ticker := range variants {
			wg.Add(1)
			go func(i int, ticker string) {
				defer wg.Done()
				history, err := svc.GetDividendHistory(context.Background(), ticker)
				assert.NoError(t, err)
				results[i] = history
			}(i, ticker)
		}
		wg.Wait()

		// The per-ticker lock serializes the variants onto one canonical
		// key; whoever wins fills the cache, everyone else hits it on the
		// re-check under the lock.
		assert.Equal(t, int32(1), scrape.calls.Load())
		for i := 1; i < len(results); i++ {
			assert.Equal(t, results[0], results[i])
		}

		// The single write left one coherent file behind.
		store := storage.NewHistoryStore()
		assert.Equal(t, results[0], store.Load(dir, "KO"))
	})
}

func writeManifest(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessManifest(t *testing.T) {
	ctx := context.Background()

	t.Run("One ticker failing does not abort the batch", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["KO"] = []models.DividendRecord{{ExDividendDate: "2025-09-30", CashAmount: "$0.49"}}
		scrape.errs["BAD"] = fmt.Errorf("ticker BAD: %w", ErrUpstream)
		scrape.records["PEP"] = []models.DividendRecord{{ExDividendDate: "2025-09-15", CashAmount: "$1.35"}}
		svc, outputDir := newTestService(t, scrape, time.Hour)

		manifest := writeManifest(t, "Symbol,Name", "KO,Coca-Cola", "BAD,Broken Inc", "PEP,PepsiCo")
		outcomes, err := svc.ProcessManifest(ctx, manifest, outputDir)
		require.NoError(t, err)
		require.Len(t, outcomes, 3)

		assert.Equal(t, models.BatchOutcome{Ticker: "KO", Success: true}, outcomes[0])
		assert.Equal(t, "BAD", outcomes[1].Ticker)
		assert.False(t, outcomes[1].Success)
		assert.NotEmpty(t, outcomes[1].Error)
		assert.Equal(t, models.BatchOutcome{Ticker: "PEP", Success: true}, outcomes[2])
	})

	t.Run("Successful tickers are persisted to the output directory", func(t *testing.T) {
		scrape := newFakeScrapeService()
		scrape.records["KO"] = []models.DividendRecord{{ExDividendDate: "2025-09-30", CashAmount: "$0.49"}}
		svc, outputDir := newTestService(t, scrape, time.Hour)

		manifest := writeManifest(t, "Symbol", "KO")
		_, err := svc.ProcessManifest(ctx, manifest, outputDir)
		require.NoError(t, err)

		_, statErr := os.Stat(filepath.Join(outputDir, "ko_dividends.csv"))
		assert.NoError(t, statErr)
	})

	t.Run("Manifest with only a header row maps to ErrInvalidInput", func(t *testing.T) {
		svc, outputDir := newTestService(t, newFakeScrapeService(), time.Hour)
		manifest := writeManifest(t, "Symbol,Name")

		_, err := svc.ProcessManifest(ctx, manifest, outputDir)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Unreadable manifest maps to ErrInvalidInput", func(t *testing.T) {
		svc, outputDir := newTestService(t, newFakeScrapeService(), time.Hour)

		_, err := svc.ProcessManifest(ctx, filepath.Join(t.TempDir(), "missing.csv"), outputDir)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
