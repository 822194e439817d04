// backend/src/services/dividend_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
	"github.com/username/divitrack/backend/src/processors"
	"github.com/username/divitrack/backend/src/storage"
)

type dividendServiceImpl struct {
	scrapeService ScrapeService
	store         *storage.HistoryStore
	merger        processors.MergeProcessor
	historyCache  *cache.Cache
	cacheTTL      time.Duration
	outputDir     string

	// Per-ticker locks serialize concurrent read-merge-write cycles for
	// the same symbol. Different tickers proceed independently.
	mu          sync.Mutex
	tickerLocks map[string]*sync.Mutex
}

func NewDividendService(
	scrapeService ScrapeService,
	store *storage.HistoryStore,
	merger processors.MergeProcessor,
	historyCache *cache.Cache,
	cacheTTL time.Duration,
	outputDir string,
) DividendService {
	return &dividendServiceImpl{
		scrapeService: scrapeService,
		store:         store,
		merger:        merger,
		historyCache:  historyCache,
		cacheTTL:      cacheTTL,
		outputDir:     outputDir,
		tickerLocks:   make(map[string]*sync.Mutex),
	}
}

func (s *dividendServiceImpl) GetDividendHistory(ctx context.Context, ticker string) ([]models.DividendRecord, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required: %w", ErrInvalidInput)
	}
	return s.refreshTicker(ctx, ticker, s.outputDir)
}

// refreshTicker runs the cache-check → harvest → merge → persist → cache
// pipeline for one ticker.
func (s *dividendServiceImpl) refreshTicker(ctx context.Context, ticker, outputDir string) ([]models.DividendRecord, error) {
	key := strings.ToUpper(ticker)

	if cached, found := s.historyCache.Get(key); found {
		if history, ok := cached.([]models.DividendRecord); ok {
			logger.L.Debug("History cache hit", "ticker", key)
			return history, nil
		}
	}

	lock := s.tickerLock(key)
	lock.Lock()
	defer lock.Unlock()

	// A concurrent request may have refreshed this ticker while we waited
	// for the lock.
	if cached, found := s.historyCache.Get(key); found {
		if history, ok := cached.([]models.DividendRecord); ok {
			return history, nil
		}
	}

	harvested, err := s.scrapeService.FetchDividendHistory(ctx, ticker)
	if err != nil {
		return nil, err
	}

	existing := s.store.Load(outputDir, ticker)
	merged := s.merger.Merge(existing, harvested)

	// A transient disk failure degrades to "fetched but not saved"; the
	// in-memory result is still returned to the caller.
	if err := s.store.Save(outputDir, ticker, merged); err != nil {
		logger.L.Error("Failed to persist merged history", "ticker", key, "error", err)
	}

	if s.cacheTTL > 0 {
		s.historyCache.Set(key, merged, s.cacheTTL)
	}

	logger.L.Info("Dividend history refreshed", "ticker", key,
		"harvested", len(harvested), "existing", len(existing), "merged", len(merged))
	return merged, nil
}

func (s *dividendServiceImpl) tickerLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.tickerLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.tickerLocks[key] = lock
	}
	return lock
}

// ProcessManifest reads a ticker manifest (header row plus one ticker per
// data row, ticker in column 1) and runs the pipeline for each ticker in
// order, collecting per-ticker outcomes.
func (s *dividendServiceImpl) ProcessManifest(ctx context.Context, manifestPath, outputDir string) ([]models.BatchOutcome, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %v: %w", manifestPath, err, ErrInvalidInput)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("manifest %s has no data rows: %w", manifestPath, ErrInvalidInput)
	}

	outcomes := make([]models.BatchOutcome, 0, len(lines)-1)
	for _, line := range lines[1:] {
		ticker := strings.TrimSpace(strings.Split(line, ",")[0])
		ticker = strings.Trim(ticker, `"`)
		if ticker == "" {
			continue
		}

		if _, err := s.refreshTicker(ctx, ticker, outputDir); err != nil {
			logger.L.Warn("Batch ticker failed", "ticker", ticker, "error", err)
			outcomes = append(outcomes, models.BatchOutcome{
				Ticker:  strings.ToUpper(ticker),
				Success: false,
				Error:   err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, models.BatchOutcome{
			Ticker:  strings.ToUpper(ticker),
			Success: true,
		})
	}

	logger.L.Info("Manifest processed", "manifest", manifestPath, "tickers", len(outcomes))
	return outcomes, nil
}
