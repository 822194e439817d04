// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"

	"github.com/username/divitrack/backend/src/models"
)

// Define common service errors. This is a closed taxonomy: every failure
// leaving the services layer wraps exactly one of these.
var (
	// ErrInvalidInput covers a missing/empty ticker or a malformed manifest.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTickerNotFound means the upstream confirms the ticker does not exist.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrUpstream covers network, timeout and unexpected upstream failures.
	ErrUpstream = errors.New("upstream request failed")
	// ErrExtractionFailed means the document was fetched but no parseable
	// rows were found by either extraction strategy.
	ErrExtractionFailed = errors.New("no dividend records extracted")
)

// ScrapeService fetches and extracts the raw dividend history for one
// ticker from the source document.
type ScrapeService interface {
	FetchDividendHistory(ctx context.Context, ticker string) ([]models.DividendRecord, error)
}

// DividendService drives the harvest → merge → persist → cache pipeline.
type DividendService interface {
	// GetDividendHistory runs the single-ticker pipeline and returns the
	// merged history, newest first.
	GetDividendHistory(ctx context.Context, ticker string) ([]models.DividendRecord, error)
	// ProcessManifest runs the pipeline for every ticker listed in the
	// manifest file, in manifest order. One ticker's failure never aborts
	// the batch; it is recorded in that ticker's outcome.
	ProcessManifest(ctx context.Context, manifestPath, outputDir string) ([]models.BatchOutcome, error)
}

// CalendarService proxies the external dividend calendar API.
type CalendarService interface {
	GetDividends(ctx context.Context, ticker, from, to string) ([]models.CalendarDividend, error)
}
