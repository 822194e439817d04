// backend/src/services/calendar_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
)

// --- API Response Structs ---

type calendarAPIResponse struct {
	Results []models.CalendarDividend `json:"results"`
	Status  string                    `json:"status"`
}

// --- Service Implementation ---

type calendarServiceImpl struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	calendarCache *cache.Cache
	cacheTTL      time.Duration
}

func NewCalendarService(baseURL, apiKey string, calendarCache *cache.Cache, cacheTTL time.Duration) CalendarService {
	return &calendarServiceImpl{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		calendarCache: calendarCache,
		cacheTTL:      cacheTTL,
	}
}

// GetDividends proxies the calendar API for a ticker and optional date
// range. Results are cached per (ticker, from, to) combination.
func (s *calendarServiceImpl) GetDividends(ctx context.Context, ticker, from, to string) ([]models.CalendarDividend, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required: %w", ErrInvalidInput)
	}

	key := fmt.Sprintf("%s|%s|%s", strings.ToUpper(ticker), from, to)
	if cached, found := s.calendarCache.Get(key); found {
		if dividends, ok := cached.([]models.CalendarDividend); ok {
			logger.L.Debug("Calendar cache hit", "key", key)
			return dividends, nil
		}
	}

	params := url.Values{}
	params.Set("ticker", strings.ToUpper(ticker))
	if from != "" {
		params.Set("ex_dividend_date.gte", from)
	}
	if to != "" {
		params.Set("ex_dividend_date.lte", to)
	}
	if s.apiKey != "" {
		params.Set("apiKey", s.apiKey)
	}
	requestURL := fmt.Sprintf("%s/v3/reference/dividends?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", ErrUpstream)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling calendar API: %v: %w", err, ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no calendar data for ticker %s: %w", ticker, ErrTickerNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar API returned status %d: %w", resp.StatusCode, ErrUpstream)
	}

	var payload calendarAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding calendar response: %v: %w", err, ErrUpstream)
	}

	dividends := payload.Results
	if dividends == nil {
		dividends = []models.CalendarDividend{}
	}
	if s.cacheTTL > 0 {
		s.calendarCache.Set(key, dividends, s.cacheTTL)
	}
	return dividends, nil
}
