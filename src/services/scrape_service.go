// backend/src/services/scrape_service.go
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
	"github.com/username/divitrack/backend/src/utils"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Fallback extraction patterns: cell 0 must look like "Oct 31, 2025" and
// cell 1 like a currency amount.
var (
	fallbackDateRe   = regexp.MustCompile(`^[A-Z][a-z]{2,8} \d{1,2}, \d{4}$`)
	fallbackAmountRe = regexp.MustCompile(`^[^0-9]{0,3}\d[\d,]*(\.\d+)?$`)
)

// --- Service Implementation ---

type scrapeServiceImpl struct {
	httpClient *http.Client
	baseURL    string
}

func NewScrapeService(baseURL string, timeout time.Duration) ScrapeService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &scrapeServiceImpl{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchDividendHistory downloads the dividend page for a ticker and
// extracts its rows. The primary strategy reads the table-wrapper
// container; if that yields nothing, a pattern-based scan of all table
// bodies is tried before giving up.
func (s *scrapeServiceImpl) FetchDividendHistory(ctx context.Context, ticker string) ([]models.DividendRecord, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required: %w", ErrInvalidInput)
	}

	pageURL := fmt.Sprintf("%s/stocks/%s/dividend/", s.baseURL, strings.ToLower(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", pageURL, ErrUpstream)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %v: %w", pageURL, err, ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no dividend page for ticker %s: %w", ticker, ErrTickerNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d: %w", pageURL, resp.StatusCode, ErrUpstream)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing document for %s: %v: %w", ticker, err, ErrExtractionFailed)
	}

	records := extractFromWrapper(doc)
	if len(records) == 0 {
		logger.L.Debug("Primary extraction yielded no rows, trying fallback", "ticker", ticker)
		records = extractByPattern(doc)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrExtractionFailed)
	}

	logger.L.Info("Extracted dividend records", "ticker", ticker, "count", len(records))
	return records, nil
}

// extractFromWrapper reads body rows of tables inside the table-wrapper
// container. Rows need at least four cells; cells 0-3 are ex-date,
// amount, record date and pay date. Rows missing an ex-date or an amount
// are dropped.
func extractFromWrapper(doc *goquery.Document) []models.DividendRecord {
	var records []models.DividendRecord
	doc.Find("div.table-wrapper table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		exDate := strings.TrimSpace(cells.Eq(0).Text())
		amount := strings.TrimSpace(cells.Eq(1).Text())
		if exDate == "" || amount == "" {
			return
		}
		records = append(records, newRecord(exDate, amount,
			strings.TrimSpace(cells.Eq(2).Text()),
			strings.TrimSpace(cells.Eq(3).Text())))
	})
	return records
}

// extractByPattern scans every table body row regardless of container and
// keeps rows whose first two cells match the date and amount shapes.
func extractByPattern(doc *goquery.Document) []models.DividendRecord {
	var records []models.DividendRecord
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		exDate := strings.TrimSpace(cells.Eq(0).Text())
		amount := strings.TrimSpace(cells.Eq(1).Text())
		if !fallbackDateRe.MatchString(exDate) || !fallbackAmountRe.MatchString(amount) {
			return
		}
		recordDate := ""
		payDate := ""
		if cells.Length() > 2 {
			recordDate = strings.TrimSpace(cells.Eq(2).Text())
		}
		if cells.Length() > 3 {
			payDate = strings.TrimSpace(cells.Eq(3).Text())
		}
		records = append(records, newRecord(exDate, amount, recordDate, payDate))
	})
	return records
}

// newRecord normalizes the three date fields; the amount is preserved
// verbatim.
func newRecord(exDate, amount, recordDate, payDate string) models.DividendRecord {
	normalizedEx, _ := utils.NormalizeDate(exDate)
	normalizedRecord, _ := utils.NormalizeDate(recordDate)
	normalizedPay, _ := utils.NormalizeDate(payDate)
	return models.DividendRecord{
		ExDividendDate: normalizedEx,
		CashAmount:     amount,
		RecordDate:     normalizedRecord,
		PayDate:        normalizedPay,
	}
}
