// backend/src/handlers/dividend_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
	"github.com/username/divitrack/backend/src/services"
	"github.com/username/divitrack/backend/src/utils"
)

// Manifest identifiers accepted by the batch endpoint. Each maps to a
// manifest file named {id}.csv under the configured manifest directory.
var allowedManifests = map[string]bool{
	"sp500":     true,
	"nasdaq100": true,
	"dow30":     true,
}

type DividendHandler struct {
	dividendService services.DividendService
	calendarService services.CalendarService
	manifestDir     string
	outputDir       string
	csvExportPath   string
}

func NewDividendHandler(
	dividendService services.DividendService,
	calendarService services.CalendarService,
	manifestDir, outputDir, csvExportPath string,
) *DividendHandler {
	return &DividendHandler{
		dividendService: dividendService,
		calendarService: calendarService,
		manifestDir:     manifestDir,
		outputDir:       outputDir,
		csvExportPath:   csvExportPath,
	}
}

// HandleGetStockAnalysisHistory runs the single-ticker scrape pipeline
// and returns the merged history as a JSON array.
func (h *DividendHandler) HandleGetStockAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	if ticker == "" {
		utils.SendJSONError(w, "ticker is required", http.StatusBadRequest)
		return
	}

	ctxLogger := logger.FromContext(r.Context())
	ctxLogger.Info("Handling stockanalysis history request", "ticker", ticker)

	history, err := h.dividendService.GetDividendHistory(r.Context(), ticker)
	if err != nil {
		h.writeServiceError(w, r, err, ticker)
		return
	}
	if history == nil {
		history = []models.DividendRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// HandleBatchProcess runs the batch pipeline for one of the fixed ticker
// manifests and returns the per-ticker outcomes.
func (h *DividendHandler) HandleBatchProcess(w http.ResponseWriter, r *http.Request) {
	manifestID := chi.URLParam(r, "manifestID")
	if !allowedManifests[manifestID] {
		utils.SendJSONError(w, fmt.Sprintf("unknown manifest %q", manifestID), http.StatusBadRequest)
		return
	}

	ctxLogger := logger.FromContext(r.Context())
	ctxLogger.Info("Handling batch process request", "manifest", manifestID)

	manifestPath := filepath.Join(h.manifestDir, manifestID+".csv")
	outcomes, err := h.dividendService.ProcessManifest(r.Context(), manifestPath, h.outputDir)
	if err != nil {
		h.writeServiceError(w, r, err, manifestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcomes)
}

// HandleGetCalendarDividends proxies the external dividend calendar API,
// with optional from/to query parameters.
func (h *DividendHandler) HandleGetCalendarDividends(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	if ticker == "" {
		utils.SendJSONError(w, "ticker is required", http.StatusBadRequest)
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	dividends, err := h.calendarService.GetDividends(r.Context(), ticker, from, to)
	if err != nil {
		h.writeServiceError(w, r, err, ticker)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dividends)
}

// HandleServeCSV serves the configured export CSV as a static file.
func (h *DividendHandler) HandleServeCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, h.csvExportPath)
}

// writeServiceError maps the closed service error set onto HTTP statuses.
func (h *DividendHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, subject string) {
	ctxLogger := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		ctxLogger.Warn("Invalid request", "subject", subject, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrTickerNotFound):
		ctxLogger.Warn("Ticker not found upstream", "subject", subject)
		utils.SendJSONError(w, fmt.Sprintf("no dividend data found for %s", strings.ToUpper(subject)), http.StatusBadRequest)
	case errors.Is(err, services.ErrExtractionFailed):
		ctxLogger.Error("Extraction failed", "subject", subject, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		ctxLogger.Error("Upstream request failed", "subject", subject, "error", err)
		utils.SendJSONError(w, "failed to retrieve dividend data", http.StatusInternalServerError)
	}
}
