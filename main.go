package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/divitrack/backend/src/config"
	"github.com/username/divitrack/backend/src/handlers"
	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/processors"
	"github.com/username/divitrack/backend/src/services"
	"github.com/username/divitrack/backend/src/storage"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("DiviTrack backend server starting...")

	historyCache := cache.New(config.Cfg.HistoryCacheTTL, 10*time.Minute)
	calendarCache := cache.New(config.Cfg.CalendarCacheTTL, 5*time.Minute)

	historyStore := storage.NewHistoryStore()
	mergeProcessor := processors.NewMergeProcessor()
	scrapeService := services.NewScrapeService(config.Cfg.StockAnalysisBaseURL, config.Cfg.ScrapeTimeout)

	dividendService := services.NewDividendService(
		scrapeService,
		historyStore,
		mergeProcessor,
		historyCache,
		config.Cfg.HistoryCacheTTL,
		config.Cfg.DataDir,
	)
	calendarService := services.NewCalendarService(
		config.Cfg.CalendarAPIBaseURL,
		config.Cfg.CalendarAPIKey,
		calendarCache,
		config.Cfg.CalendarCacheTTL,
	)

	dividendHandler := handlers.NewDividendHandler(
		dividendService,
		calendarService,
		config.Cfg.ManifestDir,
		config.Cfg.DataDir,
		config.Cfg.CSVExportPath,
	)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "DiviTrack Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/dividends/batch/{manifestID}", dividendHandler.HandleBatchProcess)
		r.Get("/dividends/{ticker}/stockanalysis", dividendHandler.HandleGetStockAnalysisHistory)
		r.Get("/dividends/{ticker}", dividendHandler.HandleGetCalendarDividends)
		r.Get("/csv", dividendHandler.HandleServeCSV)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout: 15 * time.Second,
		// Batch runs scrape each manifest ticker sequentially.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
