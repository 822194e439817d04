package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port     string
	LogLevel string

	// Data locations
	DataDir       string // per-ticker dividend history CSVs are written here
	ManifestDir   string // batch manifests live here, one CSV per manifest ID
	CSVExportPath string // file served by GET /api/csv

	// Upstream endpoints
	StockAnalysisBaseURL string
	CalendarAPIBaseURL   string
	CalendarAPIKey       string

	// Cache and network tuning
	HistoryCacheTTL  time.Duration
	CalendarCacheTTL time.Duration
	ScrapeTimeout    time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		// Core
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Data
		DataDir:       getEnv("DATA_DIR", "data/dividends"),
		ManifestDir:   getEnv("MANIFEST_DIR", "data/manifests"),
		CSVExportPath: getEnv("CSV_EXPORT_PATH", "data/export.csv"),

		// Upstreams
		StockAnalysisBaseURL: getEnv("STOCKANALYSIS_BASE_URL", "https://stockanalysis.com"),
		CalendarAPIBaseURL:   getEnv("CALENDAR_API_BASE_URL", "https://api.polygon.io"),
		CalendarAPIKey:       getEnv("CALENDAR_API_KEY", ""),

		// Caches & network
		HistoryCacheTTL:  getEnvAsDuration("HISTORY_CACHE_TTL", 1*time.Hour),
		CalendarCacheTTL: getEnvAsDuration("CALENDAR_CACHE_TTL", 10*time.Minute),
		ScrapeTimeout:    getEnvAsDuration("SCRAPE_TIMEOUT", 15*time.Second),
	}

	if Cfg.CalendarAPIKey == "" {
		log.Println("WARNING: CALENDAR_API_KEY is not set. The /api/dividends/{ticker} passthrough will fail against authenticated upstreams.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DataDir=%s, ManifestDir=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DataDir, Cfg.ManifestDir)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
