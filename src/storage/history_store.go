package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/username/divitrack/backend/src/logger"
	"github.com/username/divitrack/backend/src/models"
)

// HistoryStore reads and writes per-ticker dividend history files. It is
// stateless between calls; all state lives on the filesystem at
// {dir}/{ticker_lowercased}_dividends.csv.
type HistoryStore struct{}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// HistoryFilePath returns the on-disk location of a ticker's history file.
func (s *HistoryStore) HistoryFilePath(dir, ticker string) string {
	filename := fmt.Sprintf("%s_dividends.csv", strings.ToLower(ticker))
	return filepath.Join(dir, filename)
}

// Load reads the persisted history for a ticker. A missing or unreadable
// file is the expected "no prior data" state and yields an empty history,
// not an error.
func (s *HistoryStore) Load(dir, ticker string) []models.DividendRecord {
	path := s.HistoryFilePath(dir, ticker)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.L.Warn("Could not read existing history file, treating as empty", "path", path, "error", err)
		}
		return []models.DividendRecord{}
	}
	return DecodeHistory(string(data))
}

// Save writes the full history for a ticker, creating the output
// directory if needed.
func (s *HistoryStore) Save(dir, ticker string, records []models.DividendRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path := s.HistoryFilePath(dir, ticker)
	if err := os.WriteFile(path, []byte(EncodeHistory(records)), 0o644); err != nil {
		return fmt.Errorf("writing history file %s: %w", path, err)
	}
	return nil
}
