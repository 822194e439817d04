package processors

import (
	"sort"

	"github.com/username/divitrack/backend/src/models"
)

// mergeProcessorImpl implements the MergeProcessor interface.
type mergeProcessorImpl struct{}

// MergeProcessor reconciles freshly harvested dividend records with the
// previously persisted set.
type MergeProcessor interface {
	Merge(existing, harvested []models.DividendRecord) []models.DividendRecord
}

// NewMergeProcessor creates a new instance of MergeProcessor.
func NewMergeProcessor() MergeProcessor {
	return &mergeProcessorImpl{}
}

// Merge applies the append-only cutoff policy: existing persisted rows
// are trusted unconditionally, and only harvested rows strictly newer
// than the newest existing ex-dividend date are admitted. The result is
// sorted descending by ex-dividend date.
//
// Dates are compared lexicographically, which is correct only because the
// canonical form is fixed-width YYYY-MM-DD. A record whose date failed
// normalization (passthrough source text) sorts incorrectly and may be
// wrongly included or excluded by the cutoff. Known limitation, kept for
// compatibility with existing files.
func (p *mergeProcessorImpl) Merge(existing, harvested []models.DividendRecord) []models.DividendRecord {
	if len(existing) == 0 {
		result := make([]models.DividendRecord, len(harvested))
		copy(result, harvested)
		sortByExDateDesc(result)
		return result
	}

	// existing is already sorted descending, so its first row carries the
	// newest persisted ex-dividend date.
	cutoff := existing[0].ExDividendDate

	result := make([]models.DividendRecord, 0, len(existing)+len(harvested))
	for _, r := range harvested {
		if r.ExDividendDate > cutoff {
			result = append(result, r)
		}
	}
	result = append(result, existing...)
	sortByExDateDesc(result)
	return result
}

func sortByExDateDesc(records []models.DividendRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ExDividendDate > records[j].ExDividendDate
	})
}
