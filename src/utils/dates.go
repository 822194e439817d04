package utils

import (
	"strings"
	"time"
)

// dateLayouts are the source-document date formats we know how to parse,
// tried in order.
var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// NormalizeDate canonicalizes a free-form date string (e.g. "Oct 31, 2025")
// into zero-padded YYYY-MM-DD. The boolean reports whether parsing
// succeeded. Empty or whitespace-only input, and input in no recognized
// format, is returned unchanged with false — normalization never fails,
// it degrades to passthrough.
func NormalizeDate(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return text, false
	}
	trimmed := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return text, false
}
