package storage

import (
	"strings"

	"github.com/username/divitrack/backend/src/models"
)

// historyHeader is the fixed four-column header of every per-ticker
// history file. Existing files were written with exactly this line, so it
// is part of the on-disk compatibility contract.
const historyHeader = "Ex-Dividend Date,Cash Amount,Record Date,Pay Date"

// EncodeHistory renders an ordered record set to the delimited-text wire
// format: header line, one line per record in the given order, no
// trailing newline.
func EncodeHistory(records []models.DividendRecord) string {
	var b strings.Builder
	b.WriteString(historyHeader)
	for _, r := range records {
		b.WriteByte('\n')
		b.WriteString(encodeField(r.ExDividendDate))
		b.WriteByte(',')
		b.WriteString(encodeField(r.CashAmount))
		b.WriteByte(',')
		b.WriteString(encodeField(r.RecordDate))
		b.WriteByte(',')
		b.WriteString(encodeField(r.PayDate))
	}
	return b.String()
}

// encodeField quotes a field only when it contains a comma, a double
// quote, or a newline; internal quotes are doubled.
func encodeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// DecodeHistory parses the delimited-text format back into records. The
// first non-empty line (the header) is discarded; lines yielding fewer
// than four fields are skipped.
func DecodeHistory(text string) []models.DividendRecord {
	records := []models.DividendRecord{}
	lines := []string{}
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return records
	}
	for _, line := range lines[1:] {
		fields := splitLine(line)
		if len(fields) < 4 {
			continue
		}
		records = append(records, models.DividendRecord{
			ExDividendDate: fields[0],
			CashAmount:     fields[1],
			RecordDate:     fields[2],
			PayDate:        fields[3],
		})
	}
	return records
}

// splitLines breaks the raw text into logical lines. A newline inside a
// quoted field belongs to the field, not the line structure.
func splitLines(text string) []string {
	var lines []string
	var cur strings.Builder
	inQuotes := false
	for _, c := range text {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteRune(c)
		case c == '\n' && !inQuotes:
			lines = append(lines, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	lines = append(lines, cur.String())
	return lines
}

// splitLine tokenizes one line, honoring quoted segments. A comma only
// splits outside quotes; a doubled quote inside a quoted segment is a
// literal quote. Each value is trimmed of surrounding whitespace.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}
