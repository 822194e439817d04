package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/divitrack/backend/src/models"
)

func TestEncodeHistory(t *testing.T) {
	t.Run("Empty history is just the header with no trailing newline", func(t *testing.T) {
		out := EncodeHistory(nil)
		assert.Equal(t, "Ex-Dividend Date,Cash Amount,Record Date,Pay Date", out)
	})

	t.Run("Plain fields are emitted verbatim", func(t *testing.T) {
		out := EncodeHistory([]models.DividendRecord{
			{ExDividendDate: "2025-10-31", CashAmount: "$0.25", RecordDate: "2025-11-01", PayDate: "2025-11-15"},
		})
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "2025-10-31,$0.25,2025-11-01,2025-11-15", lines[1])
		assert.False(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("Fields with commas are quoted", func(t *testing.T) {
		out := EncodeHistory([]models.DividendRecord{
			{ExDividendDate: "2025-10-31", CashAmount: "1,234.56 USD", RecordDate: "", PayDate: ""},
		})
		assert.Contains(t, out, `"1,234.56 USD"`)
	})

	t.Run("Internal quotes are doubled", func(t *testing.T) {
		out := EncodeHistory([]models.DividendRecord{
			{ExDividendDate: "2025-10-31", CashAmount: `special "bonus"`, RecordDate: "", PayDate: ""},
		})
		assert.Contains(t, out, `"special ""bonus"""`)
	})
}

func TestDecodeHistory(t *testing.T) {
	t.Run("Header line is discarded", func(t *testing.T) {
		text := "Ex-Dividend Date,Cash Amount,Record Date,Pay Date\n2025-10-31,$0.25,2025-11-01,2025-11-15"
		records := DecodeHistory(text)
		require.Len(t, records, 1)
		assert.Equal(t, "2025-10-31", records[0].ExDividendDate)
		assert.Equal(t, "$0.25", records[0].CashAmount)
	})

	t.Run("Values are trimmed of surrounding whitespace", func(t *testing.T) {
		text := "h,h,h,h\n 2025-10-31 , $0.25 ,\t2025-11-01, 2025-11-15"
		records := DecodeHistory(text)
		require.Len(t, records, 1)
		assert.Equal(t, models.DividendRecord{
			ExDividendDate: "2025-10-31",
			CashAmount:     "$0.25",
			RecordDate:     "2025-11-01",
			PayDate:        "2025-11-15",
		}, records[0])
	})

	t.Run("Lines with fewer than four fields are skipped", func(t *testing.T) {
		text := "h,h,h,h\n2025-10-31,$0.25\n2025-09-30,$0.20,2025-10-01,2025-10-15"
		records := DecodeHistory(text)
		require.Len(t, records, 1)
		assert.Equal(t, "2025-09-30", records[0].ExDividendDate)
	})

	t.Run("Empty lines are ignored", func(t *testing.T) {
		text := "h,h,h,h\n\n2025-10-31,$0.25,,\n\n"
		records := DecodeHistory(text)
		require.Len(t, records, 1)
	})

	t.Run("Quoted commas do not split fields", func(t *testing.T) {
		text := "h,h,h,h\n2025-10-31,\"1,234.56 USD\",2025-11-01,2025-11-15"
		records := DecodeHistory(text)
		require.Len(t, records, 1)
		assert.Equal(t, "1,234.56 USD", records[0].CashAmount)
	})

	t.Run("Empty input yields empty history", func(t *testing.T) {
		assert.Empty(t, DecodeHistory(""))
		assert.Empty(t, DecodeHistory("Ex-Dividend Date,Cash Amount,Record Date,Pay Date"))
	})
}

func TestHistoryRoundTrip(t *testing.T) {
	original := []models.DividendRecord{
		{ExDividendDate: "2025-10-31", CashAmount: "$0.25", RecordDate: "2025-11-01", PayDate: "2025-11-15"},
		{ExDividendDate: "2025-07-31", CashAmount: "1,234.56 USD", RecordDate: "", PayDate: "2025-08-15"},
		{ExDividendDate: "2025-04-30", CashAmount: `special "one-off"`, RecordDate: "2025-05-01", PayDate: ""},
		{ExDividendDate: "2025-01-31", CashAmount: "split\nacross lines", RecordDate: "2025-02-01", PayDate: "2025-02-15"},
	}

	decoded := DecodeHistory(EncodeHistory(original))
	assert.Equal(t, original, decoded)
}
