package models

// DividendRecord is one distribution event for one ticker as harvested
// from the source document. Date fields hold the canonical YYYY-MM-DD
// form when normalization succeeded, or the original source text when it
// did not. CashAmount is kept verbatim (currency symbol included) and is
// never parsed to a number.
type DividendRecord struct {
	ExDividendDate string `json:"exDividendDate"`
	CashAmount     string `json:"cashAmount"`
	RecordDate     string `json:"recordDate"`
	PayDate        string `json:"payDate"`
}

// BatchOutcome reports the result of processing a single ticker within a
// manifest batch. Outcomes are returned in manifest order.
type BatchOutcome struct {
	Ticker  string `json:"ticker"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CalendarDividend is one entry from the external dividend calendar API,
// passed through to the client unchanged.
type CalendarDividend struct {
	Ticker          string  `json:"ticker"`
	CashAmount      float64 `json:"cash_amount"`
	DeclarationDate string  `json:"declaration_date"`
	ExDividendDate  string  `json:"ex_dividend_date"`
	RecordDate      string  `json:"record_date"`
	PayDate         string  `json:"pay_date"`
	Frequency       int     `json:"frequency"`
}
