package analyzer

import "encoding/json"

// File is one uploaded statement, held as raw bytes so exports can re-send
// the exact same content the analysis saw.
type File struct {
	Name string
	Data []byte
}

// Record is one transaction as the analyzer service returned it. Dates are
// raw MM/DD strings; normalization happens in core.
type Record struct {
	Date          string      `json:"date"`
	PostDate      string      `json:"post_date,omitempty"`
	Merchant      string      `json:"merchant"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	SourceFile    string      `json:"source_file"`
	StatementYear int         `json:"statement_year,omitempty"`
}

// Flags carries the service's fraud heuristics.
type Flags struct {
	Suspicious []string `json:"suspicious"`
}

// Summary is the precomputed server-side aggregate block. These values are
// upstream's contract, passed through for display; the dashboard's own
// views are always recomputed from the transaction store instead.
type Summary struct {
	TotalSpent             float64            `json:"total_spent"`
	CategorySpend          map[string]float64 `json:"category_spend"`
	AvgMonthlySpend        float64            `json:"avg_monthly_spend"`
	DiscretionarySpent     float64            `json:"discretionary_spent"`
	CardSpend              map[string]float64 `json:"card_spend"`
	CategorySummaryPercent map[string]float64 `json:"category_summary_percent"`
	MonthlySpending        map[string]float64 `json:"monthly_spending"`
	GlobalRecommendations  []string           `json:"global_recommendations"`
	Flags                  Flags              `json:"flags"`
}

// Result is a successful analysis: the flat transaction list plus the
// server-side summary.
type Result struct {
	Transactions []Record
	Summary      Summary
}

// analyzeResponse is the raw wire payload. Error responses use a detail or
// error string field; absence of both implies success.
type analyzeResponse struct {
	Detail       string   `json:"detail"`
	Error        string   `json:"error"`
	Transactions []Record `json:"transactions"`
	Summary
}
