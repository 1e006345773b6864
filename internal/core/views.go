package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthCategoryTotals is one calendar month of the monthly-by-category
// view: per-category spend sums for that month, categories sorted by name.
type MonthCategoryTotals struct {
	Month  string // YYYY-MM
	Totals []CategoryAmount
}

// MerchantTotal is one row of a merchant ranking.
type MerchantTotal struct {
	Merchant string
	Total    Money
	Count    int
}

// MonthAmount is one point of a single-category monthly trend.
type MonthAmount struct {
	Month  string // YYYY-MM
	Amount Money
}

// DeepDive is the single-category statistics view. The zero value (with
// Category set) is the defined empty state for a category with no positive
// transactions.
type DeepDive struct {
	Category         string
	Total            Money
	AvgMonthly       Money
	TransactionCount int
	Trend            []MonthAmount
	TopMerchants     []MerchantTotal
}

// Empty reports whether the deep dive matched no transactions.
func (d DeepDive) Empty() bool {
	return d.TransactionCount == 0
}
