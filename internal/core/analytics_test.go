package core

import (
	"reflect"
	"testing"
)

// sampleStore builds a small two-month fixture shared by the view tests.
func sampleStore(t *testing.T) *Store {
	t.Helper()
	store, err := BuildStore([]Batch{
		{
			File:          "card.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "01/05", Merchant: "Acme", Amount: "50", Category: "Food"},
				{Date: "01/20", Merchant: "Acme", Amount: "30", Category: "Food"},
				{Date: "02/01", Merchant: "Zed", Amount: "100", Category: "Travel"},
			},
		},
	}, 2024)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return store
}

func TestMonthlyByCategoryAll(t *testing.T) {
	got := MonthlyByCategory(sampleStore(t), CategoryAll)
	want := []MonthCategoryTotals{
		{Month: "2024-01", Totals: []CategoryAmount{{Name: "Food", Amount: Money{Cents: 8000}}}},
		{Month: "2024-02", Totals: []CategoryAmount{{Name: "Travel", Amount: Money{Cents: 10000}}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MonthlyByCategory = %+v, want %+v", got, want)
	}
}

func TestMonthlyByCategorySingleCategory(t *testing.T) {
	got := MonthlyByCategory(sampleStore(t), "Food")
	want := []MonthCategoryTotals{
		{Month: "2024-01", Totals: []CategoryAmount{{Name: "Food", Amount: Money{Cents: 8000}}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MonthlyByCategory(Food) = %+v, want %+v", got, want)
	}
}

func TestMonthlyByCategorySumInvariant(t *testing.T) {
	store, err := BuildStore([]Batch{
		{
			File:          "mix.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "01/02", Merchant: "A", Amount: "10.50", Category: "Food"},
				{Date: "01/15", Merchant: "B", Amount: "-3.25", Category: "Food"},
				{Date: "01/20", Merchant: "C", Amount: "7", Category: "Travel"},
				{Date: "03/01", Merchant: "D", Amount: "42", Category: "Bills"},
			},
		},
	}, 2024)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	perMonth := make(map[string]int64)
	for _, tx := range store.Transactions() {
		perMonth[tx.Date.MonthKey()] += tx.Amount.Cents
	}
	for _, m := range MonthlyByCategory(store, CategoryAll) {
		var sum int64
		for _, c := range m.Totals {
			sum += c.Amount.Cents
		}
		if sum != perMonth[m.Month] {
			t.Fatalf("month %s: category totals sum to %d, raw sum is %d", m.Month, sum, perMonth[m.Month])
		}
	}
}

func TestMonthlyByCategoryChronologicalAcrossYears(t *testing.T) {
	// December of the earlier year must sort before January of the later
	// one even though arrival order says otherwise.
	store, err := BuildStore([]Batch{
		{File: "jan.pdf", StatementYear: 2025, Records: []RawRecord{{Date: "01/03", Merchant: "A", Amount: "1", Category: "C"}}},
		{File: "dec.pdf", StatementYear: 2024, Records: []RawRecord{{Date: "12/28", Merchant: "B", Amount: "1", Category: "C"}}},
	}, 2025)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	months := MonthlyByCategory(store, CategoryAll)
	if len(months) != 2 || months[0].Month != "2024-12" || months[1].Month != "2025-01" {
		t.Fatalf("months out of calendar order: %+v", months)
	}
}

func TestMerchantRanking(t *testing.T) {
	got := MerchantRanking(sampleStore(t), DefaultRankingSize)
	want := []MerchantTotal{
		{Merchant: "Zed", Total: Money{Cents: 10000}, Count: 1},
		{Merchant: "Acme", Total: Money{Cents: 8000}, Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MerchantRanking = %+v, want %+v", got, want)
	}
}

func TestMerchantRankingTiesKeepEncounterOrder(t *testing.T) {
	store := NewStore([]Transaction{
		{Date: NewDate(2024, 1, 1), Merchant: "First", Amount: Money{Cents: 500}, Category: "C"},
		{Date: NewDate(2024, 1, 2), Merchant: "Second", Amount: Money{Cents: 500}, Category: "C"},
		{Date: NewDate(2024, 1, 3), Merchant: "Third", Amount: Money{Cents: 900}, Category: "C"},
	})
	got := MerchantRanking(store, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Merchant != "Third" || got[1].Merchant != "First" || got[2].Merchant != "Second" {
		t.Fatalf("tie order broken: %+v", got)
	}
	// Non-increasing by total.
	for i := 1; i < len(got); i++ {
		if got[i].Total.Cents > got[i-1].Total.Cents {
			t.Fatalf("ranking not sorted at %d: %+v", i, got)
		}
	}
}

func TestMerchantRankingBucketsAndTruncates(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 20; i++ {
		txs = append(txs, Transaction{
			Date:     NewDate(2024, 1, 1+i%27),
			Merchant: string(rune('A' + i)),
			Amount:   Money{Cents: int64(100 * (i + 1))},
			Category: "C",
		})
	}
	txs = append(txs, Transaction{Date: NewDate(2024, 1, 2), Merchant: "  ", Amount: Money{Cents: 50000}, Category: "C"})
	store := NewStore(txs)

	got := MerchantRanking(store, 15)
	if len(got) != 15 {
		t.Fatalf("len = %d, want truncation to 15", len(got))
	}
	if got[0].Merchant != UnknownMerchant {
		t.Fatalf("blank merchant should rank as %q, got %q", UnknownMerchant, got[0].Merchant)
	}
}

func TestMerchantRankingExcludesRefunds(t *testing.T) {
	store := NewStore([]Transaction{
		{Date: NewDate(2024, 1, 5), Merchant: "Airline", Amount: Money{Cents: -2000}, Category: "Travel"},
		{Date: NewDate(2024, 1, 6), Merchant: "Cafe", Amount: Money{Cents: 400}, Category: "Food"},
	})
	got := MerchantRanking(store, 10)
	if len(got) != 1 || got[0].Merchant != "Cafe" {
		t.Fatalf("refund leaked into ranking: %+v", got)
	}
}

func TestCategoryDeepDive(t *testing.T) {
	dd := CategoryDeepDive(sampleStore(t), "Food")
	if dd.Empty() {
		t.Fatal("deep dive should have matches")
	}
	if dd.Total.Cents != 8000 || dd.TransactionCount != 2 || dd.AvgMonthly.Cents != 8000 {
		t.Fatalf("stats = %+v, want total 8000, count 2, avg 8000", dd)
	}
	wantTrend := []MonthAmount{{Month: "2024-01", Amount: Money{Cents: 8000}}}
	if !reflect.DeepEqual(dd.Trend, wantTrend) {
		t.Fatalf("trend = %+v, want %+v", dd.Trend, wantTrend)
	}
	wantMerchants := []MerchantTotal{{Merchant: "Acme", Total: Money{Cents: 8000}, Count: 2}}
	if !reflect.DeepEqual(dd.TopMerchants, wantMerchants) {
		t.Fatalf("merchants = %+v, want %+v", dd.TopMerchants, wantMerchants)
	}
}

func TestCategoryDeepDiveAveragesAcrossDistinctMonths(t *testing.T) {
	store := NewStore([]Transaction{
		{Date: NewDate(2024, 1, 5), Merchant: "A", Amount: Money{Cents: 3000}, Category: "Food"},
		{Date: NewDate(2024, 2, 5), Merchant: "A", Amount: Money{Cents: 1000}, Category: "Food"},
		{Date: NewDate(2024, 2, 9), Merchant: "B", Amount: Money{Cents: 2000}, Category: "Food"},
	})
	dd := CategoryDeepDive(store, "Food")
	if dd.AvgMonthly.Cents != 3000 {
		t.Fatalf("avg monthly = %d, want 6000/2 = 3000", dd.AvgMonthly.Cents)
	}
}

func TestCategoryDeepDiveEmptyState(t *testing.T) {
	dd := CategoryDeepDive(sampleStore(t), "Nonexistent")
	if !dd.Empty() {
		t.Fatalf("expected empty state, got %+v", dd)
	}
	if dd.Total.Cents != 0 || dd.AvgMonthly.Cents != 0 || len(dd.Trend) != 0 || len(dd.TopMerchants) != 0 {
		t.Fatalf("empty state must be all zeroes, got %+v", dd)
	}
}

func TestCategoryDeepDiveExcludesRefundsButSearchKeepsThem(t *testing.T) {
	store := NewStore([]Transaction{
		{Date: NewDate(2024, 1, 5), Merchant: "Airline", Amount: Money{Cents: 15000}, Category: "Travel"},
		{Date: NewDate(2024, 1, 9), Merchant: "Airline", Amount: Money{Cents: -2000}, Category: "Travel"},
	})
	dd := CategoryDeepDive(store, "Travel")
	if dd.Total.Cents != 15000 || dd.TransactionCount != 1 {
		t.Fatalf("refund leaked into deep dive: %+v", dd)
	}
	results := Search(store, "travel")
	if len(results) != 2 {
		t.Fatalf("search must keep refunds visible, got %d results", len(results))
	}
	if store.Len() != 2 {
		t.Fatal("raw store iteration must keep refunds")
	}
}

func TestSearch(t *testing.T) {
	store := sampleStore(t)
	cases := []struct {
		query string
		want  int
	}{
		{"acme", 2},
		{"ACME", 2},
		{"trav", 1}, // category match
		{"zed", 1},
		{"nothing-here", 0},
	}
	for _, tc := range cases {
		if got := Search(store, tc.query); len(got) != tc.want {
			t.Fatalf("Search(%q) returned %d results, want %d", tc.query, len(got), tc.want)
		}
	}
}

func TestSearchEmptyQueryReturnsFullStore(t *testing.T) {
	store := sampleStore(t)
	got := Search(store, "")
	if !reflect.DeepEqual(got, store.Transactions()) {
		t.Fatal("empty query must return the full store contents in order")
	}
}

func TestAggregationsAreIdempotent(t *testing.T) {
	store := sampleStore(t)
	if !reflect.DeepEqual(MonthlyByCategory(store, CategoryAll), MonthlyByCategory(store, CategoryAll)) {
		t.Fatal("MonthlyByCategory not idempotent")
	}
	if !reflect.DeepEqual(MerchantRanking(store, 15), MerchantRanking(store, 15)) {
		t.Fatal("MerchantRanking not idempotent")
	}
	if !reflect.DeepEqual(CategoryDeepDive(store, "Food"), CategoryDeepDive(store, "Food")) {
		t.Fatal("CategoryDeepDive not idempotent")
	}
	if !reflect.DeepEqual(Search(store, "acme"), Search(store, "acme")) {
		t.Fatal("Search not idempotent")
	}
}

func TestAggregationsOnEmptyStore(t *testing.T) {
	store := NewStore(nil)
	if got := MonthlyByCategory(store, CategoryAll); len(got) != 0 {
		t.Fatalf("monthly on empty store = %+v", got)
	}
	if got := MerchantRanking(store, 15); len(got) != 0 {
		t.Fatalf("ranking on empty store = %+v", got)
	}
	if dd := CategoryDeepDive(store, "Food"); !dd.Empty() {
		t.Fatalf("deep dive on empty store = %+v", dd)
	}
	if got := Search(store, "x"); len(got) != 0 {
		t.Fatalf("search on empty store = %+v", got)
	}
}
