package core

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildStorePreservesArrivalOrder(t *testing.T) {
	batches := []Batch{
		{
			File:          "jan.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "01/05", Merchant: "Acme", Amount: "50", Category: "Food"},
				{Date: "01/20", Merchant: "Acme", Amount: "30", Category: "Food"},
			},
		},
		{
			File:          "feb.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "02/01", Merchant: "Zed", Amount: "100", Category: "Travel"},
			},
		},
	}
	store, err := BuildStore(batches, 2020)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	txs := store.Transactions()
	if len(txs) != 3 {
		t.Fatalf("len = %d, want 3", len(txs))
	}
	wantISO := []string{"2024-01-05", "2024-01-20", "2024-02-01"}
	for i, iso := range wantISO {
		if got := txs[i].Date.ISO(); got != iso {
			t.Fatalf("tx %d date = %q, want %q", i, got, iso)
		}
	}
	if txs[2].SourceFile != "feb.pdf" {
		t.Fatalf("source file = %q, want feb.pdf", txs[2].SourceFile)
	}
}

func TestBuildStoreDefaultYearFallback(t *testing.T) {
	batches := []Batch{
		{File: "a.pdf", Records: []RawRecord{{Date: "06/15", Merchant: "X", Amount: "1", Category: "C"}}},
		{File: "b.pdf", StatementYear: 2019, Records: []RawRecord{{Date: "06/15", Merchant: "Y", Amount: "1", Category: "C"}}},
	}
	store, err := BuildStore(batches, 2023)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	txs := store.Transactions()
	if got := txs[0].Date.ISO(); got != "2023-06-15" {
		t.Fatalf("default-year record = %q, want 2023-06-15", got)
	}
	if got := txs[1].Date.ISO(); got != "2019-06-15" {
		t.Fatalf("per-batch year record = %q, want 2019-06-15", got)
	}
}

func TestBuildStoreDoesNotDeduplicate(t *testing.T) {
	rec := RawRecord{Date: "01/05", Merchant: "Acme", Amount: "50", Category: "Food"}
	batches := []Batch{
		{File: "a.pdf", StatementYear: 2024, Records: []RawRecord{rec}},
		{File: "a.pdf", StatementYear: 2024, Records: []RawRecord{rec}},
	}
	store, err := BuildStore(batches, 2024)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("len = %d, want 2 (overlapping statements repeat by design)", store.Len())
	}
}

func TestBuildStoreFailsFastWithFileContext(t *testing.T) {
	batches := []Batch{
		{
			File:          "ok.pdf",
			StatementYear: 2024,
			Records:       []RawRecord{{Date: "01/05", Merchant: "A", Amount: "1", Category: "C"}},
		},
		{
			File:          "bad.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "01/06", Merchant: "B", Amount: "1", Category: "C"},
				{Date: "garbage", Merchant: "B", Amount: "1", Category: "C"},
			},
		},
	}
	store, err := BuildStore(batches, 2024)
	if err == nil {
		t.Fatal("expected build to fail")
	}
	if store != nil {
		t.Fatal("no partial store may survive a failed build")
	}
	if !errors.Is(err, ErrMalformedDate) {
		t.Fatalf("error %v is not ErrMalformedDate", err)
	}
	if !strings.Contains(err.Error(), "bad.pdf") || !strings.Contains(err.Error(), "record 1") {
		t.Fatalf("error %q should name the record and file", err)
	}
}

func TestBuildStoreOptionalPostDate(t *testing.T) {
	batches := []Batch{
		{
			File:          "a.pdf",
			StatementYear: 2024,
			Records: []RawRecord{
				{Date: "01/05", PostDate: "01/07", Merchant: "A", Amount: "1", Category: "C"},
				{Date: "01/06", Merchant: "B", Amount: "1", Category: "C"},
			},
		},
	}
	store, err := BuildStore(batches, 2024)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	txs := store.Transactions()
	if got := txs[0].PostDate.ISO(); got != "2024-01-07" {
		t.Fatalf("post date = %q, want 2024-01-07", got)
	}
	if !txs[1].PostDate.IsEmpty() {
		t.Fatal("missing post date should stay empty")
	}
}

func TestStoreTransactionsReturnsCopy(t *testing.T) {
	store := NewStore([]Transaction{{Merchant: "Acme", Amount: Money{Cents: 100}, Category: "Food"}})
	got := store.Transactions()
	got[0].Merchant = "Mutated"
	if store.Transactions()[0].Merchant != "Acme" {
		t.Fatal("store contents must not be reachable through returned slices")
	}
}
