package core

import (
	"fmt"
	"strings"
)

type (
	// Transaction is one normalized line item from a statement. Immutable
	// once it enters a Store.
	Transaction struct {
		Date       Date
		PostDate   Date // zero when the source omitted it
		Merchant   string
		Amount     Money
		Category   string // opaque label assigned upstream
		SourceFile string
	}

	// RawRecord is one transaction as the upstream parser emitted it,
	// before date and amount normalization.
	RawRecord struct {
		Date       string // MM/DD
		PostDate   string // MM/DD, optional
		Merchant   string
		Amount     string // signed decimal
		Category   string
		SourceFile string
	}

	// Batch groups the raw records of one uploaded statement file.
	Batch struct {
		File          string
		StatementYear int // 0 falls back to the build's default year
		Records       []RawRecord
	}
)

// Store is an immutable, order-preserving collection of normalized
// transactions: insertion order is arrival order across all uploaded
// statements concatenated. All derived views recompute from it; nothing
// downstream writes back.
type Store struct {
	txs []Transaction
}

// BuildStore normalizes every record of every batch into a Store.
//
// Batches are processed in upload order and records in source order, so the
// store preserves arrival order. Records are not deduplicated; overlapping
// statements yield repeated transactions by design. The first record that
// cannot be normalized aborts the whole build, naming the record and the
// file it came from; no partial store is ever returned.
func BuildStore(batches []Batch, defaultYear int) (*Store, error) {
	var txs []Transaction
	for _, b := range batches {
		year := b.StatementYear
		if year == 0 {
			year = defaultYear
		}
		for i, r := range b.Records {
			date, err := NormalizeDate(r.Date, year)
			if err != nil {
				return nil, fmt.Errorf("record %d in %s: %w", i, b.File, err)
			}
			var post Date
			if strings.TrimSpace(r.PostDate) != "" {
				post, err = NormalizeDate(r.PostDate, year)
				if err != nil {
					return nil, fmt.Errorf("record %d in %s: post date: %w", i, b.File, err)
				}
			}
			cents, err := ParseSignedDecimalToCents(r.Amount)
			if err != nil {
				return nil, fmt.Errorf("record %d in %s: %w", i, b.File, err)
			}
			source := r.SourceFile
			if source == "" {
				source = b.File
			}
			txs = append(txs, Transaction{
				Date:       date,
				PostDate:   post,
				Merchant:   r.Merchant,
				Amount:     Money{Cents: cents},
				Category:   r.Category,
				SourceFile: source,
			})
		}
	}
	return &Store{txs: txs}, nil
}

// NewStore wraps already-normalized transactions. It copies the slice so
// later mutations of the argument cannot reach the store.
func NewStore(txs []Transaction) *Store {
	cp := make([]Transaction, len(txs))
	copy(cp, txs)
	return &Store{txs: cp}
}

// Len returns the number of transactions in the store.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.txs)
}

// Transactions returns the store contents in arrival order. The slice is a
// copy to prevent external mutation.
func (s *Store) Transactions() []Transaction {
	if s == nil {
		return nil
	}
	cp := make([]Transaction, len(s.txs))
	copy(cp, s.txs)
	return cp
}
