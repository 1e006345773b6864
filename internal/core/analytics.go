// This file holds the aggregation engine: pure functions from (Store,
// filter parameters) to derived views. None of them mutate their inputs,
// none of them can fail on a well-formed store, and identical inputs always
// produce identical output, including order.

package core

import (
	"sort"
	"strings"
	"time"
)

const (
	// DefaultRankingSize caps the dashboard merchant ranking.
	DefaultRankingSize = 15
	// DeepDiveRankingSize caps the per-category merchant breakdown.
	DeepDiveRankingSize = 10

	// UnknownMerchant buckets transactions whose merchant the upstream
	// parser left blank.
	UnknownMerchant = "Unknown"
)

// MonthlyByCategory partitions the filtered transactions by calendar month
// and sums amounts per category within each month. The category set of each
// month is whatever categories its filtered transactions carry, not a
// global list. Months come back in ascending calendar order (buckets are
// compared as parsed dates anchored at the first of the month, not as
// strings); categories within a month are sorted by name so the output is
// deterministic.
func MonthlyByCategory(store *Store, categoryFilter string) []MonthCategoryTotals {
	type bucket struct {
		key    string
		anchor time.Time
		totals map[string]int64
	}
	var buckets []*bucket
	index := make(map[string]*bucket)
	if store != nil {
		for _, t := range store.txs {
			if !categoryMatches(categoryFilter, t.Category) {
				continue
			}
			key := t.Date.MonthKey()
			b := index[key]
			if b == nil {
				b = &bucket{key: key, anchor: monthAnchor(key), totals: make(map[string]int64)}
				index[key] = b
				buckets = append(buckets, b)
			}
			b.totals[t.Category] += t.Amount.Cents
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].anchor.Before(buckets[j].anchor) })

	out := make([]MonthCategoryTotals, 0, len(buckets))
	for _, b := range buckets {
		totals := make([]CategoryAmount, 0, len(b.totals))
		for name, cents := range b.totals {
			totals = append(totals, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
		}
		sort.Slice(totals, func(i, j int) bool { return totals[i].Name < totals[j].Name })
		out = append(out, MonthCategoryTotals{Month: b.key, Totals: totals})
	}
	return out
}

// MerchantRanking groups positive-amount transactions by merchant and
// returns the top spenders: descending by total, ties broken by original
// encounter order, truncated to topN. Credits and refunds are excluded.
// topN <= 0 falls back to DefaultRankingSize.
func MerchantRanking(store *Store, topN int) []MerchantTotal {
	if store == nil {
		return []MerchantTotal{}
	}
	return rankMerchants(store.txs, topN, DefaultRankingSize)
}

func rankMerchants(txs []Transaction, topN, fallback int) []MerchantTotal {
	if topN <= 0 {
		topN = fallback
	}
	index := make(map[string]int)
	out := make([]MerchantTotal, 0)
	for _, t := range txs {
		if t.Amount.Cents <= 0 {
			continue
		}
		name := strings.TrimSpace(t.Merchant)
		if name == "" {
			name = UnknownMerchant
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, MerchantTotal{Merchant: name})
		}
		out[i].Total.Cents += t.Amount.Cents
		out[i].Count++
	}
	// Stable sort keeps first-encounter order for equal totals.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.Cents > out[j].Total.Cents })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// CategoryDeepDive computes the detailed statistics for a single category:
// total spend, transaction count, average per distinct month, the monthly
// trend, and a top-10 merchant breakdown. Only positive amounts count. A
// category with no matches yields the defined empty DeepDive, never an
// error or a division by zero.
func CategoryDeepDive(store *Store, category string) DeepDive {
	dd := DeepDive{Category: category}
	if store == nil {
		return dd
	}
	var matched []Transaction
	for _, t := range store.txs {
		if t.Category != category || t.Amount.Cents <= 0 {
			continue
		}
		matched = append(matched, t)
		dd.Total.Cents += t.Amount.Cents
		dd.TransactionCount++
	}
	if dd.TransactionCount == 0 {
		return dd
	}

	type bucket struct {
		key    string
		anchor time.Time
		cents  int64
	}
	var buckets []*bucket
	index := make(map[string]*bucket)
	for _, t := range matched {
		key := t.Date.MonthKey()
		b := index[key]
		if b == nil {
			b = &bucket{key: key, anchor: monthAnchor(key)}
			index[key] = b
			buckets = append(buckets, b)
		}
		b.cents += t.Amount.Cents
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].anchor.Before(buckets[j].anchor) })
	dd.Trend = make([]MonthAmount, 0, len(buckets))
	for _, b := range buckets {
		dd.Trend = append(dd.Trend, MonthAmount{Month: b.key, Amount: Money{Cents: b.cents}})
	}

	dd.AvgMonthly = Money{Cents: roundedDiv(dd.Total.Cents, int64(len(buckets)))}
	dd.TopMerchants = rankMerchants(matched, DeepDiveRankingSize, DeepDiveRankingSize)
	return dd
}

// Search filters the store to transactions whose merchant or category
// contains the query, case-insensitively. An empty query returns the full
// store contents in arrival order: that is the resting display state, not
// an empty result.
func Search(store *Store, query string) []Transaction {
	if store == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return store.Transactions()
	}
	out := make([]Transaction, 0)
	for _, t := range store.txs {
		if strings.Contains(strings.ToLower(t.Merchant), q) ||
			strings.Contains(strings.ToLower(t.Category), q) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct category labels present in the store,
// sorted by name. Used to populate filter selectors.
func Categories(store *Store) []string {
	if store == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range store.txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

// roundedDiv divides cents by n rounding half away from zero.
func roundedDiv(cents, n int64) int64 {
	if n == 0 {
		return 0
	}
	half := n / 2
	if cents < 0 {
		return (cents - half) / n
	}
	return (cents + half) / n
}
