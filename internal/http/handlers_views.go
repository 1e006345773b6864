package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"carddash/internal/core"
	"carddash/internal/log"
	"carddash/internal/session"
)

// View models handed to the templates. Everything is preformatted; the
// templates only lay things out.

type categoryRow struct {
	Name   string
	Amount string
	Width  int
}

type monthRow struct {
	Month string
	Total string
	Rows  []categoryRow
}

type merchantRow struct {
	Rank     int
	Merchant string
	Total    string
	Count    int
	Width    int
}

type txRow struct {
	Date     string
	Merchant string
	Amount   string
	Category string
	Source   string
	Credit   bool
}

type labelAmount struct {
	Label  string
	Amount string
}

type labelPercent struct {
	Label   string
	Percent string
}

type overviewView struct {
	HasData         bool
	TotalSpent      string
	AvgMonthly      string
	Discretionary   string
	CardSpend       []labelAmount
	CategoryShares  []labelPercent
	Recommendations []string
	Suspicious      []string
	Files           []string
	CreatedAt       string
}

type deepDiveViewModel struct {
	Selected     bool
	Category     string
	Total        string
	AvgMonthly   string
	Count        int
	Trend        []labelAmount
	TopMerchants []merchantRow
	Empty        bool
}

type monthlyViewModel struct {
	HasAnalysis bool
	Category    string
	Categories  []string
	Months      []monthRow
}

type merchantsViewModel struct {
	HasAnalysis bool
	Merchants   []merchantRow
}

type transactionsViewModel struct {
	HasAnalysis bool
	Query       string
	Rows        []txRow
}

type dashboardView struct {
	HasAnalysis      bool
	Overview         overviewView
	MonthlyData      monthlyViewModel
	MerchantsData    merchantsViewModel
	DeepDive         deepDiveViewModel
	TransactionsData transactionsViewModel
}

// buildDashboardView assembles the full page model. The derived views are
// independent reads of the same immutable store, so they run concurrently.
func (s *Server) buildDashboardView(ctx context.Context, snap session.Snapshot) (dashboardView, error) {
	view := dashboardView{
		Overview: s.overviewViewModel(snap),
		MonthlyData: monthlyViewModel{
			Category: snap.Filter.Category,
		},
		TransactionsData: transactionsViewModel{
			Query: snap.Filter.SearchQuery,
		},
	}
	if snap.Analysis == nil {
		return view, nil
	}
	view.HasAnalysis = true
	view.MonthlyData.HasAnalysis = true
	view.MerchantsData.HasAnalysis = true
	view.TransactionsData.HasAnalysis = true
	view.MonthlyData.Categories = core.Categories(snap.Analysis.Store)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.MonthlyData.Months = s.monthlyRows(snap)
		return nil
	})
	g.Go(func() error {
		view.MerchantsData.Merchants = s.merchantRows(snap)
		return nil
	})
	g.Go(func() error {
		view.DeepDive = s.deepDiveViewModel(snap)
		return nil
	})
	g.Go(func() error {
		view.TransactionsData.Rows = s.transactionRows(snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return dashboardView{}, err
	}
	return view, nil
}

func viewKey(snap session.Snapshot, dependency string) string {
	return snap.Analysis.ID + "|" + dependency
}

func (s *Server) monthlyTotals(snap session.Snapshot) []core.MonthCategoryTotals {
	return s.monthlyCache.GetOrCompute(viewKey(snap, snap.Filter.Category), func() []core.MonthCategoryTotals {
		return core.MonthlyByCategory(snap.Analysis.Store, snap.Filter.Category)
	})
}

func (s *Server) monthlyRows(snap session.Snapshot) []monthRow {
	totals := s.monthlyTotals(snap)

	var maxMonth int64
	monthSums := make([]int64, len(totals))
	for i, m := range totals {
		for _, c := range m.Totals {
			monthSums[i] += c.Amount.Cents
		}
		if monthSums[i] > maxMonth {
			maxMonth = monthSums[i]
		}
	}

	rows := make([]monthRow, 0, len(totals))
	for i, m := range totals {
		row := monthRow{Month: m.Month, Total: formatDollars(monthSums[i])}
		for _, c := range m.Totals {
			row.Rows = append(row.Rows, categoryRow{
				Name:   c.Name,
				Amount: formatDollars(c.Amount.Cents),
				Width:  barWidth(c.Amount.Cents, maxMonth),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Server) merchantRows(snap session.Snapshot) []merchantRow {
	ranking := s.merchantCache.GetOrCompute(viewKey(snap, "ranking"), func() []core.MerchantTotal {
		return core.MerchantRanking(snap.Analysis.Store, core.DefaultRankingSize)
	})
	return toMerchantRows(ranking)
}

func toMerchantRows(ranking []core.MerchantTotal) []merchantRow {
	var max int64
	if len(ranking) > 0 {
		max = ranking[0].Total.Cents
	}
	rows := make([]merchantRow, 0, len(ranking))
	for i, m := range ranking {
		rows = append(rows, merchantRow{
			Rank:     i + 1,
			Merchant: m.Merchant,
			Total:    formatDollars(m.Total.Cents),
			Count:    m.Count,
			Width:    barWidth(m.Total.Cents, max),
		})
	}
	return rows
}

func (s *Server) deepDiveViewModel(snap session.Snapshot) deepDiveViewModel {
	category := snap.Filter.DeepDiveCategory
	if category == "" {
		return deepDiveViewModel{}
	}

	dive := s.deepDiveCache.GetOrCompute(viewKey(snap, "dive|"+category), func() core.DeepDive {
		return core.CategoryDeepDive(snap.Analysis.Store, category)
	})

	view := deepDiveViewModel{
		Selected:     true,
		Category:     category,
		Total:        formatDollars(dive.Total.Cents),
		AvgMonthly:   formatDollars(dive.AvgMonthly.Cents),
		Count:        dive.TransactionCount,
		TopMerchants: toMerchantRows(dive.TopMerchants),
		Empty:        dive.TransactionCount == 0,
	}
	for _, m := range dive.Trend {
		view.Trend = append(view.Trend, labelAmount{Label: m.Month, Amount: formatDollars(m.Amount.Cents)})
	}
	return view
}

func (s *Server) transactionRows(snap session.Snapshot) []txRow {
	txs := s.searchCache.GetOrCompute(viewKey(snap, "q|"+snap.Filter.SearchQuery), func() []core.Transaction {
		return core.Search(snap.Analysis.Store, snap.Filter.SearchQuery)
	})

	rows := make([]txRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, txRow{
			Date:     t.Date.ISO(),
			Merchant: t.Merchant,
			Amount:   formatDollars(t.Amount.Cents),
			Category: t.Category,
			Source:   t.SourceFile,
			Credit:   t.Amount.Cents < 0,
		})
	}
	return rows
}

func (s *Server) overviewViewModel(snap session.Snapshot) overviewView {
	if snap.Analysis == nil {
		return overviewView{}
	}
	sum := snap.Analysis.Summary
	view := overviewView{
		HasData:         true,
		TotalSpent:      formatFloatDollars(sum.TotalSpent),
		AvgMonthly:      formatFloatDollars(sum.AvgMonthlySpend),
		Discretionary:   formatFloatDollars(sum.DiscretionarySpent),
		Recommendations: sum.GlobalRecommendations,
		Suspicious:      sum.Flags.Suspicious,
		CreatedAt:       snap.Analysis.CreatedAt.Format("2006-01-02 15:04"),
	}
	for _, f := range snap.Analysis.Files {
		view.Files = append(view.Files, f.Name)
	}
	for _, label := range sortedKeys(sum.CardSpend) {
		view.CardSpend = append(view.CardSpend, labelAmount{Label: label, Amount: formatFloatDollars(sum.CardSpend[label])})
	}
	for _, label := range sortedKeys(sum.CategorySummaryPercent) {
		view.CategoryShares = append(view.CategoryShares, labelPercent{
			Label:   label,
			Percent: formatPercent(sum.CategorySummaryPercent[label]),
		})
	}
	return view
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// barWidth converts an amount to a rounded percentage of the maximum for
// progress-bar scaling, clamped so tiny values stay visible.
func barWidth(cents, max int64) int {
	if max <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + max/2) / max)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// handleOverview renders the upstream summary hero partial.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	s.renderPartial(w, r, "overview.html", s.overviewViewModel(s.sessions.Snapshot()))
}

// handleMonthly renders the per-month category totals partial. The category
// query parameter also updates the session's filter state.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	params := ParseFilterParams(r.URL.Query())
	s.sessions.SetCategoryFilter(params.Category)

	snap := s.sessions.Snapshot()
	data := monthlyViewModel{Category: snap.Filter.Category}
	if snap.Analysis != nil {
		data.HasAnalysis = true
		data.Categories = core.Categories(snap.Analysis.Store)
		data.Months = s.monthlyRows(snap)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	NewHTMXResponse().TriggerFilterChanged(snap.Filter.Category).Apply(w)
	s.executePartial(w, r, "monthly.html", data)
}

// handleMonthlyJSON serves the same view as JSON for the chart. It reads
// the category parameter without touching the session filter.
func (s *Server) handleMonthlyJSON(w http.ResponseWriter, r *http.Request) {
	params := ParseFilterParams(r.URL.Query())
	snap := s.sessions.Snapshot()

	type categoryTotal struct {
		Category string  `json:"category"`
		Cents    int64   `json:"cents"`
		Amount   float64 `json:"amount"`
	}
	type month struct {
		Month  string          `json:"month"`
		Totals []categoryTotal `json:"totals"`
	}
	out := struct {
		Category string  `json:"category"`
		Months   []month `json:"months"`
	}{Category: params.Category, Months: []month{}}

	if snap.Analysis != nil {
		totals := s.monthlyCache.GetOrCompute(viewKey(snap, params.Category), func() []core.MonthCategoryTotals {
			return core.MonthlyByCategory(snap.Analysis.Store, params.Category)
		})
		for _, m := range totals {
			row := month{Month: m.Month, Totals: []categoryTotal{}}
			for _, c := range m.Totals {
				row.Totals = append(row.Totals, categoryTotal{
					Category: c.Name,
					Cents:    c.Amount.Cents,
					Amount:   c.Amount.Dollars(),
				})
			}
			out.Months = append(out.Months, row)
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.WarnContext(r.Context(), "Monthly JSON encode failed", log.FieldError, err.Error())
	}
}

// handleMerchants renders the merchant ranking partial.
func (s *Server) handleMerchants(w http.ResponseWriter, r *http.Request) {
	snap := s.sessions.Snapshot()
	var data merchantsViewModel
	if snap.Analysis != nil {
		data.HasAnalysis = true
		data.Merchants = s.merchantRows(snap)
	}
	s.renderPartial(w, r, "merchants.html", data)
}

// handleDeepDive renders the per-category deep dive partial and records the
// selection in the session.
func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.URL.Query().Get("category"))
	s.sessions.SetDeepDive(category)

	snap := s.sessions.Snapshot()
	var data deepDiveViewModel
	if snap.Analysis != nil {
		data = s.deepDiveViewModel(snap)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	NewHTMXResponse().TriggerDeepDiveChanged(category).Apply(w)
	s.executePartial(w, r, "deep_dive.html", data)
}

// handleTransactions renders the searchable transaction list partial. An
// empty query shows the whole store.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	params := ParseFilterParams(r.URL.Query())
	s.sessions.SetSearchQuery(params.Query)

	snap := s.sessions.Snapshot()
	data := transactionsViewModel{Query: snap.Filter.SearchQuery}
	if snap.Analysis != nil {
		data.HasAnalysis = true
		data.Rows = s.transactionRows(snap)
	}
	s.renderPartial(w, r, "transactions.html", data)
}

// renderPartial writes a template partial with the standard HTML headers.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.executePartial(w, r, name, data)
}

func (s *Server) executePartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="error">templates not loaded</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Partial template execution failed",
			log.FieldError, err.Error(), log.FieldOperation, log.OpRender, "template", name)
		_, _ = w.Write([]byte(`<div class="error">rendering failed</div>`))
	}
}
