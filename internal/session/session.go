// Package session owns the dashboard's only mutable state: the current
// analysis and the filter state driving the derived views. At most one
// analysis is in flight; starting a new one supersedes the pending one.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"carddash/internal/analyzer"
	"carddash/internal/core"
	"carddash/internal/events"
	"carddash/internal/log"
)

var (
	// ErrNoFiles is returned when an analysis is requested with no uploads.
	ErrNoFiles = errors.New("no statement files provided")
	// ErrSuperseded is returned to a run whose result was discarded because
	// a newer analysis started before it finished.
	ErrSuperseded = errors.New("analysis superseded by a newer upload")
)

// AnalyzeClient is the slice of the analyzer service the manager needs.
type AnalyzeClient interface {
	Analyze(ctx context.Context, files []analyzer.File) (*analyzer.Result, error)
}

// EventPublisher pushes analysis lifecycle notifications to a broker.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, msg *events.AnalysisCompletedMessage) error
}

// Analysis is one completed, installed analysis. Files keeps the uploaded
// bytes so exports can re-submit exactly what was analyzed.
type Analysis struct {
	ID        string
	Store     *core.Store
	Summary   analyzer.Summary
	Files     []analyzer.File
	CreatedAt time.Time
}

// Snapshot is a consistent view of the manager's state for one render pass.
type Snapshot struct {
	Analysis *Analysis
	Filter   core.FilterState
}

// Manager coordinates analyses and filter state. Safe for concurrent use.
type Manager struct {
	client      AnalyzeClient
	publisher   EventPublisher // nil when no broker is configured
	logger      *log.Logger
	structured  *log.StructuredLogger
	now         func() time.Time
	defaultYear int // 0 falls back to the clock's current year

	mu         sync.Mutex
	current    *Analysis
	filter     core.FilterState
	generation int64
	cancel     context.CancelFunc
}

// NewManager creates a manager. publisher may be nil.
func NewManager(client AnalyzeClient, publisher EventPublisher, logger *log.Logger) *Manager {
	l := logger.WithComponent(log.ComponentSession)
	return &Manager{
		client:     client,
		publisher:  publisher,
		logger:     l,
		structured: log.NewStructuredLogger(l),
		now:        time.Now,
		filter:     core.NewFilterState(),
	}
}

// SetDefaultYear fixes the statement year fallback used when the analyzer
// omits one. Zero keeps the current-year behavior.
func (m *Manager) SetDefaultYear(year int) {
	m.defaultYear = year
}

func (m *Manager) fallbackYear() int {
	if m.defaultYear != 0 {
		return m.defaultYear
	}
	return m.now().Year()
}

// Analyze uploads the files, builds a transaction store from the response
// and installs it as the current analysis. A run that starts while another
// is in flight cancels it; the newest started run always wins. On success
// the filter state resets to its resting values.
func (m *Manager) Analyze(ctx context.Context, files []analyzer.File) (*Analysis, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	if m.cancel != nil {
		m.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	result, err := m.client.Analyze(runCtx, files)
	if err != nil {
		m.release(gen)
		if runCtx.Err() != nil && ctx.Err() == nil {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	store, err := core.BuildStore(batchRecords(result.Transactions), m.fallbackYear())
	if err != nil {
		m.release(gen)
		return nil, err
	}

	analysis := &Analysis{
		ID:        uuid.NewString(),
		Store:     store,
		Summary:   result.Summary,
		Files:     files,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	m.current = analysis
	m.filter = core.NewFilterState()
	m.cancel = nil
	m.mu.Unlock()

	m.structured.LogAnalysisCompleted(ctx, analysis.ID, len(files), store.Len())

	m.publish(ctx, analysis)
	return analysis, nil
}

// release clears the cancel func if this run still owns it.
func (m *Manager) release(gen int64) {
	m.mu.Lock()
	if gen == m.generation {
		m.cancel = nil
	}
	m.mu.Unlock()
}

func (m *Manager) publish(ctx context.Context, a *Analysis) {
	if m.publisher == nil {
		return
	}
	msg := events.NewAnalysisCompletedMessage(a.ID, len(a.Files), a.Store.Len(), spentCents(a.Store))
	if err := m.publisher.PublishAnalysisCompleted(ctx, msg); err != nil {
		// Best effort only: the analysis is already installed.
		m.logger.WarnContext(ctx, "Failed to publish analysis event",
			log.FieldSessionID, a.ID,
			log.FieldError, err.Error())
	}
}

// spentCents sums the positive amounts, mirroring what the spending views
// count.
func spentCents(store *core.Store) int64 {
	var total int64
	for _, tx := range store.Transactions() {
		if tx.Amount.Cents > 0 {
			total += tx.Amount.Cents
		}
	}
	return total
}

// Snapshot returns the current analysis and a copy of the filter state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Analysis: m.current, Filter: m.filter}
}

// SetCategoryFilter sets the category filter for the monthly view.
func (m *Manager) SetCategoryFilter(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if category == "" {
		category = core.CategoryAll
	}
	m.filter.Category = category
}

// SetSearchQuery sets the transaction search query.
func (m *Manager) SetSearchQuery(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.SearchQuery = query
}

// SetDeepDive selects the deep-dive category; empty clears the selection.
func (m *Manager) SetDeepDive(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.DeepDiveCategory = category
}

// batchRecords regroups the analyzer's flat transaction list into per-file
// batches, preserving order. Consecutive records sharing a source file and
// statement year form one batch.
func batchRecords(records []analyzer.Record) []core.Batch {
	var batches []core.Batch
	for _, r := range records {
		raw := core.RawRecord{
			Date:       r.Date,
			PostDate:   r.PostDate,
			Merchant:   r.Merchant,
			Amount:     r.Amount.String(),
			Category:   r.Category,
			SourceFile: r.SourceFile,
		}
		n := len(batches)
		if n == 0 || batches[n-1].File != r.SourceFile || batches[n-1].StatementYear != r.StatementYear {
			batches = append(batches, core.Batch{File: r.SourceFile, StatementYear: r.StatementYear})
			n++
		}
		batches[n-1].Records = append(batches[n-1].Records, raw)
	}
	return batches
}
