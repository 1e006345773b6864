package core

// CategoryAll disables category filtering.
const CategoryAll = "All"

// FilterState holds the small, independently-settable parameters that
// select which derived view is computed. It is owned by the orchestration
// layer; the aggregation engine only ever reads it.
type FilterState struct {
	Category         string // category label, or CategoryAll
	SearchQuery      string
	DeepDiveCategory string // empty = no deep dive selected
}

// NewFilterState returns the resting display state: all categories, no
// search, no deep dive.
func NewFilterState() FilterState {
	return FilterState{Category: CategoryAll}
}

// categoryMatches reports whether a transaction category passes the filter.
// An empty filter is treated like CategoryAll.
func categoryMatches(filter, category string) bool {
	return filter == "" || filter == CategoryAll || filter == category
}
