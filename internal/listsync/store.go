// Package listsync holds the master/detail list machinery shared by the
// dashboard pages: a snapshot store with derived views, single and bulk
// selection, a generation-tagged detail poller, and bulk mutation helpers.
//
// Nothing here blocks or starts goroutines. Fetches run inside tea.Cmds
// and every type is mutated only from a bubbletea Update.
package listsync

import (
	"sort"
	"strings"
	"time"
)

// DefaultPageSize is the initial and incremental pagination window.
const DefaultPageSize = 50

// AllTab matches every record regardless of the schema's tab predicate.
const AllTab = ""

// Outcome buckets a record for day-group counters.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeRunning
	OutcomeDone
	OutcomeFailed
)

// Schema describes how a record type is keyed, ordered, searched and
// filtered. ID and Time are required.
type Schema[T any] struct {
	ID     func(T) string
	Time   func(T) time.Time
	Search func(T) []string
	// Tab reports whether a record belongs to a named filter tab. AllTab
	// never reaches it.
	Tab func(item T, tab string) bool
	// Live reports whether the record's detail should keep polling.
	Live func(T) bool
	// Outcome feeds day-group counters. Optional.
	Outcome func(T) Outcome
	// Less replaces the default newest-first ordering. Optional.
	Less func(a, b T) bool
	// ReverseBatches reverses runs of records sharing one timestamp, so a
	// batch submitted together shows its last prompt first.
	ReverseBatches bool
}

// IsLive reports whether item is in the live set.
func (s Schema[T]) IsLive(item T) bool {
	return s.Live != nil && s.Live(item)
}

// Store holds the last good snapshot of a collection plus its pagination
// window.
type Store[T any] struct {
	schema   Schema[T]
	items    []T
	loaded   bool
	err      error
	pageSize int
	visible  int
}

// NewStore creates an empty store. A non-positive pageSize uses
// DefaultPageSize.
func NewStore[T any](schema Schema[T], pageSize int) *Store[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store[T]{schema: schema, pageSize: pageSize, visible: pageSize}
}

// Schema returns the store's schema.
func (s *Store[T]) Schema() Schema[T] {
	return s.schema
}

// ApplyLoad records the outcome of a list fetch. On success the whole
// collection is replaced; on failure the previous snapshot is kept and
// the error recorded. It reports whether the collection changed.
func (s *Store[T]) ApplyLoad(items []T, err error) bool {
	if err != nil {
		s.err = err
		return false
	}
	s.err = nil
	s.loaded = true
	s.items = append([]T(nil), items...)
	return true
}

// Loaded reports whether at least one fetch has succeeded.
func (s *Store[T]) Loaded() bool {
	return s.loaded
}

// Err returns the error from the most recent fetch, if it failed.
func (s *Store[T]) Err() error {
	return s.err
}

// Items returns the raw collection in fetch order.
func (s *Store[T]) Items() []T {
	return s.items
}

// Len returns the size of the raw collection.
func (s *Store[T]) Len() int {
	return len(s.items)
}

// IDs returns the ids of the raw collection.
func (s *Store[T]) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for _, item := range s.items {
		ids = append(ids, s.schema.ID(item))
	}
	return ids
}

// Get looks up a record by id.
func (s *Store[T]) Get(id string) (T, bool) {
	for _, item := range s.items {
		if s.schema.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Remove drops a record locally. It reports whether it was present.
func (s *Store[T]) Remove(id string) bool {
	for i, item := range s.items {
		if s.schema.ID(item) == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Patch applies fn to the record with id in place. It reports whether the
// record was found.
func (s *Store[T]) Patch(id string, fn func(*T)) bool {
	for i := range s.items {
		if s.schema.ID(s.items[i]) == id {
			fn(&s.items[i])
			return true
		}
	}
	return false
}

// Upsert inserts item or replaces the record sharing its id.
func (s *Store[T]) Upsert(item T) {
	id := s.schema.ID(item)
	for i := range s.items {
		if s.schema.ID(s.items[i]) == id {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

// View returns the filtered, ordered collection.
func (s *Store[T]) View(tab, term string) []T {
	return FilteredView(s.items, s.schema, tab, term)
}

// --- Pagination ---

// Visible returns the current pagination window size.
func (s *Store[T]) Visible() int {
	return s.visible
}

// LoadMore grows the window by one page.
func (s *Store[T]) LoadMore() {
	s.visible += s.pageSize
}

// ResetPage shrinks the window back to one page.
func (s *Store[T]) ResetPage() {
	s.visible = s.pageSize
}

// Page cuts view down to the pagination window and reports whether more
// records remain.
func (s *Store[T]) Page(view []T) ([]T, bool) {
	if len(view) <= s.visible {
		return view, false
	}
	return view[:s.visible], true
}

// --- Derived Views ---

// FilteredView narrows items by tab and a case-insensitive search term and
// orders the result. It never mutates items.
func FilteredView[T any](items []T, schema Schema[T], tab, term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if tab != AllTab && schema.Tab != nil && !schema.Tab(item, tab) {
			continue
		}
		if term != "" && !matchesTerm(schema, item, term) {
			continue
		}
		out = append(out, item)
	}

	if schema.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return schema.Less(out[i], out[j]) })
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return schema.Time(out[i]).After(schema.Time(out[j]))
	})
	if schema.ReverseBatches {
		reverseRuns(out, schema.Time)
	}
	return out
}

func matchesTerm[T any](schema Schema[T], item T, term string) bool {
	if schema.Search == nil {
		return false
	}
	for _, field := range schema.Search(item) {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// reverseRuns reverses each run of equal timestamps in a sorted slice.
func reverseRuns[T any](items []T, at func(T) time.Time) {
	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && at(items[end]).Equal(at(items[start])) {
			end++
		}
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		start = end
	}
}
