package listsync

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrDuplicate is returned when the same payload was dispatched inside the
// guard window.
var ErrDuplicate = errors.New("duplicate submission")

// DefaultDuplicateWindow is how long a dispatched payload blocks repeats.
const DefaultDuplicateWindow = 10 * time.Second

// BulkFailure records one id a bulk action could not apply to.
type BulkFailure struct {
	ID  string
	Err error
}

// BulkResult summarises a bulk action.
type BulkResult struct {
	Verb      string
	Noun      string
	Total     int
	Succeeded int
	Failures  []BulkFailure
}

// RunBulk applies op to every id in order, one at a time, collecting
// failures instead of stopping at the first one.
func RunBulk(verb, noun string, ids []string, op func(id string) error) BulkResult {
	result := BulkResult{Verb: verb, Noun: noun, Total: len(ids)}
	for _, id := range ids {
		if err := op(id); err != nil {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
			continue
		}
		result.Succeeded++
	}
	return result
}

// Summary renders "Deleted 3 of 5 tasks".
func (r BulkResult) Summary() string {
	noun := r.Noun
	if r.Total != 1 && !strings.HasSuffix(noun, "s") {
		noun += "s"
	}
	return fmt.Sprintf("%s %d of %d %s", r.Verb, r.Succeeded, r.Total, noun)
}

// Failed reports whether any id failed.
func (r BulkResult) Failed() bool {
	return len(r.Failures) > 0
}

// FirstError returns the first failure's error, or nil.
func (r BulkResult) FirstError() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return r.Failures[0].Err
}

// DuplicateGuard rejects a payload that was let through within the
// window. Rejected attempts do not extend the window.
type DuplicateGuard struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

// NewDuplicateGuard creates a guard. A nil now uses time.Now.
func NewDuplicateGuard(window time.Duration, now func() time.Time) *DuplicateGuard {
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	if now == nil {
		now = time.Now
	}
	return &DuplicateGuard{window: window, now: now, seen: map[string]time.Time{}}
}

// Check records payload as dispatched, or returns ErrDuplicate when the
// same normalised payload went out less than a window ago.
func (g *DuplicateGuard) Check(payload string) error {
	key := normalizePayload(payload)
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, at := range g.seen {
		if now.Sub(at) >= g.window {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return ErrDuplicate
	}
	g.seen[key] = now
	return nil
}

// Release forgets payload so a send that failed can be retried at once.
func (g *DuplicateGuard) Release(payload string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, normalizePayload(payload))
}

func normalizePayload(payload string) string {
	return strings.Join(strings.Fields(payload), " ")
}
