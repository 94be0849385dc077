package listsync

import (
	"fmt"
	"time"
)

// Counts tallies outcomes inside a day group.
type Counts struct {
	Done    int
	Failed  int
	Running int
	Total   int
}

// DayGroup is one local calendar day of records, newest day first.
type DayGroup[T any] struct {
	Key     string
	Label   string
	Items   []T
	Counts  Counts
	HasLive bool
}

// GroupByDay buckets an already ordered view by local calendar day. Items
// keep their relative order inside each group and groups appear in the
// order their first item does. now anchors the "Today" and "Yesterday"
// labels.
func GroupByDay[T any](items []T, schema Schema[T], now time.Time) []DayGroup[T] {
	loc := now.Location()
	var groups []DayGroup[T]
	index := map[string]int{}
	for _, item := range items {
		day := schema.Time(item).In(loc)
		key := day.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup[T]{Key: key, Label: DayLabel(day, now)})
		}
		g := &groups[i]
		g.Items = append(g.Items, item)
		g.Counts.Total++
		if schema.Outcome != nil {
			switch schema.Outcome(item) {
			case OutcomeDone:
				g.Counts.Done++
			case OutcomeFailed:
				g.Counts.Failed++
			case OutcomeRunning:
				g.Counts.Running++
			}
		}
		if schema.IsLive(item) {
			g.HasLive = true
		}
	}
	return groups
}

// DayLabel renders "Today · Mar 3", "Yesterday · Mar 2", "Sun · Mar 1" or,
// for another year, "Tue · Dec 30, 2025".
func DayLabel(day, now time.Time) string {
	day = day.In(now.Location())
	today := startOfDay(now)
	d := startOfDay(day)
	date := day.Format("Jan 2")
	if day.Year() != now.Year() {
		date = day.Format("Jan 2, 2006")
	}
	switch {
	case d.Equal(today):
		return fmt.Sprintf("Today · %s", date)
	case d.Equal(today.AddDate(0, 0, -1)):
		return fmt.Sprintf("Yesterday · %s", date)
	default:
		return fmt.Sprintf("%s · %s", day.Format("Mon"), date)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Expansion tracks which day groups the user collapsed. Groups are
// expanded unless collapsed, and a group holding a live record is always
// expanded.
type Expansion struct {
	collapsed map[string]bool
}

// NewExpansion returns an expansion state with every group open.
func NewExpansion() *Expansion {
	return &Expansion{collapsed: map[string]bool{}}
}

// Expanded reports whether the group renders its items.
func (e *Expansion) Expanded(key string, hasLive bool) bool {
	if hasLive {
		return true
	}
	return !e.collapsed[key]
}

// Toggle flips the collapsed flag for key.
func (e *Expansion) Toggle(key string) {
	if e.collapsed[key] {
		delete(e.collapsed, key)
		return
	}
	e.collapsed[key] = true
}
