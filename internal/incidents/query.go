// Package incidents provides the incident store, query engine and
// status-transition logic for the dashboard.
package incidents

import (
	"strings"
	"time"

	"github.com/oncallhq/incident-deck/internal/domain"
	"golang.org/x/text/cases"
)

// DateRange bounds OccurredAt filtering. The range only constrains when
// both bounds are set; a one-sided range matches everything. To is
// extended to the end of its day, inclusive.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Filter holds independently optional query criteria. An empty facet set
// matches all records, not none. Criteria combine with AND; values within
// a facet combine with OR.
type Filter struct {
	Statuses   []domain.IncidentStatus `json:"statuses,omitempty"`
	Judgments  []domain.Judgment       `json:"judgments,omitempty"`
	Assignees  []string                `json:"assignees,omitempty"`
	DateRange  *DateRange              `json:"date_range,omitempty"`
	SearchText string                  `json:"search_text,omitempty"`
}

// ResetFilter returns the filter that matches everything.
func ResetFilter() Filter {
	return Filter{}
}

var foldCaser = cases.Fold()

// Matches reports whether the incident satisfies every supplied criterion.
func (f Filter) Matches(inc *domain.Incident) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, inc.Status) {
		return false
	}
	if len(f.Judgments) > 0 && !containsJudgment(f.Judgments, inc.Judgment) {
		return false
	}
	if len(f.Assignees) > 0 && !containsString(f.Assignees, inc.Assignee) {
		return false
	}
	if !f.matchesDateRange(inc.OccurredAt) {
		return false
	}
	if f.SearchText != "" {
		if !strings.Contains(foldCaser.String(inc.Content), foldCaser.String(f.SearchText)) {
			return false
		}
	}
	return true
}

// matchesDateRange applies the [From, endOfDay(To)] inclusive check.
// A partially specified range imposes no constraint.
func (f Filter) matchesDateRange(occurredAt time.Time) bool {
	if f.DateRange == nil || f.DateRange.From == nil || f.DateRange.To == nil {
		return true
	}
	from := *f.DateRange.From
	to := endOfDay(*f.DateRange.To)
	return !occurredAt.Before(from) && !occurredAt.After(to)
}

// Apply returns the matching subset of the collection, preserving input
// order. Neither the filter nor the collection is mutated.
func (f Filter) Apply(collection []*domain.Incident) []*domain.Incident {
	result := make([]*domain.Incident, 0, len(collection))
	for _, inc := range collection {
		if f.Matches(inc) {
			result = append(result, inc)
		}
	}
	return result
}

// CountByStatus counts incidents in the given status. It is recomputed on
// every call; collections are small enough that caching is not worth it.
func CountByStatus(collection []*domain.Incident, status domain.IncidentStatus) int {
	n := 0
	for _, inc := range collection {
		if inc.Status == status {
			n++
		}
	}
	return n
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func containsStatus(set []domain.IncidentStatus, v domain.IncidentStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsJudgment(set []domain.Judgment, v domain.Judgment) bool {
	for _, j := range set {
		if j == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
