// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used throughout the application and
// in the persisted time-series files.
const DateLayout = "2006-01-02"

// Date is a calendar day in "YYYY-MM-DD" form. Because the format is
// fixed-width ISO 8601, lexicographic comparison of Date values is equivalent
// to chronological comparison.
type Date string

// Today returns the current calendar day. Day boundaries are fixed to UTC so
// that "closed today" aggregation does not depend on the host timezone.
func Today() Date {
	return DateOf(time.Now())
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// ParseDate validates a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// Month returns the "YYYY-MM" prefix of the date.
func (d Date) Month() string { return string(d[:7]) }

// Repo identifies a GitHub repository by its owner and name. The pair is the
// unique key for all per-repository state and is immutable once configured.
type Repo struct {
	Owner string `json:"owner" yaml:"owner"`
	Name  string `json:"name" yaml:"name"`
}

// ParseRepo parses an "owner/name" string.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Issue is one raw listing entry (an issue or a pull request) as returned by
// the tracker. It is transient input to snapshot building and is never
// persisted.
type Issue struct {
	Number    int
	Title     string
	State     string // "open" or "closed"
	CreatedAt time.Time
	ClosedAt  *time.Time
	ClosedBy  string // login of the closing actor, when known
}

// Open reports whether the entry was open as of fetch time. The state field
// is authoritative; close timestamps are deliberately not consulted since
// they are subject to clock skew against the local day boundary.
func (i Issue) Open() bool {
	return i.State == "open"
}

// Snapshot is one dated data point for a repository view. Scalar views use
// Value; the issue-closers view uses ByActor, a sparse closer -> count map in
// which actors with zero closes are omitted.
type Snapshot struct {
	Date    Date
	Value   int
	ByActor map[string]int
}

// DataPoint is a single charted point. The field names form the JSON contract
// consumed directly by the front-end chart renderer.
type DataPoint struct {
	X Date `json:"x"`
	Y int  `json:"y"`
}

// Dataset is one labelled line of a chart. A view's JSON file is an ordered
// list of datasets: one per closing actor for issue-closers, exactly one for
// every other view.
type Dataset struct {
	Label string      `json:"label"`
	Data  []DataPoint `json:"data"`
}
