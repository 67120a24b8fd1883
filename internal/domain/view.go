package domain

import "fmt"

// ViewKind identifies one of the fixed set of per-repository metrics tracked
// over time.
type ViewKind string

const (
	ViewIssueCounts  ViewKind = "issue-counts"
	ViewPullCounts   ViewKind = "pull-counts"
	ViewIssueDeltas  ViewKind = "issue-deltas"
	ViewIssueClosers ViewKind = "issue-closers"
)

// AllViews returns every supported view kind in canonical order.
func AllViews() []ViewKind {
	return []ViewKind{ViewIssueCounts, ViewPullCounts, ViewIssueDeltas, ViewIssueClosers}
}

// ParseViewKind validates a view name from configuration or CLI input.
func ParseViewKind(s string) (ViewKind, error) {
	switch v := ViewKind(s); v {
	case ViewIssueCounts, ViewPullCounts, ViewIssueDeltas, ViewIssueClosers:
		return v, nil
	}
	return "", fmt.Errorf("unknown view kind %q", s)
}

// Derived reports whether the view is computed from stored history rather
// than fetched. Only issue-deltas is derived: it is always recomputed from
// the issue-counts series and never independently appended.
func (v ViewKind) Derived() bool {
	return v == ViewIssueDeltas
}

// NeedsIssues reports whether refreshing the view requires the issue listing.
func (v ViewKind) NeedsIssues() bool {
	return v == ViewIssueCounts || v == ViewIssueClosers
}

// NeedsPulls reports whether refreshing the view requires the pull listing.
func (v ViewKind) NeedsPulls() bool {
	return v == ViewPullCounts
}

// DatasetLabel returns the chart label for the view's single dataset.
// Issue-closers datasets are labelled per actor instead.
func (v ViewKind) DatasetLabel() string {
	switch v {
	case ViewIssueCounts:
		return "open issues"
	case ViewPullCounts:
		return "open PRs"
	case ViewIssueDeltas:
		return "changes (issues)"
	default:
		return string(v)
	}
}
