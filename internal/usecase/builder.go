// Package usecase contains the business logic of the application: snapshot
// building, delta derivation, and the refresh orchestration that ties the
// gateway and the store together.
package usecase

import (
	"fmt"

	"github.com/ichard26/ghstats/internal/domain"
)

// BuildSnapshot aggregates a raw listing into one dated data point for the
// given view. It is a pure function of the listing and today's date: no
// external state is consulted, so identical inputs always yield identical
// snapshots.
func BuildSnapshot(view domain.ViewKind, listing []domain.Issue, today domain.Date) (domain.Snapshot, error) {
	switch view {
	case domain.ViewIssueCounts, domain.ViewPullCounts:
		open := 0
		for _, entry := range listing {
			if entry.Open() {
				open++
			}
		}
		return domain.Snapshot{Date: today, Value: open}, nil

	case domain.ViewIssueClosers:
		byActor := make(map[string]int)
		for _, entry := range listing {
			// Only closes attributable to a known actor on today's UTC
			// calendar day count; everything else is omitted (sparse map).
			if entry.ClosedAt == nil || entry.ClosedBy == "" {
				continue
			}
			if domain.DateOf(*entry.ClosedAt) != today {
				continue
			}
			byActor[entry.ClosedBy]++
		}
		return domain.Snapshot{Date: today, ByActor: byActor}, nil

	case domain.ViewIssueDeltas:
		return domain.Snapshot{}, fmt.Errorf("view %s is derived from stored history, not built from a listing", view)

	default:
		return domain.Snapshot{}, fmt.Errorf("unknown view kind %q", view)
	}
}
