package usecase

import "github.com/ichard26/ghstats/internal/domain"

// DeriveDeltas computes the issue-deltas series from an issue-counts series:
// one point per completed calendar month with recorded data, valued at the
// month's last recorded open count minus the previous recorded month's.
// Months without data are skipped rather than zero-filled, and the current
// (incomplete) month is excluded. The result is recomputed from scratch on
// every refresh; partial delta state is never persisted.
func DeriveDeltas(counts []domain.DataPoint, today domain.Date) []domain.DataPoint {
	currentMonth := today.Month()

	// The source series is date-ordered, so the last point seen for a month
	// is that month's closing value.
	var monthEnds []domain.DataPoint
	for _, p := range counts {
		if p.X.Month() >= currentMonth {
			continue
		}
		if n := len(monthEnds); n > 0 && monthEnds[n-1].X.Month() == p.X.Month() {
			monthEnds[n-1] = p
		} else {
			monthEnds = append(monthEnds, p)
		}
	}

	if len(monthEnds) < 2 {
		return nil
	}
	deltas := make([]domain.DataPoint, 0, len(monthEnds)-1)
	for i := 1; i < len(monthEnds); i++ {
		deltas = append(deltas, domain.DataPoint{
			X: monthEnds[i].X,
			Y: monthEnds[i].Y - monthEnds[i-1].Y,
		})
	}
	return deltas
}
