package usecase

import (
	"github.com/ichard26/ghstats/internal/domain"
	"github.com/montanaflynn/stats"
)

// SeriesSummary condenses a count series into the headline figures shown
// above a repository's charts.
type SeriesSummary struct {
	Current int     `json:"current"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// Summarize computes summary statistics over a count series. Returns ok=false
// for an empty series.
func Summarize(points []domain.DataPoint) (SeriesSummary, bool) {
	if len(points) == 0 {
		return SeriesSummary{}, false
	}
	values := make(stats.Float64Data, len(points))
	for i, p := range points {
		values[i] = float64(p.Y)
	}

	// These cannot fail on non-empty input.
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)

	return SeriesSummary{
		Current: points[len(points)-1].Y,
		Mean:    mean,
		Median:  median,
		Min:     int(min),
		Max:     int(max),
	}, true
}
