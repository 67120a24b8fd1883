package usecase

import (
	"context"
	"errors"
	"log"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ichard26/ghstats/internal/config"
	"github.com/ichard26/ghstats/internal/domain"
	"github.com/ichard26/ghstats/internal/gateway"
	"github.com/ichard26/ghstats/internal/store"
)

// Status tracks a repository's progress through its refresh cycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFetching Status = "fetching"
	StatusMerging  Status = "merging"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
)

// RepoResult is the outcome of one repository's refresh cycle.
type RepoResult struct {
	Repo     domain.Repo       `json:"repo"`
	Status   Status            `json:"status"`
	UpToDate bool              `json:"up_to_date,omitempty"`
	Views    []domain.ViewKind `json:"views_refreshed,omitempty"`
	Error    string            `json:"error,omitempty"`

	err error
}

func (r *RepoResult) fail(err error) {
	r.Status = StatusFailed
	r.err = err
	r.Error = err.Error()
}

// RunReport summarises one refresh run across all configured repositories.
type RunReport struct {
	Date    domain.Date  `json:"date"`
	Results []RepoResult `json:"results"`
}

// FailedCount returns how many repositories failed their refresh cycle.
func (r *RunReport) FailedCount() int {
	n := 0
	for _, result := range r.Results {
		if result.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Refresher orchestrates the per-repository refresh cycle: staleness check,
// fetch, snapshot merge, delta derivation. Repositories are processed
// sequentially; one repository's failure never aborts the others.
type Refresher struct {
	fetcher gateway.Fetcher
	store   *store.Store
	logger  *log.Logger
	now     func() domain.Date
}

// NewRefresher creates a new Refresher instance.
func NewRefresher(fetcher gateway.Fetcher, st *store.Store, logger *log.Logger) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		store:   st,
		logger:  logger,
		now:     domain.Today,
	}
}

// Run refreshes every configured repository once and reports per-repository
// outcomes. Fetch failures are isolated to their repository; an out-of-order
// store write means the store can no longer be trusted, so it aborts the
// whole run with the partial report.
func (r *Refresher) Run(ctx context.Context, cfg *config.Config) (*RunReport, error) {
	today := r.now()
	report := &RunReport{Date: today}

	for _, rc := range cfg.Repos {
		r.logger.Printf("Refreshing %s...", rc.Repo)
		result := r.refreshRepo(ctx, rc, today)
		report.Results = append(report.Results, result)

		var oooErr *domain.OutOfOrderWriteError
		if errors.As(result.err, &oooErr) {
			return report, result.err
		}
		if result.Status == StatusFailed {
			r.logger.Printf("Refresh of %s failed: %v", rc.Repo, result.err)
		}
	}
	return report, nil
}

func (r *Refresher) refreshRepo(ctx context.Context, rc config.RepoConfig, today domain.Date) RepoResult {
	result := RepoResult{Repo: rc.Repo, Status: StatusPending}

	var fetched []domain.ViewKind
	for _, v := range rc.Views {
		if !v.Derived() {
			fetched = append(fetched, v)
		}
	}

	stale, err := r.isStale(rc.Repo, fetched, today)
	if err != nil {
		result.fail(err)
		return result
	}
	if !stale && len(fetched) > 0 {
		r.logger.Printf("%s is up to date for %s, skipping fetch.", rc.Repo, today)
		result.Status = StatusDone
		result.UpToDate = true
		return result
	}

	needIssues := slices.ContainsFunc(fetched, domain.ViewKind.NeedsIssues)
	needPulls := slices.ContainsFunc(fetched, domain.ViewKind.NeedsPulls)

	// The issue listing is fetched once and shared by issue-counts and
	// issue-closers; the pull listing is independent, so the two requests
	// run concurrently.
	result.Status = StatusFetching
	var issues, pulls []domain.Issue
	eg, egCtx := errgroup.WithContext(ctx)
	if needIssues {
		eg.Go(func() error {
			var err error
			issues, err = r.fetcher.FetchIssues(egCtx, rc.Repo, today)
			return err
		})
	}
	if needPulls {
		eg.Go(func() error {
			var err error
			pulls, err = r.fetcher.FetchPulls(egCtx, rc.Repo)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		result.fail(err)
		return result
	}

	result.Status = StatusMerging
	for _, v := range fetched {
		listing := issues
		if v.NeedsPulls() {
			listing = pulls
		}
		snap, err := BuildSnapshot(v, listing, today)
		if err != nil {
			result.fail(err)
			return result
		}
		if err := r.store.Append(rc.Repo, v, snap); err != nil {
			result.fail(err)
			return result
		}
		result.Views = append(result.Views, v)
	}

	if slices.Contains(rc.Views, domain.ViewIssueDeltas) {
		if err := r.deriveDeltas(rc.Repo, today); err != nil {
			result.fail(err)
			return result
		}
		result.Views = append(result.Views, domain.ViewIssueDeltas)
	}

	result.Status = StatusDone
	return result
}

// isStale reports whether any enabled fetched view is missing today's entry.
// The issue-closers series is sparse (days with zero closes record nothing),
// so when issue-counts shares its listing, closers freshness rides on the
// issue-counts staleness check instead of its own latest date.
func (r *Refresher) isStale(repo domain.Repo, fetched []domain.ViewKind, today domain.Date) (bool, error) {
	for _, v := range fetched {
		if v == domain.ViewIssueClosers && slices.Contains(fetched, domain.ViewIssueCounts) {
			continue
		}
		latest, ok, err := r.store.Latest(repo, v)
		if err != nil {
			return false, err
		}
		if !ok || latest != today {
			return true, nil
		}
	}
	return false, nil
}

// deriveDeltas fully recomputes the issue-deltas series from the stored
// issue-counts history. Derived state is never appended incrementally.
func (r *Refresher) deriveDeltas(repo domain.Repo, today domain.Date) error {
	counts, err := r.store.Load(repo, domain.ViewIssueCounts)
	if err != nil {
		return err
	}
	var points []domain.DataPoint
	if len(counts) > 0 {
		points = counts[0].Data
	}
	deltas := DeriveDeltas(points, today)
	if deltas == nil {
		deltas = []domain.DataPoint{}
	}
	return r.store.WriteSeries(repo, domain.ViewIssueDeltas, []domain.Dataset{
		{Label: domain.ViewIssueDeltas.DatasetLabel(), Data: deltas},
	})
}
