// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/ichard26/ghstats/internal/domain"
)

// maxRateLimitAttempts bounds how often a single page request is retried
// across primary rate limit windows before the repository's fetch is given up
// with a RateLimitError.
const maxRateLimitAttempts = 3

// Fetcher defines the behavior of a gateway for fetching repository listings
// from GitHub. Implementations mutate no local state; their only side effect
// is network I/O.
type Fetcher interface {
	// FetchIssues returns the complete issue listing (open and closed, pull
	// requests excluded). Issues closed on the closedOn day carry the
	// closing actor's login.
	FetchIssues(ctx context.Context, repo domain.Repo, closedOn domain.Date) ([]domain.Issue, error)
	// FetchPulls returns the complete pull request listing (open and closed).
	FetchPulls(ctx context.Context, repo domain.Repo) ([]domain.Issue, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// closedIssuesQuery resolves the closing actor for issues closed on a given
// day. The REST issue listing omits closed_by, so one paginated search
// replaces what would otherwise be a per-issue detail fetch.
type closedIssuesQuery struct {
	Search struct {
		PageInfo struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Edges []struct {
			Node struct {
				Typename string `graphql:"__typename"`
				Issue    struct {
					Number        int
					TimelineItems struct {
						Nodes []struct {
							ClosedEvent struct {
								Actor struct {
									Login githubv4.String
								}
							} `graphql:"... on ClosedEvent"`
						}
					} `graphql:"timelineItems(last: 1, itemTypes: [CLOSED_EVENT])"`
				} `graphql:"... on Issue"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 100, after: $cursor)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchIssues assembles the full issue listing via the paginated REST API,
// then back-fills closing actors for issues closed on closedOn via GraphQL.
func (g *GitHubGateway) FetchIssues(ctx context.Context, repo domain.Repo, closedOn domain.Date) ([]domain.Issue, error) {
	g.logger.Printf("Fetching issue listing for %s...", repo)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var listing []domain.Issue
	closedToday := false
	for {
		var page []*github.Issue
		var resp *github.Response
		err := g.withRateLimitRetry(ctx, repo, func() (*github.Response, error) {
			var err error
			page, resp, err = g.restClient.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			// The issues endpoint interleaves pull requests; they belong to
			// the pull listing instead.
			if raw.IsPullRequest() {
				continue
			}
			entry := convertIssue(raw.GetNumber(), raw.GetTitle(), raw.GetState(), raw.CreatedAt, raw.ClosedAt)
			if entry.ClosedAt != nil && domain.DateOf(*entry.ClosedAt) == closedOn {
				closedToday = true
			}
			listing = append(listing, entry)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of issues...")
	}
	g.logger.Printf("Completed fetching %d issues for %s.", len(listing), repo)

	if closedOn != "" && closedToday {
		closers, err := g.fetchClosers(ctx, repo, closedOn)
		if err != nil {
			return nil, err
		}
		for i := range listing {
			if login, ok := closers[listing[i].Number]; ok {
				listing[i].ClosedBy = login
			}
		}
	}
	return listing, nil
}

// FetchPulls assembles the full pull request listing via the paginated REST API.
func (g *GitHubGateway) FetchPulls(ctx context.Context, repo domain.Repo) ([]domain.Issue, error) {
	g.logger.Printf("Fetching pull request listing for %s...", repo)
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var listing []domain.Issue
	for {
		var page []*github.PullRequest
		var resp *github.Response
		err := g.withRateLimitRetry(ctx, repo, func() (*github.Response, error) {
			var err error
			page, resp, err = g.restClient.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			listing = append(listing, convertIssue(raw.GetNumber(), raw.GetTitle(), raw.GetState(), raw.CreatedAt, raw.ClosedAt))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of pull requests...")
	}
	g.logger.Printf("Completed fetching %d pull requests for %s.", len(listing), repo)
	return listing, nil
}

// fetchClosers maps issue number to the login of the actor who closed it,
// for issues closed on the given day.
func (g *GitHubGateway) fetchClosers(ctx context.Context, repo domain.Repo, closedOn domain.Date) (map[int]string, error) {
	g.logger.Printf("Resolving closing actors for %s...", repo)
	query := fmt.Sprintf("repo:%s is:issue is:closed closed:%s", repo, closedOn)
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}

	closers := make(map[int]string)
	for {
		var q closedIssuesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, &domain.FetchError{Repo: repo, Err: fmt.Errorf("failed to execute GraphQL query for closers: %w", err)}
		}
		for _, edge := range q.Search.Edges {
			node := edge.Node
			if node.Typename != "Issue" || len(node.Issue.TimelineItems.Nodes) == 0 {
				continue
			}
			if login := string(node.Issue.TimelineItems.Nodes[0].ClosedEvent.Actor.Login); login != "" {
				closers[node.Issue.Number] = login
			}
		}
		if !q.Search.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Search.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of closed issues...")
	}
	return closers, nil
}

// withRateLimitRetry invokes call, waiting out primary rate limit windows up
// to the attempt budget. Non-rate-limit failures are wrapped in FetchError
// and returned immediately.
func (g *GitHubGateway) withRateLimitRetry(ctx context.Context, repo domain.Repo, call func() (*github.Response, error)) error {
	for attempt := 1; ; attempt++ {
		resp, err := call()
		if err == nil {
			return nil
		}
		wait, rateLimited := rateLimitWait(err)
		if !rateLimited {
			return &domain.FetchError{Repo: repo, StatusCode: statusCode(resp), Err: err}
		}
		if attempt >= maxRateLimitAttempts {
			return &domain.RateLimitError{Repo: repo, Attempts: attempt}
		}
		g.logger.Printf("  Rate limited on %s, retrying in %s (attempt %d/%d)...", repo, wait, attempt, maxRateLimitAttempts)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return &domain.FetchError{Repo: repo, Err: ctx.Err()}
		}
	}
}

// rateLimitWait extracts how long to sleep from a rate limit error.
func rateLimitWait(err error) (time.Duration, bool) {
	var limitErr *github.RateLimitError
	if errors.As(err, &limitErr) {
		wait := time.Until(limitErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.GetRetryAfter(), true
	}
	return 0, false
}

func statusCode(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func convertIssue(number int, title, state string, createdAt, closedAt *github.Timestamp) domain.Issue {
	entry := domain.Issue{
		Number: number,
		Title:  title,
		State:  state,
	}
	if createdAt != nil {
		entry.CreatedAt = createdAt.Time
	}
	if closedAt != nil {
		closed := closedAt.Time
		entry.ClosedAt = &closed
	}
	return entry
}
