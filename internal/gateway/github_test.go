package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ichard26/ghstats/internal/domain"
)

var testRepo = domain.Repo{Owner: "psf", Name: "black"}

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL+"/graphql", server.Client())
	logger := log.New(io.Discard, "", 0)

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}

	return gateway, server
}

func TestGitHubGateway_FetchIssues_Pagination(t *testing.T) {
	var server *httptest.Server
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/psf/black/issues")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			// Last page; includes a pull request that must be filtered out.
			fmt.Fprint(w, `[
				{"number": 3, "title": "three", "state": "open", "created_at": "2024-01-03T00:00:00Z"},
				{"number": 4, "title": "a pr", "state": "open", "created_at": "2024-01-04T00:00:00Z", "pull_request": {"url": "https://example.test/pull/4"}}
			]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/psf/black/issues?page=2>; rel="next"`, server.URL))
		fmt.Fprint(w, `[
			{"number": 1, "title": "one", "state": "open", "created_at": "2024-01-01T00:00:00Z"},
			{"number": 2, "title": "two", "state": "closed", "created_at": "2024-01-02T00:00:00Z", "closed_at": "2024-02-01T12:00:00Z"}
		]`)
	}
	gateway, srv := setupTestGateway(t, http.HandlerFunc(handler))
	server = srv

	listing, err := gateway.FetchIssues(context.Background(), testRepo, "")
	require.NoError(t, err)

	// Three issues across both pages; the PR is excluded.
	require.Len(t, listing, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{listing[0].Number, listing[1].Number, listing[2].Number})
	assert.True(t, listing[0].Open())
	assert.False(t, listing[1].Open())
	require.NotNil(t, listing[1].ClosedAt)
	assert.Equal(t, domain.Date("2024-02-01"), domain.DateOf(*listing[1].ClosedAt))
}

func TestGitHubGateway_FetchIssues_CloserAttribution(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/graphql" {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "repo:psf/black is:issue is:closed closed:2024-02-01")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"data":{"search":{"edges":[{"node":{"__typename":"Issue","number":2,"timelineItems":{"nodes":[{"actor":{"login":"alice"}}]}}}]}}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"number": 1, "title": "open one", "state": "open", "created_at": "2024-01-01T00:00:00Z"},
			{"number": 2, "title": "closed today", "state": "closed", "created_at": "2024-01-02T00:00:00Z", "closed_at": "2024-02-01T09:00:00Z"},
			{"number": 3, "title": "closed earlier", "state": "closed", "created_at": "2024-01-03T00:00:00Z", "closed_at": "2024-01-20T09:00:00Z"}
		]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	listing, err := gateway.FetchIssues(context.Background(), testRepo, "2024-02-01")
	require.NoError(t, err)

	require.Len(t, listing, 3)
	assert.Empty(t, listing[0].ClosedBy)
	assert.Equal(t, "alice", listing[1].ClosedBy)
	// Issues closed on other days are not attributed.
	assert.Empty(t, listing[2].ClosedBy)
}

func TestGitHubGateway_FetchIssues_NoClosesSkipsGraphQL(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NotEqual(t, "/graphql", r.URL.Path, "closer query must be skipped when nothing closed that day")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"number": 1, "title": "one", "state": "open", "created_at": "2024-01-01T00:00:00Z"}]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	listing, err := gateway.FetchIssues(context.Background(), testRepo, "2024-02-01")
	require.NoError(t, err)
	assert.Len(t, listing, 1)
}

func TestGitHubGateway_FetchPulls(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/psf/black/pulls")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"number": 10, "title": "pr ten", "state": "open", "created_at": "2024-01-10T00:00:00Z"},
			{"number": 11, "title": "pr eleven", "state": "closed", "created_at": "2024-01-11T00:00:00Z", "closed_at": "2024-01-12T00:00:00Z"}
		]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	listing, err := gateway.FetchPulls(context.Background(), testRepo)
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.True(t, listing[0].Open())
	assert.False(t, listing[1].Open())
}

// TestGitHubGateway_RateLimitRetry verifies that a rate-limited first attempt
// followed by success yields the same listing as immediate success.
func TestGitHubGateway_RateLimitRetry(t *testing.T) {
	attempts := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(-time.Second).Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"number": 1, "title": "one", "state": "open", "created_at": "2024-01-01T00:00:00Z"}]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	listing, err := gateway.FetchIssues(context.Background(), testRepo, "")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, listing, 1)
	assert.Equal(t, 1, listing[0].Number)
}

func TestGitHubGateway_RateLimitBudgetExhausted(t *testing.T) {
	attempts := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(-time.Second).Unix()))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	_, err := gateway.FetchIssues(context.Background(), testRepo, "")

	var limitErr *domain.RateLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, maxRateLimitAttempts, attempts)
	assert.Equal(t, testRepo, limitErr.Repo)
	assert.Equal(t, maxRateLimitAttempts, limitErr.Attempts)
}

func TestGitHubGateway_HTTPFailureIsFetchError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	_, err := gateway.FetchIssues(context.Background(), testRepo, "")

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, testRepo, fetchErr.Repo)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestGitHubGateway_GraphQLFailureIsFetchError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/graphql" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"errors":[{"message":"Something went wrong"}]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"number": 2, "title": "closed", "state": "closed", "created_at": "2024-01-02T00:00:00Z", "closed_at": "2024-02-01T09:00:00Z"}]`)
	}
	gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

	_, err := gateway.FetchIssues(context.Background(), testRepo, "2024-02-01")

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "closers")
}
