package domain

import "fmt"

// FetchError reports a non-rate-limit failure while talking to the tracker
// API. It is fatal to the affected repository's refresh cycle only; other
// repositories continue.
type FetchError struct {
	Repo       Repo
	StatusCode int // 0 when the failure happened below the HTTP layer
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed for %s (HTTP %d): %v", e.Repo, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.Repo, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RateLimitError reports that the bounded rate-limit retry budget was
// exhausted. Handled identically to FetchError by the orchestrator.
type RateLimitError struct {
	Repo     Repo
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s after %d attempts", e.Repo, e.Attempts)
}

// OutOfOrderWriteError reports an attempt to append a snapshot dated strictly
// earlier than the latest stored entry. Correct orchestration can never
// produce this; it signals a logic or clock bug upstream, so the whole run is
// aborted rather than the write silently dropped.
type OutOfOrderWriteError struct {
	Repo   Repo
	View   ViewKind
	Date   Date
	Latest Date
}

func (e *OutOfOrderWriteError) Error() string {
	return fmt.Sprintf("out-of-order write to %s/%s: snapshot date %s predates latest entry %s",
		e.Repo, e.View, e.Date, e.Latest)
}
