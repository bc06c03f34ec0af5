package pipeline

import "errors"

// Fatal error categories for a pipeline run. Each aborts the whole run and
// is surfaced to the caller as-is (wrapped, matchable with errors.Is).
// Per-item normalization failures are not part of this taxonomy: they are
// contained inside Run and replaced with degraded records.
var (
	// ErrConfig marks missing required configuration.
	ErrConfig = errors.New("missing required configuration")

	// ErrCredential marks a failed access-token retrieval.
	ErrCredential = errors.New("failed to retrieve access token")

	// ErrUpstream marks an error payload reported by the feed.
	ErrUpstream = errors.New("feed reported an error")
)
