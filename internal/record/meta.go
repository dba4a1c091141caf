package record

import "time"

// ScanMeta accompanies the ordered PermutationRecord sequence handed to
// an exporter: tool version, scan window, the seed list, and which
// optional features were enabled for this run (§6 Exporter interface).
type ScanMeta struct {
	ScanID          string    `json:"scan_id"`
	ToolVersion     string    `json:"tool_version"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Seeds           []string  `json:"seeds"`
	EnabledFeatures []string  `json:"enabled_features"`
}

// Summary is the §7 user-visible failure report: counts of seeds
// attempted, records emitted, and enrichers that degraded, plus the
// exit-code-2 decision (a seed produced zero records due to repeated
// transient errors, as distinct from a seed that simply had no
// registered candidates).
type Summary struct {
	SeedsAttempted   int `json:"seeds_attempted"`
	SeedsEmptyResult int `json:"seeds_empty_result"`

	// SeedsFailedTransient counts the subset of SeedsEmptyResult whose
	// zero-record outcome was caused by DNS resolution exhausting its
	// retries (internal/xerrors.KindTransientNet), not by candidates
	// that were cleanly resolved as unregistered. Only this counter
	// drives ExitCode — a clean zero-result scan is not a failure (§7).
	SeedsFailedTransient int            `json:"seeds_failed_transient"`
	RecordsEmitted       int            `json:"records_emitted"`
	DegradedEnrichers    map[string]int `json:"degraded_enrichers"`

	// ReviewBatch is the §4.7 active-learning sidecar: domains whose
	// ml.confidence fell within the configured uncertainty band around
	// the 0.5 decision boundary, capped at review_budget. Empty unless
	// ml_enable_active_learning is set.
	ReviewBatch []string `json:"review_batch,omitempty"`
}

// ExitCode returns the §6 process exit code implied by this summary:
// 2 iff any seed produced zero records through repeated transient
// failure, 0 otherwise (a clean zero-result seed, or partial
// per-enricher degradation, is not fatal).
func (s Summary) ExitCode() int {
	if s.SeedsFailedTransient > 0 {
		return 2
	}
	return 0
}
