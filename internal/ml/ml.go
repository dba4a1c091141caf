// Package ml implements the optional ML Hook (C9): a deferred scorer
// invoked after Phase B enrichment, in batches of up to 256 records, per
// §4.7. It depends only on a narrow input/result pair, never on the
// scheduler's internal types, per §9's "cyclic module references → one
// one-way dependency" design note: this package must not import
// internal/scheduler.
package ml

import (
	"context"

	"github.com/projectdiscovery/gologger"
)

// BatchSize is the §4.7 batching contract.
const BatchSize = 256

// Input is the narrow projection of an assembled record the scorer
// needs — no dependency on internal/record to keep the one-way edge.
type Input struct {
	Domain            string
	Fuzzer            string
	RiskScore         int
	Registered        bool
	HasURLScan        bool
	URLScanVerdict    string
	HasWhois          bool
	WhoisAgeDays      int
	HTTPProbeActive   bool
	CTCount           int
}

// Result is the §3 `ml` field shape.
type Result struct {
	Risk        int
	Confidence  float64
	Verdict     string
	NeedsReview bool
	Explanation string
}

// Scorer is implemented by the pluggable classifier; this package ships
// no implementation of its own, and any Scorer works (§1 "opaque scorer
// plugged in after enrichment").
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// Hook wraps a Scorer with the §4.7 strictly-additive contract: any
// panic or error within the scorer is logged and yields a nil result
// for that record, never blocking emission or mutating other fields.
type Hook struct {
	scorer Scorer
}

// New builds a Hook over the given Scorer. A nil scorer makes every
// Run call a no-op returning all-nil results, matching ml disabled.
func New(scorer Scorer) *Hook {
	return &Hook{scorer: scorer}
}

// Run scores inputs in batches of BatchSize, returning one *Result per
// input (nil where scoring failed or the hook is disabled). The slice
// returned is always len(inputs) long and in the same order, so callers
// can zip it back onto their records positionally.
func (h *Hook) Run(ctx context.Context, inputs []Input) []*Result {
	out := make([]*Result, len(inputs))
	if h == nil || h.scorer == nil {
		return out
	}

	for start := 0; start < len(inputs); start += BatchSize {
		end := start + BatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		for i := start; i < end; i++ {
			out[i] = h.scoreOne(ctx, inputs[i])
		}
	}
	return out
}

func (h *Hook) scoreOne(ctx context.Context, in Input) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			gologger.Warning().Msgf("ml: scorer panicked for %s: %v", in.Domain, r)
			result = nil
		}
	}()

	res, err := h.scorer.Score(ctx, in)
	if err != nil {
		gologger.Warning().Msgf("ml: scorer failed for %s: %s", in.Domain, err)
		return nil
	}
	return &res
}

// ActiveLearningBatch selects up to budget records whose confidence
// lies within [0.5-uncertainty, 0.5+uncertainty] for human labeling
// (§4.7 "active learning" mode). results and domains must be parallel
// slices of equal length; nil entries in results are skipped.
func ActiveLearningBatch(domains []string, results []*Result, uncertainty float64, budget int) []string {
	if budget <= 0 {
		return nil
	}
	lo, hi := 0.5-uncertainty, 0.5+uncertainty

	var picked []string
	for i, r := range results {
		if r == nil || i >= len(domains) {
			continue
		}
		if r.Confidence >= lo && r.Confidence <= hi {
			picked = append(picked, domains[i])
			if len(picked) >= budget {
				break
			}
		}
	}
	return picked
}
