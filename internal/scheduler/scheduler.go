// Package scheduler implements the Scheduler/Scanner (C6): it
// orchestrates the permutation generator, DNS resolver, WHOIS/threat-
// intel enrichers, and the ML hook per seed domain with bounded
// concurrency, rate limits, cancellation, and cache use (§4.5). It is
// grounded on the teacher's internal/scanner worker-pool shape
// (semaphore-gated goroutines over a WaitGroup), generalized from a
// single DNS-then-banner pass into the two-phase admit-then-enrich
// pipeline §4.5 specifies.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/projectdiscovery/gologger"

	"github.com/typosniper/typo-sniper/internal/cache"
	"github.com/typosniper/typo-sniper/internal/config"
	"github.com/typosniper/typo-sniper/internal/fuzzer"
	"github.com/typosniper/typo-sniper/internal/metrics"
	"github.com/typosniper/typo-sniper/internal/ml"
	"github.com/typosniper/typo-sniper/internal/record"
	"github.com/typosniper/typo-sniper/internal/resolver"
	"github.com/typosniper/typo-sniper/internal/secrets"
	"github.com/typosniper/typo-sniper/internal/threatintel"
	"github.com/typosniper/typo-sniper/internal/whois"
	"github.com/typosniper/typo-sniper/internal/xerrors"
)

// ToolVersion is stamped into every ScanMeta; set at build time via
// -ldflags in a real release, a plain constant here.
const ToolVersion = "dev"

// Scanner holds every constructed enricher and the semaphores that
// bound their concurrency. All fields are immutable after New returns;
// the only mutable state at scan time lives behind the cache's
// single-flight group and the semaphore channels themselves (§5).
type Scanner struct {
	cfg     config.Config
	metrics *metrics.Collector
	cache   *cache.Cache

	resolver    *resolver.Resolver
	whoisClient *whois.Client

	urlscan   *threatintel.URLScanClient
	ct        *threatintel.CTClient
	httpProbe *threatintel.HTTPProbeClient

	mlHook *ml.Hook

	whoisSem   chan struct{}
	urlscanSem chan struct{}
	ctSem      chan struct{}
	httpSem    chan struct{}
}

// New builds a Scanner from cfg. secretsResolver supplies §4.8 credential
// resolution for the "auto" enabler tri-state (§9); scorer is the
// out-of-scope ML classifier plugin, nil when ml is disabled or no
// plugin was configured.
func New(ctx context.Context, cfg config.Config, secretsResolver *secrets.Resolver, scorer ml.Scorer, mc *metrics.Collector) (*Scanner, error) {
	if mc == nil {
		mc = metrics.New()
	}

	// Enrichers are written against *cache.Cache directly (not an
	// interface), so even use_cache=false needs a usable instance.
	// Rather than thread a bypass flag through every Get/Put call, a
	// disabled cache is rooted in a fresh per-run temp directory: reads
	// never hit a prior run's entries and writes never outlive this
	// process, which is behaviorally equivalent to "no caching" from
	// the scheduler's point of view.
	cacheDir := cfg.CacheDir
	if !cfg.UseCache {
		tmp, err := os.MkdirTemp("", "typo-sniper-nocache-*")
		if err != nil {
			return nil, fmt.Errorf("building ephemeral cache dir: %w", err)
		}
		cacheDir = tmp
	}
	c, err := cache.New(cacheDir, mc)
	if err != nil {
		return nil, fmt.Errorf("building cache: %w", err)
	}

	s := &Scanner{
		cfg:         cfg,
		metrics:     mc,
		cache:       c,
		resolver:    resolver.New("", cfg.DNSRetryCount),
		whoisClient: whois.New(c, cfg.WhoisTimeout, cfg.WhoisRetryCount, cfg.WhoisRetryDelay, cfg.CacheTTL),
		whoisSem:    make(chan struct{}, positive(cfg.EnricherConcurrency.Whois, 8)),
		urlscanSem:  make(chan struct{}, positive(cfg.EnricherConcurrency.URLScan, 4)),
		ctSem:       make(chan struct{}, positive(cfg.EnricherConcurrency.CT, 10)),
		httpSem:     make(chan struct{}, positive(cfg.EnricherConcurrency.HTTPProbe, 20)),
	}

	urlscanEnabled := resolveTri(cfg.EnableURLScan, func() bool {
		if secretsResolver == nil {
			return false
		}
		_, ok := secretsResolver.Resolve(ctx, "urlscan_api_key")
		return ok
	})
	if urlscanEnabled {
		key := cfg.URLScanAPIKey
		if key == "" && secretsResolver != nil {
			key, _ = secretsResolver.Resolve(ctx, "urlscan_api_key")
		}
		if key != "" {
			s.urlscan = threatintel.NewURLScanClient(key, cfg.URLScanMaxAgeDays, cfg.URLScanWaitTimeout, cfg.URLScanVisibility, cfg.URLScanSubmitInterval, c)
		}
	}

	if cfg.EnableCertificateTransparency {
		s.ct = threatintel.NewCTClient(15*time.Second, c)
	}
	if cfg.EnableHTTPProbe {
		s.httpProbe = threatintel.NewHTTPProbeClient(cfg.HTTPTimeout)
	}
	if cfg.EnableML && scorer != nil {
		s.mlHook = ml.New(scorer)
	}

	return s, nil
}

// resolveTri implements the §9 "auto-enable when key present" redesign:
// force_on/force_off are explicit; auto defers to hasSecret.
func resolveTri(t config.Tri, hasSecret func() bool) bool {
	switch t {
	case config.ForceOn:
		return true
	case config.ForceOff:
		return false
	default:
		return hasSecret()
	}
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Scan runs the full pipeline over seeds, preserving their input order
// in the returned slice (§4.5 contract) regardless of per-seed
// completion time — each seed is fully resolved, enriched, filtered,
// and sorted before the next seed begins, which trivially satisfies the
// cross-seed ordering guarantee without a separate reorder buffer.
func (s *Scanner) Scan(ctx context.Context, seeds []string) ([]record.PermutationRecord, record.ScanMeta, record.Summary) {
	meta := record.ScanMeta{
		ScanID:          uuid.New().String(),
		ToolVersion:     ToolVersion,
		StartedAt:       time.Now(),
		Seeds:           seeds,
		EnabledFeatures: s.enabledFeatures(),
	}
	summary := record.Summary{DegradedEnrichers: make(map[string]int)}

	scanCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.GlobalDeadline > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, s.cfg.GlobalDeadline)
		defer cancel()
	}

	var out []record.PermutationRecord
	for _, seed := range seeds {
		summary.SeedsAttempted++
		s.metrics.SeedsAttempted.Inc()

		seedRecords, degraded := s.scanSeed(scanCtx, seed)
		seedRecords = record.FilterByMonths(seedRecords, s.cfg.MonthsFilter, time.Now())
		record.Sort(seedRecords)

		if len(seedRecords) == 0 {
			summary.SeedsEmptyResult++
			s.metrics.SeedsEmptyResult.Inc()
			// Only a seed whose zero-result is attributable to DNS
			// resolution exhausting its retries counts toward exit code
			// 2 (§7) — a seed whose candidates were cleanly resolved as
			// unregistered is a correct, non-fatal outcome.
			if degraded[xerrors.KindTransientNet.String()] > 0 {
				summary.SeedsFailedTransient++
			}
			gologger.Warning().Msgf("scheduler: seed %q produced zero records", seed)
		}
		for enricher, n := range degraded {
			summary.DegradedEnrichers[enricher] += n
		}

		summary.RecordsEmitted += len(seedRecords)
		s.metrics.RecordsEmitted.Add(float64(len(seedRecords)))
		out = append(out, seedRecords...)

		if scanCtx.Err() != nil {
			gologger.Warning().Msgf("scheduler: deadline exceeded after seed %q, emitting partial results", seed)
			break
		}
	}

	if s.mlHook != nil && s.cfg.MLEnableActiveLearning {
		summary.ReviewBatch = s.activeLearningBatch(out)
	}

	meta.FinishedAt = time.Now()
	return out, meta, summary
}

// activeLearningBatch runs the §4.7 active-learning selection over the
// full, already-assembled record set once the scan completes, per the
// "selects, after a full scan" contract — this is deliberately a
// separate pass from the per-candidate ml.Hook.Run call in Phase B, not
// a re-scoring.
func (s *Scanner) activeLearningBatch(records []record.PermutationRecord) []string {
	domains := make([]string, 0, len(records))
	results := make([]*ml.Result, 0, len(records))
	for _, r := range records {
		domains = append(domains, r.Domain)
		if r.ML == nil {
			results = append(results, nil)
			continue
		}
		results = append(results, &ml.Result{
			Risk:        r.ML.Risk,
			Confidence:  r.ML.Confidence,
			Verdict:     r.ML.Verdict,
			NeedsReview: r.ML.NeedsReview,
			Explanation: r.ML.Explanation,
		})
	}
	return ml.ActiveLearningBatch(domains, results, s.cfg.MLUncertaintyThreshold, s.cfg.MLReviewBudget)
}

func (s *Scanner) enabledFeatures() []string {
	var feats []string
	if s.cfg.EnableCombosquatting {
		feats = append(feats, "combosquatting")
	}
	if s.cfg.EnableSoundalike {
		feats = append(feats, "soundalike")
	}
	if s.cfg.EnableIDNHomograph {
		feats = append(feats, "idn_homograph")
	}
	if s.urlscan != nil {
		feats = append(feats, "urlscan")
	}
	if s.ct != nil {
		feats = append(feats, "certificate_transparency")
	}
	if s.httpProbe != nil {
		feats = append(feats, "http_probe")
	}
	if s.cfg.EnableRiskScoring {
		feats = append(feats, "risk_scoring")
	}
	if s.mlHook != nil {
		feats = append(feats, "ml")
	}
	return feats
}

// candidateDeadline returns the §4.5 per-candidate deadline: the max of
// each active enricher's timeout, scaled by 1.5.
func (s *Scanner) candidateDeadline() time.Duration {
	longest := s.cfg.WhoisTimeout
	if s.urlscan != nil && s.cfg.URLScanWaitTimeout > longest {
		longest = s.cfg.URLScanWaitTimeout
	}
	if s.ct != nil && 15*time.Second > longest {
		longest = 15 * time.Second // the CT client's timeout set in New
	}
	if s.httpProbe != nil && s.cfg.HTTPTimeout > longest {
		longest = s.cfg.HTTPTimeout
	}
	return time.Duration(float64(longest) * 1.5)
}

// GeneratorConfig builds the fuzzer.Config for a single seed scan from
// the scheduler's own cfg, so callers of Scan never construct one
// themselves.
func (s *Scanner) GeneratorConfig() fuzzer.Config {
	return fuzzer.Config{
		EnableCombosquatting: s.cfg.EnableCombosquatting,
		EnableSoundalike:     s.cfg.EnableSoundalike,
		EnableIDNHomograph:   s.cfg.EnableIDNHomograph,
	}
}

// Cache exposes the underlying cache for callers that want
// ClearExpired/GetStats without re-deriving the cache dir (e.g. a CLI
// `cache stats` subcommand).
func (s *Scanner) Cache() *cache.Cache { return s.cache }
