// Package metrics exposes the scan-level counters used for the §7
// user-visible summary (seeds attempted, records emitted, enrichers
// degraded). Counters live on their own registry so a batch run never
// collides with a caller's default Prometheus registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups the counters for a single scan run.
type Collector struct {
	Registry *prometheus.Registry

	SeedsAttempted   prometheus.Counter
	SeedsEmptyResult prometheus.Counter
	RecordsEmitted   prometheus.Counter
	CandidatesSeen   prometheus.Counter
	EnricherFailures *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
}

// New builds a Collector registered against a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		SeedsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "seeds_attempted_total",
			Help:      "Number of seed domains submitted to the scan.",
		}),
		SeedsEmptyResult: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "seeds_empty_result_total",
			Help:      "Seeds that produced zero records, whether cleanly unregistered or transiently failed.",
		}),
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "records_emitted_total",
			Help:      "PermutationRecords emitted to exporters.",
		}),
		CandidatesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "candidates_generated_total",
			Help:      "Candidates produced by the permutation generator.",
		}),
		EnricherFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "enricher_failures_total",
			Help:      "Enricher invocations that returned a miss after retries.",
		}, []string{"enricher"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "cache_hits_total",
			Help:      "Cache reads that found a live entry.",
		}, []string{"namespace"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "typo_sniper",
			Name:      "cache_misses_total",
			Help:      "Cache reads that found no live entry.",
		}, []string{"namespace"}),
	}

	reg.MustRegister(
		c.SeedsAttempted, c.SeedsEmptyResult, c.RecordsEmitted,
		c.CandidatesSeen, c.EnricherFailures, c.CacheHits, c.CacheMisses,
	)
	return c
}
