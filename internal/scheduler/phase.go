package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"

	"github.com/typosniper/typo-sniper/internal/fuzzer"
	"github.com/typosniper/typo-sniper/internal/ml"
	"github.com/typosniper/typo-sniper/internal/record"
	"github.com/typosniper/typo-sniper/internal/threatintel"
	"github.com/typosniper/typo-sniper/internal/xerrors"
)

// admitted pairs a registered candidate with its DNS facts, the output
// of Phase A and the input to Phase B.
type admitted struct {
	candidate fuzzer.Candidate
	dns       resolvedDNS
}

type resolvedDNS struct {
	a, aaaa, mx, ns []string
}

// scanSeed runs Phase A then Phase B for one seed, returning the
// records assembled for it plus a per-cause count of degraded
// (nil-result, discarded, or transient-DNS) outcomes for the run
// summary. A single mutex guards both the records slice and the
// degraded map since Phase A's DNS goroutines and Phase B's enrichment
// goroutines can be live at the same time (Phase B starts consuming a
// seed's admitted candidates as soon as the first batch resolves).
func (s *Scanner) scanSeed(ctx context.Context, rawSeed string) ([]record.PermutationRecord, map[string]int) {
	degraded := map[string]int{}

	seed, err := fuzzer.NormalizeSeed(rawSeed)
	if err != nil {
		gologger.Warning().Msgf("scheduler: skipping unnormalizable seed %q: %s", rawSeed, xerrors.New(xerrors.KindInput, "normalize_seed", err))
		return nil, degraded
	}

	gen, err := fuzzer.New(seed, s.GeneratorConfig())
	if err != nil {
		gologger.Warning().Msgf("scheduler: skipping seed %q: %s", rawSeed, xerrors.New(xerrors.KindInput, "new_generator", err))
		return nil, degraded
	}

	var (
		mu      sync.Mutex
		records []record.PermutationRecord
		wg      sync.WaitGroup
	)
	addDegraded := func(kind string, n int) {
		mu.Lock()
		degraded[kind] += n
		mu.Unlock()
		if s.metrics != nil {
			s.metrics.EnricherFailures.WithLabelValues(kind).Add(float64(n))
		}
	}

	admittedCh := s.phaseA(ctx, gen, addDegraded)

	workers := make(chan struct{}, positive(s.cfg.MaxWorkers, 10))

	for a := range admittedCh {
		a := a
		wg.Add(1)
		workers <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-workers }()

			if ctx.Err() != nil {
				return
			}
			rec, d, ok := s.enrichCandidate(ctx, seed, a)

			mu.Lock()
			if ok {
				records = append(records, rec)
			}
			for k, v := range d {
				degraded[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return records, degraded
}

// phaseA streams the generator's candidates (gen.Stream), submits each to DNS
// resolution bounded by max_workers, and sleeps rate_limit_delay
// between batches (§4.5 Phase A). Only registered candidates are
// forwarded on the returned channel.
func (s *Scanner) phaseA(ctx context.Context, gen *fuzzer.Generator, addDegraded func(string, int)) <-chan admitted {
	out := make(chan admitted, 64)

	go func() {
		defer close(out)

		batch := make([]fuzzer.Candidate, 0, positive(s.cfg.MaxWorkers, 10))
		flush := func() {
			if len(batch) == 0 {
				return
			}
			s.resolveBatch(ctx, batch, out, addDegraded)
			batch = batch[:0]
			if s.cfg.RateLimitDelay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(s.cfg.RateLimitDelay):
				}
			}
		}

		for c := range gen.Stream() {
			if ctx.Err() != nil {
				return
			}
			if s.metrics != nil {
				s.metrics.CandidatesSeen.Inc()
			}
			batch = append(batch, c)
			if len(batch) >= positive(s.cfg.MaxWorkers, 10) {
				flush()
			}
		}
		flush()
	}()

	return out
}

func (s *Scanner) resolveBatch(ctx context.Context, batch []fuzzer.Candidate, out chan<- admitted, addDegraded func(string, int)) {
	var wg sync.WaitGroup
	for _, c := range batch {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.resolver.Resolve(ctx, c.Domain)
			if !res.Registered() {
				// A transient DNS failure that never resolved to a
				// clean answer is distinct from a candidate that is
				// genuinely unregistered; only the former should ever
				// make a seed's empty result count toward exit code 2.
				if xerrors.Is(err, xerrors.KindTransientNet) {
					addDegraded(xerrors.KindTransientNet.String(), 1)
				}
				return
			}
			select {
			case out <- admitted{candidate: c, dns: resolvedDNS{a: res.A, aaaa: res.AAAA, mx: res.MX, ns: res.NS}}:
			case <-ctx.Done():
			}
		}()
	}
	wg.Wait()
}

// enrichCandidate runs Phase B for one admitted candidate: WHOIS and
// every enabled threat-intel enricher in parallel, each bounded by its
// own semaphore, then risk scoring and (optionally) the ML hook. The
// third return value is false iff the candidate's per-candidate
// deadline fired before every enricher returned, in which case the
// first two return values must be discarded rather than emitted
// (§5 cancellation discipline, §7 DeadlineExceeded).
func (s *Scanner) enrichCandidate(ctx context.Context, seed string, a admitted) (record.PermutationRecord, map[string]int, bool) {
	degraded := map[string]int{}
	miss := func(enricher string) {
		degraded[enricher]++
		if s.metrics != nil {
			s.metrics.EnricherFailures.WithLabelValues(enricher).Inc()
		}
	}

	candCtx := ctx
	var cancel context.CancelFunc
	if d := s.candidateDeadline(); d > 0 {
		candCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var (
		whoisRec   *record.WhoisFacts
		urlscanRes *threatintel.URLScanResult
		ctRes      *threatintel.CTResult
		httpRes    *threatintel.HTTPProbeResult
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.whoisSem <- struct{}{}
		defer func() { <-s.whoisSem }()
		if rec, ok := s.whoisClient.Lookup(candCtx, a.candidate.Domain); ok {
			facts := record.FromWhois(rec)
			whoisRec = &facts
		} else {
			miss("whois")
		}
	}()

	if s.urlscan != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.urlscanSem <- struct{}{}
			defer func() { <-s.urlscanSem }()
			if r := s.urlscan.Fetch(candCtx, a.candidate.Domain); r != nil {
				urlscanRes = r
			} else {
				miss("urlscan")
			}
		}()
	}

	if s.ct != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ctSem <- struct{}{}
			defer func() { <-s.ctSem }()
			if r := s.ct.Fetch(candCtx, a.candidate.Domain); r != nil {
				ctRes = r
			} else {
				miss("certificate_transparency")
			}
		}()
	}

	if s.httpProbe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.httpSem <- struct{}{}
			defer func() { <-s.httpSem }()
			if r := s.httpProbe.Fetch(candCtx, a.candidate.Domain); r != nil {
				httpRes = r
			} else {
				miss("http_probe")
			}
		}()
	}

	wg.Wait()

	if candCtx.Err() != nil {
		// The per-candidate deadline fired before every enricher
		// returned. §5's cancellation discipline requires partial
		// records be discarded, not emitted half-populated — a caller
		// couldn't otherwise tell a deadline-cut record apart from one
		// whose fields are legitimately null. Every in-flight call
		// already released its own semaphore above.
		miss(xerrors.KindDeadlineExceeded.String())
		return record.PermutationRecord{}, degraded, false
	}

	rec := record.PermutationRecord{
		Seed:       seed,
		Domain:     a.candidate.Domain,
		Fuzzer:     a.candidate.Fuzzer,
		Registered: true,
		DNS: record.DNSFacts{
			A: a.dns.a, AAAA: a.dns.aaaa, MX: a.dns.mx, NS: a.dns.ns,
		},
	}
	if whoisRec != nil {
		rec.Whois = *whoisRec
	}
	rec.ThreatIntel = record.ThreatIntel{
		URLScan:                 urlscanRes,
		CertificateTransparency: ctRes,
		HTTPProbe:               httpRes,
	}

	if s.cfg.EnableRiskScoring {
		rec.RiskScore = threatintel.Score(threatintel.RiskInput{
			Fuzzer:             rec.Fuzzer,
			URLScan:            urlscanRes,
			WhoisCreationDate:  rec.Whois.CreationDate,
			WhoisRegistrarName: stringOrEmpty(rec.Whois.Registrar),
			WhoisEmails:        rec.Whois.Emails,
			HTTPProbeActive:    httpRes != nil && httpRes.Active,
			CTCount:            ctCountOf(ctRes),
		})
	}

	if s.mlHook != nil {
		s.scoreML(candCtx, &rec)
	}

	return rec, degraded, true
}

func (s *Scanner) scoreML(ctx context.Context, rec *record.PermutationRecord) {
	in := ml.Input{
		Domain:          rec.Domain,
		Fuzzer:          rec.Fuzzer,
		RiskScore:       rec.RiskScore,
		Registered:      rec.Registered,
		HasURLScan:      rec.ThreatIntel.URLScan != nil,
		HasWhois:        rec.Whois.RawOK,
		HTTPProbeActive: rec.ThreatIntel.HTTPProbe != nil && rec.ThreatIntel.HTTPProbe.Active,
		CTCount:         ctCountOf(rec.ThreatIntel.CertificateTransparency),
	}
	if rec.ThreatIntel.URLScan != nil {
		in.URLScanVerdict = rec.ThreatIntel.URLScan.Verdict
	}
	if rec.Whois.CreationDate != nil {
		in.WhoisAgeDays = int(time.Since(*rec.Whois.CreationDate).Hours() / 24)
	}

	results := s.mlHook.Run(ctx, []ml.Input{in})
	if len(results) == 1 && results[0] != nil {
		rec.ML = &record.MLResult{
			Risk:        results[0].Risk,
			Confidence:  results[0].Confidence,
			Verdict:     results[0].Verdict,
			NeedsReview: results[0].NeedsReview,
			Explanation: results[0].Explanation,
		}
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ctCountOf(r *threatintel.CTResult) int {
	if r == nil {
		return 0
	}
	return r.Count
}
