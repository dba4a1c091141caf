// Package resolver is the DNS Resolver (C3): it decides whether a
// candidate is registered by probing for any A/AAAA/MX/NS record of
// interest. It is grounded on the teacher's internal/scanner package
// (lookupA/lookupMX/lookupNS), generalized to the full four record-type
// set, retried with the shared retry policy, and made to never fail
// fatally — per §4.2, a final transient failure demotes to Unregistered.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
	"github.com/projectdiscovery/gologger"

	"github.com/typosniper/typo-sniper/internal/retry"
	"github.com/typosniper/typo-sniper/internal/xerrors"
)

// Result is the per-domain DNS outcome consumed by record assembly.
type Result struct {
	A, AAAA, MX, NS []string
}

// Registered reports whether any of the four queried record types
// returned at least one answer (§3 registered, first disjunct).
func (r Result) Registered() bool {
	return len(r.A) > 0 || len(r.AAAA) > 0 || len(r.MX) > 0 || len(r.NS) > 0
}

// Resolver queries a single configured nameserver for the record types
// §4.2 cares about.
type Resolver struct {
	client      *dns.Client
	nameserver  string
	retryPolicy retry.Policy
}

// New builds a Resolver. nameserver is a "host:port" address; retryCount
// is the number of retries (so MaxAttempts = retryCount+1) applied to
// each individual record-type query on transient network errors.
func New(nameserver string, retryCount int) *Resolver {
	if nameserver == "" {
		nameserver = "8.8.8.8:53"
	}
	return &Resolver{
		client:     &dns.Client{Net: "udp", Timeout: 5 * time.Second},
		nameserver: nameserver,
		retryPolicy: retry.Policy{
			Timeout:     5 * time.Second,
			MaxAttempts: retryCount + 1,
			BackoffBase: 500 * time.Millisecond,
			IsRetryable: isRetryableDNSError,
		},
	}
}

// rcodeError wraps a non-success, non-NXDOMAIN response code (SERVFAIL,
// REFUSED, ...) so isRetryableDNSError can recognize it as transient
// rather than a terminal answer.
type rcodeError struct {
	rcode  int
	domain string
}

func (e *rcodeError) Error() string {
	return fmt.Sprintf("dns rcode %d for %s", e.rcode, e.domain)
}

// isRetryableDNSError extends retry.DefaultIsRetryable with rcodeError,
// so a SERVFAIL/REFUSED answer is retried exactly like a network timeout
// (§4.2: "retried up to dns_retry_count ... on transient network errors").
func isRetryableDNSError(err error) bool {
	var rc *rcodeError
	if errors.As(err, &rc) {
		return true
	}
	return retry.DefaultIsRetryable(err)
}

// Resolve queries A, AAAA, MX, and NS for domain. It never aborts on a
// transient failure: a final transient failure on any record type
// demotes that type to "no answer" and is logged as a warning (§4.2, §7
// EnrichmentMiss). The caller decides registered-ness via
// Result.Registered; the returned error, when non-nil, classifies the
// last transient failure (via internal/xerrors) purely for the
// scheduler's repeated-transient-error accounting (§7) — it is never
// fatal and callers must not treat it as one.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Result, error) {
	var result Result
	var lastErr error

	a, err := r.queryStrings(ctx, domain, dns.TypeA)
	result.A = a
	if err != nil {
		lastErr = err
	}
	aaaa, err := r.queryStrings(ctx, domain, dns.TypeAAAA)
	result.AAAA = aaaa
	if err != nil {
		lastErr = err
	}
	mx, err := r.queryStrings(ctx, domain, dns.TypeMX)
	result.MX = mx
	if err != nil {
		lastErr = err
	}
	ns, err := r.queryStrings(ctx, domain, dns.TypeNS)
	result.NS = ns
	if err != nil {
		lastErr = err
	}

	return result, lastErr
}

func (r *Resolver) queryStrings(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	var answer *dns.Msg
	err := retry.Do(ctx, r.retryPolicy, func(attemptCtx context.Context) error {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domain), qtype)
		m.RecursionDesired = true

		resp, _, exchErr := r.client.ExchangeContext(attemptCtx, m, r.nameserver)
		if exchErr != nil {
			return exchErr
		}
		if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
			return &rcodeError{rcode: resp.Rcode, domain: domain}
		}
		answer = resp
		return nil
	})
	if err != nil {
		wrapped := xerrors.New(xerrors.KindTransientNet, "dns.resolve", err)
		gologger.Warning().Msgf("dns lookup failed for %s (type %d): %s", domain, qtype, wrapped)
		return nil, wrapped
	}
	if answer == nil {
		return nil, nil
	}
	return extractAnswers(answer, qtype), nil
}

func extractAnswers(msg *dns.Msg, qtype uint16) []string {
	var out []string
	for _, rr := range msg.Answer {
		switch qtype {
		case dns.TypeA:
			if a, ok := rr.(*dns.A); ok {
				out = append(out, a.A.String())
			}
		case dns.TypeAAAA:
			if aaaa, ok := rr.(*dns.AAAA); ok {
				out = append(out, aaaa.AAAA.String())
			}
		case dns.TypeMX:
			if mx, ok := rr.(*dns.MX); ok {
				out = append(out, mx.Mx)
			}
		case dns.TypeNS:
			if ns, ok := rr.(*dns.NS); ok {
				out = append(out, ns.Ns)
			}
		}
	}
	return out
}
