package threatintel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/projectdiscovery/retryablehttp-go"

	"github.com/typosniper/typo-sniper/internal/cache"
)

// errCTNoResult marks a CT lookup that produced nothing cacheable;
// GetOrFetch never writes a cache entry for it.
var errCTNoResult = errors.New("ct: fetch failed")

// CTClient queries crt.sh's public Certificate Transparency index —
// no key, unlike the multi-log-server miner the teacher's ctlogs
// package drives, but the same decode-JSON-then-summarize shape.
type CTClient struct {
	httpClient *retryablehttp.Client
	timeout    time.Duration
	cache      *cache.Cache
}

func NewCTClient(timeout time.Duration, c *cache.Cache) *CTClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := retryablehttp.DefaultOptionsSpraying
	opts.RetryMax = 1
	return &CTClient{
		httpClient: retryablehttp.NewClient(opts),
		timeout:    timeout,
		cache:      c,
	}
}

type crtShEntry struct {
	IssuerName     string `json:"issuer_name"`
	NotBefore      string `json:"not_before"`
	NotAfter       string `json:"not_after"`
	NameValue      string `json:"name_value"`
}

// Fetch returns crt.sh's certificate count and issuer set for domain,
// or nil on any failure (timeout, non-200, malformed body) — a CT
// failure never fails the scan (§4.4). It goes through cache.GetOrFetch
// so two candidates sharing a cache key within the same scan never both
// query crt.sh (§4.6 single-flight contract).
func (c *CTClient) Fetch(ctx context.Context, domain string) *CTResult {
	var result CTResult
	ok, err := c.cache.GetOrFetch("ct", domain, 24*time.Hour, &result, func() (interface{}, error) {
		r := c.fetchFrom(ctx, "https://crt.sh/?q="+domain+"&output=json")
		if r == nil {
			return nil, errCTNoResult
		}
		return r, nil
	})
	if err != nil || !ok {
		return nil
	}
	return &result
}

// fetchFrom issues the crt.sh-shaped query against an explicit URL,
// split out from Fetch so tests can point it at a mock server.
func (c *CTClient) fetchFrom(ctx context.Context, url string) *CTResult {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var entries []crtShEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil
	}

	return summarize(entries)
}

func summarize(entries []crtShEntry) *CTResult {
	issuerSet := make(map[string]bool)
	var first, last time.Time

	for _, e := range entries {
		if e.IssuerName != "" {
			issuerSet[e.IssuerName] = true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(e.NotBefore, "Z")); err == nil {
			if first.IsZero() || t.Before(first) {
				first = t
			}
			if t.After(last) {
				last = t
			}
		}
	}

	issuers := make([]string, 0, len(issuerSet))
	for name := range issuerSet {
		issuers = append(issuers, name)
	}
	sort.Strings(issuers)

	return &CTResult{
		Count:     len(entries),
		Issuers:   issuers,
		FirstSeen: first,
		LastSeen:  last,
	}
}
