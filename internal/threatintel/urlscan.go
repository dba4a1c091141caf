package threatintel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/projectdiscovery/retryablehttp-go"
	"golang.org/x/time/rate"

	"github.com/typosniper/typo-sniper/internal/cache"
)

// errURLScanNoResult marks a lookup-then-submit-then-poll pass that
// produced nothing cacheable (every phase failed or timed out);
// GetOrFetch never writes a cache entry for it.
var errURLScanNoResult = errors.New("urlscan: no existing or submitted result")

// URLScanClient implements the two-phase lookup-then-submit-then-poll
// protocol against urlscan.io (§4.4), grounded on the teacher's
// subscraping/sources/urlscan.go JSON-decode shape and rate-limited
// the way its ctlogs miner rate-limits with a ticker, generalized here
// to golang.org/x/time/rate so submit calls share one token bucket
// across goroutines.
type URLScanClient struct {
	apiKey      string
	maxAgeDays  int
	waitTimeout time.Duration
	visibility  string
	pollInterval time.Duration

	// baseURL defaults to urlscan.io's API root; overridable in tests.
	baseURL string

	httpClient  *retryablehttp.Client
	submitLimit *rate.Limiter
	cache       *cache.Cache
}

// NewURLScanClient builds a client. An empty apiKey means the caller
// already decided not to enable URLScan (§4.4 "auto-enables iff an API
// key is resolved") — callers should check apiKey != "" before constructing.
func NewURLScanClient(apiKey string, maxAgeDays int, waitTimeout time.Duration, visibility string, submitInterval time.Duration, c *cache.Cache) *URLScanClient {
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	if waitTimeout <= 0 {
		waitTimeout = 90 * time.Second
	}
	if visibility == "" {
		visibility = "public"
	}
	if submitInterval <= 0 {
		submitInterval = time.Second
	}

	opts := retryablehttp.DefaultOptionsSpraying
	opts.RetryMax = 2
	return &URLScanClient{
		apiKey:       apiKey,
		maxAgeDays:   maxAgeDays,
		waitTimeout:  waitTimeout,
		visibility:   visibility,
		pollInterval: 5 * time.Second,
		baseURL:      "https://urlscan.io/api/v1",
		httpClient:   retryablehttp.NewClient(opts),
		submitLimit:  rate.NewLimiter(rate.Every(submitInterval), 1),
		cache:        c,
	}
}

type urlscanSearchResponse struct {
	Results []struct {
		Task struct {
			Time string `json:"time"`
			UUID string `json:"uuid"`
		} `json:"task"`
		Page struct {
			URL string `json:"url"`
		} `json:"page"`
		Verdicts struct {
			Overall struct {
				Malicious bool `json:"malicious"`
				Score     int  `json:"score"`
			} `json:"overall"`
		} `json:"verdicts"`
	} `json:"results"`
}

type urlscanSubmitResponse struct {
	UUID string `json:"uuid"`
	API  string `json:"api"`
}

type urlscanResultResponse struct {
	Task struct {
		ReportURL string `json:"reportURL"`
	} `json:"task"`
	Verdicts struct {
		Overall struct {
			Malicious bool `json:"malicious"`
			Score     int  `json:"score"`
		} `json:"overall"`
	} `json:"verdicts"`
}

// Fetch runs the two-phase protocol for domain, returning nil on any
// enricher failure (§4.4: URLScan failure is never fatal). It goes
// through cache.GetOrFetch so two candidates sharing a cache key within
// the same scan never both submit/poll (§4.6 single-flight contract).
func (u *URLScanClient) Fetch(ctx context.Context, domain string) *URLScanResult {
	cacheKey := fmt.Sprintf("%s:%d", domain, u.maxAgeDays)

	var result URLScanResult
	ok, err := u.cache.GetOrFetch("urlscan", cacheKey, 24*time.Hour, &result, func() (interface{}, error) {
		r := u.lookup(ctx, domain)
		if r == nil {
			r = u.submitAndPoll(ctx, domain)
		}
		if r == nil {
			return nil, errURLScanNoResult
		}
		return r, nil
	})
	if err != nil || !ok {
		return nil
	}
	return &result
}

func (u *URLScanClient) lookup(ctx context.Context, domain string) *URLScanResult {
	url := fmt.Sprintf("%s/search/?q=domain:%s", u.baseURL, domain)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("API-Key", u.apiKey)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var body urlscanSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}

	for _, r := range body.Results {
		scanTime, err := time.Parse(time.RFC3339, r.Task.Time)
		if err != nil {
			continue
		}
		age := int(time.Since(scanTime).Hours() / 24)
		if age > u.maxAgeDays {
			continue
		}
		return &URLScanResult{
			Verdict:     verdictFromScore(r.Verdicts.Overall.Malicious, r.Verdicts.Overall.Score),
			Score:       r.Verdicts.Overall.Score,
			ReportURL:   fmt.Sprintf("https://urlscan.io/result/%s/", r.Task.UUID),
			ScanAgeDays: age,
			Source:      "existing",
		}
	}
	return nil
}

func (u *URLScanClient) submitAndPoll(ctx context.Context, domain string) *URLScanResult {
	if err := u.submitLimit.Wait(ctx); err != nil {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{
		"url":        "https://" + domain,
		"visibility": u.visibility,
	})
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/scan/", strings.NewReader(string(payload)))
	if err != nil {
		return nil
	}
	req.Header.Set("API-Key", u.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil
	}

	var submitted urlscanSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil || submitted.UUID == "" {
		return nil
	}

	deadline := time.Now().Add(u.waitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}

		result, ready := u.poll(ctx, submitted.UUID)
		if ready {
			return result
		}
	}
	return nil
}

func (u *URLScanClient) poll(ctx context.Context, uuid string) (*URLScanResult, bool) {
	url := fmt.Sprintf("%s/result/%s/", u.baseURL, uuid)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var body urlscanResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false
	}

	return &URLScanResult{
		Verdict:     verdictFromScore(body.Verdicts.Overall.Malicious, body.Verdicts.Overall.Score),
		Score:       body.Verdicts.Overall.Score,
		ReportURL:   body.Task.ReportURL,
		ScanAgeDays: 0,
		Source:      "submitted",
	}, true
}

func verdictFromScore(malicious bool, score int) string {
	switch {
	case malicious || score >= 70:
		return "malicious"
	case score >= 30:
		return "suspicious"
	case score >= 0:
		return "clean"
	default:
		return "unknown"
	}
}
