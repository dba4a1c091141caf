package threatintel

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPProbeClient issues a liveness probe to a candidate domain:
// HEAD falling back to GET, https then http, capped redirects and
// response body (§4.4).
type HTTPProbeClient struct {
	timeout time.Duration
}

func NewHTTPProbeClient(timeout time.Duration) *HTTPProbeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProbeClient{timeout: timeout}
}

const maxProbeRedirects = 5
const maxProbeBodyBytes = 4 * 1024

// Fetch probes https://{domain} then http://{domain}. It never returns
// an error: failure of both schemes yields {status_code: nil, active:
// false} (§4.4).
func (p *HTTPProbeClient) Fetch(ctx context.Context, domain string) *HTTPProbeResult {
	for _, scheme := range []string{"https", "http"} {
		url := scheme + "://" + domain
		if result := p.probe(ctx, url); result != nil {
			return result
		}
	}
	return &HTTPProbeResult{StatusCode: nil, Active: false}
}

func (p *HTTPProbeClient) probe(ctx context.Context, url string) *HTTPProbeResult {
	chainLen := 0
	client := &http.Client{
		Timeout: p.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxProbeRedirects {
				return http.ErrUseLastResponse
			}
			chainLen = len(via)
			return nil
		},
	}

	resp, err := doWithFallback(ctx, client, http.MethodHead, url)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, maxProbeBodyBytes)

	status := resp.StatusCode
	return &HTTPProbeResult{
		StatusCode:  &status,
		Active:      status >= 200 && status < 400,
		FinalURL:    resp.Request.URL.String(),
		ChainLength: chainLen,
	}
}

// doWithFallback tries HEAD first; some origins reject HEAD outright
// (405/501), in which case it retries with GET against the same URL.
func doWithFallback(ctx context.Context, client *http.Client, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		if method == http.MethodHead {
			return doWithFallback(ctx, client, http.MethodGet, url)
		}
		return nil, err
	}

	if method == http.MethodHead && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp.Body.Close()
		return doWithFallback(ctx, client, http.MethodGet, url)
	}

	return resp, nil
}
