// Package whois is the WHOIS Enricher (C4). The raw TCP-43 client and
// its IANA-referral/per-server backoff are grounded on the pack's
// benithors-dothuntcli WHOIS client; the caching, negative-TTL, and
// retry-count contract follow §4.3.
package whois

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/typosniper/typo-sniper/internal/cache"
	"github.com/typosniper/typo-sniper/internal/retry"
)

// Record is the normalized registration metadata §3 names under `whois`.
type Record struct {
	Registrar      *string    `json:"registrar"`
	CreationDate   *time.Time `json:"creation_date"`
	UpdatedDate    *time.Time `json:"updated_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	NameServers    []string   `json:"name_servers"`
	Status         []string   `json:"status"`
	Emails         []string   `json:"emails"`
	RawOK          bool       `json:"raw_ok"`
}

type cachedEntry struct {
	Unavailable bool    `json:"unavailable"`
	Record      *Record `json:"record,omitempty"`
}

// negativeTTL is the short TTL a failed lookup is cached under, so a
// misbehaving registry isn't hammered every scan (§4.3).
const negativeTTL = 10 * time.Minute

// positiveTTL is the TTL for a successful lookup when New is given a
// non-positive ttl (§4.3).
const positiveTTL = 24 * time.Hour

// Client queries WHOIS over TCP port 43, with an IANA TLD-to-server
// referral cache and cached results/failures.
type Client struct {
	cache       *cache.Cache
	timeout     time.Duration
	ttl         time.Duration
	retryPolicy retry.Policy

	mu          sync.Mutex
	tldToServer map[string]string

	group singleflight.Group
}

// New builds a Client. timeout bounds each individual query. A query
// is retried up to retryCount times (retryCount+1 attempts in all); the
// wait before the first retry is retryDelay and it doubles for each
// later retry. Only timeouts are retried: a refused connection or any
// other error fails the lookup at once. ttl is the positive-result
// cache lifetime (cache_ttl, default 24h per §4.3).
func New(c *cache.Cache, timeout time.Duration, retryCount int, retryDelay time.Duration, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = positiveTTL
	}
	return &Client{
		cache:       c,
		timeout:     timeout,
		ttl:         ttl,
		tldToServer: make(map[string]string, 64),
		retryPolicy: retry.Policy{
			Timeout:     timeout,
			MaxAttempts: retryCount + 1,
			BackoffBase: retryDelay,
		},
	}
}

// Lookup returns the cached or freshly-fetched WHOIS record for domain.
// ok is false iff WHOIS is Unavailable (§4.3); Lookup never returns an
// error — failures degrade to the cached negative result.
func (c *Client) Lookup(ctx context.Context, domain string) (*Record, bool) {
	var cached cachedEntry
	if hit, _ := c.cache.Get("whois", domain, &cached); hit {
		if cached.Unavailable {
			return nil, false
		}
		return cached.Record, true
	}

	v, err, _ := c.group.Do(domain, func() (interface{}, error) {
		rec, ferr := c.fetch(ctx, domain)
		if ferr != nil {
			_ = c.cache.Put("whois", domain, negativeTTL, cachedEntry{Unavailable: true})
			return nil, ferr
		}
		_ = c.cache.Put("whois", domain, c.ttl, cachedEntry{Record: rec})
		return rec, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(*Record), true
}

func (c *Client) fetch(ctx context.Context, domain string) (*Record, error) {
	tld := lastLabel(domain)
	if tld == "" {
		return nil, fmt.Errorf("invalid domain %q", domain)
	}

	server, err := c.serverForTLD(ctx, tld)
	if err != nil {
		return nil, err
	}

	var body string
	err = retry.Do(ctx, c.retryPolicy, func(attemptCtx context.Context) error {
		b, qerr := query(attemptCtx, server, domain, c.timeout)
		if qerr != nil {
			return qerr
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec := parseRecord(body)
	return rec, nil
}

func (c *Client) serverForTLD(ctx context.Context, tld string) (string, error) {
	c.mu.Lock()
	if s, ok := c.tldToServer[tld]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	body, err := query(ctx, "whois.iana.org", tld, c.timeout)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "whois:") {
			server := strings.TrimSpace(line[len("whois:"):])
			fields := strings.Fields(server)
			if len(fields) == 0 {
				continue
			}
			server = fields[0]
			c.mu.Lock()
			c.tldToServer[tld] = server
			c.mu.Unlock()
			return server, nil
		}
	}
	return "", fmt.Errorf("no whois server found for tld %q", tld)
}

func query(ctx context.Context, server, q string, timeout time.Duration) (string, error) {
	dialCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	addr := server
	if _, _, splitErr := net.SplitHostPort(server); splitErr != nil {
		addr = net.JoinHostPort(server, "43")
	}
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(q + "\r\n")); err != nil {
		return "", err
	}

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if rerr != nil {
			break
		}
		if sb.Len() > 1<<20 {
			break
		}
	}
	return sb.String(), nil
}

func lastLabel(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}
