// Package retry is the one retry combinator shared by the DNS resolver
// and the WHOIS client, per the "ad-hoc retry/timeout wrappers → one
// retry policy" design note. The URLScan and CT enrichers rely on
// retryablehttp's own retries instead, and the HTTP probe does not retry.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy parameterizes a single retry combinator.
type Policy struct {
	Timeout        time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	IsRetryable    func(error) bool
}

// DefaultIsRetryable treats context deadline exceeded and network errors
// that report a timeout as retryable; everything else (including a
// refused connection) is not.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// Do runs fn under the policy's per-attempt timeout, retrying up to
// MaxAttempts times with exponential backoff while IsRetryable(err) and
// the parent context is still live.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	retryable := p.IsRetryable
	if retryable == nil {
		retryable = DefaultIsRetryable
	}

	backoff := p.BackoffBase
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 || !retryable(err) {
			break
		}
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
