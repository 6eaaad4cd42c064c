package socialdata

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerHour = 100
	maxBurst               = 5
	lowQuotaThreshold      = 5
)

func newHTTPClient(opts Options) *http.Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var auth http.RoundTripper
	if opts.BearerToken != "" {
		auth = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.BearerToken}),
			Base:   base,
		}
	} else {
		auth = &apiKeyTransport{key: opts.APIKey, host: opts.Host, base: base}
	}

	rph := opts.RequestsPerHour
	if rph <= 0 {
		rph = defaultRequestsPerHour
	}
	return &http.Client{
		Transport: &throttleTransport{
			limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(rph)), min(rph, maxBurst)),
			base:    auth,
		},
	}
}

// apiKeyTransport adds RapidAPI-style key headers to every request.
type apiKeyTransport struct {
	key  string
	host string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-RapidAPI-Key", t.key)
	if t.host != "" {
		r.Header.Set("X-RapidAPI-Host", t.host)
	}
	return t.base.RoundTrip(r)
}

// throttleTransport spaces requests to stay under the hourly quota and warns
// when the server reports the quota is nearly spent. It never retries: a 429
// goes back to the caller as is. The client sets no overall timeout; every
// request is bounded by its context.
type throttleTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter.Tokens() < 1 {
		slog.Warn("data api quota exhausted locally, pausing", "host", req.URL.Host)
	}
	ctx := req.Context()
	if err := t.limiter.Wait(ctx); err != nil {
		// The limiter refuses up front when the wait would outlast the
		// deadline, before ctx itself expires.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return nil, fmt.Errorf("waiting for data api quota: %w", context.DeadlineExceeded)
		}
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if remaining := resp.Header.Get("X-RateLimit-Requests-Remaining"); remaining != "" {
		if rem, err := strconv.Atoi(remaining); err == nil && rem <= lowQuotaThreshold {
			slog.Warn("approaching data api quota", "remaining", rem)
		}
	}
	return resp, nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
