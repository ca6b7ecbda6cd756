// Package probe checks that a running server sends a header profile.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/joeblew999/pwaserve/internal/headers"
)

// Options for a probe.
type Options struct {
	Timeout  time.Duration
	RetryMax int
}

// DefaultOptions returns a short timeout and a couple of retries, enough to
// ride out a server that is still starting.
func DefaultOptions() Options {
	return Options{
		Timeout:  5 * time.Second,
		RetryMax: 2,
	}
}

// Diff is a header whose value did not match the profile.
type Diff struct {
	Name string
	Want string
	Got  string
}

// Result of a probe.
type Result struct {
	URL        string
	Status     int
	Missing    []headers.Header
	Mismatched []Diff
}

// OK reports whether every profile header was present with the right value.
func (r Result) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0
}

// Check fetches url and compares the response headers against p.
func Check(ctx context.Context, url string, p headers.Profile, opts Options) (Result, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("invalid url %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res := Compare(p, resp.Header)
	res.URL = url
	res.Status = resp.StatusCode
	return res, nil
}

// Compare checks h against p without any network access.
func Compare(p headers.Profile, h http.Header) Result {
	var res Result
	for _, want := range p.Headers {
		values := h.Values(want.Name)
		switch {
		case len(values) == 0:
			res.Missing = append(res.Missing, want)
		case len(values) > 1 || values[0] != want.Value:
			got := values[0]
			if len(values) > 1 {
				got = fmt.Sprintf("%q", values)
			}
			res.Mismatched = append(res.Mismatched, Diff{Name: want.Name, Want: want.Value, Got: got})
		}
	}
	return res
}
