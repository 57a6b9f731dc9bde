package check

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	userAgent      = "markcheck/1.0"
	defaultMaxHops = 10
)

// externalValidator probes external URLs over HTTP. Redirects are followed
// manually so permanent redirects (301/308) can be distinguished from
// temporary ones (302/303/307).
type externalValidator struct {
	client  *http.Client
	maxHops int
}

func newExternalValidator(timeout time.Duration) *externalValidator {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &externalValidator{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops: defaultMaxHops,
	}
}

// probeOutcome is the classified result of probing one URL.
type probeOutcome struct {
	status    int    // final HTTP status; 0 when no response was received
	permanent bool   // a 301/308 hop was observed
	finalURL  string // URL of the final response
	err       error  // transport failure, DNS failure, timeout, or too many redirects
}

// probe issues a HEAD request (falling back to GET when the server rejects
// HEAD) and follows redirects to the final response.
func (v *externalValidator) probe(ctx context.Context, rawURL string) probeOutcome {
	current := rawURL
	permanent := false

	for hop := 0; hop <= v.maxHops; hop++ {
		status, location, err := v.request(ctx, http.MethodHead, current)
		if err != nil {
			return probeOutcome{err: err}
		}
		if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
			status, location, err = v.request(ctx, http.MethodGet, current)
			if err != nil {
				return probeOutcome{err: err}
			}
		}

		if !isRedirect(status) || location == "" {
			return probeOutcome{status: status, permanent: permanent, finalURL: current}
		}

		if status == http.StatusMovedPermanently || status == http.StatusPermanentRedirect {
			permanent = true
		}
		next, err := resolveLocation(current, location)
		if err != nil {
			return probeOutcome{err: fmt.Errorf("invalid redirect location %q: %w", location, err)}
		}
		current = next
	}

	return probeOutcome{err: fmt.Errorf("stopped after %d redirects", v.maxHops)}
}

func (v *externalValidator) request(ctx context.Context, method, rawURL string) (status int, location string, err error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveLocation resolves a Location header value against the request URL.
func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(loc).String(), nil
}
