package earnapp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const (
	// xsrfTokenTTL is how long a rotated token is reused before fetching another.
	xsrfTokenTTL = 60 * time.Second

	xsrfCookieName = "xsrf-token"
	xsrfHeaderName = "xsrf-token"

	// xsrfClientVersion is the dashboard build the rotate call claims to be.
	xsrfClientVersion = "1.281.185"
)

// Clock is the time source of a TokenCache.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now includes the monotonic reading, so Sub is immune to wall clock jumps.
func (systemClock) Now() time.Time { return time.Now() }

// AntiForgeryToken is an xsrf token and the instant it was obtained.
type AntiForgeryToken struct {
	Value      string
	AcquiredAt time.Time
}

// TokenCache holds at most one anti-forgery token.
// It is not safe for concurrent use; Session serializes access.
type TokenCache struct {
	transport Transport
	clock     Clock
	profile   *BrowserProfile
	rotateURL string
	host      string
	timeout   time.Duration

	token *AntiForgeryToken
}

func newTokenCache(transport Transport, clock Clock, profile *BrowserProfile, dashboardURL string, timeout time.Duration) *TokenCache {
	if clock == nil {
		clock = systemClock{}
	}
	rotateURL := dashboardURL + "sec/rotate_xsrf?appid=" + appID + "&version=" + xsrfClientVersion
	host := "earnapp.com"
	if u, err := url.Parse(rotateURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &TokenCache{
		transport: transport,
		clock:     clock,
		profile:   profile,
		rotateURL: rotateURL,
		host:      host,
		timeout:   timeout,
	}
}

// Current returns the cached token, if any, without checking its age.
func (c *TokenCache) Current() (AntiForgeryToken, bool) {
	if c.token == nil {
		return AntiForgeryToken{}, false
	}
	return *c.token, true
}

// ensureValidToken returns the cached token while it is younger than
// xsrfTokenTTL and rotates it otherwise.
func (c *TokenCache) ensureValidToken(ctx context.Context, proxyURL string) (AntiForgeryToken, error) {
	now := c.clock.Now()
	if c.token != nil && now.Sub(c.token.AcquiredAt) < xsrfTokenTTL {
		return *c.token, nil
	}

	value, err := c.fetch(ctx, proxyURL)
	if err != nil {
		return AntiForgeryToken{}, err
	}

	c.token = &AntiForgeryToken{Value: value, AcquiredAt: now}
	return *c.token, nil
}

func (c *TokenCache) fetch(ctx context.Context, proxyURL string) (string, error) {
	resp, err := c.transport.Do(ctx, &RawRequest{
		Method:  http.MethodGet,
		URL:     c.rotateURL,
		Header:  c.rotateHeaders(),
		Proxy:   proxyURL,
		Timeout: c.timeout,
	})
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, ErrRateLimited)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == xsrfCookieName {
			return cookie.Value, nil
		}
	}

	return "", fmt.Errorf("%w: no %s cookie in response (status %d)", ErrTokenAcquisition, xsrfCookieName, resp.StatusCode)
}

// rotateHeaders is the header set of a top-level Firefox navigation.
// The rotate endpoint rejects requests that do not look like one.
func (c *TokenCache) rotateHeaders() http.Header {
	return http.Header{
		"Host":                      {c.host},
		"User-Agent":                {c.profile.UserAgent},
		"Accept":                    {c.profile.Accept},
		"Accept-Language":           {c.profile.AcceptLanguage},
		"Accept-Encoding":           {c.profile.AcceptEncoding},
		"Connection":                {"keep-alive"},
		"Upgrade-Insecure-Requests": {"1"},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-User":            {"?1"},
		"Pragma":                    {"no-cache"},
		"Cache-Control":             {"no-cache"},
		"TE":                        {"trailers"},
		http.HeaderOrderKey: {
			"Host",
			"User-Agent",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Connection",
			"Upgrade-Insecure-Requests",
			"Sec-Fetch-Dest",
			"Sec-Fetch-Mode",
			"Sec-Fetch-Site",
			"Sec-Fetch-User",
			"Pragma",
			"Cache-Control",
			"TE",
		},
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}
}
