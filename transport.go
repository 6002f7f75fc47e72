package earnapp

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// RawRequest is a single outbound call, fully resolved.
type RawRequest struct {
	Method  string
	URL     string
	Header  http.Header
	Cookies []*http.Cookie
	Body    []byte
	Proxy   string
	Timeout time.Duration
}

// RawResponse is what came back, uninterpreted.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *RawResponse) Text() string {
	return string(r.Body)
}

// Cookies parses the Set-Cookie headers of the response.
func (r *RawResponse) Cookies() []*http.Cookie {
	return parseSetCookies(r.Header)
}

// Transport performs one request. Implementations do not retry and do not
// interpret the response.
type Transport interface {
	Do(ctx context.Context, req *RawRequest) (*RawResponse, error)
}

// TLSTransport sends requests through a tls-client HttpClient so the dashboard
// sees a real browser fingerprint.
type TLSTransport struct {
	mu     sync.Mutex
	client tls_client.HttpClient
	proxy  string
}

// NewTLSTransport creates a transport with the given browser profile.
func NewTLSTransport(profile *BrowserProfile, proxyURL string, timeout time.Duration) (*TLSTransport, error) {
	if profile == nil {
		profile = DefaultProfile
	}

	client, err := NewHTTPClientWithProfile(nil, proxyURL, timeout, profile.TLSProfile)
	if err != nil {
		return nil, err
	}

	return &TLSTransport{client: client, proxy: proxyURL}, nil
}

// clientFor switches the underlying client to proxyURL if it changed.
// SetProxy keeps the client's connection settings; requests already in flight
// finish on the old proxy.
func (t *TLSTransport) clientFor(proxyURL string) (tls_client.HttpClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if proxyURL != t.proxy {
		if err := t.client.SetProxy(proxyURL); err != nil {
			return nil, err
		}
		t.proxy = proxyURL
	}
	return t.client, nil
}

func (t *TLSTransport) Do(ctx context.Context, r *RawRequest) (*RawResponse, error) {
	client, err := t.clientFor(r.Proxy)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}

	if r.Header != nil {
		req.Header = r.Header.Clone()
	}
	if len(r.Cookies) > 0 {
		req.Header.Set("Cookie", cookieHeader(r.Cookies))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := readResponseBody(resp)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
