package earnapp

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

// FastTransport sends requests with fasthttp. The device-client API is spoken
// by the native app, not a browser, so no TLS fingerprint is needed here.
type FastTransport struct {
	mu     sync.Mutex
	client *fasthttp.Client
	proxy  string
}

func NewFastTransport(proxyURL string) (*FastTransport, error) {
	client, err := newFastClient(proxyURL)
	if err != nil {
		return nil, err
	}
	return &FastTransport{client: client, proxy: proxyURL}, nil
}

func newFastClient(proxyURL string) (*fasthttp.Client, error) {
	client := &fasthttp.Client{
		Name:                     Firefox133UserAgent,
		NoDefaultUserAgentHeader: true,
	}
	if proxyURL == "" {
		return client, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		client.Dial = fasthttpproxy.FasthttpSocksDialer(proxyURL)
	case "http", "https":
		// fasthttpproxy expects user:pass@host:port without a scheme.
		client.Dial = fasthttpproxy.FasthttpHTTPDialer(strings.TrimPrefix(proxyURL, parsed.Scheme+"://"))
	default:
		return nil, errors.New("unsupported proxy scheme: " + parsed.Scheme)
	}
	return client, nil
}

func (t *FastTransport) clientFor(proxyURL string) (*fasthttp.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if proxyURL != t.proxy {
		client, err := newFastClient(proxyURL)
		if err != nil {
			return nil, err
		}
		t.client = client
		t.proxy = proxyURL
	}
	return t.client, nil
}

func (t *FastTransport) Do(ctx context.Context, r *RawRequest) (*RawResponse, error) {
	client, err := t.clientFor(r.Proxy)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(r.Method)
	for key, values := range r.Header {
		if key == http.HeaderOrderKey || key == http.PHeaderOrderKey {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if len(r.Cookies) > 0 {
		req.Header.Set("Cookie", cookieHeader(r.Cookies))
	}
	if r.Body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(r.Body)
	}

	timeout := r.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout > 0 {
		err = client.DoTimeout(req, resp, timeout)
	} else {
		err = client.Do(req, resp)
	}
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}

	header := make(http.Header)
	resp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	// resp is released on return, so the body must be copied.
	body := append([]byte(nil), resp.Body()...)

	return &RawResponse{
		StatusCode: resp.StatusCode(),
		Header:     header,
		Body:       body,
	}, nil
}
