package earnapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const testToken = "1//0gTEST-refresh-token"

// fakeTransport records every request and answers through handler.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*RawRequest
	handler  func(req *RawRequest) (*RawResponse, error)
}

func (f *fakeTransport) Do(_ context.Context, req *RawRequest) (*RawResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	handler := f.handler
	f.mu.Unlock()
	return handler(req)
}

func (f *fakeTransport) all() []*RawRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*RawRequest(nil), f.requests...)
}

// count returns how many requests went to path.
func (f *fakeTransport) count(path string) int {
	n := 0
	for _, req := range f.all() {
		if requestPath(req) == path {
			n++
		}
	}
	return n
}

func (f *fakeTransport) last() *RawRequest {
	reqs := f.all()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// requestPath strips the dashboard base from the request URL.
func requestPath(req *RawRequest) string {
	u, err := url.Parse(req.URL)
	if err != nil {
		return req.URL
	}
	return strings.TrimPrefix(u.Path, "/dashboard/api/")
}

func xsrfResponse(token string) *RawResponse {
	return &RawResponse{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Set-Cookie": {
				"session-id=abc; Path=/; HttpOnly",
				"xsrf-token=" + token + "; Path=/; Secure",
			},
		},
	}
}

func jsonResponse(status int, body string) *RawResponse {
	return &RawResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

// upstream is a scripted dashboard: rotate_xsrf hands out xsrf-1, xsrf-2, ...
// and every other path answers from routes, defaulting to {"ok":true}.
type upstream struct {
	mu       sync.Mutex
	rotated  int
	routes   map[string]*RawResponse
	loginErr *RawResponse
}

func newUpstream() *upstream {
	return &upstream{routes: map[string]*RawResponse{}}
}

func (u *upstream) handle(req *RawRequest) (*RawResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	path := requestPath(req)
	if path == "sec/rotate_xsrf" {
		u.rotated++
		return xsrfResponse(fmt.Sprintf("xsrf-%d", u.rotated)), nil
	}
	if path == EndpointUserData && u.loginErr != nil {
		return u.loginErr, nil
	}
	if resp, ok := u.routes[path]; ok {
		return resp, nil
	}
	return jsonResponse(http.StatusOK, `{"ok":true}`), nil
}

func newTestSession(t *testing.T) (*Session, *fakeTransport, *upstream, *fakeClock) {
	t.Helper()
	up := newUpstream()
	transport := &fakeTransport{handler: up.handle}
	clock := newFakeClock()

	session, err := NewSession(Config{Transport: transport, Clock: clock})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session, transport, up, clock
}

func loggedInSession(t *testing.T) (*Session, *fakeTransport, *upstream, *fakeClock) {
	t.Helper()
	session, transport, up, clock := newTestSession(t)
	if err := session.Login(context.Background(), testToken, AuthMethodGoogle); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return session, transport, up, clock
}

func cookieMap(cookies []*http.Cookie) map[string]string {
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
