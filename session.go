package earnapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const (
	// DefaultTimeout bounds every upstream call when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// AuthMethodGoogle is the only login method the dashboard offers.
	AuthMethodGoogle = "google"

	cookieAuthMethod = "auth-method"
	cookieCredential = "oauth-refresh-token"

	dashboardOrigin = "https://earnapp.com"
)

// Credential is the long-lived secret a session logs in with.
type Credential struct {
	Token  string
	Method string
}

func (c *Credential) cookies() map[string]string {
	return map[string]string{
		cookieAuthMethod: c.Method,
		cookieCredential: c.Token,
	}
}

// Config configures a Session. The zero value talks to the real dashboard
// without a proxy.
type Config struct {
	// Proxy in any format ParseProxy accepts. Empty means direct.
	Proxy   string
	Timeout time.Duration
	// DashboardURL overrides the API base, with trailing slash.
	DashboardURL string
	Profile      *BrowserProfile
	Logger       Logger
	Clock        Clock
	// Transport replaces the tls-client transport.
	Transport Transport
}

// Session is one logged-in dashboard identity. Calls on a Session are
// serialized; independent Sessions share nothing.
type Session struct {
	transport    Transport
	profile      *BrowserProfile
	dashboardURL string
	timeout      time.Duration
	logger       Logger

	mu         sync.Mutex
	tokens     *TokenCache
	credential *Credential

	proxyMu sync.RWMutex
	proxy   string
}

// NewSession creates an unauthenticated session.
func NewSession(cfg Config) (*Session, error) {
	proxyURL := ""
	if cfg.Proxy != "" {
		var err error
		proxyURL, _, err = ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	profile := cfg.Profile
	if profile == nil {
		profile = DefaultProfile
	}

	dashboardURL := cfg.DashboardURL
	if dashboardURL == "" {
		dashboardURL = DashboardURL
	}
	if !strings.HasSuffix(dashboardURL, "/") {
		dashboardURL += "/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	transport := cfg.Transport
	if transport == nil {
		t, err := NewTLSTransport(profile, proxyURL, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		transport = t
	}

	return &Session{
		transport:    transport,
		profile:      profile,
		dashboardURL: dashboardURL,
		timeout:      timeout,
		logger:       &prefixLogger{id: generateSessionID(), base: logger},
		tokens:       newTokenCache(transport, cfg.Clock, profile, dashboardURL, timeout),
		proxy:        proxyURL,
	}, nil
}

// SetProxy changes the proxy used from the next call on. An empty string
// disables the proxy.
func (s *Session) SetProxy(proxy string) error {
	proxyURL := ""
	if proxy != "" {
		var err error
		proxyURL, _, err = ParseProxy(proxy)
		if err != nil {
			return err
		}
	}

	s.proxyMu.Lock()
	s.proxy = proxyURL
	s.proxyMu.Unlock()
	return nil
}

// Proxy returns the normalized proxy URL, or "" when none is set.
func (s *Session) Proxy() string {
	s.proxyMu.RLock()
	defer s.proxyMu.RUnlock()
	return s.proxy
}

// Authenticated reports whether Login has succeeded.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential != nil
}

// Cookies returns the cookie set authenticated calls carry: the stored
// credential plus the cached xsrf token. It is nil before Login.
func (s *Session) Cookies() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == nil {
		return nil
	}
	cookies := s.credential.cookies()
	if tok, ok := s.tokens.Current(); ok {
		cookies[xsrfCookieName] = tok.Value
	}
	return cookies
}

// Login checks the credential against the dashboard and keeps it on success.
// A failed login leaves the session unauthenticated.
func (s *Session) Login(ctx context.Context, token, method string) error {
	if token == "" {
		return fmt.Errorf("login: %w %q", ErrMissingArgument, "token")
	}
	if method == "" {
		method = AuthMethodGoogle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credential = nil
	proxyURL := s.Proxy()

	tok, err := s.tokens.ensureValidToken(ctx, proxyURL)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cred := &Credential{Token: token, Method: method}
	cookies := cred.cookies()
	cookies[xsrfCookieName] = tok.Value

	resp, err := s.send(ctx, &RawRequest{
		Method:  http.MethodGet,
		URL:     s.dashboardURL + EndpointUserData + "?" + dashboardQuery(nil),
		Header:  s.apiHeaders(tok.Value, false),
		Cookies: cookieList(cookies),
		Proxy:   proxyURL,
		Timeout: s.timeout,
	})
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		s.credential = cred
		s.logger.Log("Logged in (%s)", method)
		return nil
	case http.StatusForbidden:
		return ErrIncorrectCredential
	default:
		return fmt.Errorf("%w (status %d)", ErrLoginFailed, resp.StatusCode)
	}
}

// Call performs the named dashboard operation. Every account, device and
// payment method of Session goes through here.
func (s *Session) Call(ctx context.Context, name string, args Args) (*Result, error) {
	endpoint, ok := Lookup(name)
	if !ok || endpoint.API != APIDashboard {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == nil {
		return nil, ErrNotAuthenticated
	}

	spec, err := endpoint.Build(args)
	if err != nil {
		return nil, err
	}
	body, err := spec.encodeBody()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal body: %w", name, err)
	}

	proxyURL := s.Proxy()
	cookies := s.credential.cookies()

	xsrf := ""
	if endpoint.XSRF {
		tok, err := s.tokens.ensureValidToken(ctx, proxyURL)
		if err != nil {
			return nil, err
		}
		xsrf = tok.Value
		cookies[xsrfCookieName] = xsrf
	}

	resp, err := s.send(ctx, &RawRequest{
		Method:  spec.Method,
		URL:     s.dashboardURL + spec.Path + "?" + dashboardQuery(spec.Query),
		Header:  s.apiHeaders(xsrf, body != nil),
		Cookies: cookieList(cookies),
		Body:    body,
		Proxy:   proxyURL,
		Timeout: s.timeout,
	})
	if err != nil {
		return nil, err
	}

	outcome := classify(dashboardChain, endpoint, resp)
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.Result, nil
}

// send executes one request and logs its URL path and status code.
func (s *Session) send(ctx context.Context, req *RawRequest) (*RawResponse, error) {
	path := req.URL
	if u, err := url.Parse(req.URL); err == nil {
		path = u.Path
	}

	resp, err := s.transport.Do(ctx, req)
	if err != nil {
		s.logger.Log("%s %s -> error: %v", req.Method, path, err)
		return nil, err
	}
	s.logger.Log("%s %s -> %d", req.Method, path, resp.StatusCode)
	return resp, nil
}

// dashboardQuery prepends the application id every dashboard call carries.
func dashboardQuery(extra url.Values) string {
	q := "appid=" + appID
	if len(extra) > 0 {
		q += "&" + extra.Encode()
	}
	return q
}

// apiHeaders is the header set of an XHR from the dashboard page.
func (s *Session) apiHeaders(xsrf string, hasBody bool) http.Header {
	h := http.Header{
		"user-agent":      {s.profile.UserAgent},
		"accept":          {"application/json, text/plain, */*"},
		"accept-language": {s.profile.AcceptLanguage},
		"accept-encoding": {s.profile.AcceptEncoding},
		"referer":         {dashboardOrigin + "/dashboard"},
		"sec-fetch-dest":  {"empty"},
		"sec-fetch-mode":  {"cors"},
		"sec-fetch-site":  {"same-origin"},
		http.HeaderOrderKey: {
			"user-agent",
			"accept",
			"accept-language",
			"accept-encoding",
			"content-type",
			xsrfHeaderName,
			"origin",
			"referer",
			"cookie",
			"sec-fetch-dest",
			"sec-fetch-mode",
			"sec-fetch-site",
		},
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}
	if xsrf != "" {
		h[xsrfHeaderName] = []string{xsrf}
	}
	if hasBody {
		h["content-type"] = []string{"application/json"}
		h["origin"] = []string{dashboardOrigin}
	}
	return h
}
