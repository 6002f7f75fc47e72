package earnapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
)

// DeviceConfig identifies the device a DeviceClient speaks for.
type DeviceConfig struct {
	// UUID of the device. Empty means a fresh one from NewDeviceID.
	UUID    string
	Version string
	Arch    string
	AppID   string

	Proxy   string
	Timeout time.Duration
	// BaseURL overrides the device-client API base, with trailing slash.
	BaseURL   string
	Logger    Logger
	Transport Transport
}

// DeviceClient talks to the device-client API the way an installed app does.
// It sends no cookies and needs no xsrf token.
type DeviceClient struct {
	uuid    string
	version string
	arch    string
	appID   string

	baseURL   string
	timeout   time.Duration
	transport Transport
	logger    Logger

	proxyMu sync.RWMutex
	proxy   string
}

// NewDeviceID returns a device id in the format the node SDK generates.
func NewDeviceID() string {
	return "sdk-node-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func NewDeviceClient(cfg DeviceConfig) (*DeviceClient, error) {
	required := []struct{ name, value string }{
		{"version", cfg.Version},
		{"arch", cfg.Arch},
		{"appid", cfg.AppID},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("device client: %w %q", ErrMissingArgument, r.name)
		}
	}

	deviceID := cfg.UUID
	if deviceID == "" {
		deviceID = NewDeviceID()
	}

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

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DeviceClientURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	transport := cfg.Transport
	if transport == nil {
		t, err := NewFastTransport(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		transport = t
	}

	return &DeviceClient{
		uuid:      deviceID,
		version:   cfg.Version,
		arch:      cfg.Arch,
		appID:     cfg.AppID,
		baseURL:   baseURL,
		timeout:   timeout,
		transport: transport,
		logger:    &prefixLogger{id: deviceID, base: logger},
		proxy:     proxyURL,
	}, nil
}

// UUID returns the device id the client reports.
func (c *DeviceClient) UUID() string {
	return c.uuid
}

// SetProxy changes the proxy used from the next call on.
func (c *DeviceClient) SetProxy(proxy string) error {
	proxyURL := ""
	if proxy != "" {
		var err error
		proxyURL, _, err = ParseProxy(proxy)
		if err != nil {
			return err
		}
	}

	c.proxyMu.Lock()
	c.proxy = proxyURL
	c.proxyMu.Unlock()
	return nil
}

func (c *DeviceClient) Proxy() string {
	c.proxyMu.RLock()
	defer c.proxyMu.RUnlock()
	return c.proxy
}

// identity is sent as query parameters on GET and as the JSON body otherwise.
func (c *DeviceClient) identity() map[string]string {
	return map[string]string{
		"uuid":    c.uuid,
		"version": c.version,
		"arch":    c.arch,
		"appid":   c.appID,
	}
}

// Call performs the named device-client operation.
func (c *DeviceClient) Call(ctx context.Context, name string) (*Result, error) {
	endpoint, ok := Lookup(name)
	if !ok || endpoint.API != APIDeviceClient {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}

	spec, err := endpoint.Build(nil)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + spec.Path
	if spec.Method == http.MethodGet {
		q := url.Values{}
		for k, v := range c.identity() {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	} else {
		spec.Body = c.identity()
	}

	body, err := spec.encodeBody()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal body: %w", name, err)
	}

	req := &RawRequest{
		Method:  spec.Method,
		URL:     target,
		Body:    body,
		Proxy:   c.Proxy(),
		Timeout: c.timeout,
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		c.logger.Log("%s /%s -> error: %v", req.Method, spec.Path, err)
		return nil, err
	}
	c.logger.Log("%s /%s -> %d", req.Method, spec.Path, resp.StatusCode)

	outcome := classify(deviceChain, endpoint, resp)
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.Result, nil
}

// AppConfigWin returns bandwidth, earnings, the linked account's referral
// code and the available payment methods.
func (c *DeviceClient) AppConfigWin(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointAppConfigWin)
}

// AppConfigNode returns the latest Linux client version.
func (c *DeviceClient) AppConfigNode(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointAppConfigNode)
}

func (c *DeviceClient) AppConfig(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointAppConfig)
}

func (c *DeviceClient) IsPiggybox(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointIsPiggybox)
}

// NDT7 answers with a bare status string, usually "OK".
func (c *DeviceClient) NDT7(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, EndpointNDT7)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// InstallDevice registers the device, as the app does on first start.
func (c *DeviceClient) InstallDevice(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointInstallDevice)
}

// BWStats returns total bandwidth and total earnings of the device.
func (c *DeviceClient) BWStats(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointBWStats)
}

// IsLinked returns the email of the account the device is linked to.
func (c *DeviceClient) IsLinked(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointIsLinked)
}

// IsIPBlocked reports whether the requesting IP is blocked.
func (c *DeviceClient) IsIPBlocked(ctx context.Context) (*Result, error) {
	return c.Call(ctx, EndpointIsIPBlocked)
}
