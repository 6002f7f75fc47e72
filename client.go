package earnapp

import (
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserProfile bundles a TLS client profile with the headers of the browser it mimics.
type BrowserProfile struct {
	TLSProfile     profiles.ClientProfile
	UserAgent      string
	Accept         string
	AcceptLanguage string
	AcceptEncoding string
}

// DefaultProfile is the browser profile used for new sessions.
// Set to Firefox133Profile in tls_firefox.go.
var DefaultProfile = Firefox133Profile

// NewHTTPClient builds a tls-client HTTP client for the dashboard API.
// It carries no cookie jar: every cookie a session sends is set explicitly per request.
func NewHTTPClient(logger tls_client.Logger, proxyURL string, timeout time.Duration) (tls_client.HttpClient, error) {
	return NewHTTPClientWithProfile(logger, proxyURL, timeout, DefaultProfile.TLSProfile)
}

func NewHTTPClientWithProfile(logger tls_client.Logger, proxyURL string, timeout time.Duration, profile profiles.ClientProfile) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutMilliseconds(int(timeout / time.Millisecond)),
		tls_client.WithClientProfile(profile),
		tls_client.WithNotFollowRedirects(),
	}

	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	return tls_client.NewHttpClient(logger, options...)
}
