package main

import (
	"os"
	"strconv"
	"time"
)

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X main.defaultToken=TOKEN -X main.defaultProxy=ip:port:user:pass"
var (
	defaultToken string // -X main.defaultToken=...
	defaultProxy string // -X main.defaultProxy=...
)

// GetToken returns the oauth refresh token (build-time or env fallback)
func GetToken() string {
	if defaultToken != "" {
		return defaultToken
	}
	return os.Getenv("EARNAPP_TOKEN")
}

// GetProxy returns the proxy (build-time or env fallback)
func GetProxy() string {
	if defaultProxy != "" {
		return defaultProxy
	}
	return os.Getenv("EARNAPP_PROXY")
}

// GetProxyFile returns the proxy list used by batch runs, if any.
func GetProxyFile() string {
	return os.Getenv("EARNAPP_PROXY_FILE")
}

// GetTimeout returns EARNAPP_TIMEOUT in seconds, or zero for the library default.
func GetTimeout() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("EARNAPP_TIMEOUT"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
