package earnapp

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// =============================================================================
// Upstream Errors
// =============================================================================

var (
	// ErrRateLimited is returned when the upstream answers 429 or with a
	// "Too Many Requests" body.
	ErrRateLimited = errors.New("rate limited")

	// ErrIncorrectCredential is returned when the upstream rejects the credential (403).
	ErrIncorrectCredential = errors.New("incorrect credential")

	// ErrLoginFailed is returned when login gets any non-200, non-403 answer.
	// In practice this is almost always rate limiting.
	ErrLoginFailed = errors.New("login failed, probably rate limited")

	// ErrTokenAcquisition is returned when no anti-forgery token could be obtained.
	ErrTokenAcquisition = errors.New("could not get xsrf token")

	// ErrXSRF is an alias of ErrTokenAcquisition.
	ErrXSRF = ErrTokenAcquisition

	// ErrInvalidArguments is returned when the upstream answers "Invalid arguments".
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrMalformedResponse is matched by every *MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed response")
)

// =============================================================================
// Client-side Errors
// =============================================================================

var (
	// ErrInvalidTimeframe is returned by Usage for anything other than daily, weekly or monthly.
	ErrInvalidTimeframe = errors.New("invalid timeframe, must be daily, weekly or monthly")

	// ErrNotAuthenticated is returned by dashboard operations called before a successful Login.
	ErrNotAuthenticated = errors.New("not authenticated, call Login first")

	// ErrMissingArgument is returned when an endpoint argument is absent.
	ErrMissingArgument = errors.New("missing argument")

	// ErrUnknownEndpoint is returned by Call for names missing from the catalog.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// MalformedResponseError carries the raw body of a response that failed to decode.
type MalformedResponseError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: failed to decode JSON data (status %d): %s", e.Endpoint, e.Status, e.Body)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// TransportError wraps a network or timeout failure. The underlying error is
// available unmodified through errors.Unwrap.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Transient Errors
// =============================================================================

// transientErrorPatterns contains error message substrings that indicate a
// failure worth retrying later, possibly through another proxy.
var transientErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
	"timeout",
}

// IsTransient reports whether err is rate limiting or a network failure.
// The library never retries on its own; this is for callers deciding to back off.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrLoginFailed) {
		return true
	}

	if errors.Is(err, ErrIncorrectCredential) || errors.Is(err, ErrNotAuthenticated) {
		return false
	}

	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsTransientPattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsTransientPattern(errStr string) bool {
	for _, pattern := range transientErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
