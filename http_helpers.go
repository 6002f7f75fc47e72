package earnapp

import (
	"io"
	"sort"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// PseudoHeaderOrder is the HTTP/2 pseudo-header order Firefox sends.
var PseudoHeaderOrder = []string{
	":method",
	":path",
	":authority",
	":scheme",
}

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}

// parseSetCookies parses every Set-Cookie header of h.
func parseSetCookies(h http.Header) []*http.Cookie {
	resp := &http.Response{Header: h}
	return resp.Cookies()
}

// cookieList turns a name/value set into cookies in a stable order.
func cookieList(values map[string]string) []*http.Cookie {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, &http.Cookie{Name: name, Value: values[name]})
	}
	return cookies
}

// cookieHeader renders cookies the way they appear in a Cookie request header.
func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
