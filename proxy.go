package earnapp

import (
	"bufio"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ParseProxy normalizes a proxy string and returns a display form without credentials.
// Supported formats:
//   - ip:port
//   - ip:port:username:password
//   - http://[username:password@]ip:port
//   - https://[username:password@]ip:port (normalized to http://)
//   - socks5://[username:password@]ip:port
func ParseProxy(line string) (proxyURL, display string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", fmt.Errorf("empty proxy")
	}

	if strings.Contains(line, "://") {
		parsed, err := url.Parse(line)
		if err != nil {
			return "", "", fmt.Errorf("invalid proxy %q: %w", line, err)
		}
		if parsed.Host == "" {
			return "", "", fmt.Errorf("invalid proxy %q: missing host", line)
		}

		scheme := parsed.Scheme
		switch scheme {
		case "http", "https":
			// Proxies are reached over plain HTTP CONNECT.
			scheme = "http"
		case "socks5", "socks5h":
		default:
			return "", "", fmt.Errorf("invalid proxy %q: unsupported scheme %q", line, scheme)
		}

		normalized := &url.URL{Scheme: scheme, User: parsed.User, Host: parsed.Host}
		return normalized.String(), parsed.Host, nil
	}

	parts := strings.Split(line, ":")

	switch len(parts) {
	case 2:
		host, port := parts[0], parts[1]
		return fmt.Sprintf("http://%s:%s", host, port), fmt.Sprintf("%s:%s", host, port), nil

	case 4:
		host, port, user, pass := parts[0], parts[1], parts[2], parts[3]
		u := &url.URL{Scheme: "http", User: url.UserPassword(user, pass), Host: host + ":" + port}
		return u.String(), fmt.Sprintf("%s:%s", host, port), nil

	default:
		return "", "", fmt.Errorf("invalid proxy %q: expected ip:port or ip:port:user:pass", line)
	}
}

// ProxyManager holds a list of proxies loaded from a file.
type ProxyManager struct {
	proxies []string
	display []string
	index   int
	mu      sync.Mutex
}

// NewProxyManager loads proxies from file, one per line in any format ParseProxy
// accepts. Blank lines and lines starting with # are skipped, as are lines that
// fail to parse.
func NewProxyManager(filename string) (*ProxyManager, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()

	var proxies []string
	var display []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		proxyURL, disp, err := ParseProxy(line)
		if err != nil {
			continue
		}

		proxies = append(proxies, proxyURL)
		display = append(display, disp)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading proxy file: %w", err)
	}

	if len(proxies) == 0 {
		return nil, fmt.Errorf("no valid proxies found in %s", filename)
	}

	return &ProxyManager{
		proxies: proxies,
		display: display,
	}, nil
}

func (pm *ProxyManager) Current() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.proxies[pm.index]
}

func (pm *ProxyManager) Rotate() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.index = (pm.index + 1) % len(pm.proxies)
	return pm.proxies[pm.index]
}

func (pm *ProxyManager) Count() int {
	return len(pm.proxies)
}

// Random returns a random proxy URL and its index for display lookup.
func (pm *ProxyManager) Random() (proxyURL string, idx int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	idx = rand.Intn(len(pm.proxies))
	return pm.proxies[idx], idx
}

// DisplayAt returns the display string for proxy at given index.
func (pm *ProxyManager) DisplayAt(idx int) string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if idx >= 0 && idx < len(pm.display) {
		return pm.display[idx]
	}
	return ""
}
