package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint is an outbound network intermediary. Equality is structural; two
// endpoints with the same scheme, host, port and credentials are duplicates.
type Endpoint struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// URL builds the proxy URL including credentials when present
func (e Endpoint) URL() *url.URL {
	u := &url.URL{
		Scheme: e.Scheme,
		Host:   net.JoinHostPort(e.Host, strconv.Itoa(e.Port)),
	}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u
}

// Addr returns the host:port pair without credentials, safe for logging
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// HTTPClient returns a client routing requests through this endpoint
func (e Endpoint) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(e.URL()),
		},
	}
}

// ParseHostPort parses a bare "host:port" entry as returned by the free
// proxy sources
func ParseHostPort(s string) (Endpoint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, false
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, false
	}
	return Endpoint{Scheme: "http", Host: host, Port: port}, true
}

// ParseTrusted parses a comma-separated "host:port:user:pass" list of
// pre-vetted proxies supplied via configuration
func ParseTrusted(s string) ([]Endpoint, error) {
	var endpoints []Endpoint
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid trusted proxy entry %q: want host:port:user:pass", entry)
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid trusted proxy port in %q", entry)
		}
		endpoints = append(endpoints, Endpoint{
			Scheme:   "http",
			Host:     parts[0],
			Port:     port,
			Username: parts[2],
			Password: parts[3],
		})
	}
	return endpoints, nil
}
