package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Source is a single free-proxy provider. Each source is independently
// fallible; a failing source degrades the pool rather than aborting a refresh.
type Source interface {
	// Name returns the unique name of the source
	Name() string
	// Fetch retrieves candidate endpoints from the source
	Fetch(ctx context.Context) ([]Endpoint, error)
}

const (
	proxyScrapeURL = "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all"
	geoNodeURL     = "https://proxylist.geonode.com/api/proxy-list?limit=20&page=1&sort_by=lastChecked&sort_type=desc&protocols=http%2Chttps"
	proxyListURL   = "https://www.proxy-list.download/api/v1/get?type=http"

	// Per-source caps keep a single noisy provider from dominating the pool
	plainSourceLimit   = 20
	geoNodeSourceLimit = 10
)

// DefaultSources returns the built-in free-proxy providers
func DefaultSources(timeout time.Duration) []Source {
	client := &http.Client{Timeout: timeout}
	return []Source{
		&plainTextSource{name: "proxyscrape", url: proxyScrapeURL, sep: "\n", limit: plainSourceLimit, client: client},
		&geoNodeSource{url: geoNodeURL, client: client},
		&plainTextSource{name: "proxy-list.download", url: proxyListURL, sep: "\r\n", limit: plainSourceLimit, client: client},
	}
}

// plainTextSource handles providers that return one host:port per line
type plainTextSource struct {
	name   string
	url    string
	sep    string
	limit  int
	client *http.Client
}

func (s *plainTextSource) Name() string { return s.name }

func (s *plainTextSource) Fetch(ctx context.Context) ([]Endpoint, error) {
	body, err := get(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}

	var endpoints []Endpoint
	for _, line := range strings.Split(strings.TrimSpace(string(body)), s.sep) {
		if len(endpoints) >= s.limit {
			break
		}
		if ep, ok := ParseHostPort(line); ok {
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

// geoNodeSource handles the GeoNode JSON proxy list
type geoNodeSource struct {
	url    string
	client *http.Client
}

func (s *geoNodeSource) Name() string { return "geonode" }

func (s *geoNodeSource) Fetch(ctx context.Context) ([]Endpoint, error) {
	body, err := get(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []struct {
			IP   string `json:"ip"`
			Port string `json:"port"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse geonode response: %w", err)
	}

	var endpoints []Endpoint
	for _, entry := range payload.Data {
		if len(endpoints) >= geoNodeSourceLimit {
			break
		}
		port, err := strconv.Atoi(entry.Port)
		if err != nil || entry.IP == "" || port < 1 || port > 65535 {
			continue
		}
		endpoints = append(endpoints, Endpoint{Scheme: "http", Host: entry.IP, Port: port})
	}
	return endpoints, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
