// Package platform implements the per-platform retrieval strategies and the
// selector that picks one for a URL. A strategy knows how to validate a URL,
// extract the stable content identifier, resolve a direct media URL and fetch
// the raw bytes.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	errs "vidgrab/pkg/errors"
)

// Strategy is the capability set every platform variant exposes
type Strategy interface {
	// Name returns the platform name
	Name() string
	// ValidateURL reports whether the URL belongs to this platform
	ValidateURL(url string) bool
	// ExtractContentID extracts the platform-scoped stable identifier
	ExtractContentID(url string) string
	// Resolve obtains a direct, time-limited media URL without downloading
	Resolve(ctx context.Context, url string) (directURL, contentID string, err error)
	// Fetch performs the full download
	Fetch(ctx context.Context, url string) (*Payload, error)
}

// ProxyConsumer is implemented by strategies that route requests through the
// proxy pool, so the orchestrator knows when a pool refresh between attempts
// is worthwhile.
type ProxyConsumer interface {
	UsesProxies() bool
}

// Reference identifies a piece of media once per inbound request
type Reference struct {
	SourceURL string
	Platform  string
	ContentID string
}

// Payload is the result of a successful fetch. Bytes are fully buffered in
// memory; ownership transfers to the caller on return.
type Payload struct {
	Bytes     []byte
	ContentID string
	Filename  string
}

// SizeMB returns the payload size in megabytes
func (p *Payload) SizeMB() float64 {
	return float64(len(p.Bytes)) / (1024 * 1024)
}

// Filename builds the deterministic download name for a piece of media
func Filename(platform, contentID string) string {
	return fmt.Sprintf("%s_%s.mp4", platform, contentID)
}

var (
	instagramPattern = regexp.MustCompile(`/(?:reel|p|tv)/([A-Za-z0-9_-]+)`)
	tiktokPattern    = regexp.MustCompile(`/video/(\d+)`)
)

// stripURL removes the query string and any trailing slash
func stripURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(raw, "/")
}

// extractByPattern matches the content-id pattern against the cleaned URL,
// falling back to the last non-empty path segment. It never returns an empty
// string for a non-empty URL.
func extractByPattern(raw string, pattern *regexp.Regexp) string {
	cleaned := stripURL(raw)

	if m := pattern.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}

	parts := strings.Split(cleaned, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return cleaned
}

// containsAnyHost is the case-insensitive hostname check strategies use for
// URL validation
func containsAnyHost(url string, hosts ...string) bool {
	lower := strings.ToLower(url)
	for _, host := range hosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// download retrieves a direct media URL into memory, classifying transport
// and status failures
func download(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Newf(errs.ErrorTypeNetwork, "download failed: %v", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeNetwork, "failed to read media body: %v", err)
	}
	return data, nil
}

// getJSON performs a GET request and decodes the JSON response, classifying
// transport, status and parse failures
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Newf(errs.ErrorTypeNetwork, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if readErr != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "failed to read response body: %v", readErr)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errs.WithCode(errs.ErrorTypeResolution, resp.StatusCode,
			fmt.Sprintf("malformed API response: %v", err))
	}
	return nil
}

// statusError maps a non-2xx upstream status onto the error taxonomy
func statusError(code int) *errs.Error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return errs.WithCode(errs.ErrorTypeRateLimit, code, "rate limit exceeded")
	case code == http.StatusNotFound:
		return errs.WithCode(errs.ErrorTypeResolution, code, "content not found")
	case errs.IsRetryableStatusCode(code):
		return errs.WithCode(errs.ErrorTypeServerError, code, "upstream server error")
	case code >= 400:
		return errs.WithCode(errs.ErrorTypeFetch, code, fmt.Sprintf("unexpected status %d", code))
	default:
		return nil
	}
}
