package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/ratelimit"
)

// InstagramMirror is the alternate Instagram strategy. It delegates
// resolution to a third-party mirror API keyed by a subscription credential.
// An authorization failure from the mirror is a configuration problem and is
// never retried; transient network failures are classified as such.
type InstagramMirror struct {
	cfg      config.MirrorConfig
	throttle ratelimit.Limiter
	log      logger.Logger

	// apiURL is overridable in tests
	apiURL string
}

// NewInstagramMirror creates the mirror-backed Instagram strategy
func NewInstagramMirror(cfg config.MirrorConfig, log logger.Logger) *InstagramMirror {
	if log == nil {
		log = logger.GetLogger()
	}
	return &InstagramMirror{
		cfg:      cfg,
		throttle: ratelimit.NewInterval(cfg.ThrottleInterval),
		log:      log.WithField("platform", config.PlatformInstagram).WithField("variant", config.VariantMirror),
		apiURL:   "https://" + cfg.Host + "/download",
	}
}

// Name returns the platform name; the mirror serves the same platform as the
// default strategy
func (s *InstagramMirror) Name() string { return config.PlatformInstagram }

// ValidateURL reports whether the URL belongs to Instagram
func (s *InstagramMirror) ValidateURL(url string) bool {
	return containsAnyHost(url, "instagram.com")
}

// ExtractContentID extracts the shortcode from an Instagram URL
func (s *InstagramMirror) ExtractContentID(url string) string {
	return extractByPattern(url, instagramPattern)
}

// mirrorResponse is the mirror API envelope
type mirrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Medias []struct {
			Type    string `json:"type"`
			URL     string `json:"url"`
			Quality string `json:"quality"`
		} `json:"medias"`
	} `json:"data"`
}

// Resolve asks the mirror API for the direct media URL
func (s *InstagramMirror) Resolve(ctx context.Context, url string) (string, string, error) {
	shortcode := s.ExtractContentID(url)

	if s.cfg.APIKey == "" {
		return "", "", errs.New(errs.ErrorTypeConfig, "mirror API key not configured")
	}

	s.throttle.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	q := req.URL.Query()
	q.Set("url", url)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("x-rapidapi-key", s.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", s.cfg.Host)

	client := &http.Client{Timeout: s.cfg.APITimeout}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "mirror API request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusForbidden {
		// The mirror rejects unsubscribed keys deployment-wide; retrying
		// cannot help
		var payload mirrorResponse
		_ = json.Unmarshal(body, &payload)
		msg := "mirror API subscription required"
		if strings.Contains(strings.ToLower(payload.Message), "not subscribed") {
			msg = "mirror API key is not subscribed"
		}
		return "", "", errs.WithCode(errs.ErrorTypeConfig, resp.StatusCode, msg)
	}
	if err := statusError(resp.StatusCode); err != nil {
		return "", "", err
	}

	var payload mirrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", errs.WithCode(errs.ErrorTypeResolution, resp.StatusCode,
			"malformed mirror API response")
	}
	if !payload.Success {
		msg := payload.Message
		if msg == "" {
			msg = "unknown mirror API error"
		}
		return "", "", errs.Newf(errs.ErrorTypeResolution, "mirror API returned error: %s", msg)
	}

	for _, media := range payload.Data.Medias {
		if media.Type == "video" && media.URL != "" {
			s.log.DebugWithFields("mirror resolved video", map[string]interface{}{
				"shortcode": shortcode,
				"quality":   media.Quality,
			})
			return media.URL, shortcode, nil
		}
	}
	return "", "", errs.New(errs.ErrorTypeResolution, "no video URL in mirror API response")
}

// Fetch resolves the post through the mirror and downloads the media
func (s *InstagramMirror) Fetch(ctx context.Context, url string) (*Payload, error) {
	directURL, shortcode, err := s.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	s.throttle.Wait()

	client := &http.Client{Timeout: s.cfg.DownloadTimeout}
	data, err := download(ctx, client, directURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		Bytes:     data,
		ContentID: shortcode,
		Filename:  Filename(s.Name(), shortcode),
	}
	s.log.InfoWithFields("media downloaded via mirror", map[string]interface{}{
		"shortcode": shortcode,
		"size_mb":   payload.SizeMB(),
	})
	return payload, nil
}
