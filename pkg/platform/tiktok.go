package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
)

// TikTok resolves videos through a public mirror API. No proxy routing and no
// self-throttle; the mirror tolerates direct automated access.
type TikTok struct {
	cfg config.TikTokConfig
	log logger.Logger
}

// NewTikTok creates the TikTok strategy
func NewTikTok(cfg config.TikTokConfig, log logger.Logger) *TikTok {
	if log == nil {
		log = logger.GetLogger()
	}
	return &TikTok{
		cfg: cfg,
		log: log.WithField("platform", config.PlatformTikTok),
	}
}

// Name returns the platform name
func (s *TikTok) Name() string { return config.PlatformTikTok }

// ValidateURL reports whether the URL belongs to TikTok
func (s *TikTok) ValidateURL(u string) bool {
	return containsAnyHost(u, "tiktok.com", "vm.tiktok.com")
}

// ExtractContentID extracts the numeric video id from a TikTok URL
func (s *TikTok) ExtractContentID(u string) string {
	return extractByPattern(u, tiktokPattern)
}

// tikAPIResponse is the mirror envelope; code zero means success
type tikAPIResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Play string `json:"play"`
	} `json:"data"`
}

// Resolve asks the mirror API for the direct play URL
func (s *TikTok) Resolve(ctx context.Context, rawURL string) (string, string, error) {
	videoID := s.ExtractContentID(rawURL)

	form := url.Values{}
	form.Set("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	client := &http.Client{Timeout: s.cfg.APITimeout}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "mirror API request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return "", "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "failed to read response body: %v", err)
	}

	var payload tikAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", errs.WithCode(errs.ErrorTypeResolution, resp.StatusCode,
			"malformed mirror API response")
	}
	if payload.Code != 0 {
		msg := payload.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return "", "", errs.Newf(errs.ErrorTypeResolution, "mirror API error: %s", msg)
	}
	if payload.Data.Play == "" {
		return "", "", errs.New(errs.ErrorTypeResolution, "no play URL in mirror API response")
	}

	return payload.Data.Play, videoID, nil
}

// Fetch resolves the video and downloads it over a direct connection
func (s *TikTok) Fetch(ctx context.Context, rawURL string) (*Payload, error) {
	directURL, videoID, err := s.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: s.cfg.DownloadTimeout}
	data, err := download(ctx, client, directURL, map[string]string{
		"User-Agent": s.cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		Bytes:     data,
		ContentID: videoID,
		Filename:  Filename(s.Name(), videoID),
	}
	s.log.InfoWithFields("media downloaded", map[string]interface{}{
		"video_id": videoID,
		"size_mb":  payload.SizeMB(),
	})
	return payload, nil
}
