package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"vidgrab/pkg/config"
	"vidgrab/pkg/downloader"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/platform"
	"vidgrab/pkg/proxy"
)

const maxURLLength = 2048

// DownloadService is the slice of the downloader facade the handlers use
type DownloadService interface {
	Fetch(ctx context.Context, url string) (*platform.Payload, error)
	Resolve(ctx context.Context, url string) (*downloader.Info, error)
	Platforms() []string
	Pool() *proxy.Pool
}

// Handler serves the download API endpoints
type Handler struct {
	svc DownloadService
	cfg *config.Config
	log logger.Logger
}

// NewHandler creates the API handler
func NewHandler(svc DownloadService, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

// downloadRequest is the JSON body for download and info requests
type downloadRequest struct {
	URL string `json:"url"`
}

// platformsResponse lists the enabled platforms with a share URL of the
// shape each one accepts
type platformsResponse struct {
	Platforms []string          `json:"platforms"`
	Examples  map[string]string `json:"examples"`
}

// exampleURLs shows clients what a valid share URL looks like per platform
var exampleURLs = map[string]string{
	config.PlatformInstagram: "https://www.instagram.com/reel/ABC123xyz/",
	config.PlatformTikTok:    "https://www.tiktok.com/@username/video/1234567890",
}

// healthResponse reports service liveness, the enabled platforms and proxy
// pool state
type healthResponse struct {
	Status           string   `json:"status"`
	Platforms        []string `json:"supported_platforms"`
	RateLimitEnabled bool     `json:"rate_limit_enabled"`
	Proxies          int      `json:"proxies"`
}

// errorResponse is the JSON error envelope
type errorResponse struct {
	Error string `json:"error"`
}

// Download handles POST /api/v1/download. On success the response body is the
// raw video with an attachment Content-Disposition.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	url, ok := h.parseURL(w, r)
	if !ok {
		return
	}

	payload, err := h.svc.Fetch(r.Context(), url)
	if err != nil {
		h.writeFetchError(w, url, err)
		return
	}

	if max := h.cfg.Server.MaxDownloadMB; max > 0 && payload.SizeMB() > float64(max) {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("video exceeds the %d MB limit", max))
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload.Bytes)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Bytes); err != nil {
		h.log.WithError(err).Warn("failed to stream video to client")
	}
}

// Info handles POST /api/v1/info: resolve a share URL to its direct media URL
// without downloading the video.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	url, ok := h.parseURL(w, r)
	if !ok {
		return
	}

	info, err := h.svc.Resolve(r.Context(), url)
	if err != nil {
		h.writeFetchError(w, url, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Platforms handles GET /api/v1/platforms
func (h *Handler) Platforms(w http.ResponseWriter, r *http.Request) {
	platforms := h.svc.Platforms()

	examples := make(map[string]string, len(platforms))
	for _, name := range platforms {
		if url, ok := exampleURLs[name]; ok {
			examples[name] = url
		}
	}

	writeJSON(w, http.StatusOK, platformsResponse{
		Platforms: platforms,
		Examples:  examples,
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Platforms:        h.svc.Platforms(),
		RateLimitEnabled: h.cfg.Server.RateLimitEnabled,
		Proxies:          h.svc.Pool().Len(),
	})
}

// parseURL decodes and sanitizes the request URL, writing the error response
// itself when the input is unusable.
func (h *Handler) parseURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	url, err := sanitizeURL(req.URL)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return url, true
}

// sanitizeURL rejects unusable input before it reaches a strategy
func sanitizeURL(raw string) (string, error) {
	url := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", ""))
	if url == "" {
		return "", errors.New("url is required")
	}
	if len(url) > maxURLLength {
		return "", fmt.Errorf("url exceeds %d characters", maxURLLength)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", errors.New("url must start with http:// or https://")
	}
	return url, nil
}

// writeFetchError maps pipeline failures onto HTTP statuses
func (h *Handler) writeFetchError(w http.ResponseWriter, url string, err error) {
	h.log.WithError(err).WithField("url", url).Warn("request failed")
	writeJSONError(w, statusForError(err), err.Error())
}

// statusForError translates the error taxonomy into response codes
func statusForError(err error) int {
	var exhausted *errs.ExhaustedError
	if errors.As(err, &exhausted) {
		return http.StatusBadGateway
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		switch typed.Type {
		case errs.ErrorTypeUnsupported:
			return http.StatusBadRequest
		case errs.ErrorTypeResolution, errs.ErrorTypeFetch:
			return http.StatusNotFound
		case errs.ErrorTypeRateLimit:
			return http.StatusTooManyRequests
		case errs.ErrorTypeNetwork, errs.ErrorTypeServerError:
			return http.StatusBadGateway
		case errs.ErrorTypeConfig:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
