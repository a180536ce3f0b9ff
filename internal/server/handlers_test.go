package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgrab/pkg/config"
	"vidgrab/pkg/downloader"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/platform"
	"vidgrab/pkg/proxy"
)

// stubService scripts the downloader facade
type stubService struct {
	payload *platform.Payload
	info    *downloader.Info
	err     error
	pool    *proxy.Pool
	lastURL string
}

func (s *stubService) Fetch(ctx context.Context, url string) (*platform.Payload, error) {
	s.lastURL = url
	return s.payload, s.err
}

func (s *stubService) Resolve(ctx context.Context, url string) (*downloader.Info, error) {
	s.lastURL = url
	return s.info, s.err
}

func (s *stubService) Platforms() []string { return []string{"instagram", "tiktok"} }
func (s *stubService) Pool() *proxy.Pool   { return s.pool }

func newTestRouter(t *testing.T, svc *stubService, mutate func(*config.ServerConfig)) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.RateLimitEnabled = false
	if mutate != nil {
		mutate(&cfg.Server)
	}

	if svc.pool == nil {
		pool, err := proxy.NewPool(config.ProxyConfig{MaxProbes: 1}, nil)
		require.NoError(t, err)
		svc.pool = pool
	}

	log, err := logger.New(&config.LoggingConfig{Level: "error"})
	require.NoError(t, err)

	return NewRouter(NewHandler(svc, cfg, log), cfg.Server, log)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestDownloadSuccess(t *testing.T) {
	svc := &stubService{payload: &platform.Payload{
		Bytes:     []byte("fake-mp4-bytes"),
		ContentID: "ABC123",
		Filename:  "instagram_ABC123.mp4",
	}}
	router := newTestRouter(t, svc, nil)

	rec := postJSON(t, router, "/api/v1/download", `{"url":"https://www.instagram.com/reel/ABC123/"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "instagram_ABC123.mp4")
	assert.Equal(t, "fake-mp4-bytes", rec.Body.String())
	assert.Equal(t, "https://www.instagram.com/reel/ABC123/", svc.lastURL)
}

func TestDownloadErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unsupported platform", errs.New(errs.ErrorTypeUnsupported, "unsupported platform"), http.StatusBadRequest},
		{"resolution failure", errs.New(errs.ErrorTypeResolution, "this post is not a video"), http.StatusNotFound},
		{"fetch failure", errs.WithCode(errs.ErrorTypeFetch, 403, "unexpected status 403"), http.StatusNotFound},
		{"rate limited upstream", errs.WithCode(errs.ErrorTypeRateLimit, 429, "rate limit exceeded"), http.StatusTooManyRequests},
		{"misconfiguration", errs.New(errs.ErrorTypeConfig, "mirror API key not configured"), http.StatusInternalServerError},
		{"exhausted", &errs.ExhaustedError{Platform: "instagram", Attempts: 3, Primary: errs.New(errs.ErrorTypeNetwork, "reset")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &stubService{err: tt.err}, nil)
			rec := postJSON(t, router, "/api/v1/download", `{"url":"https://www.instagram.com/reel/x/"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestDownloadRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing url", `{}`},
		{"empty url", `{"url":""}`},
		{"non-http scheme", `{"url":"ftp://example.com/x"}`},
		{"oversized url", fmt.Sprintf(`{"url":"https://example.com/%s"}`, strings.Repeat("a", 3000))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/v1/download", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDownloadEnforcesSizeCap(t *testing.T) {
	svc := &stubService{payload: &platform.Payload{
		Bytes:    make([]byte, 2*1024*1024),
		Filename: "instagram_x.mp4",
	}}
	router := newTestRouter(t, svc, func(cfg *config.ServerConfig) {
		cfg.MaxDownloadMB = 1
	})

	rec := postJSON(t, router, "/api/v1/download", `{"url":"https://www.instagram.com/reel/x/"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "1 MB limit")
}

func TestPostRequiresJSONContentType(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	for _, path := range []string{"/api/v1/download", "/api/v1/info"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"url":"https://example.com/x"}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, "path %s", path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "GET routes are exempt")

	// A charset parameter still counts as JSON
	req = httptest.NewRequest(http.MethodPost, "/api/v1/info",
		bytes.NewBufferString(`{"url":"https://example.com/x"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestInfo(t *testing.T) {
	svc := &stubService{info: &downloader.Info{
		Platform:  "tiktok",
		ContentID: "998877",
		DirectURL: "https://cdn.example.com/v.mp4",
	}}
	router := newTestRouter(t, svc, nil)

	rec := postJSON(t, router, "/api/v1/info", `{"url":"https://www.tiktok.com/@user/video/998877"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var info downloader.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "tiktok", info.Platform)
	assert.Equal(t, "998877", info.ContentID)
	assert.Equal(t, "https://cdn.example.com/v.mp4", info.DirectURL)
}

func TestPlatforms(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body platformsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"instagram", "tiktok"}, body.Platforms)
	assert.Contains(t, body.Examples["instagram"], "instagram.com")
	assert.Contains(t, body.Examples["tiktok"], "tiktok.com")
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"instagram", "tiktok"}, body.Platforms)
	assert.False(t, body.RateLimitEnabled)
	assert.Equal(t, 0, body.Proxies)
}

func TestAPIKeyAuth(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc, func(cfg *config.ServerConfig) {
		cfg.APIKeyRequired = true
		cfg.APIKey = "secret-key"
	})

	// Missing key
	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Header key
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bearer token
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, &stubService{}, func(cfg *config.ServerConfig) {
		cfg.RateLimitEnabled = true
		cfg.RateLimitPerMinute = 2
	})

	for n := 0; n < 2; n++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
		req.RemoteAddr = "10.1.1.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", n+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client IP has its own budget
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.RemoteAddr = "10.2.2.2:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
