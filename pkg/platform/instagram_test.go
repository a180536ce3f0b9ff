package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/proxy"
)

func instagramStrategy(t *testing.T, baseURL string) *Instagram {
	t.Helper()
	pool, err := proxy.NewPool(config.ProxyConfig{MaxProbes: 1}, nil)
	require.NoError(t, err)

	s := NewInstagram(config.InstagramConfig{
		APITimeout:      5 * time.Second,
		DownloadTimeout: 5 * time.Second,
		UserAgent:       "test-agent",
	}, pool, nil)
	if baseURL != "" {
		s.baseURL = baseURL
	}
	return s
}

func TestInstagramResolve(t *testing.T) {
	var gotPath, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"items":[{"media_type":2,"video_versions":[
			{"url":"https://cdn.example.com/v1.mp4"},
			{"url":"https://cdn.example.com/v2.mp4"}
		]}]}`)
	}))
	defer srv.Close()

	s := instagramStrategy(t, srv.URL)
	directURL, shortcode, err := s.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/?utm=1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v1.mp4", directURL, "highest quality version comes first")
	assert.Equal(t, "ABC123", shortcode)
	assert.Equal(t, "/p/ABC123/", gotPath)
	assert.Equal(t, "test-agent", gotAgent)
}

func TestInstagramResolveNotAVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"media_type":1}]}`)
	}))
	defer srv.Close()

	s := instagramStrategy(t, srv.URL)
	_, _, err := s.Resolve(context.Background(), "https://www.instagram.com/p/ABC123/")
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeResolution, typed.Type)
	assert.Contains(t, err.Error(), "not a video")
}

func TestInstagramResolveEmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	s := instagramStrategy(t, srv.URL)
	_, _, err := s.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeResolution, typed.Type)
}

func TestInstagramResolveMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>login required</html>`)
	}))
	defer srv.Close()

	s := instagramStrategy(t, srv.URL)
	_, _, err := s.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeResolution, typed.Type)
}

func TestInstagramResolveRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := instagramStrategy(t, srv.URL)
	_, _, err := s.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")
	require.Error(t, err)

	var typed *errs.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, errs.ErrorTypeRateLimit, typed.Type)
}

func TestInstagramFetchDirect(t *testing.T) {
	video := []byte("fake-mp4-bytes")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/p/ABC123/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"media_type":2,"video_versions":[{"url":"%s/media/v.mp4"}]}]}`, srv.URL)
	})
	mux.HandleFunc("/media/v.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write(video)
	})

	// Empty pool: metadata and download both go over the direct connection
	s := instagramStrategy(t, srv.URL)
	payload, err := s.Fetch(context.Background(), "https://www.instagram.com/reel/ABC123/")
	require.NoError(t, err)
	assert.Equal(t, video, payload.Bytes)
	assert.Equal(t, "ABC123", payload.ContentID)
	assert.Equal(t, "instagram_ABC123.mp4", payload.Filename)
}

func TestInstagramUsesProxies(t *testing.T) {
	s := instagramStrategy(t, "")
	assert.True(t, s.UsesProxies())
}
