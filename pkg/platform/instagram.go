package platform

import (
	"context"
	"errors"
	"net/http"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/proxy"
	"vidgrab/pkg/ratelimit"
	"vidgrab/pkg/retry"
)

const instagramBaseURL = "https://www.instagram.com"

// Instagram is the primary Instagram strategy. It resolves media through the
// platform's private web API, routed through a working proxy when the pool
// has one, and enforces a minimum spacing between outbound calls to avoid
// platform-side throttling.
type Instagram struct {
	cfg      config.InstagramConfig
	pool     *proxy.Pool
	throttle ratelimit.Limiter
	log      logger.Logger

	// baseURL is overridable in tests
	baseURL string
}

// NewInstagram creates the default Instagram strategy
func NewInstagram(cfg config.InstagramConfig, pool *proxy.Pool, log logger.Logger) *Instagram {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Instagram{
		cfg:      cfg,
		pool:     pool,
		throttle: ratelimit.NewInterval(cfg.ThrottleInterval),
		log:      log.WithField("platform", config.PlatformInstagram),
		baseURL:  instagramBaseURL,
	}
}

// Name returns the platform name
func (s *Instagram) Name() string { return config.PlatformInstagram }

// UsesProxies reports that this strategy consults the proxy pool
func (s *Instagram) UsesProxies() bool { return true }

// ValidateURL reports whether the URL belongs to Instagram
func (s *Instagram) ValidateURL(url string) bool {
	return containsAnyHost(url, "instagram.com")
}

// ExtractContentID extracts the shortcode from an Instagram URL
func (s *Instagram) ExtractContentID(url string) string {
	return extractByPattern(url, instagramPattern)
}

// mediaInfo is the subset of the web API response the strategy needs
type mediaInfo struct {
	Items []struct {
		MediaType     int `json:"media_type"`
		VideoVersions []struct {
			URL string `json:"url"`
		} `json:"video_versions"`
	} `json:"items"`
}

// Resolve obtains the direct media URL for a post without downloading it
func (s *Instagram) Resolve(ctx context.Context, url string) (string, string, error) {
	shortcode := s.ExtractContentID(url)
	s.log.DebugWithFields("resolving media", map[string]interface{}{
		"shortcode": shortcode,
	})

	s.throttle.Wait()

	client, ep, proxied := s.metadataClient(ctx)

	var info mediaInfo
	metadataURL := s.baseURL + "/p/" + shortcode + "/?__a=1&__d=dis"
	err := getJSON(ctx, client, metadataURL, s.headers(), &info)
	if err != nil && proxied {
		var typed *errs.Error
		if errors.As(err, &typed) && typed.Type == errs.ErrorTypeNetwork {
			// A proxy that cannot reach the platform is worthless
			s.pool.Evict(ep)
		}
	}
	if err != nil {
		return "", "", err
	}

	if len(info.Items) == 0 {
		return "", "", errs.New(errs.ErrorTypeResolution, "post not found in API response")
	}
	item := info.Items[0]
	if item.MediaType != 2 || len(item.VideoVersions) == 0 {
		return "", "", errs.New(errs.ErrorTypeResolution, "this post is not a video")
	}

	return item.VideoVersions[0].URL, shortcode, nil
}

// Fetch resolves the post and downloads the media, first over a proxied
// connection and once more over a direct connection if the proxied attempt
// fails. Failures beyond that are propagated; retry ownership belongs to the
// orchestrator.
func (s *Instagram) Fetch(ctx context.Context, url string) (*Payload, error) {
	directURL, shortcode, err := s.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	s.throttle.Wait()

	candidates := s.downloadCandidates(ctx, directURL)
	data, err := retry.First(ctx, nonRetryableStop, candidates...)
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		Bytes:     data,
		ContentID: shortcode,
		Filename:  Filename(s.Name(), shortcode),
	}
	s.log.InfoWithFields("media downloaded", map[string]interface{}{
		"shortcode": shortcode,
		"size_mb":   payload.SizeMB(),
	})
	return payload, nil
}

// downloadCandidates orders the proxied connection before the direct one
func (s *Instagram) downloadCandidates(ctx context.Context, directURL string) []retry.Candidate[[]byte] {
	var candidates []retry.Candidate[[]byte]

	if ep, ok := s.pool.Working(ctx); ok {
		proxiedClient := ep.HTTPClient(s.cfg.DownloadTimeout)
		candidates = append(candidates, func(ctx context.Context) ([]byte, error) {
			data, err := download(ctx, proxiedClient, directURL, s.headers())
			if err != nil {
				s.log.WarnWithFields("proxied download failed", map[string]interface{}{
					"proxy": ep.Addr(),
					"error": err.Error(),
				})
			}
			return data, err
		})
	}

	directClient := &http.Client{Timeout: s.cfg.DownloadTimeout}
	candidates = append(candidates, func(ctx context.Context) ([]byte, error) {
		return download(ctx, directClient, directURL, s.headers())
	})

	return candidates
}

// metadataClient picks a working proxy for the metadata request, falling back
// to a direct connection when the pool has nothing to offer
func (s *Instagram) metadataClient(ctx context.Context) (*http.Client, proxy.Endpoint, bool) {
	if ep, ok := s.pool.Working(ctx); ok {
		s.log.DebugWithFields("routing metadata request through proxy", map[string]interface{}{
			"proxy": ep.Addr(),
		})
		return ep.HTTPClient(s.cfg.APITimeout), ep, true
	}
	return &http.Client{Timeout: s.cfg.APITimeout}, proxy.Endpoint{}, false
}

func (s *Instagram) headers() map[string]string {
	return map[string]string{
		"User-Agent":      s.cfg.UserAgent,
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// nonRetryableStop short-circuits the candidate chain on errors that a
// different connection path cannot fix
func nonRetryableStop(err error) bool {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return !errs.IsRetryable(typed.Type)
	}
	return false
}
