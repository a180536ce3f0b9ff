// Package downloader is the facade the request-handling layer talks to:
// strategy selection, orchestrated fetching and metadata-only resolution.
package downloader

import (
	"context"

	"vidgrab/pkg/config"
	"vidgrab/pkg/fetch"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/platform"
	"vidgrab/pkg/proxy"
)

// Info is the result of a metadata-only query
type Info struct {
	Platform  string `json:"platform"`
	ContentID string `json:"content_id"`
	DirectURL string `json:"direct_url"`
}

// Service wires the selector, orchestrator and proxy pool together
type Service struct {
	selector *platform.Selector
	orch     *fetch.Orchestrator
	pool     *proxy.Pool
	log      logger.Logger
}

// New builds the service from configuration
func New(cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	pool, err := proxy.NewPool(cfg.Proxy, log)
	if err != nil {
		return nil, err
	}

	selector := platform.NewSelector(cfg, pool, log)
	orch := fetch.New(cfg.Retry, selector, pool, log)

	return &Service{
		selector: selector,
		orch:     orch,
		pool:     pool,
		log:      log,
	}, nil
}

// WarmUp populates the proxy pool ahead of the first request. Failures only
// degrade the pool; WarmUp never returns an error.
func (s *Service) WarmUp(ctx context.Context) {
	s.pool.Refresh(ctx)
}

// Pool exposes the proxy pool, primarily for health reporting
func (s *Service) Pool() *proxy.Pool {
	return s.pool
}

// describe selects the strategy for a URL and builds the media reference the
// rest of the pipeline works against
func (s *Service) describe(url string) (platform.Strategy, platform.Reference, error) {
	strategy, err := s.selector.Select(url)
	if err != nil {
		return nil, platform.Reference{}, err
	}
	return strategy, platform.Reference{
		SourceURL: url,
		Platform:  strategy.Name(),
		ContentID: strategy.ExtractContentID(url),
	}, nil
}

// Resolve answers a metadata-only query without downloading the body
func (s *Service) Resolve(ctx context.Context, url string) (*Info, error) {
	strategy, ref, err := s.describe(url)
	if err != nil {
		return nil, err
	}

	directURL, contentID, err := strategy.Resolve(ctx, ref.SourceURL)
	if err != nil {
		return nil, err
	}
	if contentID != "" {
		ref.ContentID = contentID
	}

	return &Info{
		Platform:  ref.Platform,
		ContentID: ref.ContentID,
		DirectURL: directURL,
	}, nil
}

// Fetch selects a strategy and drives the full download through the
// orchestrator's retry and fallback policy
func (s *Service) Fetch(ctx context.Context, url string) (*platform.Payload, error) {
	strategy, ref, err := s.describe(url)
	if err != nil {
		return nil, err
	}
	return s.orch.Fetch(ctx, strategy, ref)
}

// Platforms returns the enabled platform names in priority order
func (s *Service) Platforms() []string {
	return s.selector.Platforms()
}
