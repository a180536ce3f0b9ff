// Package proxy maintains the pool of outbound intermediaries used to evade
// per-source blocking: acquisition from free sources, structural
// deduplication, health probing, rotation and eviction. An empty pool is a
// valid state; consumers fall back to a direct connection.
package proxy

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"vidgrab/pkg/config"
	"vidgrab/pkg/logger"
)

// Pool owns the endpoint sequence and rotation cursor. All mutation goes
// through the pool mutex; rotation reads advance the cursor atomically.
type Pool struct {
	mu        sync.Mutex
	endpoints []Endpoint
	cursor    int

	// trusted pools are seeded from configuration and skip both source
	// scraping and health probing
	trusted bool

	sources      []Source
	probeURL     string
	probeTimeout time.Duration
	maxProbes    int
	log          logger.Logger

	// probe is replaceable in tests
	probe func(ctx context.Context, ep Endpoint) bool
}

// NewPool creates a pool from configuration. A non-empty trusted list seeds
// the pool immediately and marks it pre-vetted.
func NewPool(cfg config.ProxyConfig, log logger.Logger) (*Pool, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Pool{
		sources:      DefaultSources(cfg.SourceTimeout),
		probeURL:     cfg.ProbeURL,
		probeTimeout: cfg.ProbeTimeout,
		maxProbes:    cfg.MaxProbes,
		log:          log,
	}
	p.probe = p.probeEndpoint

	if cfg.Trusted != "" {
		endpoints, err := ParseTrusted(cfg.Trusted)
		if err != nil {
			return nil, err
		}
		p.endpoints = dedupe(endpoints)
		p.trusted = true
		log.InfoWithFields("loaded trusted proxies", map[string]interface{}{
			"count": len(p.endpoints),
		})
	}

	return p, nil
}

// SetSources replaces the free-proxy providers, primarily for tests
func (p *Pool) SetSources(sources []Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = sources
}

// Trusted reports whether the pool was seeded from a pre-vetted list
func (p *Pool) Trusted() bool {
	return p.trusted
}

// Len returns the current pool size
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Refresh queries every source, merges the candidates with the current
// contents and replaces the pool with the deduplicated result. Source
// failures are logged and skipped; Refresh itself never fails. Trusted pools
// are left untouched.
func (p *Pool) Refresh(ctx context.Context) {
	if p.trusted {
		p.log.Debug("trusted proxy pool, skipping refresh")
		return
	}

	p.mu.Lock()
	merged := make([]Endpoint, len(p.endpoints))
	copy(merged, p.endpoints)
	sources := p.sources
	p.mu.Unlock()

	for _, source := range sources {
		endpoints, err := source.Fetch(ctx)
		if err != nil {
			p.log.WarnWithFields("proxy source failed", map[string]interface{}{
				"source": source.Name(),
				"error":  err.Error(),
			})
			continue
		}
		p.log.InfoWithFields("fetched proxies from source", map[string]interface{}{
			"source": source.Name(),
			"count":  len(endpoints),
		})
		merged = append(merged, endpoints...)
	}

	unique := dedupe(merged)

	p.mu.Lock()
	p.endpoints = unique
	if p.cursor >= len(p.endpoints) {
		p.cursor = 0
	}
	p.mu.Unlock()

	p.log.InfoWithFields("proxy pool refreshed", map[string]interface{}{
		"total_unique": len(unique),
	})
}

// Next returns the endpoint at the rotation cursor and advances it circularly
func (p *Pool) Next() (Endpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return Endpoint{}, false
	}
	if p.cursor >= len(p.endpoints) {
		p.cursor = 0
	}
	ep := p.endpoints[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.endpoints)
	return ep, true
}

// Random returns a uniformly random endpoint
func (p *Pool) Random() (Endpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return Endpoint{}, false
	}
	return p.endpoints[rand.Intn(len(p.endpoints))], true
}

// Working returns an endpoint that passed a reachability probe, testing up to
// maxProbes random picks. Trusted pools skip probing and hand out a random
// endpoint directly.
func (p *Pool) Working(ctx context.Context) (Endpoint, bool) {
	if p.Len() == 0 {
		p.log.Warn("no proxies available")
		return Endpoint{}, false
	}

	if p.trusted {
		return p.Random()
	}

	maxTests := p.maxProbes
	if n := p.Len(); n < maxTests {
		maxTests = n
	}

	for tested := 1; tested <= maxTests; tested++ {
		ep, ok := p.Random()
		if !ok {
			break
		}
		if p.probe(ctx, ep) {
			p.log.InfoWithFields("found working proxy", map[string]interface{}{
				"proxy":  ep.Addr(),
				"tested": tested,
			})
			return ep, true
		}
	}

	p.log.WarnWithFields("no working proxies found", map[string]interface{}{
		"tested": maxTests,
	})
	return Endpoint{}, false
}

// Evict removes an endpoint if still present; no-op when already absent
func (p *Pool) Evict(ep Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.endpoints {
		if existing == ep {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			if p.cursor > i {
				p.cursor--
			}
			if p.cursor >= len(p.endpoints) {
				p.cursor = 0
			}
			p.log.InfoWithFields("evicted proxy", map[string]interface{}{
				"proxy":     ep.Addr(),
				"remaining": len(p.endpoints),
			})
			return
		}
	}
}

// probeEndpoint checks reachability of a known echo endpoint through the proxy
func (p *Pool) probeEndpoint(ctx context.Context, ep Endpoint) bool {
	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := ep.HTTPClient(p.probeTimeout).Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func dedupe(endpoints []Endpoint) []Endpoint {
	seen := make(map[Endpoint]struct{}, len(endpoints))
	unique := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, dup := seen[ep]; dup {
			continue
		}
		seen[ep] = struct{}{}
		unique = append(unique, ep)
	}
	return unique
}
