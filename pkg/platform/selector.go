package platform

import (
	"strings"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/proxy"
)

// Selector picks the single matching strategy for a URL, consulting the
// configured platforms in priority order. Selection is pure; no side effects.
type Selector struct {
	strategies []Strategy
	alternates map[string]Strategy
	names      []string
	log        logger.Logger
}

// NewSelector builds the strategy set from configuration. The active
// Instagram implementation is substituted here when the mirror variant is
// configured; the other variant becomes the orchestrator's fallback.
func NewSelector(cfg *config.Config, pool *proxy.Pool, log logger.Logger) *Selector {
	if log == nil {
		log = logger.GetLogger()
	}

	sel := &Selector{
		alternates: make(map[string]Strategy),
		log:        log,
	}

	for _, name := range cfg.EnabledPlatforms() {
		switch name {
		case config.PlatformInstagram:
			if cfg.Platforms.InstagramVariant == config.VariantMirror {
				sel.strategies = append(sel.strategies, NewInstagramMirror(cfg.Mirror, log))
				sel.alternates[name] = NewInstagram(cfg.Instagram, pool, log)
			} else {
				sel.strategies = append(sel.strategies, NewInstagram(cfg.Instagram, pool, log))
				if cfg.Mirror.APIKey != "" {
					sel.alternates[name] = NewInstagramMirror(cfg.Mirror, log)
				}
			}
			sel.names = append(sel.names, name)
		case config.PlatformTikTok:
			sel.strategies = append(sel.strategies, NewTikTok(cfg.TikTok, log))
			sel.names = append(sel.names, name)
		}
	}

	return sel
}

// Select returns the first strategy that accepts the URL
func (sel *Selector) Select(url string) (Strategy, error) {
	for _, strategy := range sel.strategies {
		if strategy.ValidateURL(url) {
			sel.log.DebugWithFields("selected strategy", map[string]interface{}{
				"platform": strategy.Name(),
			})
			return strategy, nil
		}
	}

	return nil, errs.Newf(errs.ErrorTypeUnsupported,
		"unsupported platform; supported platforms: %s", strings.Join(sel.names, ", "))
}

// Alternate returns the fallback strategy configured for a platform, if any
func (sel *Selector) Alternate(platform string) (Strategy, bool) {
	alt, ok := sel.alternates[platform]
	return alt, ok
}

// Platforms returns the enabled platform names in priority order
func (sel *Selector) Platforms() []string {
	out := make([]string, len(sel.names))
	copy(out, sel.names)
	return out
}
