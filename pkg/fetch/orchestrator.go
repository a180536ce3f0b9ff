// Package fetch drives a strategy's download through bounded retry with
// classification-aware backoff, falling over to the platform's alternate
// strategy for a single attempt once the primary is exhausted.
package fetch

import (
	"context"
	"errors"

	"vidgrab/pkg/config"
	errs "vidgrab/pkg/errors"
	"vidgrab/pkg/logger"
	"vidgrab/pkg/platform"
	"vidgrab/pkg/proxy"
	"vidgrab/pkg/retry"
)

// FallbackProvider hands out the alternate strategy configured for a
// platform, if any. The selector implements it.
type FallbackProvider interface {
	Alternate(platform string) (platform.Strategy, bool)
}

// Orchestrator owns the retry/backoff/fallback state machine for one fetch
type Orchestrator struct {
	cfg       config.RetryConfig
	fallbacks FallbackProvider
	pool      *proxy.Pool
	log       logger.Logger

	blockedBackoff retry.BackoffStrategy
	genericBackoff retry.BackoffStrategy
}

// New creates an orchestrator with the configured retry policy
func New(cfg config.RetryConfig, fallbacks FallbackProvider, pool *proxy.Pool, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		cfg:            cfg,
		fallbacks:      fallbacks,
		pool:           pool,
		log:            log,
		blockedBackoff: retry.NewLinearBackoff(cfg.BlockedBackoffBase),
		genericBackoff: retry.NewLinearBackoff(cfg.GenericBackoffBase),
	}
}

// Fetch runs the strategy through the bounded retry loop for the referenced
// media. Transient failures wait an increasing backoff and, for
// proxy-consuming strategies, trigger a pool refresh before the next attempt.
// When the primary is exhausted and an alternate strategy is configured for
// the platform, the alternate gets exactly one attempt; its failure produces
// a combined report naming both errors.
func (o *Orchestrator) Fetch(ctx context.Context, strategy platform.Strategy, ref platform.Reference) (*platform.Payload, error) {
	var lastErr error

	payload, err := retry.DoWithResult(func() (*platform.Payload, error) {
		p, err := strategy.Fetch(ctx, ref.SourceURL)
		if err != nil {
			lastErr = err
		}
		return p, err
	}, &retry.Config{
		MaxAttempts:     o.cfg.MaxAttempts,
		Backoff:         o.genericBackoff,
		BackoffForError: o.backoffFor,
		RetryIf:         retry.DefaultRetryIf,
		OnRetry: func(attempt int, err error) {
			if usesProxies(strategy) {
				o.pool.Refresh(ctx)
			}
		},
		Context: ctx,
		Logger:  o.log.WithField("platform", ref.Platform).WithField("content_id", ref.ContentID),
	})
	if err == nil {
		return payload, nil
	}

	// Cancellation is terminal; no retry, no fallback
	if ctx.Err() != nil {
		return nil, err
	}

	// Non-transient failures surface immediately; the fallback absorbs
	// sustained blocking, not content or configuration problems
	if !retry.DefaultRetryIf(lastErr) {
		return nil, lastErr
	}

	alt, ok := o.fallbacks.Alternate(ref.Platform)
	if !ok {
		return nil, &errs.ExhaustedError{
			Platform: ref.Platform,
			Attempts: o.cfg.MaxAttempts,
			Primary:  lastErr,
		}
	}

	o.log.WarnWithFields("primary strategy exhausted, trying alternate", map[string]interface{}{
		"platform":   ref.Platform,
		"content_id": ref.ContentID,
		"attempts":   o.cfg.MaxAttempts,
	})

	// Single attempt, no nested retry loop
	payload, altErr := alt.Fetch(ctx, ref.SourceURL)
	if altErr == nil {
		return payload, nil
	}

	return nil, &errs.ExhaustedError{
		Platform: ref.Platform,
		Attempts: o.cfg.MaxAttempts,
		Primary:  lastErr,
		Fallback: altErr,
	}
}

// backoffFor picks the longer backoff when the platform signals blocking
func (o *Orchestrator) backoffFor(err error) retry.BackoffStrategy {
	var typed *errs.Error
	if errors.As(err, &typed) && errs.IsConnectionBlocked(typed.Type) {
		return o.blockedBackoff
	}
	return o.genericBackoff
}

func usesProxies(s platform.Strategy) bool {
	pc, ok := s.(platform.ProxyConsumer)
	return ok && pc.UsesProxies()
}
