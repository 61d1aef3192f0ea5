package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
)

// PageCache stores rendered pages between runs so repeat visits to the
// same URL skip the rendering services.
type PageCache interface {
	GetCachedPage(ctx context.Context, pageURL string) (*model.RenderedPage, error)
	SetCachedPage(ctx context.Context, page model.RenderedPage, ttl time.Duration) error
}

// Chain tries renderers in priority order, returning the first success.
// One Chain is held for the whole pipeline run so connections are reused
// across page visits; the owner must Close it on every exit path.
type Chain struct {
	renderers []Renderer
	timeout   time.Duration
	cleanup   []func()
	cache     PageCache
	cacheTTL  time.Duration
}

// NewChain creates a Chain with the given renderers, tried in order.
// perCallTimeout bounds each individual render attempt; zero means the
// renderer's own client timeout applies.
func NewChain(perCallTimeout time.Duration, renderers ...Renderer) *Chain {
	return &Chain{
		renderers: renderers,
		timeout:   perCallTimeout,
	}
}

// OnClose registers a cleanup function invoked by Close, typically an
// http.Client's CloseIdleConnections.
func (c *Chain) OnClose(fn func()) *Chain {
	c.cleanup = append(c.cleanup, fn)
	return c
}

// WithCache consults cache before each render and stores successes with
// ttl. Cache failures degrade to a plain render.
func (c *Chain) WithCache(cache PageCache, ttl time.Duration) *Chain {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// Close releases the rendering session.
func (c *Chain) Close() {
	for _, fn := range c.cleanup {
		fn()
	}
}

// Render tries each renderer in order for a single URL. Returns the
// first successful result, or an error if all fail.
func (c *Chain) Render(ctx context.Context, targetURL string) (*Result, error) {
	if c.cache != nil {
		cached, err := c.cache.GetCachedPage(ctx, targetURL)
		if err != nil {
			zap.L().Warn("scrape: page cache lookup failed",
				zap.String("url", targetURL),
				zap.Error(err),
			)
		} else if cached != nil {
			return &Result{Page: *cached, Source: "cache"}, nil
		}
	}

	var lastErr error
	for _, r := range c.renderers {
		if !r.Available() {
			continue
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		result, err := r.Render(callCtx, targetURL)
		if cancel != nil {
			cancel()
		}

		if err == nil && result != nil {
			if c.cache != nil {
				if err := c.cache.SetCachedPage(ctx, result.Page, c.cacheTTL); err != nil {
					zap.L().Warn("scrape: page cache store failed",
						zap.String("url", targetURL),
						zap.Error(err),
					)
				}
			}
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: renderer failed, trying next",
				zap.String("renderer", r.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all renderers failed")
	}
	return nil, eris.Errorf("scrape: no available renderer for url: %s", targetURL)
}
