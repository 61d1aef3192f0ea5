package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/firm-research/internal/pipeline"
	"github.com/sells-group/firm-research/internal/resilience"
	"github.com/sells-group/firm-research/internal/scrape"
	"github.com/sells-group/firm-research/internal/store"
	anthropicpkg "github.com/sells-group/firm-research/pkg/anthropic"
	"github.com/sells-group/firm-research/pkg/firecrawl"
	"github.com/sells-group/firm-research/pkg/geocode"
	"github.com/sells-group/firm-research/pkg/jina"
	"github.com/sells-group/firm-research/pkg/places"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.Path
		if dsn == "" {
			dsn = "firm-research.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the per-process dependencies the commands share. The
// scrape chain inside the pipeline is owned per run; construct one
// pipeline per subject via newPipeline.
type env struct {
	store      store.Store
	geocoder   geocode.Client
	places     places.Client
	anthropic  anthropicpkg.Client
	httpClient *http.Client
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	e := &env{
		store: st,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Discovery.FeedTimeoutSecs) * time.Second,
		},
	}
	if cfg.Geocode.Key != "" {
		opts := []geocode.Option{}
		if cfg.Geocode.BaseURL != "" {
			opts = append(opts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
		}
		if cfg.Geocode.RateLimitRPS > 0 {
			opts = append(opts, geocode.WithRateLimit(cfg.Geocode.RateLimitRPS))
		}
		e.geocoder = geocode.NewClient(cfg.Geocode.Key, opts...)
	}
	if cfg.Places.Key != "" {
		opts := []places.Option{}
		if cfg.Places.BaseURL != "" {
			opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
		}
		if cfg.Places.RateLimitRPS > 0 {
			opts = append(opts, places.WithRateLimit(cfg.Places.RateLimitRPS))
		}
		e.places = places.NewClient(cfg.Places.Key, opts...)
	}
	if cfg.Anthropic.Key != "" {
		e.anthropic = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}
	return e, nil
}

func (e *env) Close() {
	e.store.Close() //nolint:errcheck
}

// newPipeline assembles a pipeline with a fresh scrape chain. The chain
// is released by Pipeline.Run on every exit path.
func (e *env) newPipeline() *pipeline.Pipeline {
	var renderers []scrape.Renderer
	if cfg.Firecrawl.Key != "" {
		retry := resilience.DefaultPolicy()
		retry.OnRetry = resilience.LogRetries("firecrawl")
		opts := []firecrawl.Option{firecrawl.WithRetry(retry)}
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		renderers = append(renderers, scrape.NewFirecrawlRenderer(firecrawl.NewClient(cfg.Firecrawl.Key, opts...)))
	}
	if cfg.Jina.Key != "" {
		retry := resilience.DefaultPolicy()
		retry.OnRetry = resilience.LogRetries("jina")
		opts := []jina.Option{jina.WithRetry(retry)}
		if cfg.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		renderers = append(renderers, scrape.NewJinaRenderer(jina.NewClient(cfg.Jina.Key, opts...)))
	}

	chain := scrape.NewChain(
		time.Duration(cfg.Discovery.RenderTimeoutSecs)*time.Second,
		renderers...,
	)
	chain.OnClose(e.httpClient.CloseIdleConnections)
	if cfg.Discovery.CacheTTLSecs > 0 {
		chain.WithCache(e.store, time.Duration(cfg.Discovery.CacheTTLSecs)*time.Second)
	}

	return pipeline.New(
		chain,
		e.httpClient,
		pipeline.NewLocationResolver(e.geocoder, cfg.Research.MinGeocodeConfidence),
		pipeline.NewEntityResolver(e.places,
			pipeline.NewContainmentMatcher(cfg.Research.MinNameMatchScore),
			cfg.Places.MaxCandidates),
		pipeline.NewRosterAssist(e.anthropic, cfg.Anthropic.Model),
		cfg.Discovery,
	)
}
