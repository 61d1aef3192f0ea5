// Package scrape renders pages through a chain of rendering services,
// trying each in priority order and returning the first success.
package scrape

import (
	"context"

	"github.com/sells-group/firm-research/internal/model"
)

// Result holds a rendered page with its source.
type Result struct {
	Page   model.RenderedPage
	Source string // e.g. "firecrawl", "jina"
}

// Renderer fetches a single URL and returns its rendered content.
type Renderer interface {
	Render(ctx context.Context, url string) (*Result, error)
	Name() string
	Available() bool
}
