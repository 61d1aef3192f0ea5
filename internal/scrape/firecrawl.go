package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/pkg/firecrawl"
)

// FirecrawlRenderer wraps a Firecrawl client as the primary Renderer.
type FirecrawlRenderer struct {
	client firecrawl.Client
}

// NewFirecrawlRenderer creates a FirecrawlRenderer from a Firecrawl client.
func NewFirecrawlRenderer(client firecrawl.Client) *FirecrawlRenderer {
	return &FirecrawlRenderer{client: client}
}

// Name implements Renderer.
func (f *FirecrawlRenderer) Name() string { return "firecrawl" }

// Available implements Renderer. Firecrawl can attempt any URL.
func (f *FirecrawlRenderer) Available() bool { return true }

// Render fetches a single URL, requesting markdown plus the link list
// and raw HTML so discovery can reuse the same render.
func (f *FirecrawlRenderer) Render(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"markdown", "links", "html"},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}

	resolved := resp.Data.Metadata.URL
	if resolved == "" {
		resolved = resp.Data.Metadata.SourceURL
	}

	return &Result{
		Page: model.RenderedPage{
			URL:         targetURL,
			ResolvedURL: resolved,
			Title:       resp.Data.Metadata.Title,
			Content:     resp.Data.Markdown,
			HTML:        resp.Data.HTML,
			Links:       resp.Data.Links,
			StatusCode:  resp.Data.Metadata.StatusCode,
		},
		Source: "firecrawl",
	}, nil
}
