package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/firm-research/internal/resilience"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", WithBaseURL(srv.URL))
}

func TestScrape(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantErr    bool
		wantAPIErr bool
		wantStatus int
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/scrape", r.URL.Path)
				assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req ScrapeRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "https://example.com", req.URL)
				assert.Equal(t, []string{"markdown", "links"}, req.Formats)

				json.NewEncoder(w).Encode(ScrapeResponse{
					Success: true,
					Data: PageData{
						Markdown: "# Example Law Firm",
						Links:    []string{"https://example.com/about"},
						Metadata: Metadata{
							Title:      "Example Law Firm",
							SourceURL:  "https://example.com",
							URL:        "https://www.example.com/",
							StatusCode: 200,
						},
					},
				})
			},
		},
		{
			name: "auth error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Unauthorized"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 401,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantStatus: 500,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			resp, err := c.Scrape(context.Background(), ScrapeRequest{
				URL:     "https://example.com",
				Formats: []string{"markdown", "links"},
			})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantAPIErr {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, "# Example Law Firm", resp.Data.Markdown)
			assert.Equal(t, "https://www.example.com/", resp.Data.Metadata.URL)
			assert.Equal(t, []string{"https://example.com/about"}, resp.Data.Links)
		})
	}
}

func TestScrape_ContextCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Scrape(ctx, ScrapeRequest{URL: "https://example.com"})
	require.Error(t, err)
}

func TestScrape_RetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(ScrapeResponse{Success: true}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-api-key",
		WithBaseURL(srv.URL),
		WithRetry(resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, Jitter: 0}),
	)
	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, calls)
}

func TestScrape_NoRetryOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-api-key",
		WithBaseURL(srv.URL),
		WithRetry(resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, Jitter: 0}),
	)
	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
