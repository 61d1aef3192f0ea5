// Package geocode validates and normalizes city/region/country inputs via
// the Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client validates a location against the geocoding service.
type Client interface {
	// Validate resolves a city/region/country triple to a normalized form
	// with a 0-1 confidence. A transport error or non-OK status is returned
	// as an error; an unmatched input is a zero-confidence Result.
	Validate(ctx context.Context, in LocationInput) (*Result, error)
}

// LocationInput is the location to validate.
type LocationInput struct {
	City    string
	Region  string
	Country string
}

// Result holds the normalized location.
type Result struct {
	City             string
	Region           string
	Country          string
	FormattedAddress string
	Confidence       float64
	Matched          bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type geocoder struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a geocoding Client.
func NewClient(apiKey string, opts ...Option) Client {
	g := &geocoder{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(10, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          struct {
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	PartialMatch bool `json:"partial_match"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (g *geocoder) Validate(ctx context.Context, in LocationInput) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	var parts []string
	for _, p := range []string{in.City, in.Region, in.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return nil, eris.New("geocode: empty location input")
	}

	params := url.Values{
		"address": {strings.Join(parts, ", ")},
		"key":     {g.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var gr geocodeResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if gr.Status != "OK" || len(gr.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	best := gr.Results[0]
	out := &Result{
		FormattedAddress: best.FormattedAddress,
		Confidence:       resultConfidence(best),
		Matched:          true,
	}
	for _, comp := range best.AddressComponents {
		switch {
		case hasType(comp, "locality"), hasType(comp, "postal_town"):
			out.City = comp.LongName
		case hasType(comp, "administrative_area_level_1"):
			out.Region = comp.ShortName
		case hasType(comp, "country"):
			out.Country = comp.ShortName
		}
	}
	return out, nil
}

// resultConfidence maps result quality to a 0-1 confidence. Partial
// matches are penalized so callers can fall back to the raw input.
func resultConfidence(r geocodeResult) float64 {
	conf := 0.9
	if strings.ToUpper(r.Geometry.LocationType) == "APPROXIMATE" {
		// Locality-level geocodes come back APPROXIMATE; still a match.
		conf = 0.8
	}
	if r.PartialMatch {
		conf -= 0.4
	}
	return conf
}

func hasType(c addressComponent, t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}
