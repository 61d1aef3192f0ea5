package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phoenixResponse = `{
  "status": "OK",
  "results": [
    {
      "formatted_address": "Phoenix, AZ, USA",
      "geometry": {"location_type": "APPROXIMATE"},
      "address_components": [
        {"long_name": "Phoenix", "short_name": "Phoenix", "types": ["locality", "political"]},
        {"long_name": "Arizona", "short_name": "AZ", "types": ["administrative_area_level_1", "political"]},
        {"long_name": "United States", "short_name": "US", "types": ["country", "political"]}
      ]
    }
  ]
}`

func TestValidate_NormalizesComponents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Pheonix, AZ, US", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(phoenixResponse))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Validate(context.Background(), LocationInput{City: "Pheonix", Region: "AZ", Country: "US"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Phoenix", res.City)
	assert.Equal(t, "AZ", res.Region)
	assert.Equal(t, "US", res.Country)
	assert.GreaterOrEqual(t, res.Confidence, 0.7)
}

func TestValidate_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Validate(context.Background(), LocationInput{City: "Nowheresville"})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Zero(t, res.Confidence)
}

func TestValidate_PartialMatchPenalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
		  "status": "OK",
		  "results": [{
		    "formatted_address": "Somewhere, USA",
		    "partial_match": true,
		    "geometry": {"location_type": "APPROXIMATE"},
		    "address_components": []
		  }]
		}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Validate(context.Background(), LocationInput{City: "Somewhere"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Less(t, res.Confidence, 0.7)
}

func TestValidate_EmptyInput(t *testing.T) {
	c := NewClient("test-key")
	_, err := c.Validate(context.Background(), LocationInput{})
	require.Error(t, err)
}

func TestValidate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Validate(context.Background(), LocationInput{City: "Phoenix"})
	require.Error(t, err)
}
