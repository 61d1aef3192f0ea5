package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.URL.Path, "example.com")

		json.NewEncoder(w).Encode(ReadResponse{
			Code: 200,
			Data: ReadData{
				Title:   "Example Law Firm",
				URL:     "https://example.com/",
				Content: "We practice personal injury law.",
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "Example Law Firm", resp.Data.Title)
	assert.Equal(t, "We practice personal injury law.", resp.Data.Content)
}

func TestRead_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.Read(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRead_InvalidURL(t *testing.T) {
	c := NewClient("")
	_, err := c.Read(context.Background(), "://nope")
	require.Error(t, err)
}
