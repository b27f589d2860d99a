package ocrsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhanceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/enhance-crowdfunding", r.URL.Path)

		var req EnhanceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Smart Speaker", req.ProjectData["title"])
		assert.Equal(t, []string{"supporters"}, req.MissingFields)
		require.Len(t, req.Images, 1)

		json.NewEncoder(w).Encode(EnhanceResponse{
			Success:             true,
			EnhancedDataEnglish: map[string]string{"supporters": "1234"},
			ConfidenceScores:    map[string]float64{"supporters": 0.91},
			ImagesProcessed:     1,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Enhance(context.Background(), EnhanceRequest{
		ProjectData:   map[string]any{"title": "Smart Speaker"},
		Images:        []Image{{URL: "https://cdn.test/a.jpg", Source: "project_data"}},
		MissingFields: []string{"supporters"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "1234", resp.EnhancedDataEnglish["supporters"])
	assert.Equal(t, 1, resp.ImagesProcessed)
}

func TestEnhanceFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EnhanceResponse{Success: false, Error: "no readable text"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Enhance(context.Background(), EnhanceRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "no readable text", resp.Error)
}

func TestEnhanceRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(EnhanceResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Enhance(context.Background(), EnhanceRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEnhanceDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Enhance(context.Background(), EnhanceRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).Health(context.Background()))
}

func TestHealthUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, NewClient(srv.URL).Health(context.Background()))
}
