package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/ragcore/internal/ragerr"
)

func TestClient_Generate_ReturnsResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3", req.Model)

		_ = json.NewEncoder(w).Encode(generateResponse{Response: "hello back"})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Model: "llama3"})
	defer func() { _ = c.Close() }()

	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)
}

func TestClient_Generate_5xxIsRetryable(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Model: "llama3", MaxTokens: 1})
	defer func() { _ = c.Close() }()

	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, ragerr.Retryable(err))
	assert.Equal(t, int32(3), attempts.Load(), "5xx should retry to the configured attempt count")
}

func TestClient_Generate_4xxIsNotRetryable(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("model not found"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Model: "llama3", MaxTokens: 1})
	defer func() { _ = c.Close() }()

	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, ragerr.Retryable(err), "4xx must fail fast, not retry")
	assert.Equal(t, int32(1), attempts.Load(), "4xx should not be retried")
}

func TestClient_Available_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	defer func() { _ = c.Close() }()

	assert.True(t, c.Available(context.Background()))
}

func TestClient_Available_FalseWhenUnreachable(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1"})
	defer func() { _ = c.Close() }()

	assert.False(t, c.Available(context.Background()))
}
