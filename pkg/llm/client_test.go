package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOfflineEchoes(t *testing.T) {
	c := New(Config{})
	require.True(t, c.Offline())

	out, err := c.Generate(context.Background(), "Hola [NAM-abcd1234]")
	require.NoError(t, err)
	assert.Equal(t, "Received: Hola [NAM-abcd1234]", out)
}

func TestGenerateSendsAnonymizedPrompt(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Hi [NAM-abcd1234] "}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "secret", BaseURL: srv.URL + "/v1/", Model: "m", Timeout: time.Second})
	out, err := c.Generate(context.Background(), "I am [NAM-abcd1234]")
	require.NoError(t, err)

	assert.Equal(t, "Hi [NAM-abcd1234]", out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "I am [NAM-abcd1234]", got.Messages[1].Content)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	out, err := c.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateUsesClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"cc-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cc-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{
		BaseURL:           srv.URL,
		OAuthTokenURL:     srv.URL + "/token",
		OAuthClientID:     "id",
		OAuthClientSecret: "secret",
		Timeout:           time.Second,
	})
	out, err := c.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestGenerateClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
