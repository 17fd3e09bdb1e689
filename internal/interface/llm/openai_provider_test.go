package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "openai/gpt-4o-mini", body["model"])
		msgs := body["messages"].([]interface{})
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "openai/gpt-4o-mini",
			"choices": []interface{}{map[string]interface{}{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": "[{\"name\":\"Lisbon\"}]"},
			}},
			"usage": map[string]interface{}{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderOpenRouter, "key", srv.URL, "openai/gpt-4o-mini", 5*time.Second, logger.NewNopLogger())
	require.True(t, p.IsAvailable())

	resp, err := p.Execute(context.Background(), usecase.GenerationRequest{
		Operation:    "synthesize_destinations",
		SystemPrompt: "You are a travel researcher.",
		Prompt:       "Portugal",
		MaxTokens:    500,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, resp.Provider)
	assert.Equal(t, "openai/gpt-4o-mini", resp.Model)
	assert.Equal(t, 120, resp.TokensIn)
	assert.Equal(t, 30, resp.TokensOut)
	assert.Contains(t, resp.Text, "Lisbon")
}

func TestOpenAIProvider_DoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderOpenAI, "key", srv.URL, "gpt-4o-mini", 5*time.Second, logger.NewNopLogger())
	_, err := p.Execute(context.Background(), usecase.GenerationRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestProviders_UnavailableWithoutKey(t *testing.T) {
	log := logger.NewNopLogger()
	assert.False(t, NewOpenAIProvider(ProviderOpenAI, "", "", "gpt-4o-mini", time.Second, log).IsAvailable())
	assert.False(t, NewGeminiProvider("", "gemini-1.5-flash", log).IsAvailable())
	assert.Equal(t, ProviderGemini, NewGeminiProvider("", "", log).Name())
}
