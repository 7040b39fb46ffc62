package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-aura-backend/config"
)

func candidateResponse(text string) generateResponse {
	return generateResponse{
		Candidates: []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: text}}}},
		},
	}
}

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		Enabled:                  true,
		BaseURL:                  baseURL,
		Model:                    "gemini-2.0-flash",
		APIKeyEnv:                "TEST_GEMINI_KEY",
		TimeoutSeconds:           5,
		CacheTTLSeconds:          60,
		MinRequestIntervalMillis: 1,
	}
}

func TestPredictDelayRemote(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		json.NewEncoder(w).Encode(candidateResponse(
			`{"predicted_delay_minutes": 12.4, "reminder_message": "See you in 12!"}`))
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))

	pred := c.PredictDelay(context.Background(), []int{10, 15}, 45)
	assert.Equal(t, 12, pred.DelayMinutes)
	assert.Equal(t, "See you in 12!", pred.Message)

	// The same history and duration is served from cache.
	c.PredictDelay(context.Background(), []int{10, 15}, 45)
	assert.Equal(t, 1, requests)

	// A different duration is a different cache key.
	c.PredictDelay(context.Background(), []int{10, 15}, 60)
	assert.Equal(t, 2, requests)
}

func TestPredictDelayClampsRemoteValue(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidateResponse(
			`{"predicted_delay_minutes": 240, "reminder_message": "Going to be a while."}`))
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))
	pred := c.PredictDelay(context.Background(), nil, 30)
	assert.Equal(t, 30, pred.DelayMinutes)
}

func TestPredictDelayFallsBackOnServerError(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))
	pred := c.PredictDelay(context.Background(), []int{10, 10}, 45)
	assert.Equal(t, 8, pred.DelayMinutes) // local heuristic
	assert.NotEmpty(t, pred.Message)
}

func TestPredictDelayFallsBackOnMalformedResponse(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidateResponse("sorry, no JSON today"))
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))
	pred := c.PredictDelay(context.Background(), []int{10, 10}, 45)
	assert.Equal(t, 8, pred.DelayMinutes)
}

func TestPredictDelayDisabled(t *testing.T) {
	cfg := testAIConfig("http://invalid.localhost")
	cfg.Enabled = false

	c := NewClient(cfg)
	pred := c.PredictDelay(context.Background(), nil, 45)
	assert.Equal(t, 4, pred.DelayMinutes)
}

func TestPredictDelayMissingKeyFallsBack(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")

	c := NewClient(testAIConfig("http://invalid.localhost"))
	pred := c.PredictDelay(context.Background(), nil, 45)
	assert.Equal(t, 4, pred.DelayMinutes)
}

func TestChatReplyRemote(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// The machine snapshot rides in the system instruction.
		require.NotNil(t, req.SystemInstruction)
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, "Washer 1: Free")

		json.NewEncoder(w).Encode(candidateResponse("Washer 1 is free, go for it!"))
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))
	reply := c.ChatReply(context.Background(), "Is a washer free?", chatMachines())
	assert.Equal(t, "Washer 1 is free, go for it!", reply)
}

func TestChatReplyFallsBackOnFailure(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(testAIConfig(server.URL))
	reply := c.ChatReply(context.Background(), "Is a washer free?", chatMachines())
	assert.Contains(t, reply, "Washer 1")
}
