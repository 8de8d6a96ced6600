package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewOpenAIProviderWithBaseURL("test-api-key", ts.URL)
}

func TestOpenAIGenerate_Success(t *testing.T) {
	provider := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var reqBody openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o-mini", reqBody.Model)
		assert.Equal(t, 300, reqBody.MaxTokens)
		require.Len(t, reqBody.Messages, 2)
		assert.Equal(t, "system", reqBody.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-test123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: "Attendance is taken by 9am."},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 8},
		})
	})

	resp, err := provider.Generate(context.Background(), &Request{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: "system", Content: "You are AIDA."},
			{Role: "user", Content: "When is attendance taken?"},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	require.NoError(t, err)
	assert.Equal(t, "Attendance is taken by 9am.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 8, resp.OutputTokens)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
}

func TestOpenAIGenerate_NoChoices(t *testing.T) {
	provider := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-empty"})
	})

	_, err := provider.Generate(context.Background(), &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIGenerate_APIError(t *testing.T) {
	provider := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"Internal server error","type":"server_error"}}`))
	})

	resp, err := provider.Generate(context.Background(), &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "openai api call")
}

func TestOpenAICostEstimation(t *testing.T) {
	provider := NewOpenAIProvider("dummy")
	assert.Equal(t, "openai", provider.Name())
	assert.Greater(t, provider.EstimateCost("gpt-4o", 1000, 500), provider.EstimateCost("gpt-4o-mini", 1000, 500))
	assert.Equal(t, provider.EstimateCost("gpt-4o-mini", 1000, 500), provider.EstimateCost("some-future-model", 1000, 500))
	assert.Equal(t, 0.0, provider.EstimateCost("gpt-4o", 0, 0))
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8080", "http://localhost:8080/v1"},
		{"http://localhost:8080/", "http://localhost:8080/v1"},
		{"https://proxy.example/v1", "https://proxy.example/v1"},
		{"https://proxy.example/v1/", "https://proxy.example/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOpenAIBaseURL(tt.in))
		})
	}
}

func TestOpenAIGenerate_ZeroTemperatureIsOmitted(t *testing.T) {
	var bodies []map[string]interface{}
	provider := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		bodies = append(bodies, raw)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "ok"}}},
		})
	})

	for _, temp := range []float64{0, 0.7} {
		_, err := provider.Generate(context.Background(), &Request{
			Model:       "gpt-4o-mini",
			Messages:    []Message{{Role: "user", Content: "hi"}},
			Temperature: temp,
			MaxTokens:   10,
		})
		require.NoError(t, err)
	}

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "temperature")
	assert.InDelta(t, 0.7, bodies[1]["temperature"], 1e-6)
}
