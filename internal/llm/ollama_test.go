package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)

			var reqBody ollamaRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
			assert.Equal(t, "llama3.1:8b", reqBody.Model)
			assert.False(t, reqBody.Stream)
			assert.Equal(t, 0.7, reqBody.Options.Temperature)
			assert.Equal(t, 300, reqBody.Options.NumPredict)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(ollamaResponse{
				Message:         ollamaMessage{Role: "assistant", Content: "Hello from Ollama!"},
				PromptEvalCount: 12,
				EvalCount:       4,
			})
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL)
		resp, err := provider.Generate(ctx, &Request{
			Model:       "llama3.1:8b",
			Messages:    []Message{{Role: "user", Content: "Hi"}},
			Temperature: 0.7,
			MaxTokens:   300,
		})

		require.NoError(t, err)
		assert.Equal(t, "Hello from Ollama!", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, 12, resp.InputTokens)
		assert.Equal(t, 4, resp.OutputTokens)
		assert.Equal(t, "llama3.1:8b", resp.Model)
	})

	t.Run("non-2xx status returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model 'nonexistent' not found"}`))
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL)
		resp, err := provider.Generate(ctx, &Request{
			Model:    "nonexistent",
			Messages: []Message{{Role: "user", Content: "Hi"}},
		})

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama api error 404")
		assert.Contains(t, err.Error(), "model 'nonexistent' not found")
	})

	t.Run("malformed body returns error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := NewOllamaProvider(server.URL).Generate(ctx, &Request{
			Model:    "llama3.1:8b",
			Messages: []Message{{Role: "user", Content: "Hi"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding ollama response")
	})
}

func TestNewOllamaProvider(t *testing.T) {
	p := NewOllamaProvider("")
	assert.Equal(t, "http://localhost:11434", p.baseURL)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, 0.0, p.EstimateCost("llama3.1:8b", 1000, 1000))

	p = NewOllamaProvider("http://gpu-box:11434/")
	assert.Equal(t, "http://gpu-box:11434", p.baseURL)
}
