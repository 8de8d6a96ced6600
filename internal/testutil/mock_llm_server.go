package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ChatServer is an OpenAI-compatible chat completions endpoint for tests. It
// answers every request with Content and keeps the decoded requests.
type ChatServer struct {
	*httptest.Server
	Content string

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

// NewOpenAICompatibleServer starts a ChatServer answering with content.
// Caller must call Close or register t.Cleanup(server.Close).
func NewOpenAICompatibleServer(content string) *ChatServer {
	if content == "" {
		content = "mock response"
	}
	cs := &ChatServer{Content: content}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.serve))
	return cs
}

func (cs *ChatServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cs.mu.Lock()
	cs.requests = append(cs.requests, req)
	cs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: cs.Content},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	})
}

// Requests returns the chat requests received so far.
func (cs *ChatServer) Requests() []openai.ChatCompletionRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), cs.requests...)
}
