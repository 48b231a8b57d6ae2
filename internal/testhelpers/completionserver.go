package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// CompletionMessage is one role-tagged message of a recorded completion request.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the subset of an OpenAI chat completion request the tests care about.
type CompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []CompletionMessage `json:"messages"`
	Temperature *float64            `json:"temperature,omitempty"`
}

// Prompt returns the content of the last user message.
func (r CompletionRequest) Prompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ReplyFunc decides the assistant content and HTTP status for a request. A status other than 200 makes the server
// answer with an OpenAI style error body instead.
type ReplyFunc func(req CompletionRequest) (content string, status int)

// CompletionServer is a fake OpenAI compatible chat completion backend.
type CompletionServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []CompletionRequest
}

// NewCompletionServer starts a fake completion backend answering POST /chat/completions with reply.
// The server is closed when the test finishes.
func NewCompletionServer(t *testing.T, reply ReplyFunc) *CompletionServer {
	t.Helper()
	cs := &CompletionServer{Server: nil, mu: sync.Mutex{}, requests: nil}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cs.mu.Lock()
		cs.requests = append(cs.requests, req)
		cs.mu.Unlock()

		content, status := reply(req)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": content,
					"type":    "fake_error",
					"code":    fmt.Sprintf("status_%d", status),
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"logprobs":      nil,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
					"refusal": nil,
				},
			}},
			"usage": map[string]any{
				"prompt_tokens":     len(req.Prompt()) / 4, //nolint:mnd // rough token estimate.
				"completion_tokens": len(content) / 4,      //nolint:mnd // rough token estimate.
				"total_tokens":      (len(req.Prompt()) + len(content)) / 4, //nolint:mnd // rough token estimate.
			},
		})
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

// BaseURL returns the URL to configure the completion client with.
func (cs *CompletionServer) BaseURL() string {
	return cs.URL + "/"
}

// Requests returns a copy of the requests received so far.
func (cs *CompletionServer) Requests() []CompletionRequest {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]CompletionRequest, len(cs.requests))
	copy(out, cs.requests)
	return out
}
