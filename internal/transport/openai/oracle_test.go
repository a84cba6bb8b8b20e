package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/ideadex/internal/domain"
)

func chatServer(t *testing.T, status int, content string, check func(map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if check != nil {
			check(body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
}

func TestOracle_GenerateText(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"corrected":"cloud monitoring"}`, func(body map[string]any) {
		if body["model"] != "test-chat" {
			t.Errorf("model = %v", body["model"])
		}
		rf, _ := body["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Errorf("expected json_object response format, got %v", body["response_format"])
		}
	})
	defer server.Close()

	o := NewOracle(&OracleConfig{APIKey: "k", BaseURL: server.URL, Model: "test-chat"})
	text, err := o.GenerateText(context.Background(), "fix: clodus monitoring", domain.GenerateOptions{MaxTokens: 64, JSON: true})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != `{"corrected":"cloud monitoring"}` {
		t.Errorf("text = %q", text)
	}
}

func TestOracle_PlainText(t *testing.T) {
	server := chatServer(t, http.StatusOK, "hello", func(body map[string]any) {
		if _, ok := body["response_format"]; ok {
			t.Error("response_format must be omitted for plain text")
		}
	})
	defer server.Close()

	o := NewOracle(&OracleConfig{APIKey: "k", BaseURL: server.URL, Model: "test-chat"})
	if _, err := o.GenerateText(context.Background(), "hi", domain.GenerateOptions{}); err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
}

func TestOracle_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"api error", http.StatusServiceUnavailable, ""},
		{"empty content", http.StatusOK, "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, tt.status, tt.content, nil)
			defer server.Close()

			o := NewOracle(&OracleConfig{APIKey: "k", BaseURL: server.URL, Model: "test-chat"})
			_, err := o.GenerateText(context.Background(), "q", domain.GenerateOptions{})
			if !errors.Is(err, domain.ErrEnhancementUnavailable) {
				t.Fatalf("expected ErrEnhancementUnavailable, got %v", err)
			}
		})
	}
}
