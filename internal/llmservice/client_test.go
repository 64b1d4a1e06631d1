package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/config"
)

func sseServer(t *testing.T, tokens []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range tokens {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamChatDeliversTokens(t *testing.T) {
	server := sseServer(t, []string{"The ", "deductible ", "is $500."})
	defer server.Close()

	cfg := &config.LLMConfig{BaseURL: server.URL, Model: "test-model"}
	var got string
	err := StreamChat(context.Background(), cfg, []ChatMessage{{Role: "user", Content: "deductible?"}}, func(token string) error {
		got += token
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "The deductible is $500.", got)
}

func TestStreamChatOnTokenErrorAborts(t *testing.T) {
	server := sseServer(t, []string{"a", "b", "c"})
	defer server.Close()

	cfg := &config.LLMConfig{BaseURL: server.URL, Model: "test-model"}
	stop := errors.New("stop")
	count := 0
	err := StreamChat(context.Background(), cfg, nil, func(string) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}

func TestStreamChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := &config.LLMConfig{BaseURL: server.URL, Model: "test-model"}
	err := StreamChat(context.Background(), cfg, nil, func(string) error { return nil })
	assert.ErrorContains(t, err, "chat request failed")
}
