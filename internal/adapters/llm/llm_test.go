package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

var testMessages = []domain.ChatMessage{
	{Role: domain.ChatRoleSystem, Content: "route"},
	{Role: domain.ChatRoleUser, Content: "install PS11752778"},
}

func TestOllamaProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, testMessages, req.Messages)

		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "{\"tool\": null}"}, "done": true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	assert.Equal(t, "ollama", p.Name())
	out, err := p.Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, `{"tool": null}`, out)
}

func TestOllamaProvider_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "").Chat(context.Background(), testMessages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenAIProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string               `json:"model"`
			Messages []domain.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, testMessages, req.Messages)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1", "sk-test", "gpt-test")
	assert.Equal(t, "openai", p.Name())
	out, err := p.Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"rate limited": {http.StatusTooManyRequests, `{"error": "slow down"}`},
		"no choices":   {http.StatusOK, `{"choices": []}`},
		"bad json":     {http.StatusOK, `not json`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIProvider(srv.URL, "", "").Chat(context.Background(), testMessages)
			assert.Error(t, err)
		})
	}
}

func TestSplitGeminiMessages(t *testing.T) {
	system, history, last := splitGeminiMessages([]domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: "be brief"},
		{Role: domain.ChatRoleUser, Content: "hi"},
		{Role: domain.ChatRoleAssistant, Content: "hello"},
		{Role: domain.ChatRoleUser, Content: "install PS11752778"},
	})
	assert.Equal(t, "be brief", system)
	assert.Equal(t, "install PS11752778", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("hello"), history[1].Parts[0])

	_, _, last = splitGeminiMessages([]domain.ChatMessage{{Role: domain.ChatRoleSystem, Content: "x"}})
	assert.Empty(t, last)
}

func TestGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.Error(t, err)
}

func TestOllamaProvider_ErrorInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "model is loading"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "").Chat(context.Background(), testMessages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is loading")
}

func TestOpenAIProvider_PinsTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Contains(t, raw, "temperature")
		assert.EqualValues(t, 0, raw["temperature"])
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIProvider(srv.URL, "", "").Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
