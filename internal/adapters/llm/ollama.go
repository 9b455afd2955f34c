package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const defaultOllamaModel = "qwen2.5:latest"

// OllamaProvider talks to a local Ollama instance through /api/chat.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ domain.LLMProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// SetTimeout bounds every HTTP request to Ollama.
func (p *OllamaProvider) SetTimeout(d time.Duration) { p.client.Timeout = d }

type ollamaChatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  map[string]any       `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	var out ollamaChatResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/api/chat", nil, ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": 0},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("%s: %s", p.Name(), out.Error)
	}
	return out.Message.Content, nil
}
