package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIProvider routes through any OpenAI-compatible /chat/completions
// endpoint (OpenAI, Azure OpenAI, Together AI, Ollama's /v1).
type OpenAIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

var _ domain.LLMProvider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) SetTimeout(d time.Duration) { p.client.Timeout = d }

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// Chat returns the content of the first completion choice. Routing needs
// repeatable answers, so temperature is pinned to 0.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	var out completionResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/chat/completions", header,
		completionRequest{Model: p.model, Messages: messages}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: reply has no choices", p.Name())
	}
	return out.Choices[0].Message.Content, nil
}
