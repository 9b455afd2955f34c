package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements domain.LLMProvider on the Google Gemini API.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

var _ domain.LLMProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiProvider{client: c, modelName: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Chat maps system messages to the system instruction and replays the
// remaining turns as chat history before sending the last one.
func (p *GeminiProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	system, history, last := splitGeminiMessages(messages)
	if last == "" {
		return "", fmt.Errorf("gemini: no user message to send")
	}

	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(0)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return firstText(resp), nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func splitGeminiMessages(messages []domain.ChatMessage) (string, []*genai.Content, string) {
	var system []string
	var turns []domain.ChatMessage
	for _, m := range messages {
		if m.Role == domain.ChatRoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return strings.Join(system, "\n\n"), nil, ""
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == domain.ChatRoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
