package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const defaultGatewayTimeout = 8 * time.Second

const toolDecisionPrompt = `You route questions for an appliance parts store (refrigerator and dishwasher parts).
Pick at most ONE tool that answers the user's message, or no tool for greetings and small talk.

%s
Reply with a single JSON object and nothing else:
{"tool": "<tool name or null>", "parameters": {...}, "reasoning": "<one sentence>"}

Rules:
1. "tool" must be one of the names above, or null when no tool is needed.
2. Only fill parameters you can read from the message; never invent part or model numbers.
3. Part numbers look like PS11752778. Model numbers look like WDT780SAEM1.`

// LLMGateway wraps an optional LLM provider. Every call is bounded by a
// timeout, and every failure (transport, timeout, malformed reply) is
// reported as ErrGatewayUnavailable so callers fall back to deterministic
// behavior.
type LLMGateway struct {
	logger   *slog.Logger
	provider domain.LLMProvider
	timeout  time.Duration
}

// NewLLMGateway returns a gateway over provider. A nil provider yields an
// unconfigured gateway.
func NewLLMGateway(logger *slog.Logger, provider domain.LLMProvider, timeout time.Duration) *LLMGateway {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &LLMGateway{logger: logger, provider: provider, timeout: timeout}
}

// Configured reports whether a provider is attached. Safe on a nil gateway.
func (g *LLMGateway) Configured() bool {
	return g != nil && g.provider != nil
}

// ProviderName is "none" for an unconfigured gateway.
func (g *LLMGateway) ProviderName() string {
	if !g.Configured() {
		return "none"
	}
	return g.provider.Name()
}

// GenerateResponse sends role-tagged messages and returns the model text.
func (g *LLMGateway) GenerateResponse(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if !g.Configured() {
		return "", fmt.Errorf("%w: no provider configured", domain.ErrGatewayUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.chat(callCtx, messages)
	if err != nil {
		g.logger.Warn("gateway call failed", "provider", g.provider.Name(), "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("%w: %s: %w", domain.ErrGatewayUnavailable, g.provider.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned an empty reply", domain.ErrGatewayUnavailable, g.provider.Name())
	}
	g.logger.Debug("gateway call completed", "provider", g.provider.Name(), "duration", time.Since(start))
	return text, nil
}

type chatReply struct {
	text string
	err  error
}

// chat returns when the provider answers or ctx ends, whichever is first.
// A provider that ignores ctx is left to finish in the background.
func (g *LLMGateway) chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	done := make(chan chatReply, 1)
	go func() {
		text, err := g.provider.Chat(ctx, messages)
		done <- chatReply{text: text, err: err}
	}()
	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GenerateToolAction asks the model which tool answers userMessage. A nil
// action with a nil error means the model decided no tool is needed; an
// error always means the gateway is unusable for this turn.
func (g *LLMGateway) GenerateToolAction(ctx context.Context, userMessage string, tools []*domain.Tool) (*domain.ToolAction, error) {
	messages := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: fmt.Sprintf(toolDecisionPrompt, domain.FormatTools(tools))},
		{Role: domain.ChatRoleUser, Content: userMessage},
	}
	reply, err := g.GenerateResponse(ctx, messages)
	if err != nil {
		return nil, err
	}
	return parseToolDecision(reply, tools)
}

// toolDecision is the wire form of a gateway decision. Tool is nil for "no
// tool needed".
type toolDecision struct {
	Tool       *string                `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
}

// decisionSchema builds the JSON schema a decision must satisfy. The tool
// enum is the current tool catalog plus null.
func decisionSchema(tools []*domain.Tool) map[string]interface{} {
	names := make([]interface{}, 0, len(tools)+1)
	for _, t := range tools {
		names = append(names, t.Name)
	}
	names = append(names, nil)
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"tool"},
		"properties": map[string]interface{}{
			"tool":       map[string]interface{}{"enum": names},
			"parameters": map[string]interface{}{"type": []interface{}{"object", "null"}},
			"reasoning":  map[string]interface{}{"type": "string"},
		},
	}
}

func parseToolDecision(reply string, tools []*domain.Tool) (*domain.ToolAction, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: %w: no JSON object in reply", domain.ErrGatewayUnavailable, domain.ErrMalformedDecision)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(decisionSchema(tools)),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrGatewayUnavailable, domain.ErrMalformedDecision, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrGatewayUnavailable, domain.ErrMalformedDecision, strings.Join(msgs, "; "))
	}

	var d toolDecision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrGatewayUnavailable, domain.ErrMalformedDecision, err)
	}
	if d.Tool == nil {
		return nil, nil
	}
	if d.Parameters == nil {
		d.Parameters = map[string]interface{}{}
	}
	return &domain.ToolAction{Tool: *d.Tool, Parameters: d.Parameters, Reasoning: d.Reasoning}, nil
}

// extractJSONObject returns the first balanced {...} in s, skipping braces
// inside JSON strings. Models often wrap JSON in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inStr {
			escaped = true
			continue
		}
		if ch == '"' {
			inStr = !inStr
			continue
		}
		if inStr {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
