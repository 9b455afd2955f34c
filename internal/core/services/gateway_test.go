package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// blockUntilDone makes a mocked Chat call hang until its context expires.
func blockUntilDone(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTools(t *testing.T) []*domain.Tool {
	return newTestRegistry(t).ListTools()
}

func TestGateway_Unconfigured(t *testing.T) {
	g := NewLLMGateway(discardLogger(), nil, time.Second)
	assert.False(t, g.Configured())
	assert.Equal(t, "none", g.ProviderName())

	_, err := g.GenerateResponse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	var nilGateway *LLMGateway
	assert.False(t, nilGateway.Configured())
}

func TestGateway_ProviderErrorIsUnavailable(t *testing.T) {
	p := new(mockProvider)
	p.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("429 rate limited"))

	g := NewLLMGateway(discardLogger(), p, time.Second)
	_, err := g.GenerateResponse(context.Background(), []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "429")
	p.AssertExpectations(t)
}

func TestGateway_EmptyReplyIsUnavailable(t *testing.T) {
	p := new(mockProvider)
	p.On("Chat", mock.Anything, mock.Anything).Return("   ", nil)

	g := NewLLMGateway(discardLogger(), p, time.Second)
	_, err := g.GenerateResponse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestGateway_Timeout(t *testing.T) {
	p := new(mockProvider)
	p.On("Chat", mock.Anything, mock.Anything).Run(blockUntilDone).Return("", context.DeadlineExceeded)

	g := NewLLMGateway(discardLogger(), p, 20*time.Millisecond)
	start := time.Now()
	_, err := g.GenerateToolAction(context.Background(), "hello", testTools(t))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// stuckProvider ignores its context and answers only once released.
type stuckProvider struct {
	release chan struct{}
}

func (p *stuckProvider) Name() string { return "stuck" }

func (p *stuckProvider) Chat(context.Context, []domain.ChatMessage) (string, error) {
	<-p.release
	return `{"tool": null}`, nil
}

func TestGateway_TimeoutWithProviderIgnoringContext(t *testing.T) {
	p := &stuckProvider{release: make(chan struct{})}
	t.Cleanup(func() { close(p.release) })

	g := NewLLMGateway(discardLogger(), p, 50*time.Millisecond)
	start := time.Now()
	_, err := g.GenerateToolAction(context.Background(), "hello", testTools(t))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGateway_GenerateToolAction(t *testing.T) {
	p := new(mockProvider)
	reply := "Sure! Here is my decision:\n```json\n" +
		`{"tool": "installation_guide", "parameters": {"partNumber": "PS11752778"}, "reasoning": "User asks how to install {a part}."}` +
		"\n```"
	p.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.ChatMessage) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == domain.ChatRoleSystem &&
			msgs[1].Content == "How can I install PS11752778?"
	})).Return(reply, nil)

	g := NewLLMGateway(discardLogger(), p, time.Second)
	action, err := g.GenerateToolAction(context.Background(), "How can I install PS11752778?", testTools(t))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, ToolInstallationGuide, action.Tool)
	assert.Equal(t, "PS11752778", action.Parameters["partNumber"])
	assert.Equal(t, "User asks how to install {a part}.", action.Reasoning)
	p.AssertExpectations(t)
}

func TestGateway_PromptListsTools(t *testing.T) {
	p := new(mockProvider)
	p.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.ChatMessage) bool {
		if len(msgs) != 2 {
			return false
		}
		for _, name := range []string{ToolSearchProducts, ToolCheckCompatibility, ToolInstallationGuide, ToolTroubleshootingGuide} {
			if !strings.Contains(msgs[0].Content, name) {
				return false
			}
		}
		return true
	})).Return(`{"tool": null, "reasoning": "greeting"}`, nil)

	g := NewLLMGateway(discardLogger(), p, time.Second)
	action, err := g.GenerateToolAction(context.Background(), "hello", testTools(t))
	require.NoError(t, err)
	assert.Nil(t, action, "null tool means no tool needed")
	p.AssertExpectations(t)
}

func TestParseToolDecision_Rejects(t *testing.T) {
	tools := testTools(t)

	cases := map[string]string{
		"no json":          "I think you should install it.",
		"unknown tool":     `{"tool": "order_pizza", "parameters": {}}`,
		"missing tool":     `{"parameters": {"partNumber": "PS11752778"}}`,
		"parameters array": `{"tool": "search_products", "parameters": ["water"]}`,
		"tool not string":  `{"tool": 7}`,
		"unbalanced":       `{"tool": "search_products", "parameters": {"query": "bin"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			action, err := parseToolDecision(reply, tools)
			assert.Nil(t, action)
			assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
			assert.ErrorIs(t, err, domain.ErrMalformedDecision)
		})
	}
}

func TestParseToolDecision_NullParameters(t *testing.T) {
	action, err := parseToolDecision(`{"tool": "search_products", "parameters": null}`, testTools(t))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.NotNil(t, action.Parameters)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`prefix {"a": {"b": 1}} suffix {"c": 2}`))
	assert.Equal(t, `{"s": "brace } inside \" quote"}`, extractJSONObject(`x {"s": "brace } inside \" quote"} y`))
	assert.Equal(t, "", extractJSONObject("no object here"))
	assert.Equal(t, "", extractJSONObject(`{"open": true`))
}
