package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/partsdesk/internal/adapters/llm"
	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// BuildLLM creates the gateway's provider from configuration. Mode "none",
// or a remote mode without credentials, yields a nil provider and the agent
// runs fully deterministic.
func BuildLLM(ctx context.Context, logger *slog.Logger, config *domain.AppConfig) (domain.LLMProvider, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	cfg := config.LLM

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "none", "off":
		return nil, nil
	case "local", "ollama":
		baseURL := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if baseURL == "" {
			baseURL = strings.TrimSpace(cfg.LocalURL)
		}
		p := llm.NewOllamaProvider(normalizeOllamaBaseURL(baseURL), strings.TrimSpace(cfg.DefaultModel))
		applyTimeout(p, cfg.Timeout)
		return p, nil
	case "remote", "openai":
		if strings.TrimSpace(cfg.APIKey) == "" && strings.TrimSpace(cfg.RemoteURL) == "" {
			logger.Warn("llm mode is remote but no api key or url is set, gateway disabled")
			return nil, nil
		}
		p := llm.NewOpenAIProvider(
			strings.TrimSpace(cfg.RemoteURL),
			strings.TrimSpace(cfg.APIKey),
			strings.TrimSpace(cfg.DefaultModel),
		)
		applyTimeout(p, cfg.Timeout)
		return p, nil
	case "gemini":
		if strings.TrimSpace(cfg.APIKey) == "" {
			logger.Warn("llm mode is gemini but no api key is set, gateway disabled")
			return nil, nil
		}
		return llm.NewGeminiProvider(ctx, strings.TrimSpace(cfg.APIKey), strings.TrimSpace(cfg.DefaultModel))
	default:
		return nil, fmt.Errorf("unsupported llm provider mode: %s", cfg.Mode)
	}
}

func applyTimeout(p interface{ SetTimeout(time.Duration) }, d time.Duration) {
	if d > 0 {
		p.SetTimeout(d)
	}
}

func normalizeOllamaBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return strings.TrimSuffix(trimmed, "/v1")
}
