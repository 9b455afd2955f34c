package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/manthysbr/partsdesk/internal/adapters/catalog"
	"github.com/manthysbr/partsdesk/internal/adapters/duckdb"
	"github.com/manthysbr/partsdesk/internal/adapters/providers"
	"github.com/manthysbr/partsdesk/internal/adapters/redis"
	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/services"
	"github.com/manthysbr/partsdesk/pkg/kernel"
)

// app is the wired object graph shared by every command.
type app struct {
	logger   *slog.Logger
	cfg      *domain.AppConfig
	catalog  *catalog.Memory
	engine   *services.MatchingEngine
	registry *domain.ToolRegistry
	metrics  *services.Metrics
	chat     *services.ChatService
	checks   map[string]kernel.ReadinessCheck
	closers  []func() error
}

type appOptions struct {
	// transcripts opens DuckDB even without a configured path (in-memory).
	transcripts bool
}

func newApp(ctx context.Context, logger *slog.Logger, cfg *domain.AppConfig, opts appOptions) (a *app, err error) {
	a = &app{
		logger:  logger,
		cfg:     cfg,
		metrics: services.NewMetrics(),
		checks:  make(map[string]kernel.ReadinessCheck),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.catalog, err = catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	st := a.catalog.Stats()
	logger.Info("catalog loaded", "products", st.Products, "symptoms", st.Symptoms, "path", cfg.Catalog.Path)
	for _, ref := range st.DanglingRefs {
		logger.Warn("symptom recommends an unknown part", "ref", ref)
	}

	a.engine = services.NewMatchingEngine(a.catalog)
	a.registry = domain.NewToolRegistry()
	if err := services.RegisterPartsTools(logger, a.registry, a.engine, cfg.Agent.SearchLimit); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	agentOpts := []services.AgentOption{
		services.WithMetrics(a.metrics),
		services.WithSynthesis(cfg.Agent.Synthesize),
	}
	provider, err := providers.BuildLLM(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build llm provider: %w", err)
	}
	if provider != nil {
		if c, ok := provider.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
		agentOpts = append(agentOpts, services.WithGateway(services.NewLLMGateway(logger, provider, cfg.Agent.GatewayTimeout)))
		logger.Info("llm gateway enabled", "provider", provider.Name(), "synthesize", cfg.Agent.Synthesize)
	} else {
		logger.Info("llm gateway disabled, running deterministic")
	}
	agent := services.NewPartsAgent(logger, a.registry, agentOpts...)

	sessions, err := a.sessionManager(ctx)
	if err != nil {
		return nil, err
	}

	var conversations *services.ConversationStore
	if cfg.Storage.DBPath != "" || opts.transcripts {
		repo, err := duckdb.NewRepository(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript database: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		a.checks["duckdb"] = repo.Ping
		conversations = services.NewConversationStore(repo, cfg.Storage.CacheEntries)
	}

	a.chat = services.NewChatService(logger, agent, sessions, conversations, services.NewEventBus(logger))
	return a, nil
}

// sessionManager picks Redis when configured, else the in-process store.
func (a *app) sessionManager(ctx context.Context) (*services.SessionManager, error) {
	opts := []services.SessionOption{services.WithSessionMetrics(a.metrics)}
	if a.cfg.Session.RedisAddr == "" {
		return services.NewSessionManager(a.logger, services.NewMemorySessionStore(), opts...), nil
	}

	client, err := redis.NewClient(ctx, a.cfg.Session.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	store := redis.NewSessionStore(client, redis.WithTTL(a.cfg.Session.TTL))
	a.checks["redis"] = store.Ping

	opts = append(opts, services.WithSessionLocker(redis.NewLocker(client, ""), 0))
	a.logger.Info("session context stored in redis", "addr", a.cfg.Session.RedisAddr)
	return services.NewSessionManager(a.logger, store, opts...), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
