package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// Environment variables read by Load.
const (
	EnvConfigFile     = "PARTSDESK_CONFIG"
	EnvSecretKey      = "PARTSDESK_SECRET_KEY"
	EnvAddr           = "PARTSDESK_ADDR"
	EnvAllowedOrigins = "PARTSDESK_ALLOWED_ORIGINS"
	EnvLLMMode        = "PARTSDESK_LLM_MODE"
	EnvLLMModel       = "PARTSDESK_LLM_MODEL"
	EnvLLMURL         = "PARTSDESK_LLM_URL"
	EnvLLMTimeout     = "PARTSDESK_LLM_TIMEOUT"
	EnvSynthesize     = "PARTSDESK_SYNTHESIZE"
	EnvGatewayTimeout = "PARTSDESK_GATEWAY_TIMEOUT"
	EnvSearchLimit    = "PARTSDESK_SEARCH_LIMIT"
	EnvDBPath         = "PARTSDESK_DB_PATH"
	EnvRedisAddr      = "PARTSDESK_REDIS_ADDR"
	EnvSessionTTL     = "PARTSDESK_SESSION_TTL"
	EnvCatalog        = "PARTSDESK_CATALOG"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvGoogleKey      = "GOOGLE_API_KEY"
	EnvOllamaHost     = "OLLAMA_HOST"
)

var llmModes = map[string]bool{"none": true, "local": true, "remote": true, "gemini": true}

// Load builds the configuration: defaults, then .env, then the YAML file
// (path, or $PARTSDESK_CONFIG), then environment overrides. The result is
// validated. An explicit path that does not exist is an error.
func Load(path string) (*domain.AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := domain.DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if IsEncrypted(cfg.LLM.APIKey) {
		sk, err := NewSecretKey("")
		if err != nil {
			return nil, err
		}
		key, err := sk.Decrypt(cfg.LLM.APIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt llm api_key: %w", err)
		}
		cfg.LLM.APIKey = key
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *domain.AppConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyEnv(cfg *domain.AppConfig) error {
	setString(&cfg.Server.Addr, EnvAddr)
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	setString(&cfg.LLM.Mode, EnvLLMMode)
	setString(&cfg.LLM.DefaultModel, EnvLLMModel)
	setString(&cfg.LLM.RemoteURL, EnvLLMURL)
	setString(&cfg.LLM.LocalURL, EnvOllamaHost)
	cfg.LLM.Mode = strings.ToLower(strings.TrimSpace(cfg.LLM.Mode))
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Mode {
		case "remote":
			cfg.LLM.APIKey = os.Getenv(EnvOpenAIKey)
		case "gemini":
			cfg.LLM.APIKey = os.Getenv(EnvGoogleKey)
		}
	}

	setString(&cfg.Storage.DBPath, EnvDBPath)
	setString(&cfg.Session.RedisAddr, EnvRedisAddr)
	setString(&cfg.Catalog.Path, EnvCatalog)

	if err := setDuration(&cfg.LLM.Timeout, EnvLLMTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Agent.GatewayTimeout, EnvGatewayTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Session.TTL, EnvSessionTTL); err != nil {
		return err
	}
	if v := os.Getenv(EnvSynthesize); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSynthesize, err)
		}
		cfg.Agent.Synthesize = b
	}
	if v := os.Getenv(EnvSearchLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSearchLimit, err)
		}
		cfg.Agent.SearchLimit = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks ranges and enums.
func Validate(cfg *domain.AppConfig) error {
	var errs []error
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if cfg.LLM.Mode == "" {
		cfg.LLM.Mode = "none"
	}
	if !llmModes[cfg.LLM.Mode] {
		errs = append(errs, fmt.Errorf("llm.mode %q is not one of none, local, remote, gemini", cfg.LLM.Mode))
	}
	if cfg.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if cfg.Agent.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("agent.gateway_timeout must be positive"))
	}
	if cfg.Agent.SearchLimit < 1 || cfg.Agent.SearchLimit > domain.MaxSearchLimit {
		errs = append(errs, fmt.Errorf("agent.search_limit must be between 1 and %d", domain.MaxSearchLimit))
	}
	if cfg.Storage.CacheEntries < 0 {
		errs = append(errs, errors.New("storage.cache_entries cannot be negative"))
	}
	if cfg.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl cannot be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Masked returns a copy safe to expose: secrets are masked.
func Masked(cfg *domain.AppConfig) *domain.AppConfig {
	cp := *cfg
	cp.Server.AllowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	cp.LLM.APIKey = MaskSecret(cfg.LLM.APIKey)
	return &cp
}
