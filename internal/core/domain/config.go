package domain

import "time"

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// LLMProviderConfig configures the LLM gateway provider
type LLMProviderConfig struct {
	Mode         string        `json:"mode" yaml:"mode"`                   // "none", "local", "remote" or "gemini"
	LocalURL     string        `json:"local_url" yaml:"local_url"`         // "http://localhost:11434"
	RemoteURL    string        `json:"remote_url" yaml:"remote_url"`       // "https://api.openai.com/v1"
	APIKey       string        `json:"api_key" yaml:"api_key"`             // never serialized unmasked
	DefaultModel string        `json:"default_model" yaml:"default_model"` // "qwen2.5:latest" or "gpt-4o-mini"
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
}

// AgentConfig tunes the orchestrator.
type AgentConfig struct {
	Synthesize     bool          `json:"synthesize" yaml:"synthesize"` // let the gateway phrase successful answers
	GatewayTimeout time.Duration `json:"gateway_timeout" yaml:"gateway_timeout"`
	SearchLimit    int           `json:"search_limit" yaml:"search_limit"`
}

// StorageConfig configures transcript persistence.
type StorageConfig struct {
	DBPath       string `json:"db_path" yaml:"db_path"` // empty = in-memory DuckDB
	CacheEntries int    `json:"cache_entries" yaml:"cache_entries"`
}

// SessionConfig configures the session context store.
type SessionConfig struct {
	RedisAddr string        `json:"redis_addr" yaml:"redis_addr"` // empty = in-process store
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
}

// CatalogConfig points at an optional external catalog file.
type CatalogConfig struct {
	Path string `json:"path" yaml:"path"` // empty = embedded catalog
}

// AppConfig is the main application configuration
type AppConfig struct {
	Server  ServerConfig      `json:"server" yaml:"server"`
	LLM     LLMProviderConfig `json:"llm" yaml:"llm"`
	Agent   AgentConfig       `json:"agent" yaml:"agent"`
	Storage StorageConfig     `json:"storage" yaml:"storage"`
	Session SessionConfig     `json:"session" yaml:"session"`
	Catalog CatalogConfig     `json:"catalog" yaml:"catalog"`
}

// DefaultConfig returns safe defaults: no gateway, in-memory stores.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LLM: LLMProviderConfig{
			Mode:         "none",
			LocalURL:     "http://localhost:11434",
			DefaultModel: "qwen2.5:latest",
			Timeout:      30 * time.Second,
		},
		Agent: AgentConfig{
			Synthesize:     false,
			GatewayTimeout: 8 * time.Second,
			SearchLimit:    DefaultSearchLimit,
		},
		Storage: StorageConfig{
			CacheEntries: 64,
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
	}
}
