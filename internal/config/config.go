package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Engine     EngineConfig
	Generation GenerationConfig
	Retrieval  RetrievalConfig
	Docs       DocsConfig
	Chat       ChatConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port       int
	AdminToken string
	RateLimit  float64 // chat turns per second across the server; 0 disables
	RateBurst  int
}

type EngineConfig struct {
	Backend       string // ollama, openai or gemini
	BaseURL       string // empty selects the backend's default endpoint
	APIKey        string
	EmbedModel    string
	GenerateModel string
}

type GenerationConfig struct {
	MaxNewTokens      int
	Temperature       float64
	RepetitionPenalty float64
	TopK              int
	TopP              float64
}

type RetrievalConfig struct {
	TopK int
	Warm bool
}

type DocsConfig struct {
	Source string
	Watch  bool
}

type ChatConfig struct {
	CanonicalName string
	FAQFile       string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:      5173,
			RateLimit: 2,
			RateBurst: 4,
		},
		Engine: EngineConfig{
			Backend:       "ollama",
			EmbedModel:    "all-minilm",
			GenerateModel: "gpt2",
		},
		Generation: GenerationConfig{
			MaxNewTokens:      80,
			Temperature:       0.7,
			RepetitionPenalty: 1.2,
			TopK:              50,
			TopP:              0.95,
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
			Warm: true,
		},
		Docs: DocsConfig{
			Source: "docs/chat/index.json",
		},
		Chat: ChatConfig{
			CanonicalName: "Anup Davin Mathivanan.",
		},
		Storage: StorageConfig{
			DataDir: ":memory:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the TOML file at
// $XDG_CONFIG_HOME/folio/config.toml and applies FOLIO_* environment
// variable overrides on top of it.
//
// Secrets (engine.api_key, server.admin_token) are only read from the
// environment.
func Load() (Config, error) {
	return loadWith(newFileBackend(FilePath()))
}

// loadFromPath loads configuration from an explicit TOML file.
func loadFromPath(path string) (Config, error) {
	return loadWith(newFileBackend(path))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Engine.Backend) {
	case "ollama":
	case "openai", "gemini":
		if cfg.Engine.APIKey == "" {
			return fmt.Errorf("missing required config: engine API key for backend %q. "+
				"Set it via environment variable FOLIO_ENGINE_API_KEY", cfg.Engine.Backend)
		}
	default:
		return fmt.Errorf("invalid engine.backend %q: want one of ollama, openai, gemini", cfg.Engine.Backend)
	}

	if cfg.Generation.MaxNewTokens <= 0 || cfg.Generation.MaxNewTokens > 80 {
		return fmt.Errorf("invalid generation.max_new_tokens %d: must be between 1 and 80", cfg.Generation.MaxNewTokens)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval.top_k %d: must be positive", cfg.Retrieval.TopK)
	}
	return nil
}
