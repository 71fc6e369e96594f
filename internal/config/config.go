// Package config loads and validates the home-inventory-core TOML
// configuration, with environment-variable overrides per spec §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "25s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LLMProvider enumerates the supported planner/extractor backends.
type LLMProvider string

const (
	ProviderOpenAI           LLMProvider = "openai"
	ProviderOpenRouter       LLMProvider = "openrouter"
	ProviderGemini           LLMProvider = "gemini"
	ProviderLMStudio         LLMProvider = "lmstudio"
	ProviderOpenAICompatible LLMProvider = "openai-compatible"
)

// LLMRequestMode selects the wire shape used to talk to the provider.
type LLMRequestMode string

const (
	RequestModeResponses       LLMRequestMode = "responses"
	RequestModeChatCompletions LLMRequestMode = "chat_completions"
)

// Config is the full process configuration.
type Config struct {
	API      API     `toml:"api"`
	Worker   Worker  `toml:"worker"`
	Planner  Planner `toml:"planner"`
	Queue    Queue   `toml:"queue"`
	LogLevel string  `toml:"log_level"`
}

// API controls the HTTP server.
type API struct {
	Port         int    `toml:"port"`
	WorkerToken  string `toml:"worker_token"`
	UploadOrigin string `toml:"upload_origin"`
	BaseURL      string `toml:"base_url"`
}

// Worker controls the worker-side polling loop (spec §5 "Worker side").
type Worker struct {
	PollIntervalMs    int `toml:"poll_interval_ms"`
	BackoffBaseMs     int `toml:"backoff_base_ms"`
	MaxSubmitAttempts int `toml:"max_submit_attempts"`
}

// Planner controls the recommendation planner adapter (spec §4.4).
type Planner struct {
	Provider          LLMProvider    `toml:"provider"`
	BaseURL           string         `toml:"base_url"`
	PlannerModel      string         `toml:"planner_model"`
	ExtractorModel    string         `toml:"extractor_model"`
	RequestMode       LLMRequestMode `toml:"request_mode"`
	TimeoutSeconds    int            `toml:"timeout_seconds"`
	OpenRouterSiteURL string         `toml:"openrouter_site_url"`
	OpenRouterAppName string         `toml:"openrouter_app_name"`

	// API keys are never read from TOML; only from the environment.
	OpenAIAPIKey     string `toml:"-"`
	OpenRouterAPIKey string `toml:"-"`
	GeminiAPIKey     string `toml:"-"`
}

// Queue controls job-queue retry behavior (spec §4.1).
type Queue struct {
	MaxAttempts int `toml:"max_attempts"`
}

// Default returns the built-in defaults, applied before a TOML file (if
// any) and environment overrides are layered on top.
func Default() *Config {
	return &Config{
		API: API{
			Port:         8789,
			UploadOrigin: "http://localhost:8789",
			BaseURL:      "http://localhost:8789",
		},
		Worker: Worker{
			PollIntervalMs:    3000,
			BackoffBaseMs:     250,
			MaxSubmitAttempts: 3,
		},
		Planner: Planner{
			Provider:       ProviderOpenAI,
			RequestMode:    RequestModeResponses,
			TimeoutSeconds: 25,
		},
		Queue: Queue{
			MaxAttempts: 3,
		},
		LogLevel: "info",
	}
}

// Load reads a TOML file at path (if it exists) over the defaults, then
// applies environment-variable overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOME_INVENTORY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HOME_INVENTORY_WORKER_TOKEN"); v != "" {
		cfg.API.WorkerToken = v
	}
	if v := os.Getenv("HOME_INVENTORY_UPLOAD_ORIGIN"); v != "" {
		cfg.API.UploadOrigin = v
	}
	if v := os.Getenv("HOME_INVENTORY_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("HOME_INVENTORY_WORKER_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Worker.PollIntervalMs = ms
		}
	}
	if v := os.Getenv("HOME_INVENTORY_LLM_PROVIDER"); v != "" {
		cfg.Planner.Provider = LLMProvider(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("HOME_INVENTORY_LLM_BASE_URL"); v != "" {
		cfg.Planner.BaseURL = v
	}
	if v := os.Getenv("HOME_INVENTORY_PLANNER_MODEL"); v != "" {
		cfg.Planner.PlannerModel = v
	}
	if v := os.Getenv("HOME_INVENTORY_EXTRACTOR_MODEL"); v != "" {
		cfg.Planner.ExtractorModel = v
	}
	if v := os.Getenv("HOME_INVENTORY_LLM_REQUEST_MODE"); v != "" {
		cfg.Planner.RequestMode = LLMRequestMode(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("HOME_INVENTORY_OPENROUTER_SITE_URL"); v != "" {
		cfg.Planner.OpenRouterSiteURL = v
	}
	if v := os.Getenv("HOME_INVENTORY_OPENROUTER_APP_NAME"); v != "" {
		cfg.Planner.OpenRouterAppName = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Planner.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Planner.OpenRouterAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Planner.GeminiAPIKey = v
	} else if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Planner.GeminiAPIKey = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep inside the server or worker.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.Worker.PollIntervalMs <= 0 {
		return fmt.Errorf("worker.poll_interval_ms must be positive")
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be positive")
	}
	switch c.Planner.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderGemini, ProviderLMStudio, ProviderOpenAICompatible:
	default:
		return fmt.Errorf("unknown planner provider: %q", c.Planner.Provider)
	}
	return nil
}

// Clone returns a copy safe for concurrent hand-off. Config has no nested
// maps or slices that mutate in place, so a shallow copy suffices.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
