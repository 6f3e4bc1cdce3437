// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultModels is the fallback order used when neither AI_MODELS nor AI_MODELS_FILE is set.
var DefaultModels = []string{
	"mistralai/mistral-7b-instruct:free",
	"google/gemma-2-2b-it:free",
	"microsoft/phi-3.5-mini-instruct:free",
	"nousresearch/hermes-3-llama-3.1-8b:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"openchat/openchat-3.5-1210:free",
	"undi95/toppy-m-7b:free",
	"gryphe/mythomist-7b:free",
	"lizpreciatior/lzlv-70b-fp16-hf:free",
	"huggingfaceh4/zephyr-7b-beta:free",
	"rwkv/rwkv-5-world-3b:free",
	"jebcarter/psyfighter-13b:free",
}

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	Port     int    `env:"PORT" envDefault:"5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// DBURL and OpenRouterAPIKey are mandatory; Load fails without them.
	DBURL    string `env:"DB_URL,notEmpty"`
	RedisURL string `env:"REDIS_URL"`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY,notEmpty"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	ClientURL         string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"FutureBlink AI"`

	// Models is the ordered fallback list; first entry is preferred.
	Models     []string `env:"AI_MODELS" envSeparator:","`
	ModelsFile string   `env:"AI_MODELS_FILE"`
	// AttemptTimeout bounds a single model attempt.
	AttemptTimeout time.Duration `env:"AI_ATTEMPT_TIMEOUT" envDefault:"15s"`
	// RequestDeadline bounds the whole fallback loop; zero disables it.
	RequestDeadline time.Duration `env:"AI_REQUEST_DEADLINE" envDefault:"0s"`
	// Temperature <= 0 falls back to the 0.7 default.
	Temperature          float64       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	MaxTokens            int           `env:"AI_MAX_TOKENS" envDefault:"500"`
	FailFastOnUnexpected bool          `env:"AI_FAIL_FAST_UNEXPECTED" envDefault:"false"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"240s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	// HTTPRequestTimeout is the context deadline of each /api request; keep it under the write timeout.
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"200s"`

	DBConnectMaxElapsed time.Duration `env:"DB_CONNECT_MAX_ELAPSED" envDefault:"30s"`
	DataRetentionDays   int           `env:"DATA_RETENTION_DAYS" envDefault:"0"`
	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	HistoryCacheTTL     time.Duration `env:"HISTORY_CACHE_TTL" envDefault:"30s"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"futureblink-ai"`
}

// Load parses environment variables into a Config and resolves the model list.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.ModelsFile != "" {
		models, err := LoadModelsFile(cfg.ModelsFile)
		if err != nil {
			return Config{}, fmt.Errorf("op=config.Load: %w", err)
		}
		cfg.Models = models
	}
	cfg.Models = normalizeModels(cfg.Models)
	if len(cfg.Models) == 0 {
		cfg.Models = append([]string(nil), DefaultModels...)
	}
	if cfg.AttemptTimeout <= 0 {
		return Config{}, fmt.Errorf("op=config.Load: AI_ATTEMPT_TIMEOUT must be positive")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("op=config.Load: AI_MAX_TOKENS must be positive")
	}
	return cfg, nil
}

func normalizeModels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// AllowedOrigins returns CORS_ALLOW_ORIGINS when set, otherwise the single CLIENT_URL.
func (c Config) AllowedOrigins() string {
	if strings.TrimSpace(c.CORSAllowOrigins) != "" {
		return c.CORSAllowOrigins
	}
	return c.ClientURL
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
