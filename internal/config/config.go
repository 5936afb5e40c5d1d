package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Dispatch   DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for lead enrichment.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ScoringConfig tunes the scoring engine's collaborators.
type ScoringConfig struct {
	EnrichmentEnabled     bool    `yaml:"enrichment_enabled" mapstructure:"enrichment_enabled"`
	EnrichmentTimeoutSecs int     `yaml:"enrichment_timeout_secs" mapstructure:"enrichment_timeout_secs"`
	EnrichmentRPS         float64 `yaml:"enrichment_rps" mapstructure:"enrichment_rps"`
	EnrichmentBurst       int     `yaml:"enrichment_burst" mapstructure:"enrichment_burst"`
	PersistTimeoutSecs    int     `yaml:"persist_timeout_secs" mapstructure:"persist_timeout_secs"`
}

// ResilienceConfig configures breakers and retries on outbound calls.
type ResilienceConfig struct {
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	RetryMaxAttempts        int `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMs   int `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
}

// DispatchConfig configures where routing directives are delivered. An empty
// WebhookURL logs them instead.
type DispatchConfig struct {
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MonitoringConfig configures scoring health alerts.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// BatchConfig configures batch rescoring.
type BatchConfig struct {
	MaxConcurrentLeads int `yaml:"max_concurrent_leads" mapstructure:"max_concurrent_leads"`
	DefaultLimit       int `yaml:"default_limit" mapstructure:"default_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("scoring.enrichment_enabled", true)
	v.SetDefault("scoring.enrichment_timeout_secs", 5)
	v.SetDefault("scoring.enrichment_rps", 2.0)
	v.SetDefault("scoring.enrichment_burst", 4)
	v.SetDefault("scoring.persist_timeout_secs", 10)
	v.SetDefault("resilience.breaker_failure_threshold", 5)
	v.SetDefault("resilience.breaker_reset_secs", 30)
	v.SetDefault("resilience.retry_max_attempts", 3)
	v.SetDefault("resilience.retry_initial_backoff_ms", 500)
	v.SetDefault("dispatch.webhook_url", "")
	v.SetDefault("dispatch.timeout_secs", 10)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.fallback_rate_threshold", 0.10)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("batch.max_concurrent_leads", 8)
	v.SetDefault("batch.default_limit", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects settings the engine cannot run with. mode is "score" for
// one-shot commands or "serve" for the HTTP server.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}
	if c.Scoring.EnrichmentTimeoutSecs <= 0 {
		errs = append(errs, "scoring.enrichment_timeout_secs must be > 0")
	}
	if t := c.Monitoring.FallbackRateThreshold; t < 0 || t > 1 {
		errs = append(errs, "monitoring.fallback_rate_threshold must be between 0 and 1")
	}
	if c.Batch.MaxConcurrentLeads < 1 || c.Batch.MaxConcurrentLeads > 64 {
		errs = append(errs, "batch.max_concurrent_leads must be between 1 and 64")
	}

	switch mode {
	case "score":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
