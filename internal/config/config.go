package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. Components receive the
// sections they need explicitly; nothing reads viper after Load.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Mistral      MistralConfig      `yaml:"mistral" mapstructure:"mistral"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Generation   GenerationConfig   `yaml:"generation" mapstructure:"generation"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Safeguards   SafeguardConfig    `yaml:"safeguards" mapstructure:"safeguards"`
	Batch        BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Review       ReviewConfig       `yaml:"review" mapstructure:"review"`
	Translate    TranslateConfig    `yaml:"translate" mapstructure:"translate"`
	Destinations DestinationsConfig `yaml:"destinations" mapstructure:"destinations"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// MistralConfig holds Mistral API settings. Mistral is the default provider
// for both generation and verification.
type MistralConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	VerifyModel string `yaml:"verify_model" mapstructure:"verify_model"`
}

// AnthropicConfig holds Anthropic API settings (alternate provider).
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GenerationConfig configures the description generation stage.
type GenerationConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	WordCountRetries int     `yaml:"word_count_retries" mapstructure:"word_count_retries"`
}

// VerificationConfig configures the fact-check stage.
type VerificationConfig struct {
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SafeguardConfig configures the deterministic approval gate.
type SafeguardConfig struct {
	MaxHallucinationRate     float64 `yaml:"max_hallucination_rate" mapstructure:"max_hallucination_rate"`
	MaxHallucinationRateNone float64 `yaml:"max_hallucination_rate_none" mapstructure:"max_hallucination_rate_none"`
	WordCountTolerance       float64 `yaml:"word_count_tolerance" mapstructure:"word_count_tolerance"`
}

// BatchConfig configures the regeneration batch runner.
type BatchConfig struct {
	CheckpointEvery     int     `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	CallsPerSecond      float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerFailures     int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSeconds int     `yaml:"breaker_reset_seconds" mapstructure:"breaker_reset_seconds"`
	ReportDir           string  `yaml:"report_dir" mapstructure:"report_dir"`
}

// ReviewConfig configures the human-review export.
type ReviewConfig struct {
	MaxRows int `yaml:"max_rows" mapstructure:"max_rows"`
}

// TranslateConfig configures the post-promotion translation fan-out.
type TranslateConfig struct {
	Languages       []string `yaml:"languages" mapstructure:"languages"`
	Concurrency     int      `yaml:"concurrency" mapstructure:"concurrency"`
	CallsPerSecond  float64  `yaml:"calls_per_second" mapstructure:"calls_per_second"`
	CheckpointEvery int      `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
}

// DestinationsConfig locates the destination reference data.
type DestinationsConfig struct {
	Path                string `yaml:"path" mapstructure:"path"`
	FreshnessCutoffDays int    `yaml:"freshness_cutoff_days" mapstructure:"freshness_cutoff_days"`
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
	v.SetEnvPrefix("HOLIDAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "holidai.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("mistral.model", "mistral-large-latest")
	v.SetDefault("mistral.verify_model", "mistral-large-latest")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("generation.provider", "mistral")
	v.SetDefault("generation.temperature", 0.4)
	v.SetDefault("generation.max_tokens", 400)
	v.SetDefault("generation.word_count_retries", 1)
	v.SetDefault("verification.temperature", 0.1)
	v.SetDefault("verification.max_tokens", 1500)
	v.SetDefault("safeguards.max_hallucination_rate", 0.20)
	v.SetDefault("safeguards.max_hallucination_rate_none", 0.30)
	v.SetDefault("safeguards.word_count_tolerance", 0.20)
	v.SetDefault("batch.checkpoint_every", 50)
	v.SetDefault("batch.calls_per_second", 2.0)
	v.SetDefault("batch.max_attempts", 3)
	v.SetDefault("batch.breaker_failures", 5)
	v.SetDefault("batch.breaker_reset_seconds", 60)
	v.SetDefault("batch.report_dir", ".")
	v.SetDefault("review.max_rows", 500)
	v.SetDefault("translate.languages", []string{"nl", "de", "es", "fr"})
	v.SetDefault("translate.concurrency", 4)
	v.SetDefault("translate.calls_per_second", 2.0)
	v.SetDefault("translate.checkpoint_every", 25)
	v.SetDefault("destinations.path", "destinations.yaml")
	v.SetDefault("destinations.freshness_cutoff_days", 120)

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

// ValidateProvider checks that the configured generation provider has
// credentials. Called by commands that talk to a text service.
func (c *Config) ValidateProvider() error {
	switch c.Generation.Provider {
	case "mistral":
		if c.Mistral.Key == "" {
			return eris.New("config: mistral.key required")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key required")
		}
	default:
		return eris.Errorf("config: unknown generation provider %q", c.Generation.Provider)
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
