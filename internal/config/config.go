package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Matching  MatchingConfig  `yaml:"matching" mapstructure:"matching"`
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string        `yaml:"key" mapstructure:"key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxTokens         int64         `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	BreakerThreshold  int           `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerReset      time.Duration `yaml:"breaker_reset" mapstructure:"breaker_reset"`
}

// RetryConfig is the provider retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RateLimit   BackoffConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Transient   BackoffConfig `yaml:"transient" mapstructure:"transient"`
}

// BackoffConfig is one backoff schedule.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter     float64       `yaml:"jitter" mapstructure:"jitter"`
}

// MatchingConfig tunes a matching run.
type MatchingConfig struct {
	ConfidenceThreshold int  `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	DefaultExpected     int  `yaml:"default_expected" mapstructure:"default_expected"`
	MaxCandidates       int  `yaml:"max_candidates" mapstructure:"max_candidates"`
	LocationWidth       int  `yaml:"location_width" mapstructure:"location_width"`
	DescriptionWidth    int  `yaml:"description_width" mapstructure:"description_width"`
	SpecialOnly         bool `yaml:"special_only" mapstructure:"special_only"`
	CaptureRaw          bool `yaml:"capture_raw" mapstructure:"capture_raw"`
	SimplePrompt        bool `yaml:"simple_prompt" mapstructure:"simple_prompt"`
}

// InputConfig controls billing-text validation.
type InputConfig struct {
	MinLength       int  `yaml:"min_length" mapstructure:"min_length"`
	MaxLength       int  `yaml:"max_length" mapstructure:"max_length"`
	Strict          bool `yaml:"strict" mapstructure:"strict"`
	RequireCurrency bool `yaml:"require_currency" mapstructure:"require_currency"`
}

// SourceConfig locates the work-order rows.
type SourceConfig struct {
	Kind      string        `yaml:"kind" mapstructure:"kind"`
	Path      string        `yaml:"path" mapstructure:"path"`
	Sheet     string        `yaml:"sheet" mapstructure:"sheet"`
	Delimiter string        `yaml:"delimiter" mapstructure:"delimiter"`
	DSN       string        `yaml:"dsn" mapstructure:"dsn"`
	Query     string        `yaml:"query" mapstructure:"query"`
	Columns   ColumnsConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnsConfig names the row columns holding each work-order field.
type ColumnsConfig struct {
	ID          string `yaml:"id" mapstructure:"id"`
	Total       string `yaml:"total" mapstructure:"total"`
	Location    string `yaml:"location" mapstructure:"location"`
	Description string `yaml:"description" mapstructure:"description"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Pattern       string `yaml:"pattern" mapstructure:"pattern"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// EnvFile is the dotenv file read by Load when present.
const EnvFile = ".env"

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("WOMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("anthropic.key", "WOMATCH_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.timeout", "120s")
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("anthropic.breaker_threshold", 5)
	v.SetDefault("anthropic.breaker_reset", "30s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.rate_limit.initial", "2s")
	v.SetDefault("retry.rate_limit.max", "30s")
	v.SetDefault("retry.rate_limit.multiplier", 2.0)
	v.SetDefault("retry.rate_limit.jitter", 0.1)
	v.SetDefault("retry.transient.initial", "1s")
	v.SetDefault("retry.transient.max", "5s")
	v.SetDefault("retry.transient.multiplier", 1.5)
	v.SetDefault("retry.transient.jitter", 0.25)
	v.SetDefault("matching.confidence_threshold", 50)
	v.SetDefault("matching.default_expected", 5)
	v.SetDefault("matching.max_candidates", 100)
	v.SetDefault("matching.location_width", 50)
	v.SetDefault("matching.description_width", 80)
	v.SetDefault("matching.special_only", true)
	v.SetDefault("matching.capture_raw", true)
	v.SetDefault("matching.simple_prompt", false)
	v.SetDefault("input.min_length", 20)
	v.SetDefault("input.max_length", 10000)
	v.SetDefault("input.strict", true)
	v.SetDefault("input.require_currency", true)
	v.SetDefault("source.path", "work_orders.csv")
	v.SetDefault("source.columns.id", "WO #")
	v.SetDefault("source.columns.total", "Total")
	v.SetDefault("source.columns.location", "Location")
	v.SetDefault("source.columns.description", "Description")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("batch.pattern", "*.txt")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
