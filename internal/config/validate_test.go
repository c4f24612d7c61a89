package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Anthropic.MaxTokens = 4000
	cfg.Anthropic.Temperature = 0.1
	cfg.Retry.MaxAttempts = 3
	cfg.Matching.ConfidenceThreshold = 50
	cfg.Matching.MaxCandidates = 100
	cfg.Input.MinLength = 20
	cfg.Input.MaxLength = 10000
	cfg.Source.Path = "work_orders.csv"
	cfg.Server.Port = 8080
	cfg.Batch.MaxConcurrent = 4
	return cfg
}

func TestValidate_AllCommandsPass(t *testing.T) {
	for _, cmd := range []string{"match", "batch", "serve", "orders", "ping"} {
		t.Run(cmd, func(t *testing.T) {
			assert.NoError(t, validDefaults().Validate(cmd))
		})
	}
}

func TestValidateMatch_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Source.Path = ""

	err := cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "source.path is required")
}

func TestValidateMatch_BadKeyShape(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "not-a-key"

	err := cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `anthropic.key must start with "sk-ant-"`)
}

func TestValidateOrders_NoKeyNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""

	assert.NoError(t, cfg.Validate("orders"))
}

func TestValidatePing_NoSourceNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.Path = ""

	assert.NoError(t, cfg.Validate("ping"))
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		path    string
		dsn     string
		wantErr string
	}{
		{"postgres with dsn", "postgres", "", "postgres://localhost/wo", ""},
		{"postgres without dsn", "postgres", "orders.csv", "", "source.dsn is required for postgres"},
		{"sqlite dsn only", "sqlite", "", "file:orders.db", ""},
		{"csv without path", "csv", "", "", "source.path is required"},
		{"unsupported", "sheets", "x", "", `source.kind "sheets" is not supported`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Source.Kind = tt.kind
			cfg.Source.Path = tt.path
			cfg.Source.DSN = tt.dsn

			err := cfg.Validate("orders")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateBatch_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch.max_concurrent must be between 1 and 32")

	cfg.Batch.MaxConcurrent = 33
	assert.Error(t, cfg.Validate("batch"))

	cfg.Batch.MaxConcurrent = 32
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidate_Ranges(t *testing.T) {
	cfg := validDefaults()
	cfg.Matching.ConfidenceThreshold = 101
	cfg.Matching.MaxCandidates = 0
	cfg.Input.MinLength = 500
	cfg.Input.MaxLength = 100
	cfg.Retry.MaxAttempts = 0
	cfg.Anthropic.Temperature = 1.5
	cfg.Anthropic.MaxTokens = 0

	err := cfg.Validate("match")
	assert.Error(t, err)
	for _, want := range []string{
		"matching.confidence_threshold",
		"matching.max_candidates",
		"input.min_length",
		"retry.max_attempts",
		"anthropic.temperature",
		"anthropic.max_tokens",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
