package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// APIKeyPrefix is the prefix every Anthropic API key carries.
const APIKeyPrefix = "sk-ant-"

// Validate checks the settings the given command needs. Every problem is
// reported in one error.
func (c *Config) Validate(command string) error {
	var errs []string

	switch command {
	case "match", "batch":
		errs = append(errs, c.anthropicErrors()...)
		errs = append(errs, c.sourceErrors()...)
		if command == "batch" && (c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 32) {
			errs = append(errs, "batch.max_concurrent must be between 1 and 32")
		}
	case "serve":
		errs = append(errs, c.anthropicErrors()...)
		errs = append(errs, c.sourceErrors()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "orders":
		errs = append(errs, c.sourceErrors()...)
	case "ping":
		errs = append(errs, c.anthropicErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}

	if t := c.Matching.ConfidenceThreshold; t < 0 || t > 100 {
		errs = append(errs, "matching.confidence_threshold must be between 0 and 100")
	}
	if c.Matching.MaxCandidates < 1 {
		errs = append(errs, "matching.max_candidates must be >= 1")
	}
	if c.Input.MinLength > 0 && c.Input.MaxLength > 0 && c.Input.MinLength > c.Input.MaxLength {
		errs = append(errs, "input.min_length must not exceed input.max_length")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) anthropicErrors() []string {
	var errs []string
	switch key := c.Anthropic.Key; {
	case key == "":
		errs = append(errs, "anthropic.key is required")
	case !strings.HasPrefix(key, APIKeyPrefix):
		errs = append(errs, fmt.Sprintf("anthropic.key must start with %q", APIKeyPrefix))
	}
	if c.Anthropic.MaxTokens <= 0 {
		errs = append(errs, "anthropic.max_tokens must be > 0")
	}
	if t := c.Anthropic.Temperature; t < 0 || t > 1 {
		errs = append(errs, "anthropic.temperature must be between 0 and 1")
	}
	return errs
}

func (c *Config) sourceErrors() []string {
	s := c.Source
	switch strings.ToLower(s.Kind) {
	case "postgres":
		if s.DSN == "" {
			return []string{"source.dsn is required for postgres"}
		}
	case "", "csv", "xlsx", "yaml", "json", "sqlite":
		if s.Path == "" && s.DSN == "" {
			return []string{"source.path is required"}
		}
	default:
		return []string{fmt.Sprintf("source.kind %q is not supported", s.Kind)}
	}
	return nil
}
