package gateway

import (
	"context"
	"strings"
	"time"
)

// PingResult reports a connection test.
type PingResult struct {
	OK       bool          `json:"ok"`
	Model    string        `json:"model"`
	Response string        `json:"response,omitempty"`
	Latency  time.Duration `json:"latency"`
	Error    string        `json:"error,omitempty"`
}

// Ping sends a tiny prompt once, bypassing the retry policy.
func (g *AnthropicGateway) Ping(ctx context.Context) PingResult {
	start := time.Now()
	text, err := g.attempt(ctx, pingPrompt, 100, 0)
	res := PingResult{
		Model:   g.cfg.Model,
		Latency: time.Since(start),
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Response = strings.TrimSpace(text)
	return res
}

// Status describes the gateway configuration and health.
type Status struct {
	Model               string  `json:"model"`
	MaxTokens           int64   `json:"max_tokens"`
	Temperature         float64 `json:"temperature"`
	APIKeyConfigured    bool    `json:"api_key_configured"`
	Priced              bool    `json:"priced"`
	RequestsPerMinute   int     `json:"requests_per_minute"`
	MaxAttempts         int     `json:"max_attempts"`
	Circuit             string  `json:"circuit"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	Calls               int64   `json:"calls"`
}

// Status returns a snapshot. The API key counts as configured when it has
// the provider's key prefix.
func (g *AnthropicGateway) Status() Status {
	return Status{
		Model:               g.cfg.Model,
		MaxTokens:           g.cfg.MaxTokens,
		Temperature:         g.cfg.Temperature,
		APIKeyConfigured:    strings.HasPrefix(g.cfg.APIKey, "sk-ant-"),
		Priced:              g.calc.Known(g.cfg.Model),
		RequestsPerMinute:   g.cfg.RequestsPerMinute,
		MaxAttempts:         g.cfg.Retry.config(nil).MaxAttempts,
		Circuit:             g.breaker.State().String(),
		ConsecutiveFailures: g.breaker.Failures(),
		Calls:               g.calls.Load(),
	}
}
