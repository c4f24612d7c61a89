package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/config"
	"github.com/sells-group/wo-matcher/internal/cost"
	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/matcher"
	"github.com/sells-group/wo-matcher/internal/metrics"
	"github.com/sells-group/wo-matcher/internal/model"
	"github.com/sells-group/wo-matcher/internal/prompt"
	"github.com/sells-group/wo-matcher/internal/resilience"
	"github.com/sells-group/wo-matcher/internal/sanitize"
	"github.com/sells-group/wo-matcher/internal/source"
)

// matchEnv holds everything the match/batch/serve commands need.
type matchEnv struct {
	Engine   *matcher.Engine
	Gateway  *gateway.AnthropicGateway
	Orders   []model.WorkOrder
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// initMatchEnv validates config for command, loads the work orders and
// builds the engine.
func initMatchEnv(ctx context.Context, command string) (*matchEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	orders, err := loadOrders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gw := newGateway(cfg, m)

	return &matchEnv{
		Engine:   newEngine(cfg, gw, m),
		Gateway:  gw,
		Orders:   orders,
		Metrics:  m,
		Registry: reg,
	}, nil
}

func columns(c *config.Config) model.Columns {
	return model.Columns{
		ID:          c.Source.Columns.ID,
		Total:       c.Source.Columns.Total,
		Location:    c.Source.Columns.Location,
		Description: c.Source.Columns.Description,
	}
}

func sourceConfig(c *config.Config) source.Config {
	return source.Config{
		Kind:      source.Kind(c.Source.Kind),
		Path:      c.Source.Path,
		Sheet:     c.Source.Sheet,
		Delimiter: c.Source.Delimiter,
		DSN:       c.Source.DSN,
		Query:     c.Source.Query,
	}
}

// loadOrders reads the configured work-order source.
func loadOrders(ctx context.Context, c *config.Config) ([]model.WorkOrder, error) {
	src, err := source.Open(ctx, sourceConfig(c))
	if err != nil {
		return nil, eris.Wrap(err, "open work order source")
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close() //nolint:errcheck
	}

	orders, err := source.Load(ctx, src, columns(c), c.Matching.SpecialOnly)
	if err != nil {
		return nil, eris.Wrap(err, "load work orders")
	}
	if len(orders) == 0 {
		zap.L().Warn("no work orders loaded", zap.String("path", c.Source.Path))
	}
	return orders, nil
}

func newGateway(c *config.Config, m *metrics.Metrics) *gateway.AnthropicGateway {
	rates := cost.Rates{Anthropic: make(map[string]cost.ModelRate, len(c.Pricing.Anthropic))}
	for id, p := range c.Pricing.Anthropic {
		rates.Anthropic[id] = cost.ModelRate{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		}
	}

	return gateway.NewAnthropic(gateway.Settings{
		APIKey:            c.Anthropic.Key,
		BaseURL:           c.Anthropic.BaseURL,
		Model:             c.Anthropic.Model,
		MaxTokens:         c.Anthropic.MaxTokens,
		Temperature:       c.Anthropic.Temperature,
		Timeout:           c.Anthropic.Timeout,
		RequestsPerMinute: c.Anthropic.RequestsPerMinute,
		Retry: gateway.RetryPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			RateLimit:   backoff(c.Retry.RateLimit),
			Transient:   backoff(c.Retry.Transient),
		},
		Breaker: resilience.NewCircuitBreakerConfig(c.Anthropic.BreakerThreshold, c.Anthropic.BreakerReset),
	},
		gateway.WithMetrics(m),
		gateway.WithCalculator(cost.NewCalculator(rates)),
	)
}

func backoff(b config.BackoffConfig) resilience.Backoff {
	return resilience.Backoff{
		Initial:    b.Initial,
		Max:        b.Max,
		Multiplier: b.Multiplier,
		Jitter:     b.Jitter,
	}
}

func sanitizeOptions(c *config.Config) sanitize.Options {
	return sanitize.Options{
		MinLength:       c.Input.MinLength,
		MaxLength:       c.Input.MaxLength,
		Strict:          c.Input.Strict,
		RequireCurrency: c.Input.RequireCurrency,
	}
}

func newEngine(c *config.Config, gw gateway.Gateway, m *metrics.Metrics) *matcher.Engine {
	return matcher.New(gw, matcher.Options{
		Sanitize: sanitizeOptions(c),
		Builder: prompt.Builder{
			MaxCandidates:    c.Matching.MaxCandidates,
			LocationWidth:    c.Matching.LocationWidth,
			DescriptionWidth: c.Matching.DescriptionWidth,
		},
		DefaultExpected: c.Matching.DefaultExpected,
		CaptureRaw:      c.Matching.CaptureRaw,
		SimplePrompt:    c.Matching.SimplePrompt,
		Metrics:         m,
	})
}
