package gateway

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/wo-matcher/internal/cost"
	"github.com/sells-group/wo-matcher/internal/metrics"
	"github.com/sells-group/wo-matcher/internal/resilience"
	"github.com/sells-group/wo-matcher/pkg/anthropic"
)

const pingPrompt = "Respond with just 'OK' if you can process this message."

// Settings configures an AnthropicGateway.
type Settings struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int64
	Temperature       float64
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             RetryPolicy
	Breaker           resilience.CircuitBreakerConfig
}

// Option customizes an AnthropicGateway.
type Option func(*AnthropicGateway)

// WithLogger sets the logger. Default: zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(g *AnthropicGateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetrics records call metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *AnthropicGateway) { g.metrics = m }
}

// WithCalculator sets the cost calculator used for per-call cost logs.
func WithCalculator(c *cost.Calculator) Option {
	return func(g *AnthropicGateway) {
		if c != nil {
			g.calc = c
		}
	}
}

// AnthropicGateway implements Gateway over the Anthropic Messages API.
type AnthropicGateway struct {
	client  anthropic.Client
	cfg     Settings
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	calc    *cost.Calculator
	metrics *metrics.Metrics
	log     *zap.Logger

	calls atomic.Int64
}

// NewAnthropic builds a gateway with an SDK-backed client.
func NewAnthropic(s Settings, opts ...Option) *AnthropicGateway {
	client := anthropic.NewClient(anthropic.Options{
		APIKey:  s.APIKey,
		BaseURL: s.BaseURL,
		Timeout: s.Timeout,
	})
	return NewAnthropicWithClient(client, s, opts...)
}

// NewAnthropicWithClient builds a gateway around an existing client.
func NewAnthropicWithClient(client anthropic.Client, s Settings, opts ...Option) *AnthropicGateway {
	if s.Model == "" {
		s.Model = "claude-sonnet-4-5-20250929"
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 4000
	}

	g := &AnthropicGateway{
		client: client,
		cfg:    s,
		calc:   cost.NewCalculator(cost.Rates{}),
		log:    zap.L(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.calc.Known(s.Model) {
		g.log.Warn("gateway: no pricing for model, cost estimates will be zero", zap.String("model", s.Model))
	}

	if s.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.RequestsPerMinute)), 1)
	}

	breakerCfg := s.Breaker
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		g.log.Warn("gateway: circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		g.metrics.SetCircuitState(int(to))
		if onChange != nil {
			onChange(from, to)
		}
	}
	g.breaker = resilience.NewCircuitBreaker(breakerCfg)
	return g
}

// Complete sends instruction as a single user message and returns the
// concatenated text of the reply.
func (g *AnthropicGateway) Complete(ctx context.Context, instruction string) (string, error) {
	start := time.Now()
	var attempts int

	retryCfg := g.cfg.Retry.config(func(attempt int, err error, delay time.Duration) {
		reason := "transient"
		if resilience.IsRateLimited(err) {
			reason = "rate_limit"
		}
		g.metrics.ObserveRetry(reason)
		resilience.RetryLogger(g.log, "anthropic", "complete")(attempt, err, delay)
	})

	text, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
			attempts++
			return g.attempt(ctx, instruction, g.cfg.MaxTokens, g.cfg.Temperature)
		})
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		g.metrics.ObserveGatewayCall("ok", elapsed)
		g.log.Debug("gateway: completion received",
			zap.Int("attempts", attempts),
			zap.Int("response_chars", len(text)),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()),
		)
		return text, nil
	case errors.Is(err, ErrEmptyResponse):
		g.metrics.ObserveGatewayCall("empty", elapsed)
		return "", err
	case ctx.Err() != nil:
		g.metrics.ObserveGatewayCall("canceled", elapsed)
		return "", ctx.Err()
	default:
		g.metrics.ObserveGatewayCall("unavailable", elapsed)
		g.log.Error("gateway: provider unavailable",
			zap.Int("attempts", attempts),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return "", &UnavailableError{Attempts: attempts, Err: err}
	}
}

// attempt makes one throttled provider call and classifies its failure.
func (g *AnthropicGateway) attempt(ctx context.Context, instruction string, maxTokens int64, temperature float64) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	g.calls.Add(1)
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: instruction}},
		Temperature: &temperature,
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	g.recordUsage(resp)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// classify maps a client error onto the retry taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var apiErr *anthropic.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == 0 {
		return resilience.NewTransientError(err, 0)
	}
	return resilience.StatusError(err, apiErr.StatusCode, apiErr.RetryAfter)
}

func (g *AnthropicGateway) recordUsage(resp *anthropic.MessageResponse) {
	u := cost.Usage{
		Input:      resp.Usage.InputTokens,
		Output:     resp.Usage.OutputTokens,
		CacheWrite: resp.Usage.CacheCreationInputTokens,
		CacheRead:  resp.Usage.CacheReadInputTokens,
	}
	usd := g.calc.Claude(g.cfg.Model, u)
	g.metrics.ObserveUsage(u.Input, u.Output, usd)
	g.log.Info("cost attribution",
		zap.String("model", g.cfg.Model),
		zap.Int64("input_tokens", u.Input),
		zap.Int64("output_tokens", u.Output),
		zap.Float64("estimated_cost_usd", usd),
	)
}
