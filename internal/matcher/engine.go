// Package matcher runs one matching pass: sanitize the billing text, build
// the instruction, call the gateway, validate the reply and reconcile it
// against the candidate work orders.
package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/contract"
	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/metrics"
	"github.com/sells-group/wo-matcher/internal/model"
	"github.com/sells-group/wo-matcher/internal/prompt"
	"github.com/sells-group/wo-matcher/internal/reconcile"
	"github.com/sells-group/wo-matcher/internal/sanitize"
)

// DefaultExpectedMatches is the expected-count hint used when neither the
// caller nor the text supplies one.
const DefaultExpectedMatches = 5

// Options configures an Engine.
type Options struct {
	Sanitize        sanitize.Options
	Builder         prompt.Builder
	DefaultExpected int
	// CaptureRaw attaches the provider's raw reply to results.
	CaptureRaw bool
	// SimplePrompt sends only the detected billing lines with the short
	// instruction. Text with no detectable lines still gets the full one.
	SimplePrompt bool
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Engine is safe for concurrent use; runs share no mutable state.
type Engine struct {
	gw              gateway.Gateway
	sanitizer       *sanitize.Sanitizer
	builder         prompt.Builder
	defaultExpected int
	captureRaw      bool
	simple          bool
	log             *zap.Logger
	metrics         *metrics.Metrics
}

// New returns an Engine that calls gw.
func New(gw gateway.Gateway, opts Options) *Engine {
	if opts.DefaultExpected <= 0 {
		opts.DefaultExpected = DefaultExpectedMatches
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Engine{
		gw:              gw,
		sanitizer:       sanitize.New(opts.Sanitize),
		builder:         opts.Builder,
		defaultExpected: opts.DefaultExpected,
		captureRaw:      opts.CaptureRaw,
		simple:          opts.SimplePrompt,
		log:             opts.Logger,
		metrics:         opts.Metrics,
	}
}

// Match runs one pass over freeText and orders. Rejected input and
// cancellation are returned as errors. Provider and reply failures come back
// as a failed result with a nil error.
func (e *Engine) Match(ctx context.Context, freeText string, orders []model.WorkOrder, expectedCount int) (*model.MatchingResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.With(zap.String("run_id", runID))

	res, class, err := e.run(ctx, log, freeText, orders, expectedCount)
	if err != nil {
		class = Classify(err)
	}
	if res != nil {
		res.RunID = runID
	}
	e.metrics.ObserveRun(outcome(class), time.Since(start))
	return res, err
}

// run returns the result with the class of its failure, or the error that
// aborted the run.
func (e *Engine) run(ctx context.Context, log *zap.Logger, freeText string, orders []model.WorkOrder, expectedCount int) (*model.MatchingResult, Class, error) {
	clean, err := e.sanitizer.Sanitize(freeText)
	if err != nil {
		log.Warn("matcher: input rejected", zap.Error(err))
		return nil, ClassNone, err
	}
	for _, w := range clean.Warnings {
		log.Info("matcher: input warning", zap.String("warning", w))
	}
	st := sanitize.ComputeStats(clean.Text)
	log.Debug("matcher: input sanitized",
		zap.Int("original_length", clean.OriginalLength),
		zap.Int("length", st.TotalLength),
		zap.Int("lines", st.NonEmptyLines),
		zap.Int("words", st.WordCount),
		zap.Int("currency_mentions", st.CurrencyMentions),
		zap.Float64("special_char_ratio", st.SpecialCharRatio),
		zap.Bool("truncated", clean.Truncated),
	)

	items := sanitize.ExtractItems(clean.Text)
	if expectedCount <= 0 {
		expectedCount = len(items)
		if expectedCount == 0 {
			expectedCount = e.defaultExpected
		}
	}

	instruction := e.instruction(clean.Text, items, orders, expectedCount)
	log.Debug("matcher: instruction built",
		zap.Int("candidates", len(orders)),
		zap.Int("items", len(items)),
		zap.Int("expected", expectedCount),
		zap.Int("chars", len(instruction)),
	)

	if err := ctx.Err(); err != nil {
		return nil, ClassNone, eris.Wrap(err, "matcher: before gateway call")
	}

	raw, err := e.gw.Complete(ctx, instruction)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ClassNone, eris.Wrap(ctxErr, "matcher: gateway call")
		}
		if !gateway.IsUnavailable(err) {
			err = &gateway.UnavailableError{Err: err}
		}
		log.Error("matcher: gateway failed", zap.Error(err))
		return reconcile.Failed(err, ""), ClassGatewayUnavailable, nil
	}

	payload, err := contract.Validate(raw)
	if err != nil {
		if contract.IsKind(err, contract.NoStructuredPayload) {
			log.Error("matcher: reply carried no JSON object", zap.String("reply_preview", preview(raw)))
		} else {
			log.Error("matcher: contract violation", zap.Error(err))
		}
		return reconcile.Failed(err, e.raw(raw)), ClassContractViolation, nil
	}
	for _, d := range payload.Dropped {
		log.Warn("matcher: dropped match entry",
			zap.Int("index", d.Index),
			zap.String("reason", d.Reason),
		)
	}
	e.metrics.ObserveDropped(len(payload.Dropped))

	res := reconcile.Reconcile(payload, orders)
	res.RawResponse = e.raw(raw)
	for _, m := range res.Matches {
		if !m.Resolved() {
			log.Debug("matcher: unresolved work order id",
				zap.String("work_order_id", m.WorkOrderID),
				zap.String("email_item", m.EmailItem),
			)
		}
		e.metrics.ObserveMatch(m.ConfidenceLevel(), m.Resolved())
	}

	log.Info("matcher: run complete",
		zap.Int("matches", res.TotalMatchCount()),
		zap.Int("unmatched", res.UnmatchedCount()),
		zap.Int("dropped", len(payload.Dropped)),
	)
	return res, ClassNone, nil
}

func (e *Engine) instruction(text string, items []sanitize.Item, orders []model.WorkOrder, expectedCount int) string {
	if !e.simple || len(items) == 0 {
		return e.builder.Build(text, orders, expectedCount)
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.FullText)
	}
	return e.builder.BuildSimple(lines, orders)
}

// preview is the head of a reply for logs.
func preview(s string) string {
	const n = 200
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (e *Engine) raw(s string) string {
	if e.captureRaw {
		return s
	}
	return ""
}
