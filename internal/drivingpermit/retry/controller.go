// Package retry runs the bounded attempt loop against the document checking
// service.
//
// One Run resolves to exactly one terminal state:
//
//	Attempting ─ Success ────────────────────────────▶ Succeeded
//	Attempting ─ ServerError|TransportFailure ─ n<max ▶ Attempting
//	Attempting ─ ServerError|TransportFailure ─ n=max ▶ Exhausted
//	Attempting ─ ClientError | build failure | cancel ▶ Fatal
//
// The attempt count is owned by the loop and only grows once an attempt's
// outcome has been observed.
package retry

//go:generate mockgen -source=controller.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
	"permitcheck/internal/platform/tracer"
)

// Builder builds the sealed request for one attempt.
type Builder interface {
	Build(correlationID string, s models.PermitSubmission) (models.VerificationRequest, error)
}

// Exchanger performs a single exchange. A non-nil error means no answer.
type Exchanger interface {
	Submit(ctx context.Context, req models.VerificationRequest) (*models.RawResponse, error)
}

// Interpreter classifies one exchange.
type Interpreter interface {
	Interpret(req models.VerificationRequest, resp *models.RawResponse, transportErr error) models.Outcome
}

type State string

const (
	StateAttempting State = "attempting"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
	StateFatal      State = "fatal"
)

// Resolution is the terminal result of one Run.
type Resolution struct {
	State         State
	Outcome       models.Outcome // last observed outcome, nil if none was observed
	Attempts      int
	CorrelationID string
	RequestID     string // request ID of the last attempt built
}

// Config is the attempt policy shared by every check.
type Config struct {
	MaxAttempts    int           // default 3
	AttemptTimeout time.Duration // default 10s
	InitialDelay   time.Duration // default 100ms
	MaxDelay       time.Duration // default 2s
	Multiplier     float64       // default 2.0
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 2 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	return c
}

// Controller drives Builder → Exchanger → Interpreter until a terminal state.
// It holds no per-check state and is safe for concurrent use.
type Controller struct {
	builder     Builder
	exchanger   Exchanger
	interpreter Interpreter
	cfg         Config

	logger     *slog.Logger
	tracer     tracer.Tracer
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
	newID      func() string
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Controller) {
		c.tracer = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithBackOff replaces the exponential policy built from Config.
// The factory is called once per Run.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Controller) {
		c.newBackOff = factory
	}
}

// WithIDGenerator sets the correlation ID source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

func New(b Builder, x Exchanger, i Interpreter, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		builder:     b,
		exchanger:   x,
		interpreter: i,
		cfg:         cfg.withDefaults(),
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
		newID:       uuid.NewString,
	}
	c.newBackOff = c.exponential
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAttempts is the configured attempt budget.
func (c *Controller) MaxAttempts() int { return c.cfg.MaxAttempts }

func (c *Controller) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialDelay
	b.MaxInterval = c.cfg.MaxDelay
	b.Multiplier = c.cfg.Multiplier
	b.MaxElapsedTime = 0
	return b
}

// Run blocks until the check reaches Succeeded, Exhausted or Fatal.
// The error is nil only for Succeeded and is otherwise a *failure.Error.
func (c *Controller) Run(ctx context.Context, sub models.PermitSubmission) (Resolution, error) {
	correlationID := c.newID()
	ctx, span := c.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrCorrelationID, correlationID),
		tracer.String(tracer.AttrLicenceHash, tracer.HashIdentifier(sub.LicenceNumber)),
	)

	res, err := c.run(ctx, correlationID, sub)

	span.SetAttributes(
		tracer.String(tracer.AttrState, string(res.State)),
		tracer.Int(tracer.AttrAttempts, res.Attempts),
	)
	span.End(err)
	if c.metrics != nil {
		c.metrics.ObserveResolution(string(res.State), res.Attempts)
	}

	attrs := []any{
		"correlation_id", correlationID,
		"state", res.State,
		"attempts", res.Attempts,
		"outcome", models.OutcomeLabel(res.Outcome),
	}
	if err != nil {
		c.logger.WarnContext(ctx, "dcs check failed", append(attrs, "error", err)...)
	} else {
		c.logger.InfoContext(ctx, "dcs check resolved", attrs...)
	}
	return res, err
}

func (c *Controller) run(ctx context.Context, correlationID string, sub models.PermitSubmission) (Resolution, error) {
	res := Resolution{State: StateAttempting, CorrelationID: correlationID}
	bo := c.newBackOff()
	bo.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return res.fatal(cancelled(err))
		}

		req, err := c.builder.Build(correlationID, sub)
		if err != nil {
			return res.fatal(payloadFailure(err))
		}
		res.RequestID = req.RequestID

		outcome, observed := c.attempt(ctx, req, res.Attempts+1)
		if !observed {
			return res.fatal(cancelled(ctx.Err()))
		}
		res.Attempts++
		res.Outcome = outcome

		if _, ok := outcome.(models.Success); ok {
			res.State = StateSucceeded
			return res, nil
		}

		fail := failure.FromOutcome(outcome)
		if !fail.Retryable {
			return res.fatal(fail)
		}
		if res.Attempts >= c.cfg.MaxAttempts {
			return res.exhausted(fail)
		}
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			return res.exhausted(fail)
		}

		c.logger.InfoContext(ctx, "retrying dcs check",
			"correlation_id", correlationID,
			"attempt", res.Attempts,
			"outcome", models.OutcomeLabel(outcome),
			"delay", delay,
		)
		if err := wait(ctx, delay); err != nil {
			return res.fatal(cancelled(err))
		}
	}
}

// attempt runs one exchange under the per-attempt timeout. observed is false
// when the caller's context ended before an answer arrived.
func (c *Controller) attempt(ctx context.Context, req models.VerificationRequest, n int) (outcome models.Outcome, observed bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()
	attemptCtx, span := c.tracer.Start(attemptCtx, tracer.SpanAttempt,
		tracer.Int(tracer.AttrAttempt, n),
		tracer.String(tracer.AttrRequestID, req.RequestID),
	)
	start := time.Now()

	resp, err := c.exchanger.Submit(attemptCtx, req)
	if err != nil && ctx.Err() != nil {
		span.End(ctx.Err())
		return nil, false
	}

	outcome = c.interpreter.Interpret(req, resp, err)
	label := models.OutcomeLabel(outcome)
	if c.metrics != nil {
		c.metrics.ObserveAttempt(label, time.Since(start).Seconds())
	}
	span.SetAttributes(tracer.String(tracer.AttrOutcome, label))
	if fail := failure.FromOutcome(outcome); fail != nil {
		span.End(fail)
	} else {
		span.End(nil)
	}
	return outcome, true
}

func (r Resolution) fatal(err *failure.Error) (Resolution, error) {
	r.State = StateFatal
	return r, err
}

func (r Resolution) exhausted(last *failure.Error) (Resolution, error) {
	r.State = StateExhausted
	return r, failure.TooManyRetryAttempts(r.Attempts, last)
}

func payloadFailure(err error) *failure.Error {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Kind == failure.KindPayloadConstruction {
		return fe
	}
	return failure.New(failure.KindPayloadConstruction, catalog.FailedToPrepareDcsPayload, "build request", err)
}

func cancelled(err error) *failure.Error {
	return failure.New(failure.KindCancelled, catalog.CheckCancelled, "check cancelled", err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
