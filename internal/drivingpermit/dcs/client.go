package dcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"permitcheck/internal/drivingpermit/models"
	"permitcheck/internal/platform/tracer"
	"permitcheck/pkg/platform/circuit"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderRequestID     = "X-Request-Id"

	maxResponseBytes = 1 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the DCS HTTP client.
type ClientConfig struct {
	// HTTPClient defaults to an *http.Client with Timeout.
	HTTPClient HTTPDoer
	Timeout    time.Duration

	Breaker *circuit.Breaker
	Logger  *slog.Logger
	Tracer  tracer.Tracer
}

// Client performs one exchange per call. It does not retry.
type Client struct {
	client  HTTPDoer
	breaker *circuit.Breaker
	logger  *slog.Logger
	tracer  tracer.Tracer
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		client:  cfg.HTTPClient,
		breaker: cfg.Breaker,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	if c.breaker == nil {
		c.breaker = circuit.New("dcs")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	return c
}

// Submit posts req and returns whatever status and body came back.
// A non-nil error means no HTTP answer was obtained.
func (c *Client) Submit(ctx context.Context, req models.VerificationRequest) (*models.RawResponse, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanDCSSubmit,
		tracer.String(tracer.AttrCorrelationID, req.CorrelationID),
		tracer.String(tracer.AttrRequestID, req.RequestID),
	)

	resp, err := c.do(ctx, req)
	if err != nil {
		c.breaker.RecordFailure()
		span.End(err)
		return nil, err
	}

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	span.SetAttributes(tracer.Int(tracer.AttrStatusCode, resp.StatusCode))
	span.End(nil)
	return resp, nil
}

func (c *Client) do(ctx context.Context, req models.VerificationRequest) (*models.RawResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, strings.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentType
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", ContentType)
	httpReq.Header.Set(HeaderCorrelationID, req.CorrelationID)
	httpReq.Header.Set(HeaderRequestID, req.RequestID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.DebugContext(ctx, "dcs responded",
		"status", resp.StatusCode,
		"correlation_id", req.CorrelationID,
		"request_id", req.RequestID,
	)
	return &models.RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// Health reports an error while the circuit breaker is open.
func (c *Client) Health() error {
	return c.breaker.Health()
}
