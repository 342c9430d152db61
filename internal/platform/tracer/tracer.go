// Package tracer provides a lightweight tracing abstraction.
//
// The interface keeps OpenTelemetry out of domain packages:
//   - NoopTracer for tests
//   - OTelTracer for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span. The returned context carries the span.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanCheck,
	//       tracer.String(tracer.AttrLicenceHash, tracer.HashIdentifier(licence)),
	//   )
	//   defer span.End(nil)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentifier returns a short SHA-256 prefix of a personal identifier
// (licence number) so traces can be correlated without carrying PII.
func HashIdentifier(v string) string {
	if v == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(v))
	return hex.EncodeToString(hash[:8])
}

// Span names.
const (
	SpanCheck         = "drivingpermit.check"
	SpanVerify        = "drivingpermit.verify"
	SpanAttempt       = "drivingpermit.verify.attempt"
	SpanDCSSubmit     = "dcs.submit"
	SpanIssue         = "drivingpermit.issue"
	SpanSign          = "drivingpermit.sign"
	SpanCheckAndIssue = "drivingpermit.check_and_issue"
)

// Attribute keys.
const (
	AttrLicenceHash   = "licence.hash"
	AttrCorrelationID = "dcs.correlation_id"
	AttrRequestID     = "dcs.request_id"
	AttrStatusCode    = "http.status_code"
	AttrAttempt       = "attempt"
	AttrAttempts      = "attempts"
	AttrOutcome       = "outcome"
	AttrState         = "state"
	AttrValid         = "valid"
	AttrSessionID     = "session_id"
)

// Event names.
const (
	EventAuditEmitted = "audit.emitted"
	EventBackoff      = "backoff"
)
