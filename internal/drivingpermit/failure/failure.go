// Package failure defines the typed failures surfaced by the driving permit
// check and credential issuance.
//
// Every failure carries a Kind that decides retry handling, a catalog
// Response for caller-facing messaging, and the upstream status class when the
// failure was driven by a checking service answer.
package failure

import (
	"errors"
	"fmt"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/models"
)

// Kind is the normalized failure taxonomy.
type Kind string

const (
	// KindPayloadConstruction: the submission could not be turned into a request.
	KindPayloadConstruction Kind = "payload_construction"

	// KindResponseIntegrity: a 2xx body failed signature, decryption or parsing,
	// or answered a different request.
	KindResponseIntegrity Kind = "response_integrity"

	// KindClientRejection: redirection, 4xx, unhandled status or a DCS error body.
	KindClientRejection Kind = "client_rejection"

	// KindServiceUnavailable: 5xx or transport failure. The only retryable kind.
	KindServiceUnavailable Kind = "service_unavailable"

	// KindTooManyRetryAttempts: the attempt budget ran out on retryable failures.
	KindTooManyRetryAttempts Kind = "too_many_retry_attempts"

	// KindSigning: the external signer failed; nothing was issued.
	KindSigning Kind = "signing_failure"

	// KindEvidenceConstruction: the stored check result lacks mandatory fields.
	KindEvidenceConstruction Kind = "evidence_construction"

	// KindCancelled: the caller went away before a terminal outcome.
	KindCancelled Kind = "cancelled"

	// KindInternal is reported for errors that are not *Error.
	KindInternal Kind = "internal"
)

// Error is a failure with normalized categorization.
type Error struct {
	Kind        Kind
	Response    catalog.Response
	StatusClass models.StatusClass
	StatusCode  int
	Reason      string
	Err         error
	Retryable   bool // set from Kind by New
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Response.Message())
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a failure; Retryable is true only for KindServiceUnavailable.
func New(kind Kind, resp catalog.Response, reason string, err error) *Error {
	return &Error{
		Kind:      kind,
		Response:  resp,
		Reason:    reason,
		Err:       err,
		Retryable: kind == KindServiceUnavailable,
	}
}

// FromOutcome converts a non-success exchange outcome into a failure.
// It returns nil for Success.
func FromOutcome(o models.Outcome) *Error {
	switch v := o.(type) {
	case models.Success:
		return nil
	case models.ClientError:
		var e *Error
		switch v.Class {
		case models.ClassIntegrity:
			e = New(KindResponseIntegrity, catalog.FailedToUnwrapDcsResponse, v.Message, v.Cause)
		case models.ClassRejected:
			e = New(KindClientRejection, catalog.DcsReturnedAnError, v.Message, v.Cause)
		case models.ClassRedirection:
			e = New(KindClientRejection, catalog.DcsErrorHTTP30x, v.Message, v.Cause)
		case models.ClassClient:
			e = New(KindClientRejection, catalog.DcsErrorHTTP40x, v.Message, v.Cause)
		default:
			e = New(KindClientRejection, catalog.DcsErrorHTTPX, v.Message, v.Cause)
		}
		e.StatusClass = v.Class
		e.StatusCode = v.StatusCode
		return e
	case models.ServerError:
		e := New(KindServiceUnavailable, catalog.DcsErrorHTTP50x, v.Message, nil)
		e.StatusCode = v.StatusCode
		return e
	case models.TransportFailure:
		return New(KindServiceUnavailable, catalog.ErrorContactingDcs, "transport failure", v.Cause)
	default:
		return New(KindInternal, catalog.ErrorContactingDcs, fmt.Sprintf("unknown outcome %T", o), nil)
	}
}

// TooManyRetryAttempts wraps the last retryable failure after the budget is spent.
func TooManyRetryAttempts(attempts int, last error) *Error {
	e := New(KindTooManyRetryAttempts, catalog.TooManyRetryAttempts,
		fmt.Sprintf("gave up after %d attempts", attempts), last)
	var prev *Error
	if errors.As(last, &prev) {
		e.StatusClass = prev.StatusClass
		e.StatusCode = prev.StatusCode
	}
	return e
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// KindOf extracts the failure kind, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
