// Package service orchestrates the driving permit check and the issuance of
// the resulting verifiable credential.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"permitcheck/internal/audit"
	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/credential"
	"permitcheck/internal/drivingpermit/evidence"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
	"permitcheck/internal/drivingpermit/retry"
	"permitcheck/internal/drivingpermit/scoring"
	"permitcheck/internal/drivingpermit/store"
	"permitcheck/internal/platform/tracer"
	dErrors "permitcheck/pkg/domain-errors"
	"permitcheck/pkg/platform/middleware/requesttime"
	"permitcheck/pkg/requestcontext"
	"permitcheck/pkg/validation"
)

// Verifier runs the bounded exchange with the document checking service.
type Verifier interface {
	Run(ctx context.Context, sub models.PermitSubmission) (retry.Resolution, error)
}

// Store keeps the check record between the check and the issuance.
type Store interface {
	Save(ctx context.Context, sessionID string, record models.CheckRecord) error
	Find(ctx context.Context, sessionID string) (*models.CheckRecord, error)
}

// Signer turns a claims-set into a compact JWS.
type Signer interface {
	Sign(ctx context.Context, claims jwt.Claims) (string, error)
}

// AuditPublisher emits audit events for the check lifecycle.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IssuedCredential is a signed credential together with the claims it carries.
type IssuedCredential struct {
	Token  string
	Claims credential.Claims
}

// Option configures the service.
type Option func(*Service)

// Service runs checks and issues credentials. It is safe for concurrent use.
type Service struct {
	verifier  Verifier
	store     Store
	assembler *credential.Assembler
	signer    Signer
	policy    scoring.Policy

	auditor AuditPublisher
	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

// NewService creates the service with its required dependencies.
func NewService(verifier Verifier, checks Store, assembler *credential.Assembler, signer Signer, opts ...Option) *Service {
	svc := &Service{
		verifier:  verifier,
		store:     checks,
		assembler: assembler,
		signer:    signer,
		policy:    scoring.DefaultPolicy(),
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithAuditor configures an audit publisher for the service.
func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPolicy replaces the default scoring policy.
func WithPolicy(p scoring.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// Check verifies the submission and keeps the scored result for the session.
// A permit the checking service does not match is still a completed check:
// the result carries Valid=false and a contra-indicator.
func (s *Service) Check(ctx context.Context, sessionID string, sub models.PermitSubmission) (_ *models.CheckResult, err error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeMissingSession, catalog.MissingSessionIDHeader.Message())
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanCheck,
		tracer.String(tracer.AttrSessionID, sessionID),
		tracer.String(tracer.AttrLicenceHash, tracer.HashIdentifier(sub.LicenceNumber)),
	)
	defer func() { span.End(err) }()

	result, err := s.verify(ctx, sessionID, sub)
	if err != nil {
		return nil, err
	}
	identity, err := models.IdentityFromSubmission(sub)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}

	if err := s.store.Save(ctx, sessionID, models.CheckRecord{Result: result, Identity: identity}); err != nil {
		s.logger.ErrorContext(ctx, "failed to store check result",
			"error", err,
			"session_id", sessionID,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store check result")
	}

	span.SetAttributes(tracer.Bool(tracer.AttrValid, result.Valid))
	return &result, nil
}

// Issue builds, signs and returns the credential for a session whose check
// has completed. The identity is the one declared when the check ran.
func (s *Service) Issue(ctx context.Context, sessionID, subject string) (_ *IssuedCredential, err error) {
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeMissingSession, catalog.MissingSessionIDHeader.Message())
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrSessionID, sessionID))
	defer func() { span.End(err) }()

	record, err := s.store.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, catalog.SessionNotFound.Message())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load check result")
	}
	return s.issue(ctx, sessionID, subject, *record)
}

// CheckAndIssue runs a check and, when it completes, issues the credential
// for subject using the supplied identity. Nothing is kept between calls.
func (s *Service) CheckAndIssue(
	ctx context.Context,
	subject string,
	sub models.PermitSubmission,
	identity models.PersonIdentity,
) (_ *IssuedCredential, err error) {
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	sessionID := requestcontext.SessionID(ctx)
	ctx, span := s.tracer.Start(ctx, tracer.SpanCheckAndIssue,
		tracer.String(tracer.AttrLicenceHash, tracer.HashIdentifier(sub.LicenceNumber)),
	)
	defer func() { span.End(err) }()

	result, err := s.verify(ctx, sessionID, sub)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, sessionID, subject, models.CheckRecord{Result: result, Identity: identity})
}

// verify validates the submission, runs the retry controller and scores a
// successful exchange.
func (s *Service) verify(ctx context.Context, sessionID string, sub models.PermitSubmission) (models.CheckResult, error) {
	if err := validation.Validate(sub); err != nil {
		return models.CheckResult{}, err
	}

	s.emit(ctx, audit.Event{
		Action:    string(audit.EventRequestSent),
		SessionID: sessionID,
	})

	res, err := s.verifier.Run(ctx, sub)
	if res.Outcome != nil {
		event := audit.Event{
			Action:        string(audit.EventResponseReceived),
			SessionID:     sessionID,
			CorrelationID: res.CorrelationID,
			RequestID:     res.RequestID,
			Outcome:       string(res.State),
			Attempts:      res.Attempts,
		}
		if err != nil {
			event.Reason = string(failure.KindOf(err))
		}
		s.emit(ctx, event)
	}
	if err != nil {
		s.recordFailure(err)
		return models.CheckResult{}, err
	}

	success, ok := res.Outcome.(models.Success)
	if !ok {
		err := failure.New(failure.KindInternal, catalog.ErrorContactingDcs,
			fmt.Sprintf("resolution %s carried %T", res.State, res.Outcome), nil)
		s.recordFailure(err)
		return models.CheckResult{}, err
	}

	result := s.policy.Score(success.Match, sub, res.Attempts, res.RequestID, requesttime.Now(ctx))
	if s.metrics != nil {
		s.metrics.IncrementChecks(result.Valid)
	}
	s.logger.InfoContext(ctx, "driving permit check completed",
		"session_id", sessionID,
		"correlation_id", res.CorrelationID,
		"attempts", res.Attempts,
		"valid", result.Valid,
	)
	return result, nil
}

func (s *Service) issue(ctx context.Context, sessionID, subject string, record models.CheckRecord) (*IssuedCredential, error) {
	ev, err := evidence.Calculate(record.Result)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	claims, err := s.assembler.Assemble(subject, ev, record.Identity, record.Result.DrivingPermit, requesttime.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assemble credential")
	}

	token, err := s.sign(ctx, claims)
	if err != nil {
		s.recordFailure(err)
		s.logger.ErrorContext(ctx, "failed to sign credential",
			"error", err,
			"session_id", sessionID,
		)
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:        string(audit.EventVCIssued),
		SessionID:     sessionID,
		Subject:       subject,
		TransactionID: record.Result.TransactionID,
		CorrelationID: record.Result.CorrelationID,
		Outcome:       issuedOutcome(ev),
	})
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued()
	}
	return &IssuedCredential{Token: token, Claims: claims}, nil
}

func (s *Service) sign(ctx context.Context, claims credential.Claims) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSign)
	defer func() { span.End(err) }()

	token, err := s.signer.Sign(ctx, claims)
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) {
			return "", err
		}
		return "", failure.New(failure.KindSigning, catalog.FailedToSignCredential, "signer failed", err)
	}
	return token, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"session_id", event.SessionID,
		)
	}
}

func (s *Service) recordFailure(err error) {
	if s.metrics != nil {
		s.metrics.IncrementFailure(string(failure.KindOf(err)))
	}
}

func issuedOutcome(ev evidence.Evidence) string {
	if ev.Failed() {
		return "failed_check"
	}
	return "passed_check"
}
