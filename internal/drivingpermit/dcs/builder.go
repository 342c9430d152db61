package dcs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/models"
)

// BuilderConfig configures a request builder.
type BuilderConfig struct {
	Endpoint string
	Keys     SealKeys

	// Clock and NewID default to time.Now and uuid.NewString.
	Clock func() time.Time
	NewID func() string
}

// Builder turns a permit submission into a sealed check request.
// It holds no per-request state and is safe for concurrent use.
type Builder struct {
	endpoint string
	keys     SealKeys
	clock    func() time.Time
	newID    func() string
}

// NewBuilder creates a request builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Builder{
		endpoint: cfg.Endpoint,
		keys:     cfg.Keys,
		clock:    cfg.Clock,
		newID:    cfg.NewID,
	}
}

// Build seals the submission for one attempt. Every call gets a new request ID;
// the correlation ID ties the attempts of one check together.
//
// Errors are always *failure.Error of KindPayloadConstruction.
func (b *Builder) Build(correlationID string, s models.PermitSubmission) (models.VerificationRequest, error) {
	if missing := s.MissingFields(); len(missing) > 0 {
		return models.VerificationRequest{}, failure.New(
			failure.KindPayloadConstruction,
			catalog.FailedToPrepareDcsPayload,
			"missing mandatory fields: "+strings.Join(missing, ", "),
			nil,
		)
	}
	if err := checkDates(s); err != nil {
		return models.VerificationRequest{}, failure.New(
			failure.KindPayloadConstruction, catalog.FailedToPrepareDcsPayload, "invalid date", err)
	}

	requestID := b.newID()
	body, err := json.Marshal(WireRequest{
		CorrelationID: correlationID,
		RequestID:     requestID,
		Timestamp:     b.clock().UTC().Format(time.RFC3339),
		Surname:       s.Surname,
		Forenames:     s.Forenames,
		DateOfBirth:   s.DateOfBirth,
		IssueDate:     s.IssueDate,
		ExpiryDate:    s.ExpiryDate,
		IssueNumber:   s.IssueNumber,
		IssuerID:      s.LicenceIssuer,
		LicenceNumber: s.LicenceNumber,
		Postcode:      s.Postcode,
	})
	if err != nil {
		return models.VerificationRequest{}, failure.New(
			failure.KindPayloadConstruction, catalog.FailedToPrepareDcsPayload, "encode request", err)
	}

	sealed, err := Seal(body, b.keys)
	if err != nil {
		return models.VerificationRequest{}, failure.New(
			failure.KindPayloadConstruction, catalog.FailedToPrepareDcsPayload, "seal request", err)
	}

	return models.VerificationRequest{
		Body:          sealed,
		Endpoint:      b.endpoint,
		ContentType:   ContentType,
		CorrelationID: correlationID,
		RequestID:     requestID,
	}, nil
}

func checkDates(s models.PermitSubmission) error {
	fields := [][2]string{
		{"dateOfBirth", s.DateOfBirth},
		{"expiryDate", s.ExpiryDate},
		{"issueDate", s.IssueDate},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if _, err := models.ParseDate(f[0], f[1]); err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}
	return nil
}
