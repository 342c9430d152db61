package testutil

import (
	"time"

	"permitcheck/internal/drivingpermit/models"
)

// TestIDs provides fixed identifiers for deterministic test data.
var TestIDs = struct {
	SessionID1 string
	SessionID2 string
	Subject1   string
	Subject2   string
	TxnID1     string
}{
	SessionID1: "eeee0000-0000-0000-0000-000000000001",
	SessionID2: "eeee0000-0000-0000-0000-000000000002",
	Subject1:   "urn:uuid:11111111-1111-1111-1111-111111111111",
	Subject2:   "urn:uuid:22222222-2222-2222-2222-222222222222",
	TxnID1:     "txn-0001",
}

// SubmissionBuilder provides a fluent interface for building permit submissions.
type SubmissionBuilder struct {
	s models.PermitSubmission
}

// NewSubmissionBuilder starts from a complete, valid submission.
func NewSubmissionBuilder() *SubmissionBuilder {
	return &SubmissionBuilder{
		s: models.PermitSubmission{
			LicenceNumber: "DECER607085K99AE",
			Surname:       "DECERQUEIRA",
			Forenames:     []string{"KENNETH", "JOHN"},
			Postcode:      "BA2 5AA",
			DateOfBirth:   "1965-07-08",
			IssueDate:     "2018-04-19",
			ExpiryDate:    "2042-10-01",
			IssueNumber:   "23",
			LicenceIssuer: "DVLA",
		},
	}
}

func (b *SubmissionBuilder) WithLicenceNumber(v string) *SubmissionBuilder {
	b.s.LicenceNumber = v
	return b
}

func (b *SubmissionBuilder) WithName(surname string, forenames ...string) *SubmissionBuilder {
	b.s.Surname = surname
	b.s.Forenames = forenames
	return b
}

func (b *SubmissionBuilder) WithPostcode(v string) *SubmissionBuilder {
	b.s.Postcode = v
	return b
}

func (b *SubmissionBuilder) WithDateOfBirth(v string) *SubmissionBuilder {
	b.s.DateOfBirth = v
	return b
}

func (b *SubmissionBuilder) WithIssueDate(v string) *SubmissionBuilder {
	b.s.IssueDate = v
	return b
}

func (b *SubmissionBuilder) WithExpiryDate(v string) *SubmissionBuilder {
	b.s.ExpiryDate = v
	return b
}

func (b *SubmissionBuilder) WithIssueNumber(v string) *SubmissionBuilder {
	b.s.IssueNumber = v
	return b
}

func (b *SubmissionBuilder) Build() models.PermitSubmission {
	out := b.s
	out.Forenames = append([]string(nil), b.s.Forenames...)
	return out
}

// CheckResultBuilder provides a fluent interface for building scored results.
type CheckResultBuilder struct {
	r models.CheckResult
}

// NewCheckResultBuilder starts from a valid check with the default scores.
func NewCheckResultBuilder() *CheckResultBuilder {
	return &CheckResultBuilder{
		r: models.CheckResult{
			TransactionID:        TestIDs.TxnID1,
			CorrelationID:        "corr-0001",
			Valid:                true,
			AttemptCount:         1,
			ActivityHistoryScore: 1,
			StrengthScore:        3,
			ValidityScore:        2,
			CheckMethod:          "data",
			IdentityCheckPolicy:  "published",
			ActivityFrom:         "2018-04-19",
			DrivingPermit: models.DrivingPermit{
				DocumentNumber: "DECER607085K99AE",
				ExpiryDate:     "2042-10-01",
				IssueDate:      "2018-04-19",
				IssueNumber:    "23",
				IssuedBy:       "DVLA",
			},
			CheckedAt: time.Date(2026, 3, 1, 10, 30, 15, 0, time.UTC),
		},
	}
}

func (b *CheckResultBuilder) WithTransactionID(v string) *CheckResultBuilder {
	b.r.TransactionID = v
	return b
}

func (b *CheckResultBuilder) WithCheckMethod(v string) *CheckResultBuilder {
	b.r.CheckMethod = v
	return b
}

// Invalid marks the result as a no-match with the given contra-indicators.
func (b *CheckResultBuilder) Invalid(ci ...string) *CheckResultBuilder {
	b.r.Valid = false
	b.r.ValidityScore = 0
	b.r.ActivityHistoryScore = 0
	b.r.ContraIndicators = ci
	return b
}

func (b *CheckResultBuilder) Build() models.CheckResult {
	out := b.r
	out.ContraIndicators = append([]string(nil), b.r.ContraIndicators...)
	if len(out.ContraIndicators) == 0 {
		out.ContraIndicators = nil
	}
	return out
}

// CheckRecord pairs the result with the identity derived from the default submission.
func (b *CheckResultBuilder) Record() models.CheckRecord {
	identity, err := models.IdentityFromSubmission(NewSubmissionBuilder().Build())
	if err != nil {
		panic(err)
	}
	return models.CheckRecord{Result: b.Build(), Identity: identity}
}
