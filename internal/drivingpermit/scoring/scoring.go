// Package scoring turns a checking service match into the scored check
// result kept between the check and credential issuance.
package scoring

import (
	"time"

	"permitcheck/internal/drivingpermit/models"
)

const (
	CheckMethodData         = "data"
	IdentityPolicyPublished = "published"

	// ContraIndicatorNoMatch is raised when the permit did not match the record.
	ContraIndicatorNoMatch = "D02"
)

// Policy holds the scores awarded for a permit check.
type Policy struct {
	StrengthScore        int
	ValidityScoreValid   int
	ValidityScoreInvalid int
	ActivityScoreValid   int
	CheckMethod          string
	IdentityCheckPolicy  string
	NoMatchIndicator     string
}

func DefaultPolicy() Policy {
	return Policy{
		StrengthScore:        3,
		ValidityScoreValid:   2,
		ValidityScoreInvalid: 0,
		ActivityScoreValid:   1,
		CheckMethod:          CheckMethodData,
		IdentityCheckPolicy:  IdentityPolicyPublished,
		NoMatchIndicator:     ContraIndicatorNoMatch,
	}
}

// Score builds the check result for a successful exchange. requestID is used
// as the transaction ID when the match does not echo one.
func (p Policy) Score(match models.Match, sub models.PermitSubmission, attempts int, requestID string, now time.Time) models.CheckResult {
	result := models.CheckResult{
		TransactionID:       match.RequestID,
		CorrelationID:       match.CorrelationID,
		Valid:               match.Valid,
		AttemptCount:        attempts,
		StrengthScore:       p.StrengthScore,
		CheckMethod:         p.CheckMethod,
		IdentityCheckPolicy: p.IdentityCheckPolicy,
		ActivityFrom:        sub.IssueDate,
		DrivingPermit: models.DrivingPermit{
			DocumentNumber: sub.LicenceNumber,
			ExpiryDate:     sub.ExpiryDate,
			IssueDate:      sub.IssueDate,
			IssueNumber:    sub.IssueNumber,
			IssuedBy:       sub.LicenceIssuer,
		},
		CheckedAt: now.UTC(),
	}
	if result.TransactionID == "" {
		result.TransactionID = requestID
	}

	if match.Valid {
		result.ValidityScore = p.ValidityScoreValid
		result.ActivityHistoryScore = p.ActivityScoreValid
		return result
	}

	result.ValidityScore = p.ValidityScoreInvalid
	if p.NoMatchIndicator != "" {
		result.ContraIndicators = []string{p.NoMatchIndicator}
	}
	return result
}
