// Package evidence derives the identity-check evidence record from a check
// result.
package evidence

import (
	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/models"
)

// TypeIdentityCheck is the only evidence type issued.
const TypeIdentityCheck = "IdentityCheck"

// CheckDetail describes how the check was carried out.
type CheckDetail struct {
	CheckMethod         string `json:"checkMethod"`
	IdentityCheckPolicy string `json:"identityCheckPolicy,omitempty"`
	ActivityFrom        string `json:"activityFrom,omitempty"`
}

// Evidence is the singleton evidence entry of a driving permit credential.
// Exactly one of CheckDetails and FailedCheckDetails is set.
type Evidence struct {
	Type                 string        `json:"type"`
	Txn                  string        `json:"txn"`
	ActivityHistoryScore int           `json:"activityHistoryScore"`
	StrengthScore        int           `json:"strengthScore"`
	ValidityScore        int           `json:"validityScore"`
	CheckDetails         []CheckDetail `json:"checkDetails,omitempty"`
	FailedCheckDetails   []CheckDetail `json:"failedCheckDetails,omitempty"`
	CI                   []string      `json:"ci,omitempty"`
}

// Failed reports whether the evidence carries contra-indicators.
func (e Evidence) Failed() bool {
	return len(e.FailedCheckDetails) > 0
}

// Calculate builds the evidence for a check result. Any contra-indicator
// routes the check details to FailedCheckDetails.
func Calculate(r models.CheckResult) (Evidence, error) {
	switch {
	case r.TransactionID == "":
		return Evidence{}, failure.New(failure.KindEvidenceConstruction, catalog.FailedToBuildEvidence,
			"check result has no transaction id", nil)
	case r.CheckMethod == "":
		return Evidence{}, failure.New(failure.KindEvidenceConstruction, catalog.FailedToBuildEvidence,
			"check result has no check method", nil)
	}

	e := Evidence{
		Type:                 TypeIdentityCheck,
		Txn:                  r.TransactionID,
		ActivityHistoryScore: r.ActivityHistoryScore,
		StrengthScore:        r.StrengthScore,
		ValidityScore:        r.ValidityScore,
	}
	details := []CheckDetail{{
		CheckMethod:         r.CheckMethod,
		IdentityCheckPolicy: r.IdentityCheckPolicy,
		ActivityFrom:        r.ActivityFrom,
	}}

	if len(r.ContraIndicators) > 0 {
		e.CI = append([]string(nil), r.ContraIndicators...)
		e.FailedCheckDetails = details
		return e, nil
	}
	e.CheckDetails = details
	return e, nil
}
