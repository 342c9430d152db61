package models

import "time"

// DrivingPermit holds the permit attributes attested in the credential.
type DrivingPermit struct {
	DocumentNumber string `json:"documentNumber"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
	IssueDate      string `json:"issueDate,omitempty"`
	IssueNumber    string `json:"issueNumber,omitempty"`
	IssuedBy       string `json:"issuedBy,omitempty"`
}

// CheckResult is the scored outcome of a completed verification. It is kept
// per session between the check and the credential issuance.
type CheckResult struct {
	TransactionID        string        `json:"transactionId"`
	CorrelationID        string        `json:"correlationId"`
	Valid                bool          `json:"valid"`
	AttemptCount         int           `json:"attemptCount"`
	ActivityHistoryScore int           `json:"activityHistoryScore"`
	StrengthScore        int           `json:"strengthScore"`
	ValidityScore        int           `json:"validityScore"`
	CheckMethod          string        `json:"checkMethod"`
	IdentityCheckPolicy  string        `json:"identityCheckPolicy"`
	ActivityFrom         string        `json:"activityFrom,omitempty"`
	ContraIndicators     []string      `json:"contraIndicators,omitempty"`
	DrivingPermit        DrivingPermit `json:"drivingPermit"`
	CheckedAt            time.Time     `json:"checkedAt"`
}

// CheckRecord is what is kept per session: the scored result and the identity
// the holder declared when submitting the permit.
type CheckRecord struct {
	Result   CheckResult    `json:"result"`
	Identity PersonIdentity `json:"identity"`
}
