package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"permitcheck/internal/drivingpermit/models"
	dErrors "permitcheck/pkg/domain-errors"
)

// Forenames accepts either a single space separated string or an array.
type Forenames []string

func (f *Forenames) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = strings.Fields(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("forenames must be a string or an array of strings")
	}
	*f = many
	return nil
}

// CheckRequest is the permit form submitted by the holder.
type CheckRequest struct {
	LicenceNumber string    `json:"drivingLicenceNumber"`
	Surname       string    `json:"surname"`
	Forenames     Forenames `json:"forenames"`
	Postcode      string    `json:"postcode"`
	DateOfBirth   string    `json:"dateOfBirth"`
	IssueDate     string    `json:"issueDate,omitempty"`
	ExpiryDate    string    `json:"expiryDate"`
	IssueNumber   string    `json:"issueNumber,omitempty"`
	LicenceIssuer string    `json:"licenceIssuer"`
}

// Normalize trims whitespace and upper-cases the licence number and postcode.
func (r *CheckRequest) Normalize() {
	if r == nil {
		return
	}
	r.LicenceNumber = strings.ToUpper(strings.TrimSpace(r.LicenceNumber))
	r.Surname = strings.TrimSpace(r.Surname)
	r.Postcode = strings.ToUpper(strings.TrimSpace(r.Postcode))
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.IssueDate = strings.TrimSpace(r.IssueDate)
	r.ExpiryDate = strings.TrimSpace(r.ExpiryDate)
	r.IssueNumber = strings.TrimSpace(r.IssueNumber)
	r.LicenceIssuer = strings.TrimSpace(r.LicenceIssuer)
	for i, name := range r.Forenames {
		r.Forenames[i] = strings.TrimSpace(name)
	}
}

// Submission converts the form into the value checked by the service.
// Field rules are enforced by the service.
func (r *CheckRequest) Submission() models.PermitSubmission {
	return models.PermitSubmission{
		LicenceNumber: r.LicenceNumber,
		Surname:       r.Surname,
		Forenames:     append([]string(nil), r.Forenames...),
		Postcode:      r.Postcode,
		DateOfBirth:   r.DateOfBirth,
		IssueDate:     r.IssueDate,
		ExpiryDate:    r.ExpiryDate,
		IssueNumber:   r.IssueNumber,
		LicenceIssuer: r.LicenceIssuer,
	}
}

// CredentialRequest names the subject of the credential.
type CredentialRequest struct {
	Subject string `json:"subject"`
}

func (r *CredentialRequest) Normalize() {
	if r != nil {
		r.Subject = strings.TrimSpace(r.Subject)
	}
}

func (r *CredentialRequest) Validate() error {
	if r == nil || r.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	return nil
}

// CheckAndIssueRequest carries a permit, the identity to attest and the subject.
type CheckAndIssueRequest struct {
	Subject  string                `json:"subject"`
	Permit   CheckRequest          `json:"permit"`
	Identity models.PersonIdentity `json:"identity"`
}

func (r *CheckAndIssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.Subject = strings.TrimSpace(r.Subject)
	r.Permit.Normalize()
}

func (r *CheckAndIssueRequest) Validate() error {
	if r == nil || r.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if len(r.Identity.Names) == 0 {
		return dErrors.New(dErrors.CodeValidation, "identity.names is required")
	}
	if len(r.Identity.BirthDates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "identity.birthDates is required")
	}
	for i, b := range r.Identity.BirthDates {
		if b.Value.IsZero() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("identity.birthDates[%d].value is required", i))
		}
	}
	return nil
}
