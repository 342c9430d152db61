// Package models holds the value types shared by the driving permit check
// pipeline. Values are built once and passed by value; nothing here performs I/O.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in credentials.
const DateLayout = "2006-01-02"

// PermitSubmission is the driving permit record declared by the holder.
type PermitSubmission struct {
	LicenceNumber string   `json:"drivingLicenceNumber" validate:"required,notblank,max=32"`
	Surname       string   `json:"surname" validate:"required,notblank,max=100"`
	Forenames     []string `json:"forenames" validate:"required,min=1,dive,notblank"`
	Postcode      string   `json:"postcode" validate:"required,notblank,max=10"`
	DateOfBirth   string   `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	IssueDate     string   `json:"issueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate    string   `json:"expiryDate" validate:"required,datetime=2006-01-02"`
	IssueNumber   string   `json:"issueNumber,omitempty" validate:"omitempty,max=8"`
	LicenceIssuer string   `json:"licenceIssuer" validate:"required,notblank"`
}

// MissingFields lists the mandatory fields that are empty, using wire names.
func (s PermitSubmission) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if v == "" {
			missing = append(missing, name)
		}
	}
	check("drivingLicenceNumber", s.LicenceNumber)
	check("surname", s.Surname)
	if len(s.Forenames) == 0 {
		missing = append(missing, "forenames")
	}
	check("postcode", s.Postcode)
	check("dateOfBirth", s.DateOfBirth)
	check("expiryDate", s.ExpiryDate)
	check("licenceIssuer", s.LicenceIssuer)
	return missing
}

// BirthDate parses DateOfBirth.
func (s PermitSubmission) BirthDate() (time.Time, error) {
	return ParseDate("dateOfBirth", s.DateOfBirth)
}

// ParseDate parses a calendar date, naming the field on failure.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
