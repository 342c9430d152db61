package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Name part types.
const (
	GivenName  = "GivenName"
	FamilyName = "FamilyName"
)

// PersonIdentity is the normalized identity copied into the credential subject.
type PersonIdentity struct {
	Names      []Name      `json:"names"`
	Addresses  []Address   `json:"addresses"`
	BirthDates []BirthDate `json:"birthDates"`
}

type Name struct {
	NameParts []NamePart `json:"nameParts"`
}

type NamePart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Address follows the structured address shape used in identity credentials.
type Address struct {
	UPRN            string `json:"uprn,omitempty"`
	BuildingNumber  string `json:"buildingNumber,omitempty"`
	BuildingName    string `json:"buildingName,omitempty"`
	StreetName      string `json:"streetName,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	AddressCountry  string `json:"addressCountry,omitempty"`
	ValidFrom       string `json:"validFrom,omitempty"`
	ValidUntil      string `json:"validUntil,omitempty"`
}

// BirthDate is a calendar date. On the wire it is {"value":"2006-01-02"}.
type BirthDate struct {
	Value time.Time
}

type birthDateJSON struct {
	Value string `json:"value"`
}

// MarshalJSON writes Value in DateLayout. A zero date is written empty.
func (b BirthDate) MarshalJSON() ([]byte, error) {
	var out birthDateJSON
	if !b.Value.IsZero() {
		out.Value = b.Value.Format(DateLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a DateLayout date. RFC 3339 timestamps are accepted
// and cut to their calendar date. A missing or empty value leaves the zero date.
func (b *BirthDate) UnmarshalJSON(data []byte) error {
	var in birthDateJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return fmt.Errorf("birth date: %w", err)
	}
	if in.Value == "" {
		*b = BirthDate{}
		return nil
	}
	if t, err := time.Parse(DateLayout, in.Value); err == nil {
		b.Value = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, in.Value)
	if err != nil {
		return fmt.Errorf("birth date: %q is not a %s date", in.Value, DateLayout)
	}
	y, m, d := t.Date()
	b.Value = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return nil
}

// IdentityFromSubmission derives the identity a holder declared on the permit
// form: one name, the postcode as the only address, and the date of birth.
func IdentityFromSubmission(s PermitSubmission) (PersonIdentity, error) {
	dob, err := s.BirthDate()
	if err != nil {
		return PersonIdentity{}, err
	}

	parts := make([]NamePart, 0, len(s.Forenames)+1)
	for _, given := range s.Forenames {
		for _, token := range strings.Fields(given) {
			parts = append(parts, NamePart{Type: GivenName, Value: token})
		}
	}
	parts = append(parts, NamePart{Type: FamilyName, Value: s.Surname})

	return PersonIdentity{
		Names:      []Name{{NameParts: parts}},
		Addresses:  []Address{{PostalCode: s.Postcode}},
		BirthDates: []BirthDate{{Value: dob}},
	}, nil
}
