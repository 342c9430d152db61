package credential_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"permitcheck/internal/drivingpermit/credential"
	"permitcheck/internal/drivingpermit/evidence"
	"permitcheck/internal/drivingpermit/models"
)

type AssemblerSuite struct {
	suite.Suite
	assembler *credential.Assembler
	now       time.Time
	identity  models.PersonIdentity
	permit    models.DrivingPermit
	evidence  evidence.Evidence
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	var err error
	s.assembler, err = credential.NewAssembler(credential.Config{
		Issuer: "https://permitcheck.example",
		MaxTTL: 900 * time.Second,
		NewID:  func() string { return "jti-1" },
	})
	s.Require().NoError(err)

	s.now = time.Date(2026, 3, 1, 10, 30, 15, 987_000_000, time.UTC)
	s.identity = models.PersonIdentity{
		Names: []models.Name{{NameParts: []models.NamePart{
			{Type: models.GivenName, Value: "KENNETH"},
			{Type: models.FamilyName, Value: "DECERQUEIRA"},
		}}},
		Addresses:  []models.Address{{PostalCode: "BA2 5AA"}},
		BirthDates: []models.BirthDate{{Value: time.Date(1965, 7, 8, 0, 0, 0, 0, time.UTC)}},
	}
	s.permit = models.DrivingPermit{DocumentNumber: "ABC123", ExpiryDate: "2042-10-01", IssuedBy: "DVLA"}

	s.evidence, err = evidence.Calculate(models.CheckResult{
		TransactionID: "txn-1",
		StrengthScore: 3,
		ValidityScore: 2,
		CheckMethod:   "data",
	})
	s.Require().NoError(err)
}

func (s *AssemblerSuite) TestABC123Example() {
	claims, err := s.assembler.Assemble("urn:uuid:subject", s.evidence, s.identity, s.permit, s.now)
	s.Require().NoError(err)

	s.Equal(int64(900), claims.ExpiresAt.Unix()-claims.NotBefore.Unix())
	s.Require().Len(claims.VC.Evidence, 1)
	s.Len(claims.VC.Evidence[0].CheckDetails, 1)
	s.Nil(claims.VC.Evidence[0].FailedCheckDetails)
	s.Equal("ABC123", claims.VC.DrivingPermit[0].DocumentNumber)
}

func (s *AssemblerSuite) TestExpiryIsNotBeforePlusTTL() {
	for _, offset := range []time.Duration{0, time.Millisecond, 999 * time.Millisecond, 36 * time.Hour} {
		now := s.now.Add(offset)
		claims, err := s.assembler.Assemble("sub", s.evidence, s.identity, s.permit, now)
		s.Require().NoError(err)

		s.Equal(now.Truncate(time.Second).Unix(), claims.NotBefore.Unix())
		s.Equal(int64(900), claims.ExpiresAt.Unix()-claims.NotBefore.Unix())
	}
}

func (s *AssemblerSuite) TestRegisteredClaims() {
	claims, err := s.assembler.Assemble("urn:uuid:subject", s.evidence, s.identity, s.permit, s.now)
	s.Require().NoError(err)

	s.Equal("urn:uuid:subject", claims.Subject)
	s.Equal("https://permitcheck.example", claims.Issuer)
	s.Equal("jti-1", claims.ID)
	s.Nil(claims.IssuedAt)
}

func (s *AssemblerSuite) TestJSONShape() {
	claims, err := s.assembler.Assemble("sub", s.evidence, s.identity, s.permit, s.now)
	s.Require().NoError(err)

	raw, err := json.Marshal(claims)
	s.Require().NoError(err)
	s.JSONEq(`{
		"sub": "sub",
		"iss": "https://permitcheck.example",
		"nbf": 1772361015,
		"exp": 1772361915,
		"jti": "jti-1",
		"vc": {
			"type": ["VerifiableCredential", "DrivingPermitCredential"],
			"credentialSubject": {
				"address": [{"postalCode": "BA2 5AA"}],
				"name": [{"nameParts": [
					{"type": "GivenName", "value": "KENNETH"},
					{"type": "FamilyName", "value": "DECERQUEIRA"}
				]}],
				"birthDate": [{"value": "1965-07-08"}]
			},
			"drivingPermit": [{"documentNumber": "ABC123", "expiryDate": "2042-10-01", "issuedBy": "DVLA"}],
			"evidence": [{
				"type": "IdentityCheck",
				"txn": "txn-1",
				"activityHistoryScore": 0,
				"strengthScore": 3,
				"validityScore": 2,
				"checkDetails": [{"checkMethod": "data"}]
			}]
		}
	}`, string(raw))
}

func (s *AssemblerSuite) TestCopiesIdentity() {
	claims, err := s.assembler.Assemble("sub", s.evidence, s.identity, s.permit, s.now)
	s.Require().NoError(err)

	s.identity.Names[0].NameParts[0].Value = "CHANGED"
	s.identity.Addresses[0].PostalCode = "CHANGED"

	s.Equal("KENNETH", claims.VC.CredentialSubject.Name[0].NameParts[0].Value)
	s.Equal("BA2 5AA", claims.VC.CredentialSubject.Address[0].PostalCode)
}

func (s *AssemblerSuite) TestEmptyIdentityRendersEmptyArrays() {
	claims, err := s.assembler.Assemble("sub", s.evidence, models.PersonIdentity{}, s.permit, s.now)
	s.Require().NoError(err)

	raw, err := json.Marshal(claims.VC.CredentialSubject)
	s.Require().NoError(err)
	s.JSONEq(`{"address": [], "name": [], "birthDate": []}`, string(raw))
}

func (s *AssemblerSuite) TestRejectsMissingInputs() {
	_, err := s.assembler.Assemble("", s.evidence, s.identity, s.permit, s.now)
	s.ErrorIs(err, credential.ErrMissingSubject)

	_, err = s.assembler.Assemble("sub", s.evidence, s.identity, s.permit, time.Time{})
	s.ErrorIs(err, credential.ErrMissingIssuedAt)
}

func (s *AssemblerSuite) TestNewAssemblerValidation() {
	_, err := credential.NewAssembler(credential.Config{MaxTTL: time.Minute})
	s.ErrorIs(err, credential.ErrMissingIssuer)

	_, err = credential.NewAssembler(credential.Config{Issuer: "iss"})
	s.ErrorIs(err, credential.ErrInvalidTTL)

	a, err := credential.NewAssembler(credential.Config{Issuer: "iss", MaxTTL: time.Minute})
	s.Require().NoError(err)
	s.Equal(time.Minute, a.MaxTTL())
}
