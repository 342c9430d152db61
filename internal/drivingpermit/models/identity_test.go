package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() PermitSubmission {
	return PermitSubmission{
		LicenceNumber: "DECER607085K99AE",
		Surname:       "DECERQUEIRA",
		Forenames:     []string{"KENNETH", "JOHN"},
		Postcode:      "BA2 5AA",
		DateOfBirth:   "1965-07-08",
		IssueDate:     "2018-04-19",
		ExpiryDate:    "2042-10-01",
		IssueNumber:   "23",
		LicenceIssuer: "DVLA",
	}
}

func TestIdentityFromSubmission(t *testing.T) {
	identity, err := IdentityFromSubmission(validSubmission())
	require.NoError(t, err)

	require.Len(t, identity.Names, 1)
	assert.Equal(t, []NamePart{
		{Type: GivenName, Value: "KENNETH"},
		{Type: GivenName, Value: "JOHN"},
		{Type: FamilyName, Value: "DECERQUEIRA"},
	}, identity.Names[0].NameParts)

	assert.Equal(t, []Address{{PostalCode: "BA2 5AA"}}, identity.Addresses)
	require.Len(t, identity.BirthDates, 1)
	assert.Equal(t, time.Date(1965, 7, 8, 0, 0, 0, 0, time.UTC), identity.BirthDates[0].Value)
}

func TestIdentityFromSubmission_SplitsMultiWordForename(t *testing.T) {
	sub := validSubmission()
	sub.Forenames = []string{"MARY  ANN"}

	identity, err := IdentityFromSubmission(sub)
	require.NoError(t, err)
	assert.Equal(t, "MARY", identity.Names[0].NameParts[0].Value)
	assert.Equal(t, "ANN", identity.Names[0].NameParts[1].Value)
}

func TestIdentityFromSubmission_RejectsBadBirthDate(t *testing.T) {
	sub := validSubmission()
	sub.DateOfBirth = "08/07/1965"

	_, err := IdentityFromSubmission(sub)
	assert.ErrorContains(t, err, "dateOfBirth")
}

func TestMissingFields(t *testing.T) {
	assert.Empty(t, validSubmission().MissingFields())

	sub := validSubmission()
	sub.Surname = ""
	sub.Forenames = nil
	sub.IssueDate = ""
	assert.Equal(t, []string{"surname", "forenames"}, sub.MissingFields())
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", OutcomeLabel(Success{}))
	assert.Equal(t, "client_error_client", OutcomeLabel(ClientError{Class: ClassClient}))
	assert.Equal(t, "server_error", OutcomeLabel(ServerError{StatusCode: 503}))
	assert.Equal(t, "transport_failure", OutcomeLabel(TransportFailure{}))
	assert.Equal(t, "none", OutcomeLabel(nil))
}

func TestBirthDateJSON(t *testing.T) {
	t.Run("calendar date", func(t *testing.T) {
		var identity PersonIdentity
		require.NoError(t, json.Unmarshal([]byte(`{"birthDates":[{"value":"1990-01-02"}]}`), &identity))
		require.Len(t, identity.BirthDates, 1)
		assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), identity.BirthDates[0].Value)

		out, err := json.Marshal(identity.BirthDates[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":"1990-01-02"}`, string(out))
	})

	t.Run("timestamp keeps its calendar date", func(t *testing.T) {
		var b BirthDate
		require.NoError(t, json.Unmarshal([]byte(`{"value":"1990-01-02T23:30:00-05:00"}`), &b))
		assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), b.Value)
	})

	t.Run("missing value is the zero date", func(t *testing.T) {
		for _, raw := range []string{`{}`, `{"value":""}`} {
			var b BirthDate
			require.NoError(t, json.Unmarshal([]byte(raw), &b), raw)
			assert.True(t, b.Value.IsZero(), raw)
		}

		out, err := json.Marshal(BirthDate{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":""}`, string(out))
	})

	t.Run("rejects other formats", func(t *testing.T) {
		for _, raw := range []string{`{"value":"02/01/1990"}`, `{"value":19900102}`, `{"value":"1990-01-02","extra":1}`} {
			var b BirthDate
			assert.Error(t, json.Unmarshal([]byte(raw), &b), raw)
		}
	})
}
