package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitcheck/internal/drivingpermit/models"
	dErrors "permitcheck/pkg/domain-errors"
	"permitcheck/pkg/testutil"
)

func TestValidate_CompleteSubmission(t *testing.T) {
	assert.NoError(t, Validate(testutil.NewSubmissionBuilder().Build()))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	sub := testutil.NewSubmissionBuilder().
		WithLicenceNumber("").
		WithDateOfBirth("08/07/1965").
		Build()

	err := Validate(sub)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, []string{"drivingLicenceNumber", "dateOfBirth"}, Fields(err))
	assert.Contains(t, err.Error(), "drivingLicenceNumber is required")
	assert.Contains(t, err.Error(), "dateOfBirth must be a date in the form 2006-01-02")
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name string
		sub  models.PermitSubmission
		want string
	}{
		{"blank surname", testutil.NewSubmissionBuilder().WithName("   ", "KENNETH").Build(), "surname must not be blank"},
		{"no forenames", testutil.NewSubmissionBuilder().WithName("DECERQUEIRA").Build(), "forenames is required"},
		{"blank forename", testutil.NewSubmissionBuilder().WithName("DECERQUEIRA", "KENNETH", " ").Build(), "forenames[1] must not be blank"},
		{"long postcode", testutil.NewSubmissionBuilder().WithPostcode("BA2 5AA 12345").Build(), "postcode must be at most 10"},
		{"optional issue date malformed", testutil.NewSubmissionBuilder().WithIssueDate("2018-13-40").Build(), "issueDate must be a date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_OptionalFieldsMayBeEmpty(t *testing.T) {
	sub := testutil.NewSubmissionBuilder().WithIssueDate("").WithIssueNumber("").Build()
	assert.NoError(t, Validate(sub))
}

func TestErrorMessage_ForeignError(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(assert.AnError))
	assert.Nil(t, Fields(assert.AnError))
}
