package dcstest

import (
	"permitcheck/internal/drivingpermit/models"
	"permitcheck/pkg/testutil"
)

// Submission returns a complete permit submission.
func Submission() models.PermitSubmission {
	return testutil.NewSubmissionBuilder().Build()
}
