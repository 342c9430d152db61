package handler

import (
	"errors"
	"net/http"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/models"
	dErrors "permitcheck/pkg/domain-errors"
	"permitcheck/pkg/platform/httputil"
)

var errMissingSession = dErrors.New(dErrors.CodeMissingSession, catalog.MissingSessionIDHeader.Message())

// CheckResponse is the outcome of a completed check.
type CheckResponse struct {
	Valid            bool     `json:"valid"`
	TransactionID    string   `json:"transactionId"`
	AttemptCount     int      `json:"attemptCount"`
	ContraIndicators []string `json:"contraIndicators,omitempty"`
}

func toCheckResponse(r *models.CheckResult) CheckResponse {
	return CheckResponse{
		Valid:            r.Valid,
		TransactionID:    r.TransactionID,
		AttemptCount:     r.AttemptCount,
		ContraIndicators: r.ContraIndicators,
	}
}

// writeError renders a catalog response when the error maps to one, and a
// generic domain error body otherwise.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp, ok := errorResponse(err)
	if !ok {
		httputil.WriteError(w, err)
		return
	}
	if status >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "driving permit request failed",
			"path", r.URL.Path,
			"status", status,
			"code", resp.Code(),
		)
	}
	httputil.WriteJSON(w, status, resp)
}

func errorResponse(err error) (int, catalog.Response, bool) {
	var fe *failure.Error
	if errors.As(err, &fe) && !fe.Response.IsZero() {
		return statusForKind(fe.Kind), fe.Response, true
	}

	code, ok := dErrors.CodeOf(err)
	if !ok {
		return 0, catalog.Response{}, false
	}
	switch code {
	case dErrors.CodeMissingSession:
		return http.StatusBadRequest, catalog.MissingSessionIDHeader, true
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest, catalog.FailedToParseForm, true
	case dErrors.CodeValidation:
		return http.StatusBadRequest, catalog.FormDataFailedValidation, true
	case dErrors.CodeNotFound:
		return http.StatusNotFound, catalog.SessionNotFound, true
	default:
		return 0, catalog.Response{}, false
	}
}

func statusForKind(kind failure.Kind) int {
	switch kind {
	case failure.KindResponseIntegrity, failure.KindClientRejection:
		return http.StatusBadGateway
	case failure.KindServiceUnavailable, failure.KindTooManyRetryAttempts:
		return http.StatusServiceUnavailable
	case failure.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
