// Package handler exposes the driving permit check and credential issuance
// over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"permitcheck/internal/drivingpermit/models"
	"permitcheck/internal/drivingpermit/service"
	"permitcheck/pkg/platform/httputil"
	"permitcheck/pkg/requestcontext"
)

// UserIDHeader optionally carries the credential subject.
const UserIDHeader = "user-id"

// ContentTypeJWT is the media type of an issued credential.
const ContentTypeJWT = "application/jwt"

// Service defines the check and issuance operations used by the handler.
type Service interface {
	Check(ctx context.Context, sessionID string, sub models.PermitSubmission) (*models.CheckResult, error)
	Issue(ctx context.Context, sessionID, subject string) (*service.IssuedCredential, error)
	CheckAndIssue(ctx context.Context, subject string, sub models.PermitSubmission, identity models.PersonIdentity) (*service.IssuedCredential, error)
}

// Handler wires driving permit endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a driving permit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the driving permit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/driving-permit", func(r chi.Router) {
		r.Post("/check", h.HandleCheck)
		r.Post("/credential", h.HandleCredential)
		r.Post("/issue", h.HandleCheckAndIssue)
	})
}

// HandleCheck handles POST /driving-permit/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		h.writeError(w, r, errMissingSession)
		return
	}

	req, err := httputil.DecodeAndPrepare[CheckRequest](r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Check(ctx, sessionID, req.Submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "driving permit check failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(result))
}

// HandleCredential handles POST /driving-permit/credential. The subject is
// taken from the user-id header, or from the body when the header is absent.
func (h *Handler) HandleCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID := requestcontext.SessionID(ctx)
	if sessionID == "" {
		h.writeError(w, r, errMissingSession)
		return
	}

	subject := r.Header.Get(UserIDHeader)
	if subject == "" {
		req, err := httputil.DecodeAndPrepare[CredentialRequest](r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		subject = req.Subject
	}

	issued, err := h.service.Issue(ctx, sessionID, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue driving permit credential",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		h.writeError(w, r, err)
		return
	}

	writeJWT(w, issued.Token)
}

// HandleCheckAndIssue handles POST /driving-permit/issue: a check followed
// by issuance in one call, with the identity supplied by the caller.
func (h *Handler) HandleCheckAndIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := httputil.DecodeAndPrepare[CheckAndIssueRequest](r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	issued, err := h.service.CheckAndIssue(ctx, req.Subject, req.Permit.Submission(), req.Identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "driving permit check and issue failed",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(w, r, err)
		return
	}

	writeJWT(w, issued.Token)
}

func writeJWT(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", ContentTypeJWT)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(token)) //nolint:errcheck // headers already sent
}

var _ Service = (*service.Service)(nil)
