// Package catalog is the closed set of numbered error responses returned to
// callers of the driving permit check. Codes are stable and must not be reused.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Response is one catalog entry. The zero value is not a valid entry.
type Response struct {
	code    int
	message string
}

func (r Response) Code() int       { return r.code }
func (r Response) Message() string { return r.message }
func (r Response) IsZero() bool    { return r.code == 0 }

func (r Response) String() string {
	return fmt.Sprintf("%d: %s", r.code, r.message)
}

// MarshalJSON renders the entry as {"code": ..., "message": ...}.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{r.code, r.message})
}

var (
	FailedToParseForm             = Response{1000, "Failed to parse Driving Permit form data"}
	MissingQueryParameters        = Response{1001, "Missing query parameters for auth request"}
	FailedToParseOAuthQuery       = Response{1002, "Failed to parse oauth2-specific query string parameters"}
	FailedToPrepareDcsPayload     = Response{1003, "Failed to prepare DCS payload"}
	ErrorContactingDcs            = Response{1004, "Error when contacting DCS for document check"}
	FailedToUnwrapDcsResponse     = Response{1005, "Failed to unwrap Dcs response"}
	DcsReturnedAnError            = Response{1006, "DCS returned an error response"}
	MissingSharedAttributesJWT    = Response{1007, "Missing shared attributes JWT from request body"}
	FailedToParse                 = Response{1008, "Failed to parse"}
	MissingClientIDQueryParameter = Response{1009, "Missing client_id query parameter"}
	InvalidRedirectURL            = Response{1012, "Provided redirect URL is not in those configured for client"}
	UnknownClientID               = Response{1013, "Unknown client id provided in request params"}
	InvalidRequestParam           = Response{1014, "Invalid request param"}
	FailedToSendAuditEvent        = Response{1016, "Failed to send message to audit event queue"}
	MissingUserIDHeader           = Response{1017, "Missing user_id header in authorisation request"}
	MissingSessionIDHeader        = Response{1018, "Missing session_id header"}
	FailedToRevokeAccessToken     = Response{1019, "Failed to revoke access token"}
	SessionNotFound               = Response{1020, "Session not found"}
	FormDataFailedValidation      = Response{1021, "Form Data failed validation"}
	DcsErrorHTTP30x               = Response{1022, "DCS Responded with a HTTP Redirection status code"}
	DcsErrorHTTP40x               = Response{1023, "DCS Responded with a HTTP Client Error status code"}
	DcsErrorHTTP50x               = Response{1024, "DCS Responded with a HTTP Server Error status code"}
	DcsErrorHTTPX                 = Response{1025, "DCS Responded with an unhandled HTTP status code"}
	TooManyRetryAttempts          = Response{1026, "Too many retry attempts made"}
	FailedToSignCredential        = Response{1027, "Failed to sign verifiable credential"}
	FailedToBuildEvidence         = Response{1028, "Failed to build credential evidence"}
	CheckCancelled                = Response{1029, "Document check cancelled before completion"}
)

var all = []Response{
	FailedToParseForm,
	MissingQueryParameters,
	FailedToParseOAuthQuery,
	FailedToPrepareDcsPayload,
	ErrorContactingDcs,
	FailedToUnwrapDcsResponse,
	DcsReturnedAnError,
	MissingSharedAttributesJWT,
	FailedToParse,
	MissingClientIDQueryParameter,
	InvalidRedirectURL,
	UnknownClientID,
	InvalidRequestParam,
	FailedToSendAuditEvent,
	MissingUserIDHeader,
	MissingSessionIDHeader,
	FailedToRevokeAccessToken,
	SessionNotFound,
	FormDataFailedValidation,
	DcsErrorHTTP30x,
	DcsErrorHTTP40x,
	DcsErrorHTTP50x,
	DcsErrorHTTPX,
	TooManyRetryAttempts,
	FailedToSignCredential,
	FailedToBuildEvidence,
	CheckCancelled,
}

var byCode = func() map[int]Response {
	m := make(map[int]Response, len(all))
	for _, r := range all {
		if _, dup := m[r.code]; dup {
			panic(fmt.Sprintf("catalog: duplicate code %d", r.code))
		}
		m[r.code] = r
	}
	return m
}()

// Lookup returns the entry registered under code.
func Lookup(code int) (Response, bool) {
	r, ok := byCode[code]
	return r, ok
}

// All returns every entry in code order.
func All() []Response {
	return append([]Response(nil), all...)
}
