package models

// StatusClass qualifies a ClientError outcome.
type StatusClass string

const (
	ClassRedirection StatusClass = "redirection"
	ClassClient      StatusClass = "client"
	ClassUnhandled   StatusClass = "unhandled"
	// ClassIntegrity marks a 2xx body that failed signature, decryption or parsing.
	ClassIntegrity StatusClass = "integrity"
	// ClassRejected marks a well-formed error body returned by the checking service.
	ClassRejected StatusClass = "rejected"
)

// VerificationRequest is one sealed request plus its transport metadata.
// A new one is built for every attempt.
type VerificationRequest struct {
	Body          string
	Endpoint      string
	ContentType   string
	CorrelationID string
	RequestID     string
}

// RawResponse is what came back from the checking service before interpretation.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Match is the verdict decoded from a successful checking service response.
type Match struct {
	CorrelationID string `json:"correlationId"`
	RequestID     string `json:"requestId"`
	Valid         bool   `json:"valid"`
}

// Outcome is the result of a single exchange with the checking service.
// Exactly one of Success, ClientError, ServerError or TransportFailure.
type Outcome interface {
	outcome()
}

// Success carries the decoded match and the unwrapped response payload.
type Success struct {
	Match Match
	Raw   []byte
}

// ClientError is terminal: repeating the request will not change the answer.
type ClientError struct {
	Class      StatusClass
	StatusCode int
	Message    string
	Cause      error
}

// ServerError is a 5xx answer from the checking service.
type ServerError struct {
	StatusCode int
	Message    string
}

// TransportFailure means no HTTP answer was obtained (timeout, reset, DNS).
type TransportFailure struct {
	Cause error
}

func (Success) outcome()          {}
func (ClientError) outcome()      {}
func (ServerError) outcome()      {}
func (TransportFailure) outcome() {}

// OutcomeLabel is a low-cardinality name for metrics and logs.
func OutcomeLabel(o Outcome) string {
	switch v := o.(type) {
	case Success:
		return "success"
	case ClientError:
		return "client_error_" + string(v.Class)
	case ServerError:
		return "server_error"
	case TransportFailure:
		return "transport_failure"
	default:
		return "none"
	}
}
