package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	SessionID     string    `json:"sessionId,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	RequestID     string    `json:"requestId,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Attempts      int       `json:"attempts,omitempty"`
}

type AuditEvent string

const (
	EventRequestSent      AuditEvent = "DL_REQUEST_SENT"
	EventResponseReceived AuditEvent = "DL_RESPONSE_RECEIVED"
	EventVCIssued         AuditEvent = "DL_VC_ISSUED"
)
