package dcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"permitcheck/internal/drivingpermit/models"
)

const maxMessageBody = 256

// Interpreter classifies raw checking service answers. It is stateless and
// never decides whether to retry.
type Interpreter struct {
	keys OpenKeys
}

// NewInterpreter creates an interpreter that opens 2xx bodies with keys.
func NewInterpreter(keys OpenKeys) *Interpreter {
	return &Interpreter{keys: keys}
}

// Interpret maps one exchange of req to an Outcome. transportErr is the
// error returned by the exchange itself, if any. A 2xx answer only counts
// when it echoes the correlation and request IDs of req.
func (i *Interpreter) Interpret(req models.VerificationRequest, resp *models.RawResponse, transportErr error) models.Outcome {
	if transportErr != nil {
		return models.TransportFailure{Cause: transportErr}
	}
	if resp == nil {
		return models.TransportFailure{Cause: errors.New("no response received")}
	}

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return i.interpretSuccess(req, resp)
	case code >= 300 && code < 400:
		return models.ClientError{Class: models.ClassRedirection, StatusCode: code, Message: statusMessage(resp)}
	case code >= 400 && code < 500:
		return models.ClientError{Class: models.ClassClient, StatusCode: code, Message: statusMessage(resp)}
	case code >= 500 && code < 600:
		return models.ServerError{StatusCode: code, Message: statusMessage(resp)}
	default:
		return models.ClientError{Class: models.ClassUnhandled, StatusCode: code, Message: statusMessage(resp)}
	}
}

func (i *Interpreter) interpretSuccess(req models.VerificationRequest, resp *models.RawResponse) models.Outcome {
	payload, err := Open(strings.TrimSpace(string(resp.Body)), i.keys)
	if err != nil {
		return models.ClientError{
			Class:      models.ClassIntegrity,
			StatusCode: resp.StatusCode,
			Message:    "failed to unwrap response",
			Cause:      err,
		}
	}

	var wire WireResponse
	if err := json.Unmarshal(payload, &wire); err != nil {
		return models.ClientError{
			Class:      models.ClassIntegrity,
			StatusCode: resp.StatusCode,
			Message:    "failed to parse response",
			Cause:      err,
		}
	}

	if wire.Error {
		msg := strings.Join(wire.ErrorMessage, "; ")
		if msg == "" {
			msg = "error flag set without message"
		}
		return models.ClientError{Class: models.ClassRejected, StatusCode: resp.StatusCode, Message: msg}
	}

	if wire.CorrelationID != req.CorrelationID || wire.RequestID != req.RequestID {
		cause := fmt.Errorf("answered correlation %q request %q, sent correlation %q request %q",
			wire.CorrelationID, wire.RequestID, req.CorrelationID, req.RequestID)
		return models.ClientError{
			Class:      models.ClassIntegrity,
			StatusCode: resp.StatusCode,
			Message:    "response does not match request",
			Cause:      cause,
		}
	}

	return models.Success{
		Match: models.Match{
			CorrelationID: wire.CorrelationID,
			RequestID:     wire.RequestID,
			Valid:         wire.Valid,
		},
		Raw: payload,
	}
}

func statusMessage(resp *models.RawResponse) string {
	body := strings.TrimSpace(string(resp.Body))
	if len(body) > maxMessageBody {
		cut := maxMessageBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	if body == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, body)
}
