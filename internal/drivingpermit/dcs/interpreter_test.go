package dcs_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"permitcheck/internal/drivingpermit/dcs"
	"permitcheck/internal/drivingpermit/dcs/dcstest"
	"permitcheck/internal/drivingpermit/models"
)

type InterpreterSuite struct {
	suite.Suite
	keys        *dcstest.Keys
	interpreter *dcs.Interpreter
}

func TestInterpreterSuite(t *testing.T) {
	suite.Run(t, new(InterpreterSuite))
}

func (s *InterpreterSuite) SetupSuite() {
	s.keys = dcstest.NewKeys(s.T())
	s.interpreter = dcs.NewInterpreter(s.keys.IssuerOpen())
}

var sent = models.VerificationRequest{CorrelationID: "c", RequestID: "r"}

func (s *InterpreterSuite) sealed(status int, resp dcs.WireResponse) *models.RawResponse {
	body, err := json.Marshal(resp)
	s.Require().NoError(err)
	sealed, err := dcs.Seal(body, s.keys.DCSSeal())
	s.Require().NoError(err)
	return &models.RawResponse{StatusCode: status, Body: []byte(sealed)}
}

func (s *InterpreterSuite) TestSuccess() {
	for _, valid := range []bool{true, false} {
		raw := s.sealed(http.StatusOK, dcs.WireResponse{CorrelationID: "c", RequestID: "r", Valid: valid})

		out := s.interpreter.Interpret(sent, raw, nil)

		success, ok := out.(models.Success)
		s.Require().True(ok, "got %T", out)
		s.Equal(models.Match{CorrelationID: "c", RequestID: "r", Valid: valid}, success.Match)
		s.NotEmpty(success.Raw)
	}
}

func (s *InterpreterSuite) TestRejectedBody() {
	raw := s.sealed(http.StatusOK, dcs.WireResponse{
		Error:        true,
		ErrorMessage: []string{"licence number invalid", "postcode mismatch"},
	})

	out := s.interpreter.Interpret(sent, raw, nil)

	ce, ok := out.(models.ClientError)
	s.Require().True(ok, "got %T", out)
	s.Equal(models.ClassRejected, ce.Class)
	s.Equal("licence number invalid; postcode mismatch", ce.Message)
}

func (s *InterpreterSuite) TestAnswerForAnotherRequest() {
	cases := []struct {
		name string
		resp dcs.WireResponse
	}{
		{"other correlation", dcs.WireResponse{CorrelationID: "someone-else", RequestID: "r", Valid: true}},
		{"earlier request", dcs.WireResponse{CorrelationID: "c", RequestID: "old-request", Valid: true}},
		{"no ids echoed", dcs.WireResponse{Valid: true}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			out := s.interpreter.Interpret(sent, s.sealed(http.StatusOK, tc.resp), nil)

			ce, ok := out.(models.ClientError)
			s.Require().True(ok, "got %T", out)
			s.Equal(models.ClassIntegrity, ce.Class)
			s.Equal("response does not match request", ce.Message)
			s.Equal(http.StatusOK, ce.StatusCode)
			s.Error(ce.Cause)
		})
	}
}

func (s *InterpreterSuite) TestIntegrityFailures() {
	other := dcstest.NewKeys(s.T())
	forged, err := dcs.Seal([]byte(`{"valid":true}`), other.DCSSeal())
	s.Require().NoError(err)
	notJSON, err := dcs.Seal([]byte(`not json`), s.keys.DCSSeal())
	s.Require().NoError(err)

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"unsigned body", "plain text", "failed to unwrap response"},
		{"signed by someone else", forged, "failed to unwrap response"},
		{"payload is not json", notJSON, "failed to parse response"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			out := s.interpreter.Interpret(sent, &models.RawResponse{StatusCode: 200, Body: []byte(tc.body)}, nil)

			ce, ok := out.(models.ClientError)
			s.Require().True(ok, "got %T", out)
			s.Equal(models.ClassIntegrity, ce.Class)
			s.Equal(tc.message, ce.Message)
			s.Error(ce.Cause)
		})
	}
}

func (s *InterpreterSuite) TestStatusClassification() {
	cases := []struct {
		status int
		label  string
	}{
		{301, "client_error_redirection"},
		{302, "client_error_redirection"},
		{400, "client_error_client"},
		{404, "client_error_client"},
		{429, "client_error_client"},
		{500, "server_error"},
		{503, "server_error"},
		{599, "server_error"},
		{100, "client_error_unhandled"},
		{600, "client_error_unhandled"},
	}
	for _, tc := range cases {
		out := s.interpreter.Interpret(sent, &models.RawResponse{StatusCode: tc.status, Body: []byte("nope")}, nil)
		s.Equal(tc.label, models.OutcomeLabel(out), "status %d", tc.status)
	}
}

func (s *InterpreterSuite) TestServerErrorCarriesStatus() {
	out := s.interpreter.Interpret(sent, &models.RawResponse{StatusCode: 503, Body: []byte(strings.Repeat("x", 1000))}, nil)

	se, ok := out.(models.ServerError)
	s.Require().True(ok)
	s.Equal(503, se.StatusCode)
	s.True(strings.HasPrefix(se.Message, "status 503: "))
	s.Less(len(se.Message), 300)
}

func (s *InterpreterSuite) TestTruncatedMessageKeepsWholeRunes() {
	body := strings.Repeat("a", 255) + strings.Repeat("é", 10)

	out := s.interpreter.Interpret(sent, &models.RawResponse{StatusCode: 502, Body: []byte(body)}, nil)

	se, ok := out.(models.ServerError)
	s.Require().True(ok)
	s.True(utf8.ValidString(se.Message), "message %q", se.Message)
	s.Equal("status 502: "+strings.Repeat("a", 255), se.Message)
}

func (s *InterpreterSuite) TestTransportFailure() {
	cause := errors.New("connection reset by peer")

	out := s.interpreter.Interpret(sent, nil, cause)
	tf, ok := out.(models.TransportFailure)
	s.Require().True(ok)
	s.ErrorIs(tf.Cause, cause)

	out = s.interpreter.Interpret(sent, nil, nil)
	s.IsType(models.TransportFailure{}, out)
}
