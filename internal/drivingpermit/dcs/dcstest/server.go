package dcstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"permitcheck/internal/drivingpermit/dcs"
)

// Reply scripts one answer of the fake DCS. The zero value is a sealed
// 200 response with valid=false; use Valid() for a positive match.
type Reply struct {
	Status  int
	Valid   bool
	Errors  []string      // sets the error flag in the sealed body
	Corrupt bool          // 2xx body that is not a sealed payload
	Delay   time.Duration // holds the response, honouring client cancellation
}

// Valid is a 200 reply with a positive match.
func Valid() Reply { return Reply{Status: http.StatusOK, Valid: true} }

// Status is a reply with the given status and a plain body.
func Status(code int) Reply { return Reply{Status: code} }

// Server is an httptest DCS that opens sealed requests and answers from a
// script. The last reply repeats once the script runs out.
type Server struct {
	*httptest.Server

	t    testing.TB
	keys *Keys

	mu       sync.Mutex
	replies  []Reply
	requests []dcs.WireRequest
	hits     int
}

func NewServer(t testing.TB, keys *Keys, replies ...Reply) *Server {
	t.Helper()
	if len(replies) == 0 {
		replies = []Reply{Valid()}
	}
	s := &Server{t: t, keys: keys, replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Requests returns the decoded requests received so far.
func (s *Server) Requests() []dcs.WireRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dcs.WireRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Hits counts every HTTP request, including ones that failed to open.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

func (s *Server) next() Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.hits
	s.hits++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reply := s.next()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	payload, err := dcs.Open(strings.TrimSpace(string(raw)), s.keys.DCSOpen())
	if err != nil {
		s.t.Errorf("dcstest: open request: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var req dcs.WireRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.t.Errorf("dcstest: decode request: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status < 200 || status >= 300 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}

	w.Header().Set("Content-Type", dcs.ContentType)
	if reply.Corrupt {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("not-a-sealed-payload"))
		return
	}

	body, err := json.Marshal(dcs.WireResponse{
		CorrelationID: req.CorrelationID,
		RequestID:     req.RequestID,
		Valid:         reply.Valid,
		Error:         len(reply.Errors) > 0,
		ErrorMessage:  reply.Errors,
	})
	if err != nil {
		s.t.Errorf("dcstest: encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	sealed, err := dcs.Seal(body, s.keys.DCSSeal())
	if err != nil {
		s.t.Errorf("dcstest: seal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(sealed))
}
