package store

import (
	"context"
	"sync"
	"time"

	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
)

type storedRecord struct {
	record   models.CheckRecord
	storedAt time.Time
}

// InMemoryStore keeps check records in process with TTL expiration.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]storedRecord
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMemoryMetrics records lookup hits and misses.
func WithMemoryMetrics(m *metrics.Metrics) MemoryOption {
	return func(s *InMemoryStore) {
		s.metrics = m
	}
}

// NewInMemoryStore creates a store whose records expire after ttl.
func NewInMemoryStore(ttl time.Duration, opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		records: make(map[string]storedRecord),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores the record for the session, replacing any earlier one.
func (s *InMemoryStore) Save(_ context.Context, sessionID string, record models.CheckRecord) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = storedRecord{record: cloneRecord(record), storedAt: s.now()}
	return nil
}

// Find returns the live record for the session or ErrNotFound.
// Expired entries are dropped on lookup.
func (s *InMemoryStore) Find(_ context.Context, sessionID string) (*models.CheckRecord, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[sessionID]
	if !ok {
		s.recordLookup(false)
		return nil, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(stored.storedAt) >= s.ttl {
		delete(s.records, sessionID)
		s.recordLookup(false)
		return nil, ErrNotFound
	}
	s.recordLookup(true)
	out := cloneRecord(stored.record)
	return &out, nil
}

func (s *InMemoryStore) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordStoreLookup(hit)
	}
}

// cloneRecord copies the slices so callers cannot mutate stored state.
func cloneRecord(r models.CheckRecord) models.CheckRecord {
	out := r
	if r.Result.ContraIndicators != nil {
		out.Result.ContraIndicators = append([]string(nil), r.Result.ContraIndicators...)
	}
	out.Identity.Names = make([]models.Name, len(r.Identity.Names))
	for i, n := range r.Identity.Names {
		out.Identity.Names[i] = models.Name{NameParts: append([]models.NamePart(nil), n.NameParts...)}
	}
	out.Identity.Addresses = append([]models.Address(nil), r.Identity.Addresses...)
	out.Identity.BirthDates = append([]models.BirthDate(nil), r.Identity.BirthDates...)
	return out
}
