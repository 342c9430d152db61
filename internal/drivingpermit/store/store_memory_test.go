package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
	fixtures "permitcheck/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemoryStore
	now     time.Time
	metrics *metrics.Metrics
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.store = NewInMemoryStore(
		5*time.Minute,
		WithClock(func() time.Time { return s.now }),
		WithMemoryMetrics(s.metrics),
	)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	ctx := context.Background()

	s.Run("returns the saved record", func() {
		record := fixtures.NewCheckResultBuilder().Record()
		s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, record))

		found, err := s.store.Find(ctx, fixtures.TestIDs.SessionID1)
		s.Require().NoError(err)
		s.Equal(record, *found)
	})

	s.Run("overwrites the record for the same session", func() {
		first := fixtures.NewCheckResultBuilder().WithTransactionID("txn-a").Record()
		second := fixtures.NewCheckResultBuilder().WithTransactionID("txn-b").Invalid("D02").Record()
		s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, first))
		s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, second))

		found, err := s.store.Find(ctx, fixtures.TestIDs.SessionID1)
		s.Require().NoError(err)
		s.Equal("txn-b", found.Result.TransactionID)
		s.False(found.Result.Valid)
	})

	s.Run("sessions are isolated", func() {
		s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, fixtures.NewCheckResultBuilder().Record()))

		_, err := s.store.Find(ctx, fixtures.TestIDs.SessionID2)
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("rejects an empty session id", func() {
		s.ErrorIs(s.store.Save(ctx, "", fixtures.NewCheckResultBuilder().Record()), ErrMissingSession)
		_, err := s.store.Find(ctx, "")
		s.ErrorIs(err, ErrMissingSession)
	})
}

func (s *InMemoryStoreSuite) TestExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, fixtures.NewCheckResultBuilder().Record()))

	s.now = s.now.Add(5*time.Minute - time.Second)
	_, err := s.store.Find(ctx, fixtures.TestIDs.SessionID1)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Second)
	_, err = s.store.Find(ctx, fixtures.TestIDs.SessionID1)
	s.ErrorIs(err, ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReturnedRecordIsACopy() {
	ctx := context.Background()
	record := fixtures.NewCheckResultBuilder().Invalid("D02").Record()
	s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, record))

	record.Result.ContraIndicators[0] = "changed"
	found, err := s.store.Find(ctx, fixtures.TestIDs.SessionID1)
	s.Require().NoError(err)
	s.Equal([]string{"D02"}, found.Result.ContraIndicators)

	found.Identity.Names[0].NameParts[0].Value = "changed"
	again, err := s.store.Find(ctx, fixtures.TestIDs.SessionID1)
	s.Require().NoError(err)
	s.Equal("KENNETH", again.Identity.Names[0].NameParts[0].Value)
	s.Equal(models.GivenName, again.Identity.Names[0].NameParts[0].Type)
}

func (s *InMemoryStoreSuite) TestLookupMetrics() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, fixtures.TestIDs.SessionID1, fixtures.NewCheckResultBuilder().Record()))

	_, _ = s.store.Find(ctx, fixtures.TestIDs.SessionID1)
	_, _ = s.store.Find(ctx, fixtures.TestIDs.SessionID2)
	_, _ = s.store.Find(ctx, fixtures.TestIDs.SessionID2)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.StoreLookupsTotal.WithLabelValues("hit")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.StoreLookupsTotal.WithLabelValues("miss")))
}

func (s *InMemoryStoreSuite) TestConcurrentAccess() {
	ctx := context.Background()

	result := fixtures.RunConcurrent(50, ErrNotFound, func(idx int) error {
		sessionID := fmt.Sprintf("session-%d", idx%10)
		if idx%2 == 0 {
			return s.store.Save(ctx, sessionID, fixtures.NewCheckResultBuilder().Record())
		}
		_, err := s.store.Find(ctx, sessionID)
		return err
	})

	s.Equal(int32(50), result.Total())
	s.Zero(result.Errors)
	s.GreaterOrEqual(result.Successes, int32(25))
}
