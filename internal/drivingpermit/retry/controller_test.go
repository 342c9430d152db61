package retry_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/dcs"
	"permitcheck/internal/drivingpermit/dcs/dcstest"
	"permitcheck/internal/drivingpermit/failure"
	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
	"permitcheck/internal/drivingpermit/retry"
	"permitcheck/internal/drivingpermit/retry/mocks"
	"permitcheck/internal/platform/tracer"
)

type ControllerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	builder     *mocks.MockBuilder
	exchanger   *mocks.MockExchanger
	interpreter *mocks.MockInterpreter
	sub         models.PermitSubmission
	requests    int
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.builder = mocks.NewMockBuilder(s.ctrl)
	s.exchanger = mocks.NewMockExchanger(s.ctrl)
	s.interpreter = mocks.NewMockInterpreter(s.ctrl)
	s.sub = dcstest.Submission()
	s.requests = 0
}

func (s *ControllerSuite) newController(cfg retry.Config, opts ...retry.Option) *retry.Controller {
	opts = append([]retry.Option{
		retry.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		retry.WithIDGenerator(func() string { return "corr-1" }),
	}, opts...)
	return retry.New(s.builder, s.exchanger, s.interpreter, cfg, opts...)
}

// expectBuilds lets the builder succeed n times with fresh request IDs.
func (s *ControllerSuite) expectBuilds(n int) {
	s.builder.EXPECT().Build("corr-1", s.sub).
		DoAndReturn(func(correlationID string, _ models.PermitSubmission) (models.VerificationRequest, error) {
			s.requests++
			return models.VerificationRequest{
				CorrelationID: correlationID,
				RequestID:     fmt.Sprintf("req-%d", s.requests),
			}, nil
		}).Times(n)
}

func (s *ControllerSuite) expectExchanges(n int) {
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&models.RawResponse{StatusCode: 200}, nil).Times(n)
}

func (s *ControllerSuite) expectOutcomes(outcomes ...models.Outcome) {
	for _, o := range outcomes {
		s.interpreter.EXPECT().Interpret(gomock.Any(), gomock.Any(), gomock.Any()).Return(o).Times(1)
	}
}

var (
	serverError = models.ServerError{StatusCode: 503, Message: "status 503"}
	transport   = models.TransportFailure{Cause: errors.New("connection reset")}
	notFound    = models.ClientError{Class: models.ClassClient, StatusCode: 404, Message: "status 404"}
	matched     = models.Success{Match: models.Match{CorrelationID: "corr-1", RequestID: "req-1", Valid: true}}
)

func (s *ControllerSuite) TestThreeServerErrorsExhaustBudget() {
	s.expectBuilds(3)
	s.expectExchanges(3)
	s.expectOutcomes(serverError, serverError, serverError)

	res, err := s.newController(retry.Config{MaxAttempts: 3}).Run(context.Background(), s.sub)

	s.Require().Error(err)
	s.True(failure.IsKind(err, failure.KindTooManyRetryAttempts))
	var fe *failure.Error
	s.Require().ErrorAs(err, &fe)
	s.Equal(catalog.TooManyRetryAttempts, fe.Response)
	s.Equal(503, fe.StatusCode)
	s.Contains(fe.Reason, "3 attempts")

	var last *failure.Error
	s.Require().ErrorAs(fe.Err, &last)
	s.Equal(failure.KindServiceUnavailable, last.Kind)

	s.Equal(retry.StateExhausted, res.State)
	s.Equal(3, res.Attempts)
	s.Equal(serverError, res.Outcome)
	s.Equal("req-3", res.RequestID)
}

func (s *ControllerSuite) TestNotFoundIsImmediateRejection() {
	s.expectBuilds(1)
	s.expectExchanges(1)
	s.expectOutcomes(notFound)

	res, err := s.newController(retry.Config{MaxAttempts: 5}).Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindClientRejection))
	var fe *failure.Error
	s.Require().ErrorAs(err, &fe)
	s.Equal(models.ClassClient, fe.StatusClass)
	s.Equal(404, fe.StatusCode)
	s.Equal(retry.StateFatal, res.State)
	s.Equal(1, res.Attempts)
}

func (s *ControllerSuite) TestIntegrityFailureIsFatal() {
	s.expectBuilds(1)
	s.expectExchanges(1)
	s.expectOutcomes(models.ClientError{Class: models.ClassIntegrity, StatusCode: 200, Message: "failed to unwrap response"})

	res, err := s.newController(retry.Config{}).Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindResponseIntegrity))
	s.Equal(retry.StateFatal, res.State)
	s.Equal(1, res.Attempts)
}

func (s *ControllerSuite) TestInterpreterSeesTheRequestItAnswers() {
	s.expectBuilds(2)
	s.expectExchanges(2)
	first := s.interpreter.EXPECT().
		Interpret(models.VerificationRequest{CorrelationID: "corr-1", RequestID: "req-1"}, gomock.Any(), nil).
		Return(serverError)
	s.interpreter.EXPECT().
		Interpret(models.VerificationRequest{CorrelationID: "corr-1", RequestID: "req-2"}, gomock.Any(), nil).
		Return(matched).After(first)

	res, err := s.newController(retry.Config{MaxAttempts: 3}).Run(context.Background(), s.sub)

	s.Require().NoError(err)
	s.Equal(2, res.Attempts)
}

func (s *ControllerSuite) TestReplayedAnswerIsFatal() {
	keys := dcstest.NewKeys(s.T())
	body, err := json.Marshal(dcs.WireResponse{CorrelationID: "someone-else", RequestID: "old-request", Valid: true})
	s.Require().NoError(err)
	replayed, err := dcs.Seal(body, keys.DCSSeal())
	s.Require().NoError(err)

	s.expectBuilds(1)
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&models.RawResponse{StatusCode: 200, Body: []byte(replayed)}, nil)
	c := retry.New(s.builder, s.exchanger, dcs.NewInterpreter(keys.IssuerOpen()),
		retry.Config{MaxAttempts: 3},
		retry.WithIDGenerator(func() string { return "corr-1" }),
	)

	res, err := c.Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindResponseIntegrity))
	var fe *failure.Error
	s.Require().ErrorAs(err, &fe)
	s.Equal(catalog.FailedToUnwrapDcsResponse, fe.Response)
	s.Equal(retry.StateFatal, res.State)
	s.Equal(1, res.Attempts)
	_, succeeded := res.Outcome.(models.Success)
	s.False(succeeded)
}

func (s *ControllerSuite) TestAttemptCountOnSuccess() {
	const maxAttempts = 4
	for failures := 0; failures < maxAttempts; failures++ {
		s.Run(fmt.Sprintf("%d failures then success", failures), func() {
			s.SetupTest()
			outcomes := make([]models.Outcome, 0, failures+1)
			for i := 0; i < failures; i++ {
				if i%2 == 0 {
					outcomes = append(outcomes, serverError)
				} else {
					outcomes = append(outcomes, transport)
				}
			}
			outcomes = append(outcomes, matched)
			s.expectBuilds(failures + 1)
			s.expectExchanges(failures + 1)
			s.expectOutcomes(outcomes...)

			res, err := s.newController(retry.Config{MaxAttempts: maxAttempts}).Run(context.Background(), s.sub)

			s.Require().NoError(err)
			s.Equal(retry.StateSucceeded, res.State)
			s.Equal(failures+1, res.Attempts)
			s.Equal(matched, res.Outcome)
			s.Equal("corr-1", res.CorrelationID)
		})
	}
}

func (s *ControllerSuite) TestBuildFailureIsFatal() {
	buildErr := failure.New(failure.KindPayloadConstruction, catalog.FailedToPrepareDcsPayload, "missing mandatory fields: surname", nil)
	s.builder.EXPECT().Build(gomock.Any(), gomock.Any()).Return(models.VerificationRequest{}, buildErr)

	res, err := s.newController(retry.Config{}).Run(context.Background(), s.sub)

	var fe *failure.Error
	s.Require().ErrorAs(err, &fe)
	s.Same(buildErr, fe)
	s.Equal(retry.StateFatal, res.State)
	s.Zero(res.Attempts)
	s.Nil(res.Outcome)
}

func (s *ControllerSuite) TestForeignBuildErrorIsWrapped() {
	s.builder.EXPECT().Build(gomock.Any(), gomock.Any()).Return(models.VerificationRequest{}, errors.New("boom"))

	_, err := s.newController(retry.Config{}).Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindPayloadConstruction))
	s.ErrorContains(err, "boom")
}

func (s *ControllerSuite) TestCallerCancellationIsNotCounted() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.expectBuilds(2)
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(&models.RawResponse{StatusCode: 503}, nil)
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.VerificationRequest) (*models.RawResponse, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})
	s.expectOutcomes(serverError)

	res, err := s.newController(retry.Config{MaxAttempts: 3}).Run(ctx, s.sub)

	s.True(failure.IsKind(err, failure.KindCancelled))
	s.ErrorIs(err, context.Canceled)
	s.Equal(retry.StateFatal, res.State)
	s.Equal(1, res.Attempts, "interrupted attempt is not counted")
	s.Equal(serverError, res.Outcome)
}

func (s *ControllerSuite) TestCancelledBeforeFirstAttempt() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.newController(retry.Config{}).Run(ctx, s.sub)

	s.True(failure.IsKind(err, failure.KindCancelled))
	s.Zero(res.Attempts)
}

func (s *ControllerSuite) TestCancelledDuringBackoff() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.expectBuilds(1)
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.VerificationRequest) (*models.RawResponse, error) {
			cancel()
			return &models.RawResponse{StatusCode: 503}, nil
		})
	s.expectOutcomes(serverError)

	res, err := s.newController(retry.Config{MaxAttempts: 3},
		retry.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }),
	).Run(ctx, s.sub)

	s.True(failure.IsKind(err, failure.KindCancelled))
	s.Equal(1, res.Attempts, "answered attempt is counted")
}

func (s *ControllerSuite) TestAttemptTimeoutCountsAsTransportFailure() {
	s.expectBuilds(2)
	s.exchanger.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.VerificationRequest) (*models.RawResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Times(2)
	s.interpreter.EXPECT().Interpret(gomock.Any(), gomock.Nil(), gomock.Any()).
		DoAndReturn(func(_ models.VerificationRequest, _ *models.RawResponse, err error) models.Outcome {
			s.ErrorIs(err, context.DeadlineExceeded)
			return models.TransportFailure{Cause: err}
		}).Times(2)

	res, err := s.newController(retry.Config{MaxAttempts: 2, AttemptTimeout: 20 * time.Millisecond}).
		Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindTooManyRetryAttempts))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(2, res.Attempts)
}

func (s *ControllerSuite) TestBackOffStopEndsLoop() {
	s.expectBuilds(1)
	s.expectExchanges(1)
	s.expectOutcomes(transport)

	res, err := s.newController(retry.Config{MaxAttempts: 5},
		retry.WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }),
	).Run(context.Background(), s.sub)

	s.True(failure.IsKind(err, failure.KindTooManyRetryAttempts))
	s.Equal(retry.StateExhausted, res.State)
	s.Equal(1, res.Attempts)
}

func (s *ControllerSuite) TestDefaultExponentialBackOff() {
	s.expectBuilds(2)
	s.expectExchanges(2)
	s.expectOutcomes(serverError, matched)
	c := retry.New(s.builder, s.exchanger, s.interpreter,
		retry.Config{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		retry.WithIDGenerator(func() string { return "corr-1" }),
	)

	res, err := c.Run(context.Background(), s.sub)

	s.Require().NoError(err)
	s.Equal(2, res.Attempts)
	s.Equal(3, c.MaxAttempts())
}

func (s *ControllerSuite) TestObservability() {
	rec := tracer.NewRecorder()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.expectBuilds(2)
	s.expectExchanges(2)
	s.expectOutcomes(serverError, matched)

	_, err := s.newController(retry.Config{}, retry.WithTracer(rec), retry.WithMetrics(m)).
		Run(context.Background(), s.sub)
	s.Require().NoError(err)

	attempts := rec.Named(tracer.SpanAttempt)
	s.Require().Len(attempts, 2)
	s.Equal("server_error", attempts[0].Attributes[tracer.AttrOutcome])
	s.Error(attempts[0].Err)
	s.Equal("success", attempts[1].Attributes[tracer.AttrOutcome])
	s.NoError(attempts[1].Err)

	verify := rec.Named(tracer.SpanVerify)
	s.Require().Len(verify, 1)
	s.Equal(string(retry.StateSucceeded), verify[0].Attributes[tracer.AttrState])
	s.Equal(int64(2), verify[0].Attributes[tracer.AttrAttempts])

	s.Equal(1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("server_error")))
	s.Equal(1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("success")))
	s.Equal(1.0, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("succeeded")))
}
