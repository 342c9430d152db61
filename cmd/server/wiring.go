package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"permitcheck/internal/audit"
	"permitcheck/internal/drivingpermit/credential"
	"permitcheck/internal/drivingpermit/dcs"
	"permitcheck/internal/drivingpermit/handler"
	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/retry"
	"permitcheck/internal/drivingpermit/service"
	"permitcheck/internal/drivingpermit/signing"
	"permitcheck/internal/drivingpermit/store"
	"permitcheck/internal/platform/config"
	"permitcheck/internal/platform/health"
	"permitcheck/internal/platform/kafka/producer"
	redisclient "permitcheck/internal/platform/redis"
	"permitcheck/internal/platform/tracer"
	dErrors "permitcheck/pkg/domain-errors"
	"permitcheck/pkg/platform/circuit"
	"permitcheck/pkg/platform/httputil"
	"permitcheck/pkg/platform/middleware/request"
	"permitcheck/pkg/platform/middleware/requesttime"
)

const auditBufferSize = 1024

type app struct {
	router   chi.Router
	redis    *redisclient.Client
	producer *producer.Producer
	auditor  *audit.Publisher
	log      *slog.Logger
}

func (a *app) close() {
	a.auditor.Close()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("failed to close kafka producer", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis client", "error", err)
		}
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	m := metrics.New()
	tr := tracer.NewOTel()
	a := &app{log: log}

	sealKeys, openKeys, err := loadDCSKeys(cfg.DCS)
	if err != nil {
		return nil, err
	}

	breaker := circuit.New("dcs",
		circuit.WithCooldown(cfg.DCS.BreakerCooldown),
		circuit.WithOnStateChange(func(name string, from, to circuit.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			m.SetCircuitOpen(to == circuit.StateOpen)
		}),
	)
	client := dcs.NewClient(dcs.ClientConfig{
		Timeout: cfg.DCS.AttemptTimeout,
		Breaker: breaker,
		Logger:  log,
		Tracer:  tr,
	})
	controller := retry.New(
		dcs.NewBuilder(dcs.BuilderConfig{Endpoint: cfg.DCS.Endpoint, Keys: sealKeys}),
		client,
		dcs.NewInterpreter(openKeys),
		retry.Config{
			MaxAttempts:    cfg.DCS.MaxAttempts,
			AttemptTimeout: cfg.DCS.AttemptTimeout,
			InitialDelay:   cfg.DCS.BackoffInitial,
			MaxDelay:       cfg.DCS.BackoffMax,
		},
		retry.WithLogger(log),
		retry.WithTracer(tr),
		retry.WithMetrics(m),
	)

	checks, err := a.checkStore(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	auditStore, err := a.auditStore(cfg, log)
	if err != nil {
		return nil, err
	}
	a.auditor = audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(auditBufferSize),
		audit.WithPublisherLogger(log),
	)

	assembler, err := credential.NewAssembler(credential.Config{
		Issuer: cfg.Credential.Issuer,
		MaxTTL: cfg.Credential.MaxTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("credential assembler: %w", err)
	}
	signer, err := newSigner(ctx, cfg.Credential)
	if err != nil {
		return nil, err
	}

	svc := service.NewService(controller, checks, assembler, signer,
		service.WithAuditor(a.auditor),
		service.WithLogger(log),
		service.WithTracer(tr),
		service.WithMetrics(m),
	)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("dcs", func(context.Context) error { return client.Health() })
	if a.redis != nil {
		healthHandler.RegisterCheck("redis", a.redis.Health)
	}
	if a.producer != nil {
		healthHandler.RegisterCheck("kafka", a.producer.Health)
	}

	a.router = newRouter(log, handler.New(svc, log), healthHandler)
	return a, nil
}

func loadDCSKeys(cfg config.DCS) (dcs.SealKeys, dcs.OpenKeys, error) {
	var material dcs.KeyMaterial
	for _, f := range []struct {
		name  string
		value string
		dst   *[]byte
	}{
		{"ISSUER_SIGNING_KEY", cfg.IssuerSigningKey, &material.IssuerSigningKey},
		{"ISSUER_SIGNING_CERT", cfg.IssuerSigningCert, &material.IssuerSigningCert},
		{"ISSUER_ENCRYPTION_KEY", cfg.IssuerEncryptionKey, &material.IssuerEncryptionKey},
		{"DCS_SIGNING_CERT", cfg.SigningCert, &material.DCSSigningCert},
		{"DCS_ENCRYPTION_CERT", cfg.EncryptionCert, &material.DCSEncryptionCert},
	} {
		data, err := config.LoadPEM(f.value)
		if err != nil {
			return dcs.SealKeys{}, dcs.OpenKeys{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = data
	}
	seal, open, err := dcs.LoadKeys(material)
	if err != nil {
		return dcs.SealKeys{}, dcs.OpenKeys{}, fmt.Errorf("load dcs keys: %w", err)
	}
	return seal, open, nil
}

func (a *app) checkStore(ctx context.Context, cfg config.Server, m *metrics.Metrics) (service.Store, error) {
	rc, err := redisclient.New(ctx, cfg.Redis, redisclient.NewPoolMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if rc == nil {
		a.log.Info("using in-memory check result store", "ttl", cfg.CheckResultTTL)
		return store.NewInMemoryStore(cfg.CheckResultTTL, store.WithMemoryMetrics(m)), nil
	}
	a.redis = rc
	a.log.Info("using redis check result store", "ttl", cfg.CheckResultTTL)
	return store.NewRedisStore(rc.Client, cfg.CheckResultTTL, m), nil
}

func (a *app) auditStore(cfg config.Server, log *slog.Logger) (audit.Store, error) {
	if cfg.Kafka.Brokers == "" {
		log.Info("using in-memory audit store")
		return audit.NewInMemoryStore(), nil
	}
	p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	a.producer = p
	log.Info("publishing audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	return audit.NewKafkaStore(p, cfg.Kafka.AuditTopic), nil
}

func newSigner(ctx context.Context, cfg config.Credential) (service.Signer, error) {
	if cfg.KMSKeyID != "" {
		s, err := signing.NewKMSSignerFromEnv(ctx, cfg.KMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("kms signer: %w", err)
		}
		return s, nil
	}
	data, err := config.LoadPEM(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("VC_SIGNING_KEY: %w", err)
	}
	key, err := signing.ParseECPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("VC_SIGNING_KEY: %w", err)
	}
	s, err := signing.NewLocalSigner(key, cfg.KeyID)
	if err != nil {
		return nil, fmt.Errorf("local signer: %w", err)
	}
	return s, nil
}

func newRouter(log *slog.Logger, permits *handler.Handler, healthHandler *health.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.SessionID)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))
	r.Use(requesttime.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "method not allowed"))
	})

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		permits.Register(r)
	})
	return r
}
