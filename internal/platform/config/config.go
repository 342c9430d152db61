// Package config reads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the variable is unset.
const (
	DefaultAddr            = ":8080"
	DefaultMaxAttempts     = 3
	DefaultAttemptTimeout  = 10 * time.Second
	DefaultBackoffInitial  = 100 * time.Millisecond
	DefaultBackoffMax      = 2 * time.Second
	DefaultMaxTTL          = 900 * time.Second
	DefaultCheckResultTTL  = 30 * time.Minute
	DefaultAuditTopic      = "permitcheck.audit"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultBreakerCooldown = 30 * time.Second
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration

	DCS            DCS
	Credential     Credential
	Redis          RedisConfig
	Kafka          Kafka
	CheckResultTTL time.Duration
}

// DCS configures the document checking service exchange. Key and certificate
// values are either inline PEM or a path to a PEM file.
type DCS struct {
	Endpoint            string
	SigningCert         string
	EncryptionCert      string
	IssuerSigningKey    string
	IssuerSigningCert   string
	IssuerEncryptionKey string

	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// BreakerCooldown is how long the circuit stays open before it lets
	// readiness pass again and waits for a trial call.
	BreakerCooldown time.Duration
}

// Credential configures verifiable credential issuance. Exactly one of
// SigningKey and KMSKeyID selects the signer.
type Credential struct {
	Issuer     string
	MaxTTL     time.Duration
	SigningKey string
	KeyID      string
	KMSKeyID   string
}

// RedisConfig configures the check result store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit sink. Empty Brokers keeps audit in memory.
type Kafka struct {
	Brokers    string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numbers and durations are reported; missing values are left to Validate.
func FromEnv() (Server, error) {
	p := &parser{}
	cfg := Server{
		Addr:            stringOr("PERMIT_ADDR", DefaultAddr),
		Environment:     stringOr("PERMIT_ENV", "local"),
		LogLevel:        stringOr("LOG_LEVEL", "info"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		DCS: DCS{
			Endpoint:            os.Getenv("DCS_ENDPOINT"),
			SigningCert:         os.Getenv("DCS_SIGNING_CERT"),
			EncryptionCert:      os.Getenv("DCS_ENCRYPTION_CERT"),
			IssuerSigningKey:    os.Getenv("ISSUER_SIGNING_KEY"),
			IssuerSigningCert:   os.Getenv("ISSUER_SIGNING_CERT"),
			IssuerEncryptionKey: os.Getenv("ISSUER_ENCRYPTION_KEY"),
			MaxAttempts:         p.integer("DCS_MAX_ATTEMPTS", DefaultMaxAttempts),
			AttemptTimeout:      p.duration("DCS_ATTEMPT_TIMEOUT", DefaultAttemptTimeout),
			BackoffInitial:      p.duration("DCS_BACKOFF_INITIAL", DefaultBackoffInitial),
			BackoffMax:          p.duration("DCS_BACKOFF_MAX", DefaultBackoffMax),
			BreakerCooldown:     p.duration("DCS_BREAKER_COOLDOWN", DefaultBreakerCooldown),
		},
		Credential: Credential{
			Issuer:     os.Getenv("VC_ISSUER"),
			MaxTTL:     p.duration("VC_MAX_TTL", DefaultMaxTTL),
			SigningKey: os.Getenv("VC_SIGNING_KEY"),
			KeyID:      os.Getenv("VC_KEY_ID"),
			KMSKeyID:   os.Getenv("VC_KMS_KEY_ID"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: stringOr("AUDIT_TOPIC", DefaultAuditTopic),
		},
		CheckResultTTL: p.duration("CHECK_RESULT_TTL", DefaultCheckResultTTL),
	}
	if len(p.errs) > 0 {
		return Server{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent value at once.
func (c Server) Validate() error {
	var errs []error
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require("DCS_ENDPOINT", c.DCS.Endpoint)
	require("DCS_SIGNING_CERT", c.DCS.SigningCert)
	require("DCS_ENCRYPTION_CERT", c.DCS.EncryptionCert)
	require("ISSUER_SIGNING_KEY", c.DCS.IssuerSigningKey)
	require("ISSUER_SIGNING_CERT", c.DCS.IssuerSigningCert)
	require("ISSUER_ENCRYPTION_KEY", c.DCS.IssuerEncryptionKey)
	require("VC_ISSUER", c.Credential.Issuer)

	switch {
	case c.Credential.SigningKey == "" && c.Credential.KMSKeyID == "":
		errs = append(errs, errors.New("one of VC_SIGNING_KEY or VC_KMS_KEY_ID is required"))
	case c.Credential.SigningKey != "" && c.Credential.KMSKeyID != "":
		errs = append(errs, errors.New("VC_SIGNING_KEY and VC_KMS_KEY_ID are mutually exclusive"))
	}
	if c.DCS.MaxAttempts < 1 {
		errs = append(errs, errors.New("DCS_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Credential.MaxTTL <= 0 {
		errs = append(errs, errors.New("VC_MAX_TTL must be positive"))
	}
	if c.DCS.BreakerCooldown <= 0 {
		errs = append(errs, errors.New("DCS_BREAKER_COOLDOWN must be positive"))
	}
	if c.DCS.BackoffMax < c.DCS.BackoffInitial {
		errs = append(errs, errors.New("DCS_BACKOFF_MAX must not be below DCS_BACKOFF_INITIAL"))
	}
	return errors.Join(errs...)
}

// LoadPEM returns inline PEM as-is and otherwise reads the value as a file path.
func LoadPEM(value string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(value), "-----BEGIN") {
		return []byte(value), nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("read pem file: %w", err)
	}
	return data, nil
}

func stringOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

type parser struct {
	errs []error
}

func (p *parser) duration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", name, err))
		return fallback
	}
	return d
}

func (p *parser) integer(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", name, err))
		return fallback
	}
	return n
}
