// Package credential assembles the claims-set of a driving permit
// verifiable credential. Signing is left to a Signer.
//
// Time is always received as a parameter; nothing here reads the clock.
package credential

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"permitcheck/internal/drivingpermit/evidence"
	"permitcheck/internal/drivingpermit/models"
)

const (
	TypeVerifiableCredential    = "VerifiableCredential"
	TypeDrivingPermitCredential = "DrivingPermitCredential"
)

var (
	ErrMissingSubject  = errors.New("subject is required")
	ErrMissingIssuedAt = errors.New("issued_at is required")
	ErrMissingIssuer   = errors.New("issuer is required")
	ErrInvalidTTL      = errors.New("max ttl must be positive")
)

// Claims is the JWT claims-set of a driving permit credential.
type Claims struct {
	VC VC `json:"vc"`
	jwt.RegisteredClaims
}

// VC is the credential body.
type VC struct {
	Type              []string               `json:"type"`
	CredentialSubject Subject                `json:"credentialSubject"`
	DrivingPermit     []models.DrivingPermit `json:"drivingPermit"`
	Evidence          []evidence.Evidence    `json:"evidence"`
}

type Subject struct {
	Address   []models.Address `json:"address"`
	Name      []models.Name    `json:"name"`
	BirthDate []BirthDate      `json:"birthDate"`
}

// BirthDate is a calendar date rendered as 2006-01-02.
type BirthDate struct {
	Value string `json:"value"`
}

type Config struct {
	Issuer string
	MaxTTL time.Duration
	// NewID sets the jti claim. Defaults to uuid.NewString.
	NewID func() string
}

// Assembler builds claims-sets. It is stateless apart from configuration.
type Assembler struct {
	issuer string
	maxTTL time.Duration
	newID  func() string
}

func NewAssembler(cfg Config) (*Assembler, error) {
	if cfg.Issuer == "" {
		return nil, ErrMissingIssuer
	}
	if cfg.MaxTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Assembler{issuer: cfg.Issuer, maxTTL: cfg.MaxTTL, newID: cfg.NewID}, nil
}

// MaxTTL is the lifetime given to every credential.
func (a *Assembler) MaxTTL() time.Duration { return a.maxTTL }

// Assemble builds the claims-set. nbf is now truncated to the second and
// exp is exactly nbf + MaxTTL.
func (a *Assembler) Assemble(
	subject string,
	ev evidence.Evidence,
	identity models.PersonIdentity,
	permit models.DrivingPermit,
	now time.Time,
) (Claims, error) {
	if subject == "" {
		return Claims{}, ErrMissingSubject
	}
	if now.IsZero() {
		return Claims{}, ErrMissingIssuedAt
	}
	nbf := now.UTC().Truncate(time.Second)

	return Claims{
		VC: VC{
			Type: []string{TypeVerifiableCredential, TypeDrivingPermitCredential},
			CredentialSubject: Subject{
				Address:   append(make([]models.Address, 0, len(identity.Addresses)), identity.Addresses...),
				Name:      lo.Map(identity.Names, cloneName),
				BirthDate: lo.Map(identity.BirthDates, formatBirthDate),
			},
			DrivingPermit: []models.DrivingPermit{permit},
			Evidence:      []evidence.Evidence{ev},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			NotBefore: jwt.NewNumericDate(nbf),
			ExpiresAt: jwt.NewNumericDate(nbf.Add(a.maxTTL)),
			ID:        a.newID(),
		},
	}, nil
}

func cloneName(n models.Name, _ int) models.Name {
	return models.Name{NameParts: append([]models.NamePart(nil), n.NameParts...)}
}

func formatBirthDate(b models.BirthDate, _ int) BirthDate {
	return BirthDate{Value: b.Value.Format(models.DateLayout)}
}
