// Package signing turns credential claims into a compact ES256 JWT.
//
// Two signers are provided: LocalSigner holds an ECDSA P-256 key in
// process, KMSSigner delegates the raw signature to AWS KMS. Any error is
// reported as a failure of KindSigning and no partial token is returned.
package signing

//go:generate mockgen -source=signing.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"permitcheck/internal/drivingpermit/catalog"
	"permitcheck/internal/drivingpermit/failure"
)

// Signer signs a claims-set.
type Signer interface {
	Sign(ctx context.Context, claims jwt.Claims) (string, error)
}

// LocalSigner signs with an in-process P-256 key.
type LocalSigner struct {
	key   *ecdsa.PrivateKey
	keyID string
}

func NewLocalSigner(key *ecdsa.PrivateKey, keyID string) (*LocalSigner, error) {
	if key == nil {
		return nil, errors.New("signing key is required")
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("ES256 needs a P-256 key, got %s", key.Curve.Params().Name)
	}
	return &LocalSigner{key: key, keyID: keyID}, nil
}

func (s *LocalSigner) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	token := newToken(claims, s.keyID)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", signingFailure("sign token", err)
	}
	return signed, nil
}

// PublicKey verifies tokens produced by s.
func (s *LocalSigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// ParseECPrivateKey reads a SEC 1 or PKCS#8 PEM encoded ECDSA key.
func ParseECPrivateKey(pemData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ec, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("expected ECDSA private key, got %T", key)
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

func newToken(claims jwt.Claims, keyID string) *jwt.Token {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	if keyID != "" {
		token.Header["kid"] = keyID
	}
	return token
}

func signingFailure(reason string, err error) *failure.Error {
	return failure.New(failure.KindSigning, catalog.FailedToSignCredential, reason, err)
}
