// Package dcs builds and interprets exchanges with the document checking
// service (DCS).
//
// Requests and responses are framed as a signed JWS, encrypted into a JWE
// for the receiving party, and the JWE is signed again so the receiver can
// check the sender before decrypting anything.
package dcs

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// ContentType is the media type of sealed payloads.
const ContentType = "application/jose"

// SealKeys are used by the sending side.
type SealKeys struct {
	// SigningKey signs both the inner and the outer JWS.
	SigningKey *rsa.PrivateKey
	// SigningCert, when set, is advertised via the x5t#S256 header.
	SigningCert *x509.Certificate
	// RecipientKey is the receiver's encryption public key.
	RecipientKey *rsa.PublicKey
}

// OpenKeys are used by the receiving side.
type OpenKeys struct {
	// SenderKey verifies both signatures.
	SenderKey *rsa.PublicKey
	// DecryptionKey is the receiver's encryption private key.
	DecryptionKey *rsa.PrivateKey
}

var (
	ErrMissingKey = errors.New("dcs: key material not configured")
)

// Seal signs payload, encrypts it for the recipient and signs the result.
// The output is a compact JWS.
func Seal(payload []byte, keys SealKeys) (string, error) {
	if keys.SigningKey == nil || keys.RecipientKey == nil {
		return "", ErrMissingKey
	}

	signer, err := newSigner(keys)
	if err != nil {
		return "", err
	}

	inner, err := sign(signer, payload)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}

	encrypter, err := jose.NewEncrypter(
		jose.A128CBC_HS256,
		jose.Recipient{Algorithm: jose.RSA_OAEP_256, Key: keys.RecipientKey},
		(&jose.EncrypterOptions{}).WithContentType("JWS"),
	)
	if err != nil {
		return "", fmt.Errorf("create encrypter: %w", err)
	}
	jwe, err := encrypter.Encrypt([]byte(inner))
	if err != nil {
		return "", fmt.Errorf("encrypt payload: %w", err)
	}
	encrypted, err := jwe.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwe: %w", err)
	}

	outer, err := sign(signer, []byte(encrypted))
	if err != nil {
		return "", fmt.Errorf("sign jwe: %w", err)
	}
	return outer, nil
}

// Open reverses Seal: verify outer signature, decrypt, verify inner signature.
func Open(sealed string, keys OpenKeys) ([]byte, error) {
	if keys.SenderKey == nil || keys.DecryptionKey == nil {
		return nil, ErrMissingKey
	}

	encrypted, err := verify(sealed, keys.SenderKey)
	if err != nil {
		return nil, fmt.Errorf("verify outer signature: %w", err)
	}

	jwe, err := jose.ParseEncrypted(string(encrypted))
	if err != nil {
		return nil, fmt.Errorf("parse jwe: %w", err)
	}
	inner, err := jwe.Decrypt(keys.DecryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt jwe: %w", err)
	}

	payload, err := verify(string(inner), keys.SenderKey)
	if err != nil {
		return nil, fmt.Errorf("verify inner signature: %w", err)
	}
	return payload, nil
}

// Thumbprint returns the base64url SHA-256 digest of the DER certificate.
func Thumbprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newSigner(keys SealKeys) (jose.Signer, error) {
	opts := (&jose.SignerOptions{}).WithType("JOSE")
	if keys.SigningCert != nil {
		opts = opts.WithHeader("x5t#S256", Thumbprint(keys.SigningCert))
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: keys.SigningKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return signer, nil
}

func sign(signer jose.Signer, payload []byte) (string, error) {
	jws, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return jws.CompactSerialize()
}

func verify(compact string, key *rsa.PublicKey) ([]byte, error) {
	jws, err := jose.ParseSigned(compact)
	if err != nil {
		return nil, err
	}
	return jws.Verify(key)
}
