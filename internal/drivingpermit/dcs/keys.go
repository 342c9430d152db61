package dcs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ParsePrivateKey reads an RSA private key in PKCS#1 or PKCS#8 PEM form.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("expected RSA private key, got %T", key)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

// ParseCertificate reads a PEM certificate whose public key is RSA.
func ParseCertificate(pemData []byte) (*x509.Certificate, *rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, nil, errors.New("no CERTIFICATE PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("expected RSA public key, got %T", cert.PublicKey)
	}
	return cert, pub, nil
}

// KeyMaterial is the PEM input for both directions of the exchange.
type KeyMaterial struct {
	IssuerSigningKey    []byte
	IssuerSigningCert   []byte
	IssuerEncryptionKey []byte
	DCSSigningCert      []byte
	DCSEncryptionCert   []byte
}

// LoadKeys parses the PEM material into the keys used to seal requests and
// open responses.
func LoadKeys(m KeyMaterial) (SealKeys, OpenKeys, error) {
	signingKey, err := ParsePrivateKey(m.IssuerSigningKey)
	if err != nil {
		return SealKeys{}, OpenKeys{}, fmt.Errorf("issuer signing key: %w", err)
	}
	var signingCert *x509.Certificate
	if len(m.IssuerSigningCert) > 0 {
		if signingCert, _, err = ParseCertificate(m.IssuerSigningCert); err != nil {
			return SealKeys{}, OpenKeys{}, fmt.Errorf("issuer signing cert: %w", err)
		}
	}
	decryptionKey, err := ParsePrivateKey(m.IssuerEncryptionKey)
	if err != nil {
		return SealKeys{}, OpenKeys{}, fmt.Errorf("issuer encryption key: %w", err)
	}
	_, dcsSigning, err := ParseCertificate(m.DCSSigningCert)
	if err != nil {
		return SealKeys{}, OpenKeys{}, fmt.Errorf("dcs signing cert: %w", err)
	}
	_, dcsEncryption, err := ParseCertificate(m.DCSEncryptionCert)
	if err != nil {
		return SealKeys{}, OpenKeys{}, fmt.Errorf("dcs encryption cert: %w", err)
	}

	seal := SealKeys{SigningKey: signingKey, SigningCert: signingCert, RecipientKey: dcsEncryption}
	open := OpenKeys{SenderKey: dcsSigning, DecryptionKey: decryptionKey}
	return seal, open, nil
}
