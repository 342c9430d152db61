// Package dcstest provides key material and a fake document checking
// service for tests.
package dcstest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"permitcheck/internal/drivingpermit/dcs"
)

// Keys holds both parties' key pairs and certificates.
type Keys struct {
	IssuerSigning    *rsa.PrivateKey
	IssuerEncryption *rsa.PrivateKey
	DCSSigning       *rsa.PrivateKey
	DCSEncryption    *rsa.PrivateKey

	IssuerSigningCert *x509.Certificate
	DCSSigningCert    *x509.Certificate
	DCSEncryptionCert *x509.Certificate
}

func NewKeys(t testing.TB) *Keys {
	t.Helper()
	k := &Keys{
		IssuerSigning:    newKey(t),
		IssuerEncryption: newKey(t),
		DCSSigning:       newKey(t),
		DCSEncryption:    newKey(t),
	}
	k.IssuerSigningCert = selfSigned(t, k.IssuerSigning, "permitcheck-signing")
	k.DCSSigningCert = selfSigned(t, k.DCSSigning, "dcs-signing")
	k.DCSEncryptionCert = selfSigned(t, k.DCSEncryption, "dcs-encryption")
	return k
}

// IssuerSeal seals requests towards the DCS.
func (k *Keys) IssuerSeal() dcs.SealKeys {
	return dcs.SealKeys{
		SigningKey:   k.IssuerSigning,
		SigningCert:  k.IssuerSigningCert,
		RecipientKey: &k.DCSEncryption.PublicKey,
	}
}

// IssuerOpen opens DCS responses.
func (k *Keys) IssuerOpen() dcs.OpenKeys {
	return dcs.OpenKeys{SenderKey: &k.DCSSigning.PublicKey, DecryptionKey: k.IssuerEncryption}
}

// DCSOpen opens requests on the DCS side.
func (k *Keys) DCSOpen() dcs.OpenKeys {
	return dcs.OpenKeys{SenderKey: &k.IssuerSigning.PublicKey, DecryptionKey: k.DCSEncryption}
}

// DCSSeal seals responses on the DCS side.
func (k *Keys) DCSSeal() dcs.SealKeys {
	return dcs.SealKeys{
		SigningKey:   k.DCSSigning,
		SigningCert:  k.DCSSigningCert,
		RecipientKey: &k.IssuerEncryption.PublicKey,
	}
}

// Material returns the issuer-side PEM inputs accepted by dcs.LoadKeys.
func (k *Keys) Material() dcs.KeyMaterial {
	return dcs.KeyMaterial{
		IssuerSigningKey:    pemBlock("PRIVATE KEY", pkcs8(k.IssuerSigning)),
		IssuerSigningCert:   pemBlock("CERTIFICATE", k.IssuerSigningCert.Raw),
		IssuerEncryptionKey: pemBlock("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(k.IssuerEncryption)),
		DCSSigningCert:      pemBlock("CERTIFICATE", k.DCSSigningCert.Raw),
		DCSEncryptionCert:   pemBlock("CERTIFICATE", k.DCSEncryptionCert.Raw),
	}
}

func newKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func selfSigned(t testing.TB, key *rsa.PrivateKey, cn string) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func pkcs8(key *rsa.PrivateKey) []byte {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic(err)
	}
	return der
}

func pemBlock(typ string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
}
