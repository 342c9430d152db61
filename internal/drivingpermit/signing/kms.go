package signing

import (
	"context"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/golang-jwt/jwt/v5"
)

// p256 coordinate size in bytes.
const coordinateSize = 32

// KMSClient is the subset of the KMS API used for signing.
type KMSClient interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KMSSigner signs with an asymmetric ECC_NIST_P256 key held in AWS KMS.
type KMSSigner struct {
	client KMSClient
	keyID  string
}

func NewKMSSigner(client KMSClient, keyID string) (*KMSSigner, error) {
	if client == nil {
		return nil, errors.New("kms client is required")
	}
	if keyID == "" {
		return nil, errors.New("kms key id is required")
	}
	return &KMSSigner{client: client, keyID: keyID}, nil
}

// NewKMSSignerFromEnv builds the KMS client from the default AWS
// configuration chain (environment, shared config, instance role).
func NewKMSSignerFromEnv(ctx context.Context, keyID string) (*KMSSigner, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewKMSSigner(kms.NewFromConfig(cfg), keyID)
}

func (s *KMSSigner) Sign(ctx context.Context, claims jwt.Claims) (string, error) {
	signingString, err := newToken(claims, s.keyID).SigningString()
	if err != nil {
		return "", signingFailure("encode token", err)
	}
	digest := sha256.Sum256([]byte(signingString))

	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest[:],
		MessageType:      types.MessageTypeDigest,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
	})
	if err != nil {
		return "", signingFailure("kms sign", err)
	}

	sig, err := derToConcat(out.Signature, coordinateSize)
	if err != nil {
		return "", signingFailure("decode kms signature", err)
	}
	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

type ecdsaSignature struct {
	R, S *big.Int
}

// derToConcat converts an ASN.1 DER ECDSA signature into the fixed-width
// R||S form JWS expects.
func derToConcat(der []byte, size int) ([]byte, error) {
	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errors.New("trailing data after signature")
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, errors.New("invalid signature values")
	}
	r, sBytes := sig.R.Bytes(), sig.S.Bytes()
	if len(r) > size || len(sBytes) > size {
		return nil, errors.New("signature value too large for curve")
	}
	out := make([]byte, 2*size)
	copy(out[size-len(r):size], r)
	copy(out[2*size-len(sBytes):], sBytes)
	return out, nil
}
