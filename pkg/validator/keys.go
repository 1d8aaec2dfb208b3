package validator

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/boogy/aws-cognito-warden/pkg/types"
)

// RSAPublicKey builds a verification key from the base64url modulus and exponent of key.
// Both are unsigned big-endian integers; trailing padding is tolerated.
func RSAPublicKey(key types.JSONWebKey) (*rsa.PublicKey, error) {
	if key.KeyType != "" && key.KeyType != "RSA" {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidKeyFormat, key.KeyType)
	}

	nBytes, err := decodeSegment(key.N)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode modulus: %w", ErrInvalidKeyFormat, err)
	}

	eBytes, err := decodeSegment(key.E)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode exponent: %w", ErrInvalidKeyFormat, err)
	}

	n := new(big.Int).SetBytes(nBytes)
	if n.Sign() == 0 {
		return nil, fmt.Errorf("%w: empty modulus", ErrInvalidKeyFormat)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: exponent out of range", ErrInvalidKeyFormat)
	}

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
