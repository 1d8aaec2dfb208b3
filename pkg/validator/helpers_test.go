package validator_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boogy/aws-cognito-warden/pkg/cache"
	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testRegion   = "eu-west-1"
	testPoolID   = "eu-west-1_AbCdEf123"
	testClientID = "3n4b5urk1ft4fl3mg5e62d9ado"
)

var testProvider = types.Provider{Region: testRegion, UserPoolID: testPoolID}

// MockFetcher is a mock implementation of the jwks.Fetcher interface
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, provider types.Provider) (*cache.Snapshot, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Snapshot), args.Error(1)
}

// countingFetcher returns the same key set on every call and counts the calls
type countingFetcher struct {
	keys  []types.JSONWebKey
	calls atomic.Int32
	delay time.Duration
}

func (f *countingFetcher) Fetch(ctx context.Context, provider types.Provider) (*cache.Snapshot, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return cache.NewSnapshot(f.keys), nil
}

// generateRSAKey creates an RSA key pair for testing
func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey
}

// jsonWebKey publishes publicKey under keyID the way Cognito does
func jsonWebKey(keyID string, publicKey *rsa.PublicKey) types.JSONWebKey {
	return types.JSONWebKey{
		KeyID:     keyID,
		KeyType:   "RSA",
		Algorithm: "RS256",
		Use:       "sig",
		N:         base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
		E:         base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
	}
}

// idTokenClaims returns valid ID token claims for the test pool
func idTokenClaims() *types.CognitoClaims {
	now := time.Now()
	return &types.CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testProvider.Issuer(),
			Subject:   "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TokenUse:      "id",
		Email:         "jane@example.com",
		EmailVerified: true,
		Username:      "jane",
		Groups:        []string{"admins"},
	}
}

// createCognitoToken signs claims with privateKey and names keyID in the header
func createCognitoToken(t *testing.T, privateKey *rsa.PrivateKey, keyID string, claims *types.CognitoClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if keyID != "" {
		token.Header["kid"] = keyID
	}

	tokenString, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return tokenString
}

// seededCache returns a slot cache holding keys
func seededCache(keys ...types.JSONWebKey) *cache.SlotCache {
	c := cache.NewSlotCache()
	c.Store(cache.NewSnapshot(keys))
	return c
}
