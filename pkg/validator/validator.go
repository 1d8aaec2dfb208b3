package validator

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/boogy/aws-cognito-warden/pkg/config"
	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

type TokenValidatorInterface interface {
	Validate(ctx context.Context, token string) (*types.CognitoClaims, error)
}

type TokenValidator struct {
	Provider         types.Provider
	ExpectedIssuer   string
	ExpectedAudience string // app client id
	TokenUse         string // "id" or "access"
	Resolver         KeyResolverInterface
	Leeway           time.Duration
	TimeFunc         func() time.Time
}

func NewTokenValidator(cfg *config.Config, resolver KeyResolverInterface) *TokenValidator {
	tokenUse := cfg.TokenUse
	if tokenUse == "" {
		tokenUse = config.TokenUseID
	}

	return &TokenValidator{
		Provider:         cfg.Provider(),
		ExpectedIssuer:   cfg.ExpectedIssuer(),
		ExpectedAudience: cfg.ClientID,
		TokenUse:         tokenUse,
		Resolver:         resolver,
	}
}

// Validate verifies token and returns its claims. Any failure matches ErrUnauthorized;
// the precise reason is only meant for logs.
func (t *TokenValidator) Validate(ctx context.Context, token string) (*types.CognitoClaims, error) {
	kid, err := keyID(token)
	if err != nil {
		return nil, unauthorized(ErrMalformedToken, err)
	}

	key, err := t.Resolver.Resolve(ctx, kid, t.Provider)
	if err != nil {
		return nil, unauthorized(Reason(err), err)
	}

	claims, err := t.ParseToken(token, key)
	if err != nil {
		return nil, err
	}

	if err := t.checkTokenUse(claims); err != nil {
		return nil, unauthorized(ErrClaimInvalid, err)
	}

	return claims, nil
}

// keyID reads the "kid" header without verifying anything
func keyID(token string) (string, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(token, &types.CognitoClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return "", fmt.Errorf("%w: missing or invalid kid in token header", ErrMalformedToken)
	}
	return kid, nil
}

// ParseToken checks the RS256 signature with key, then issuer, audience and time claims.
func (t *TokenValidator) ParseToken(token string, key *rsa.PublicKey) (*types.CognitoClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(t.ExpectedIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(t.Leeway),
	}
	// Access tokens carry no "aud", their client is checked by checkTokenUse
	if t.TokenUse != config.TokenUseAccess {
		opts = append(opts, jwt.WithAudience(t.ExpectedAudience))
	}
	if t.TimeFunc != nil {
		opts = append(opts, jwt.WithTimeFunc(t.TimeFunc))
	}

	var claims types.CognitoClaims
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, unauthorized(parseReason(err), fmt.Errorf("token validation failed: %w", err))
	}

	if !parsed.Valid {
		return nil, unauthorized(ErrSignatureInvalid, errors.New("token is invalid"))
	}

	if claims.Subject == "" {
		return nil, unauthorized(ErrClaimInvalid, errors.New("subject is required"))
	}

	return &claims, nil
}

func (t *TokenValidator) checkTokenUse(claims *types.CognitoClaims) error {
	if claims.TokenUse != "" && claims.TokenUse != t.TokenUse {
		return fmt.Errorf("token_use %q, %q expected", claims.TokenUse, t.TokenUse)
	}

	if t.TokenUse == config.TokenUseAccess && claims.ClientID != t.ExpectedAudience {
		return fmt.Errorf("client_id %q, %q expected", claims.ClientID, t.ExpectedAudience)
	}

	return nil
}

// parseReason maps golang-jwt errors onto the rejection reasons
func parseReason(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrClaimInvalid
	default:
		return ErrMalformedToken
	}
}
