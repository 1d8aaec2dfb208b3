package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/boogy/aws-cognito-warden/pkg/response"
	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/boogy/aws-cognito-warden/pkg/utils"
	"github.com/boogy/aws-cognito-warden/pkg/validator"
)

// MaxTokenLength is the maximum allowed length for a bearer token
const MaxTokenLength = 16384 // 16KB

// MaxLoggedErrorLength bounds the error text logged for a rejected request
const MaxLoggedErrorLength = 256

var (
	ErrMissingToken  = errors.New("bearer token is missing")
	ErrTokenTooLarge = errors.New("token exceeds maximum allowed size")
)

// TokenExtractor pulls the raw token out of a request
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor reads "Authorization: Bearer <token>"
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	token, ok := utils.BearerToken(header)
	if !ok {
		return "", fmt.Errorf("%w: authorization header is not a bearer credential", ErrMissingToken)
	}
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLarge
	}
	return token, nil
}

// Identity is the verified caller attached to the request context
type Identity struct {
	Subject  string   `json:"sub"`
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// IdentityFromClaims copies the caller attributes out of verified claims
func IdentityFromClaims(claims *types.CognitoClaims) Identity {
	return Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Username: claims.PreferredUsername(),
		Groups:   claims.Groups,
	}
}

type identityKey struct{}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the Authenticator
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticator guards handlers behind token verification
type Authenticator struct {
	Validator validator.TokenValidatorInterface
	Extractor TokenExtractor
}

// NewAuthenticator creates an Authenticator reading bearer tokens from the Authorization header
func NewAuthenticator(v validator.TokenValidatorInterface) *Authenticator {
	return &Authenticator{
		Validator: v,
		Extractor: AuthHeaderTokenExtractor,
	}
}

// Handler verifies the request token before calling next.
// Every failure produces the same 401 body, the reason is only logged.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slog.With(
			slog.String("requestId", response.RequestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
		)

		token, err := a.Extractor(r)
		if err != nil {
			log.Info("Rejected request without usable token",
				slog.String("error", utils.TruncateString(err.Error(), MaxLoggedErrorLength)))
			unauthorizedResponse(w, r)
			return
		}

		claims, err := a.Validator.Validate(r.Context(), token)
		if err != nil {
			reason := "unknown"
			if cause := validator.Reason(err); cause != nil {
				reason = cause.Error()
			}
			log.Info("Token validation failed",
				slog.String("reason", reason),
				slog.String("token", utils.RedactToken(token, 10, 10)),
				slog.String("error", utils.TruncateString(err.Error(), MaxLoggedErrorLength)))
			unauthorizedResponse(w, r)
			return
		}

		id := IdentityFromClaims(claims)
		log.Debug("Token validated", slog.String("sub", id.Subject))
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="aws-cognito-warden"`)
	response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
}
