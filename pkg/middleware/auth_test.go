package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/boogy/aws-cognito-warden/pkg/validator"
)

// MockValidator is a mock implementation of the token validator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, token string) (*types.CognitoClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CognitoClaims), args.Error(1)
}

func TestAuthHeaderTokenExtractor(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		token   string
		wantErr error
	}{
		{name: "bearer token", header: "Bearer abc.def.ghi", token: "abc.def.ghi"},
		{name: "missing header", wantErr: ErrMissingToken},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrMissingToken},
		{name: "no credentials", header: "Bearer ", wantErr: ErrMissingToken},
		{name: "too large", header: "Bearer " + strings.Repeat("a", MaxTokenLength+1), wantErr: ErrTokenTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, err := AuthHeaderTokenExtractor(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}

func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = fmt.Fprintf(w, "%s|%s|%s|%s", id.Subject, id.Email, id.Username, strings.Join(id.Groups, ","))
	})
}

func TestAuthenticator_Success(t *testing.T) {
	v := new(MockValidator)
	v.On("Validate", mock.Anything, "good.token.value").Return(&types.CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
		Email:            "jane@example.com",
		Username:         "jane",
		Groups:           []string{"admins", "writers"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good.token.value")
	rec := httptest.NewRecorder()

	NewAuthenticator(v).Handler(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123|jane@example.com|jane|admins,writers", rec.Body.String())
	v.AssertExpectations(t)
}

func TestAuthenticator_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		validate error
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Token abc"},
		{name: "invalid signature", header: "Bearer bad.token.value", validate: fmt.Errorf("%w: %w", validator.ErrUnauthorized, validator.ErrSignatureInvalid)},
		{name: "unknown key", header: "Bearer bad.token.value", validate: fmt.Errorf("%w: %w", validator.ErrUnauthorized, validator.ErrMissingKey)},
		{name: "provider unavailable", header: "Bearer bad.token.value", validate: fmt.Errorf("%w: %w", validator.ErrUnauthorized, validator.ErrFetch)},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(MockValidator)
			if tt.validate != nil {
				v.On("Validate", mock.Anything, mock.Anything).Return(nil, tt.validate)
			}

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("next handler must not run")
			})
			NewAuthenticator(v).Handler(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			bodies = append(bodies, rec.Body.String())

			if tt.validate == nil {
				v.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
			}
		})
	}

	// The reason is never disclosed to the client
	for _, body := range bodies {
		assert.JSONEq(t, `{"success":false,"statusCode":401,"errorCode":"unauthorized","message":"Unauthorized"}`, body)
	}
}

func TestAuthenticator_LogsBoundedError(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	long := fmt.Errorf("%w: %w: %s", validator.ErrUnauthorized, validator.ErrMalformedToken, strings.Repeat("é", 4096))
	v := new(MockValidator)
	v.On("Validate", mock.Anything, mock.Anything).Return(nil, long)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad.token.value")
	rec := httptest.NewRecorder()
	NewAuthenticator(v).Handler(http.NotFoundHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Token validation failed", entry["msg"])

	logged, ok := entry["error"].(string)
	require.True(t, ok)
	assert.Equal(t, MaxLoggedErrorLength, utf8.RuneCountInString(logged))
	assert.True(t, strings.HasSuffix(logged, "..."))
	assert.NotContains(t, buf.String(), "bad.token.value")
}

func TestIdentityFromContext_Missing(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Subject: "abc"})
	id, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id.Subject)
}

func TestIdentityFromClaims_AccessToken(t *testing.T) {
	id := IdentityFromClaims(&types.CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "sub"},
		AccessName:       "jane",
	})
	assert.Equal(t, Identity{Subject: "sub", Username: "jane"}, id)
}
