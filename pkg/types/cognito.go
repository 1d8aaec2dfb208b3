package types

import "github.com/golang-jwt/jwt/v5"

// CognitoClaims are the claims carried by Cognito ID and access tokens.
// Only populated after the token signature and registered claims were verified.
type CognitoClaims struct {
	jwt.RegisteredClaims
	TokenUse      string   `json:"token_use,omitempty"`        // "id" or "access"
	ClientID      string   `json:"client_id,omitempty"`        // Access tokens carry the app client here instead of "aud"
	Email         string   `json:"email,omitempty"`            // ID tokens only
	EmailVerified bool     `json:"email_verified,omitempty"`   // ID tokens only
	Username      string   `json:"cognito:username,omitempty"` // ID tokens
	AccessName    string   `json:"username,omitempty"`         // Access tokens
	Groups        []string `json:"cognito:groups,omitempty"`
	Scope         string   `json:"scope,omitempty"`
	AuthTime      int64    `json:"auth_time,omitempty"`
	EventID       string   `json:"event_id,omitempty"`
	OriginJTI     string   `json:"origin_jti,omitempty"`
}

// PreferredUsername returns the Cognito user name regardless of the token type
func (c *CognitoClaims) PreferredUsername() string {
	if c.Username != "" {
		return c.Username
	}
	return c.AccessName
}
