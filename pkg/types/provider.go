package types

import (
	"fmt"
	"strings"
)

// cognitoHostFormat is the public Cognito identity provider host for a region
const cognitoHostFormat = "https://cognito-idp.%s.amazonaws.com"

// Provider identifies the Cognito user pool that issues and signs tokens
type Provider struct {
	Region     string // AWS region of the user pool (e.g., "eu-west-1")
	UserPoolID string // User pool identifier (e.g., "eu-west-1_AbCdEf123")

	// BaseURL replaces the regional Cognito host. Used for local stacks and tests.
	BaseURL string
}

// Issuer returns the value Cognito places in the "iss" claim of the pool's tokens
func (p Provider) Issuer() string {
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf(cognitoHostFormat, p.Region)
	}
	return base + "/" + p.UserPoolID
}

// JWKSURL returns the well-known location of the pool's public key set
func (p Provider) JWKSURL() string {
	return p.Issuer() + "/.well-known/jwks.json"
}

// String is used as a log attribute
func (p Provider) String() string {
	return p.Issuer()
}
