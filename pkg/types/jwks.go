package types

// JSONWebKey is a JSON web key as specified by RFC 7517.
// Only RSA signing keys are turned into verification keys; the remaining
// fields are carried so a persisted key set round-trips unchanged.
type JSONWebKey struct {
	Algorithm string   `json:"alg,omitempty"`
	KeyID     string   `json:"kid,omitempty"`
	KeyType   string   `json:"kty,omitempty"`
	Use       string   `json:"use,omitempty"`
	N         string   `json:"n,omitempty"`   // RSA modulus
	E         string   `json:"e,omitempty"`   // RSA public exponent
	X5c       []string `json:"x5c,omitempty"` // X.509 certificate chain
	X5t       string   `json:"x5t,omitempty"` // X.509 thumbprint
}

// JWKS represents a set of JSON Web Keys retrieved from a user pool's JWKS endpoint
type JWKS struct {
	Keys []JSONWebKey `json:"keys"`
}
