package validator

import (
	"errors"

	"github.com/boogy/aws-cognito-warden/pkg/jwks"
)

// ErrUnauthorized is the only outcome callers outside this package should act on.
// Every error returned by TokenValidator.Validate matches it with errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// Reasons kept in the error chain for logs. They never reach the client.
var (
	ErrFetch            = jwks.ErrFetch
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrMissingKey       = errors.New("key id not found in key set")
	ErrMalformedToken   = errors.New("malformed token")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrClaimInvalid     = errors.New("token claims are invalid")
)

var reasons = []error{
	ErrMalformedToken,
	ErrFetch,
	ErrMissingKey,
	ErrInvalidKeyFormat,
	ErrSignatureInvalid,
	ErrClaimInvalid,
}

// authError ties a rejection reason to ErrUnauthorized. It is unexported so
// callers only branch on errors.Is.
type authError struct {
	reason error
	err    error
}

// Is reports a match for ErrUnauthorized and for the rejection reason
func (e *authError) Is(target error) bool {
	return target == ErrUnauthorized || (e.reason != nil && target == e.reason)
}

func (e *authError) Error() string {
	switch {
	case e.err != nil:
		return "unauthorized: " + e.err.Error()
	case e.reason != nil:
		return "unauthorized: " + e.reason.Error()
	default:
		return ErrUnauthorized.Error()
	}
}

func (e *authError) Unwrap() error {
	return e.err
}

func unauthorized(reason, err error) error {
	if err == nil {
		err = reason
	}
	return &authError{reason: reason, err: err}
}

// Reason returns the rejection reason carried by err, or nil when it has none
func Reason(err error) error {
	var ae *authError
	if errors.As(err, &ae) && ae.reason != nil {
		return ae.reason
	}
	for _, reason := range reasons {
		if errors.Is(err, reason) {
			return reason
		}
	}
	return nil
}
