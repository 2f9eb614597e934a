package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by the broker wraps exactly one of
// the four category sentinels, so transports can map them with errors.Is
// without inspecting message text.
var (
	// ErrValidation marks missing or malformed required input, detected
	// before any external call.
	ErrValidation = errors.New("validation failed")
	// ErrRejected marks semantically expected authorization rejections:
	// client/redirect mismatch, invalid or expired grants, PKCE mismatch.
	ErrRejected = errors.New("authorization rejected")
	// ErrUpstream marks a failed identity provider, store or encryption
	// call. Never retried inside the broker.
	ErrUpstream = errors.New("upstream failure")
	// ErrTimeout marks an operation that did not complete inside the
	// caller's remaining execution budget.
	ErrTimeout = errors.New("operation timed out")
)

// ChallengeVerifierError is returned by the gateway when the IdP signals
// that its challenge-verifier callback failed during the custom-challenge
// round trip. Its message is passed through to the browser verbatim, since
// it means the session token failed validation and a fresh login is the fix.
// All other upstream failures are surfaced with a generic message.
type ChallengeVerifierError struct {
	Message string
}

func (e *ChallengeVerifierError) Error() string {
	return "challenge verifier fault: " + e.Message
}

// Unwrap classifies the fault as an upstream failure for errors.Is.
func (e *ChallengeVerifierError) Unwrap() error { return ErrUpstream }

// Validation errors.
var (
	ErrMissingUsername     = fmt.Errorf("%w: missing username", ErrValidation)
	ErrMissingPassword     = fmt.Errorf("%w: missing password", ErrValidation)
	ErrMissingCode         = fmt.Errorf("%w: missing authorization code", ErrValidation)
	ErrMissingRefreshToken = fmt.Errorf("%w: missing refresh token", ErrValidation)
	ErrInvalidGrantType    = fmt.Errorf("%w: invalid grantType", ErrValidation)
)

// Rejection errors. Messages mirror the reasons surfaced to clients.
var (
	ErrInvalidCode          = fmt.Errorf("%w: invalid authorization code", ErrRejected)
	ErrClientMismatch       = fmt.Errorf("%w: client ID does not match authorization code", ErrRejected)
	ErrRedirectMismatch     = fmt.Errorf("%w: redirect uri does not match authorization code", ErrRejected)
	ErrVerifierMissing      = fmt.Errorf("%w: code verifier is missing", ErrRejected)
	ErrVerifierMismatch     = fmt.Errorf("%w: code verifier does not match code challenge", ErrRejected)
	ErrCodeExpired          = fmt.Errorf("%w: authorization code expired", ErrRejected)
	ErrUnsupportedChallenge = fmt.Errorf("%w: unsupported authentication challenge", ErrRejected)
)
