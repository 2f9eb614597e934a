// Package pkce generates the random material of the code flow: PKCE
// verifiers and challenges, opaque state values and authorization codes.
package pkce

import (
	"crypto/rand"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// verifier and state values draw from the unreserved character set of
// RFC 7636 §4.1.
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// VerifierLength is the default length of a generated code verifier.
const VerifierLength = 64

// GenerateVerifier returns a random PKCE code verifier of n characters.
func GenerateVerifier(n int) string {
	return randomString(n)
}

// ChallengeFromVerifier returns the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func ChallengeFromVerifier(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// VerifierMatches reports whether the verifier hashes to the recorded
// challenge.
func VerifierMatches(verifier, challenge string) bool {
	return ChallengeFromVerifier(verifier) == challenge
}

// GenerateState returns a random opaque state value of n characters.
func GenerateState(n int) string {
	return randomString(n)
}

// NewCode returns a globally unique authorization code.
func NewCode() string {
	return uuid.New().String()
}

func randomString(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	out := make([]byte, n)
	for i, c := range b {
		out[i] = charset[int(c)%len(charset)]
	}
	return string(out)
}
