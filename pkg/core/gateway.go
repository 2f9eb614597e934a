package core

import "context"

// ClientInfo describes a registered client application as known to the
// identity provider.
type ClientInfo struct {
	ClientID     string
	CallbackURIs []string
}

// ClientCheck is the outcome of validating a client and redirect URI pair.
type ClientCheck struct {
	Valid bool
	// Message is the provider's own rejection reason when Valid is false,
	// e.g. "Invalid Client" or "Invalid RedirectUri for Client".
	Message string
}

// IdentityProvider is the gateway to the central IdP. The broker consumes
// it as a narrow interface; implementations live in pkg/idp.
type IdentityProvider interface {
	// PrimaryLogin authenticates a user with username/password for the
	// given client application. A non-empty challenge name in the result
	// means the IdP wants another round, which the broker treats as an
	// authentication failure.
	PrimaryLogin(ctx context.Context, clientID, username, password string) (*AuthOutcome, error)

	// CustomChallengeExchange converts a valid broker session access token
	// into client-scoped tokens through the custom-challenge handshake.
	CustomChallengeExchange(ctx context.Context, clientID, username, accessToken string) (*AuthOutcome, error)

	// Refresh issues fresh tokens from a refresh token.
	Refresh(ctx context.Context, clientID, refreshToken string) (*AuthOutcome, error)

	// Introspect resolves an access token to the subject it was issued to.
	// Fails for expired, revoked or malformed tokens.
	Introspect(ctx context.Context, accessToken string) (subject string, err error)

	// ValidateClient confirms the client exists and that redirectURI
	// matches one of its registered callbacks, case-insensitively.
	ValidateClient(ctx context.Context, clientID, redirectURI string) (ClientCheck, error)
}

// AuthOutcome is a raw authentication result from the identity provider:
// either a token payload or a pending challenge.
type AuthOutcome struct {
	Tokens RawTokens
	// Challenge is the name of a pending auth challenge, empty when the
	// provider issued tokens directly.
	Challenge string
}
