package core

import "time"

// Login result identifiers returned in the Result field of broker responses.
const (
	ResultLoggedIn          = "logged_in"
	ResultCodeFlowInitiated = "code_flow_initiated"
	ResultRefreshed         = "refreshed"
)

// OAuth2 grant types accepted by the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

const (
	// GrantStoreTTL is the hard, store-level lifetime of a grant. It is
	// intentionally longer than GrantCodeLifetime so that a redemption
	// attempt against an expired-but-not-yet-purged grant yields a
	// meaningful "expired" rejection instead of "not found".
	GrantStoreTTL = 15 * time.Minute

	// GrantCodeLifetime is the logical validity window of an authorization
	// code, measured from Grant.CreatedAt.
	GrantCodeLifetime = 5 * time.Minute
)

// TokenSet is the canonical bundle of tokens issued by the identity
// provider. It is produced by NormalizeTokens and treated as immutable.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// Grant is a pending, single-use authorization code binding a client
// application to an encrypted TokenSet.
type Grant struct {
	Code          string    `json:"code"`
	ClientID      string    `json:"clientId"`
	RedirectURI   string    `json:"redirectUri"`
	CodeChallenge string    `json:"codeChallenge,omitempty"`
	Tokens        TokenSet  `json:"tokens"`
	CreatedAt     time.Time `json:"createdAt"`
	// TTL is the store-level expiry instant as a Unix timestamp, honored by
	// the grant store independently of the logical code lifetime.
	TTL int64 `json:"ttl"`
}

// LoginParams carries the primary-login credentials.
type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthorizeParams carries the inputs of an authorize-client request.
type AuthorizeParams struct {
	ClientID      string
	RedirectURI   string
	State         string
	CodeChallenge string
	// Cookies is the session cookie jar of the calling browser. A valid
	// broker session holds accessToken, idToken and refreshToken entries.
	Cookies map[string]string
}

// TokenParams carries the inputs of a token-endpoint request.
type TokenParams struct {
	ClientID     string `json:"clientId"`
	RedirectURI  string `json:"redirectUri,omitempty"`
	GrantType    string `json:"grantType"`
	Code         string `json:"code,omitempty"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LoginResponse is returned by login, token and refresh operations.
type LoginResponse struct {
	Success        bool     `json:"success"`
	Result         string   `json:"result"`
	Authentication TokenSet `json:"authentication"`
}

// AuthorizeResponse is returned by the authorize-client operation. On
// success RedirectURI carries the issued code (and state, when supplied);
// on failure it carries the retry parameters and the error reason.
type AuthorizeResponse struct {
	Success     bool   `json:"success"`
	Result      string `json:"result"`
	Code        string `json:"code,omitempty"`
	RedirectURI string `json:"redirectUri"`
	State       string `json:"state,omitempty"`
	Error       string `json:"error,omitempty"`
}
