// Package broker implements the identity broker's authentication service:
// primary login, client authorization through the code flow, token
// redemption and refresh, and challenge-answer verification.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-identity/sso-broker/pkg/core"
	"github.com/go-identity/sso-broker/pkg/vault"
)

// Cookie names of a broker session. A browser holds all three after a
// successful primary login.
const (
	CookieAccessToken  = "accessToken"
	CookieIDToken      = "idToken"
	CookieRefreshToken = "refreshToken"
)

// Service orchestrates the grant lifecycle and the trust-handoff protocol.
// All collaborators are injected once at construction and shared across
// requests; Service itself holds no per-request state.
type Service struct {
	gateway core.IdentityProvider
	grants  core.GrantStore
	vault   *vault.TokenVault

	// now is injectable for expiry tests.
	now func() time.Time
}

// New creates a broker service from its collaborators.
func New(gateway core.IdentityProvider, grants core.GrantStore, tokenVault *vault.TokenVault) *Service {
	return &Service{
		gateway: gateway,
		grants:  grants,
		vault:   tokenVault,
		now:     time.Now,
	}
}

// Login authenticates a user with username/password against the broker's
// own IdP application. It issues tokens to the browser session directly and
// never creates a grant.
func (s *Service) Login(ctx context.Context, clientID string, params core.LoginParams) (*core.LoginResponse, error) {
	if params.Username == "" {
		return nil, core.ErrMissingUsername
	}
	if params.Password == "" {
		return nil, core.ErrMissingPassword
	}

	outcome, err := s.gateway.PrimaryLogin(ctx, clientID, params.Username, params.Password)
	if err != nil {
		return nil, err
	}
	if outcome.Challenge != "" {
		// The broker's primary flow is plain password auth; any pending
		// challenge means the pool is misconfigured for this client.
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedChallenge, outcome.Challenge)
	}

	return &core.LoginResponse{
		Success:        true,
		Result:         core.ResultLoggedIn,
		Authentication: core.NormalizeTokens(outcome.Tokens),
	}, nil
}

// AuthorizeClient initiates the code flow: it validates the client and the
// broker session, runs the custom-challenge exchange to mint client-scoped
// tokens, and stores them as an encrypted single-use grant. The response is
// always well-formed; failures carry a redirect URI that lets the browser
// retry primary login.
func (s *Service) AuthorizeClient(ctx context.Context, params core.AuthorizeParams) *core.AuthorizeResponse {
	logger := core.LoggerFromCtx(ctx)

	if params.ClientID == "" || params.RedirectURI == "" {
		return failedAuthorize(params, "Required parameters are missing")
	}

	hasSession := params.Cookies[CookieAccessToken] != "" &&
		params.Cookies[CookieIDToken] != "" &&
		params.Cookies[CookieRefreshToken] != ""
	if !hasSession {
		return failedAuthorize(params, "Missing Tokens")
	}

	check, err := s.gateway.ValidateClient(ctx, params.ClientID, params.RedirectURI)
	if err != nil {
		logger.Error("client validation failed", "client_id", params.ClientID, "error", err)
		return failedAuthorize(params, fmt.Sprintf("Failed to authorize for client: %s", params.ClientID))
	}
	if !check.Valid {
		return failedAuthorize(params, check.Message)
	}

	code, err := s.issueGrant(ctx, params)
	if err != nil {
		logger.Error("code flow initiation failed", "client_id", params.ClientID, "error", err)
		message := fmt.Sprintf("Failed to authorize for client: %s", params.ClientID)
		// The challenge-verifier fault is the one upstream message that is
		// actionable by the browser: the session token failed validation
		// and only a fresh login can fix it.
		var verifierErr *core.ChallengeVerifierError
		if errors.As(err, &verifierErr) {
			message = verifierErr.Message
		}
		return failedAuthorize(params, message)
	}

	return &core.AuthorizeResponse{
		Success:     true,
		Result:      core.ResultCodeFlowInitiated,
		Code:        code,
		RedirectURI: params.RedirectURI + "?code=" + code + stateQuery(params.State),
		State:       params.State,
	}
}

// issueGrant performs the fallible middle of AuthorizeClient: subject
// extraction, the challenge exchange and grant creation.
func (s *Service) issueGrant(ctx context.Context, params core.AuthorizeParams) (string, error) {
	accessToken := params.Cookies[CookieAccessToken]
	subject, err := sessionSubject(accessToken, s.now())
	if err != nil {
		return "", err
	}

	outcome, err := s.gateway.CustomChallengeExchange(ctx, params.ClientID, subject, accessToken)
	if err != nil {
		return "", err
	}
	if outcome.Challenge != "" {
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedChallenge, outcome.Challenge)
	}

	grant, err := s.createGrant(ctx, params.ClientID, params.RedirectURI, params.CodeChallenge,
		core.NormalizeTokens(outcome.Tokens))
	if err != nil {
		return "", err
	}
	return grant.Code, nil
}

// GetTokensForClient exchanges an authorization code or a refresh token for
// client-scoped tokens. Unlike the authorize operation this succeeds or
// fails as a whole; a failed redemption has no retry path with the same code.
func (s *Service) GetTokensForClient(ctx context.Context, params core.TokenParams) (*core.LoginResponse, error) {
	switch params.GrantType {
	case core.GrantTypeAuthorizationCode:
		tokens, err := s.Redeem(ctx, params.Code, params.ClientID, params.RedirectURI, params.CodeVerifier)
		if err != nil {
			return nil, fmt.Errorf("failed to authorize for client %s: %w", params.ClientID, err)
		}
		return &core.LoginResponse{
			Success:        true,
			Result:         core.ResultLoggedIn,
			Authentication: tokens,
		}, nil
	case core.GrantTypeRefreshToken:
		return s.RefreshToken(ctx, params.ClientID, params.RefreshToken)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidGrantType, params.GrantType)
	}
}

// RefreshToken issues fresh tokens from a refresh token. No grant is
// involved; the gateway is called directly.
func (s *Service) RefreshToken(ctx context.Context, clientID, refreshToken string) (*core.LoginResponse, error) {
	if refreshToken == "" {
		return nil, core.ErrMissingRefreshToken
	}

	outcome, err := s.gateway.Refresh(ctx, clientID, refreshToken)
	if err != nil {
		return nil, err
	}

	return &core.LoginResponse{
		Success:        true,
		Result:         core.ResultRefreshed,
		Authentication: core.NormalizeTokens(outcome.Tokens),
	}, nil
}

// VerifyAuthChallenge confirms that the access token supplied as a
// challenge answer belongs to the subject the IdP is authenticating. An
// invalid answer is an expected outcome, so introspection failures are
// logged and reported as not verified, never as an error.
func (s *Service) VerifyAuthChallenge(ctx context.Context, expectedUsername, accessToken string) bool {
	subject, err := s.gateway.Introspect(ctx, accessToken)
	if err != nil {
		core.LoggerFromCtx(ctx).Warn("unable to verify auth challenge",
			"username", expectedUsername, "error", err)
		return false
	}
	return subject == expectedUsername
}

// failedAuthorize builds the failure response of the authorize operation.
// Its redirect URI re-encodes the original request plus forceAuth=true so
// the browser can retry through primary login.
func failedAuthorize(params core.AuthorizeParams, reason string) *core.AuthorizeResponse {
	redirect := "?clientId=" + url.QueryEscape(params.ClientID) +
		"&redirectUri=" + url.QueryEscape(params.RedirectURI) +
		stateQuery(params.State) +
		"&forceAuth=true&error=" + url.QueryEscape(reason)
	return &core.AuthorizeResponse{
		Success:     false,
		Result:      core.ResultCodeFlowInitiated,
		RedirectURI: redirect,
		State:       params.State,
		Error:       reason,
	}
}

func stateQuery(state string) string {
	if state == "" {
		return ""
	}
	return "&state=" + url.QueryEscape(state)
}
