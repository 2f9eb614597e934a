package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-identity/sso-broker/pkg/core"
	"github.com/go-identity/sso-broker/pkg/pkce"
	"github.com/go-identity/sso-broker/pkg/store"
)

// createGrant encrypts a token set and stores it under a fresh code. The
// store TTL is set past the logical code lifetime on purpose: a redemption
// of a recently expired code can then be told apart from an unknown one.
func (s *Service) createGrant(ctx context.Context, clientID, redirectURI, codeChallenge string, tokens core.TokenSet) (*core.Grant, error) {
	if clientID == "" || redirectURI == "" || tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing grant credentials", core.ErrValidation)
	}

	encrypted, err := s.vault.EncryptTokens(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstream, err)
	}

	now := s.now().UTC()
	grant := &core.Grant{
		Code:          pkce.NewCode(),
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		Tokens:        encrypted,
		CreatedAt:     now,
		TTL:           now.Add(core.GrantStoreTTL).Unix(),
	}
	if err := s.grants.PutGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("%w: store grant: %w", core.ErrUpstream, err)
	}
	return grant, nil
}

// Redeem exchanges an authorization code for the decrypted token set it
// guards. Once validation passes the identity checks, the grant is burned
// no matter what happens next: the code is single-use even on failure.
func (s *Service) Redeem(ctx context.Context, code, clientID, redirectURI, codeVerifier string) (core.TokenSet, error) {
	if code == "" {
		return core.TokenSet{}, core.ErrMissingCode
	}

	grant, err := s.grants.GetGrant(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrGrantNotFound) {
			return core.TokenSet{}, core.ErrInvalidCode
		}
		return core.TokenSet{}, fmt.Errorf("%w: load grant: %w", core.ErrUpstream, err)
	}

	if grant.ClientID != clientID {
		return core.TokenSet{}, core.ErrClientMismatch
	}
	if grant.RedirectURI != redirectURI {
		return core.TokenSet{}, core.ErrRedirectMismatch
	}

	// Past this point the grant is deleted on every exit path. Deletion is
	// best-effort: the logical expiry check bounds replay risk even when a
	// delete fails, so a failure is logged, not raised.
	defer func() {
		if err := s.grants.DeleteGrant(ctx, code); err != nil {
			core.LoggerFromCtx(ctx).Warn("failed to delete grant", "code", code, "error", err)
		}
	}()

	if grant.CodeChallenge != "" {
		if codeVerifier == "" {
			return core.TokenSet{}, core.ErrVerifierMissing
		}
		if !pkce.VerifierMatches(codeVerifier, grant.CodeChallenge) {
			return core.TokenSet{}, core.ErrVerifierMismatch
		}
	}

	// The store keeps grants past their logical lifetime for diagnostics,
	// so expiry is evaluated against CreatedAt, not store presence.
	if s.now().After(grant.CreatedAt.Add(core.GrantCodeLifetime)) {
		return core.TokenSet{}, core.ErrCodeExpired
	}

	tokens, err := s.vault.DecryptTokens(ctx, grant.Tokens)
	if err != nil {
		return core.TokenSet{}, fmt.Errorf("%w: invalid grant: %w", core.ErrRejected, err)
	}
	return tokens, nil
}
