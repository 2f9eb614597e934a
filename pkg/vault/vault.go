// Package vault encrypts token sets at rest through an external cipher.
package vault

import (
	"context"
	"fmt"

	"github.com/go-identity/sso-broker/pkg/core"
)

// TokenVault encrypts and decrypts the token fields of a TokenSet one by
// one. It is stateless; all key material lives behind the Cipher.
type TokenVault struct {
	cipher core.Cipher
}

// New creates a TokenVault backed by the given cipher.
func New(cipher core.Cipher) *TokenVault {
	return &TokenVault{cipher: cipher}
}

// EncryptTokens returns a copy of ts with the access, ID and refresh token
// fields individually encrypted. ExpiresIn and TokenType pass through.
func (v *TokenVault) EncryptTokens(ctx context.Context, ts core.TokenSet) (core.TokenSet, error) {
	var err error
	out := ts
	if out.AccessToken, err = v.cipher.Encrypt(ctx, ts.AccessToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("encrypt access token: %w", err)
	}
	if out.IDToken, err = v.cipher.Encrypt(ctx, ts.IDToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("encrypt id token: %w", err)
	}
	if out.RefreshToken, err = v.cipher.Encrypt(ctx, ts.RefreshToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return out, nil
}

// DecryptTokens reverses EncryptTokens.
func (v *TokenVault) DecryptTokens(ctx context.Context, ts core.TokenSet) (core.TokenSet, error) {
	var err error
	out := ts
	if out.AccessToken, err = v.cipher.Decrypt(ctx, ts.AccessToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("decrypt access token: %w", err)
	}
	if out.IDToken, err = v.cipher.Decrypt(ctx, ts.IDToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("decrypt id token: %w", err)
	}
	if out.RefreshToken, err = v.cipher.Decrypt(ctx, ts.RefreshToken); err != nil {
		return core.TokenSet{}, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return out, nil
}
