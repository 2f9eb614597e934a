package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/go-identity/sso-broker/pkg/core"
)

func testCipher(t *testing.T) *LocalCipher {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	cipher, err := NewLocalCipher(key)
	if err != nil {
		t.Fatalf("NewLocalCipher() error = %v", err)
	}
	return cipher
}

func TestLocalCipherRoundTrip(t *testing.T) {
	cipher := testCipher(t)
	ctx := context.Background()

	for _, plaintext := range []string{"", "token", "eyJhbGciOiJIUzI1NiJ9.e30.sig"} {
		sealed, err := cipher.Encrypt(ctx, plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plaintext, err)
		}
		if sealed == plaintext && plaintext != "" {
			t.Errorf("ciphertext equals plaintext %q", plaintext)
		}
		opened, err := cipher.Decrypt(ctx, sealed)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if opened != plaintext {
			t.Errorf("round trip = %q, want %q", opened, plaintext)
		}
	}
}

func TestLocalCipherRejectsTamperedCiphertext(t *testing.T) {
	cipher := testCipher(t)
	ctx := context.Background()

	sealed, err := cipher.Encrypt(ctx, "token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	if _, err := cipher.Decrypt(ctx, base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Error("Decrypt() should fail on tampered ciphertext")
	}
}

func TestNewLocalCipherKeyLength(t *testing.T) {
	if _, err := NewLocalCipher([]byte("short")); err == nil {
		t.Error("NewLocalCipher() should reject short keys")
	}
}

func TestTokenVaultRoundTrip(t *testing.T) {
	v := New(testCipher(t))
	ctx := context.Background()

	tokens := core.TokenSet{
		AccessToken:  "at",
		IDToken:      "it",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		TokenType:    "Bearer",
	}

	encrypted, err := v.EncryptTokens(ctx, tokens)
	if err != nil {
		t.Fatalf("EncryptTokens() error = %v", err)
	}
	if encrypted.AccessToken == tokens.AccessToken {
		t.Error("access token was not encrypted")
	}
	if encrypted.ExpiresIn != tokens.ExpiresIn || encrypted.TokenType != tokens.TokenType {
		t.Error("non-token fields must pass through unchanged")
	}

	decrypted, err := v.DecryptTokens(ctx, encrypted)
	if err != nil {
		t.Fatalf("DecryptTokens() error = %v", err)
	}
	if decrypted != tokens {
		t.Errorf("round trip = %+v, want %+v", decrypted, tokens)
	}
}

type failingCipher struct{}

func (failingCipher) Encrypt(context.Context, string) (string, error) {
	return "", errors.New("encrypt unavailable")
}

func (failingCipher) Decrypt(context.Context, string) (string, error) {
	return "", errors.New("decrypt unavailable")
}

func TestTokenVaultPropagatesCipherErrors(t *testing.T) {
	v := New(failingCipher{})
	ctx := context.Background()

	if _, err := v.EncryptTokens(ctx, core.TokenSet{AccessToken: "at"}); err == nil {
		t.Error("EncryptTokens() should propagate cipher errors")
	}
	if _, err := v.DecryptTokens(ctx, core.TokenSet{AccessToken: "ct"}); err == nil {
		t.Error("DecryptTokens() should propagate cipher errors")
	}
}

type fakeKMS struct {
	lastPlaintext []byte
}

func (f *fakeKMS) Encrypt(_ context.Context, params *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.lastPlaintext = params.Plaintext
	// Reverse the bytes so ciphertext differs from plaintext.
	blob := make([]byte, len(params.Plaintext))
	for i, b := range params.Plaintext {
		blob[len(blob)-1-i] = b
	}
	return &kms.EncryptOutput{CiphertextBlob: blob}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, params *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	plain := make([]byte, len(params.CiphertextBlob))
	for i, b := range params.CiphertextBlob {
		plain[len(plain)-1-i] = b
	}
	return &kms.DecryptOutput{Plaintext: plain}, nil
}

func TestKMSCipherRoundTrip(t *testing.T) {
	cipher := NewKMSCipher(&fakeKMS{}, "alias/broker-tokens")
	ctx := context.Background()

	sealed, err := cipher.Encrypt(ctx, "token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(sealed); err != nil {
		t.Errorf("ciphertext is not base64: %v", err)
	}

	opened, err := cipher.Decrypt(ctx, sealed)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if opened != "token" {
		t.Errorf("round trip = %q, want %q", opened, "token")
	}
}
