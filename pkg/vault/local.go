package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// LocalCipher implements core.Cipher with AES-256-GCM and an in-process
// key. It exists for local development and tests, where no KMS endpoint is
// reachable; production deployments use KMSCipher.
type LocalCipher struct {
	aead cipher.AEAD
}

// NewLocalCipher creates a local cipher from a 32-byte key.
func NewLocalCipher(key []byte) (*LocalCipher, error) {
	if len(key) != 32 {
		return nil, errors.New("local cipher key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &LocalCipher{aead: aead}, nil
}

// Encrypt seals the plaintext with a random nonce, returning
// base64(nonce || ciphertext).
func (c *LocalCipher) Encrypt(_ context.Context, plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *LocalCipher) Decrypt(_ context.Context, ciphertext string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, data := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}
