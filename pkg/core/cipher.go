package core

import "context"

// Cipher encrypts and decrypts individual token strings through an
// external encryption service. Implementations are stateless per call and
// hold no local key material beyond a key reference.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}
