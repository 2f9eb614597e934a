package vault

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSClient defines the KMS operations used by KMSCipher, enabling mock
// injection for testing.
type KMSClient interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSCipher implements core.Cipher on top of AWS KMS. Ciphertexts are
// base64 encoded for storage as strings.
type KMSCipher struct {
	client KMSClient
	keyID  string
}

// NewKMSCipher creates a KMS-backed cipher for the given key ID or alias.
func NewKMSCipher(client KMSClient, keyID string) *KMSCipher {
	return &KMSCipher{client: client, keyID: keyID}
}

// NewKMSCipherFromConfig loads the default AWS configuration and creates a
// KMS-backed cipher for the given key ID or alias.
func NewKMSCipherFromConfig(ctx context.Context, keyID string) (*KMSCipher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewKMSCipher(kms.NewFromConfig(cfg), keyID), nil
}

// Encrypt encrypts a token string under the configured key.
func (c *KMSCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	out, err := c.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(c.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("kms encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt decrypts a base64 ciphertext produced by Encrypt.
func (c *KMSCipher) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	out, err := c.client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return "", fmt.Errorf("kms decrypt: %w", err)
	}
	return string(out.Plaintext), nil
}
