package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
)

const sealEncrypted = "aes-gcm"

// ErrNotEncrypted is returned when a stored page carries no encrypted envelope.
var ErrNotEncrypted = errors.New("page is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.PageStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts pages using AES-GCM (envelope encryption).
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.PageStore) ports.PageStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	plainText, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey, binding(scope, page.Name))
	if err != nil {
		return fmt.Errorf("failed to encrypt page: %w", err)
	}

	// The envelope keeps only what the store needs to address the page.
	envelope := domain.NewPage(page.Name, "")
	envelope.Seals = map[string]string{
		sealEncrypted: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.SavePage(ctx, scope, envelope)
}

func (m *encryptionMiddleware) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	envelope, err := m.next.LoadPage(ctx, scope, name)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelope.Seals[sealEncrypted]
	if !ok {
		return nil, ErrNotEncrypted
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, binding(scope, name), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt page: %w", err)
	}

	var page domain.Page
	if err := json.Unmarshal(plainText, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted page: %w", err)
	}
	return &page, nil
}

func (m *encryptionMiddleware) DeletePage(ctx context.Context, scope, name string) error {
	return m.next.DeletePage(ctx, scope, name)
}

func (m *encryptionMiddleware) ListPages(ctx context.Context, scope string) ([]string, error) {
	return m.next.ListPages(ctx, scope)
}

func (m *encryptionMiddleware) NextPageID(ctx context.Context, scope string) (int64, error) {
	return m.next.NextPageID(ctx, scope)
}

// Helpers

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, aad, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, aad, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, aad, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], aad)
}
