package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-esign/core"
)

const (
	cipherPrefix = "esign.v1"
	defaultKeyID = "app-key"
)

type Option func(*TokenCipher)

// WithKeyID names the active key. The id is written into every ciphertext.
func WithKeyID(id string) Option {
	return func(c *TokenCipher) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.keyID = trimmed
		}
	}
}

// WithPreviousKey keeps an older key for decryption only, so stored tokens
// stay readable after the active key is rotated.
func WithPreviousKey(id string, keyMaterial []byte) Option {
	return func(c *TokenCipher) {
		id = strings.TrimSpace(id)
		material := bytes.TrimSpace(keyMaterial)
		if id == "" || len(material) == 0 {
			return
		}
		c.previous[id] = normalizeKey(material)
	}
}

// TokenCipher seals token values at rest with AES-GCM under an application
// key. Output format is esign.v1:<key id>:<base64(nonce|sealed)>.
type TokenCipher struct {
	key      []byte
	keyID    string
	previous map[string][]byte
}

func NewTokenCipher(keyMaterial []byte, opts ...Option) (*TokenCipher, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	c := &TokenCipher{
		key:      normalizeKey(key),
		keyID:    defaultKeyID,
		previous: map[string][]byte{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if strings.Contains(c.keyID, ":") {
		return nil, fmt.Errorf("security: key id %q must not contain ':'", c.keyID)
	}
	delete(c.previous, c.keyID)
	return c, nil
}

func NewTokenCipherFromString(key string, opts ...Option) (*TokenCipher, error) {
	return NewTokenCipher([]byte(key), opts...)
}

func (c *TokenCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: token cipher is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	gcm, err := newGCM(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(c.keyID))
	encoded := cipherPrefix + ":" + c.keyID + ":" + base64.RawURLEncoding.EncodeToString(sealed)
	return []byte(encoded), nil
}

func (c *TokenCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: token cipher is nil")
	}
	parts := strings.SplitN(string(ciphertext), ":", 3)
	if len(parts) != 3 || parts[0] != cipherPrefix {
		return nil, fmt.Errorf("security: unrecognized ciphertext format")
	}
	keyID := parts[1]
	key := c.key
	if keyID != c.keyID {
		previous, ok := c.previous[keyID]
		if !ok {
			return nil, fmt.Errorf("security: unknown key id %q", keyID)
		}
		key = previous
	}
	sealed, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("security: decode ciphertext: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("security: ciphertext is truncated")
	}
	nonce, payload := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, payload, []byte(keyID))
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

func (c *TokenCipher) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

// normalizeKey uses 16, 24 or 32 byte material as is and hashes anything
// else down to an AES-256 key.
func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	return sum[:]
}

var _ core.SecretProvider = (*TokenCipher)(nil)
