package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer provides authenticated symmetric encryption for sensitive attribute
// values. Ciphertexts are self-contained (nonce prepended) and text-encoded so
// they fit the same storage column as plain values.
type Sealer struct {
	key []byte
}

const encodedPrefix = "enc:v1:"

// NewSealer derives a 32-byte key from the configured secret. An empty secret
// is rejected so sensitive attributes can never be written unprotected by
// accident.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("attribute encryption key is required")
	}
	key := sha256.Sum256([]byte(secret))
	return &Sealer{key: key[:]}, nil
}

// Seal encrypts plaintext and returns a text-encoded ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encodedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a text-encoded ciphertext produced by Seal.
func (s *Sealer) Open(encoded string) (string, error) {
	if len(encoded) < len(encodedPrefix) || encoded[:len(encodedPrefix)] != encodedPrefix {
		return "", fmt.Errorf("not a sealed value")
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded[len(encodedPrefix):])
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("sealed value too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether the stored representation carries the sealed prefix.
func IsSealed(stored string) bool {
	return len(stored) >= len(encodedPrefix) && stored[:len(encodedPrefix)] == encodedPrefix
}
