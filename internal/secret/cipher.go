package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	secure "github.com/soulteary/secure-kit"
)

// SealedPrefix marks a seed that was encrypted with Seal.
const SealedPrefix = "sealed:"

var (
	// ErrKeySize is returned when no seed key is configured.
	ErrKeySize = errors.New("seed key must not be empty")
	// ErrEmptySeed is returned by Seal for an empty seed.
	ErrEmptySeed = errors.New("seed must not be empty")
	// ErrNotSealed is returned by Open when the payload after the prefix is not base64.
	ErrNotSealed = errors.New("value is not a sealed seed")
	// ErrCiphertextShort is returned when the sealed payload is shorter than the GCM nonce.
	ErrCiphertextShort = errors.New("sealed seed too short")
)

// IsSealed reports whether v carries the sealed: prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), SealedPrefix)
}

// Seal encrypts seed with AES-GCM and returns "sealed:" + base64(nonce|ciphertext).
func Seal(key []byte, seed string) (string, error) {
	if seed == "" {
		return "", ErrEmptySeed
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nonce, nonce, []byte(seed), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open returns the seed inside a sealed value. Plain values are returned unchanged and need no key.
func Open(key []byte, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", errors.Join(ErrNotSealed, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	n := gcm.NonceSize()
	if len(raw) < n {
		return "", ErrCiphertextShort
	}
	plain, err := gcm.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// KeyBytes derives a 32-byte AES-256 key from the configured passphrase with SHA-256.
func KeyBytes(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeySize
	}
	return hex.DecodeString(secure.GetSHA256Hash(key))
}
