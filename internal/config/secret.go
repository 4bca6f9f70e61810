package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretKeyEnv holds a passphrase that replaces the key file when set.
const SecretKeyEnv = "TOOLCHAT_SECRET_KEY"

// sealedPrefix marks values produced by Seal. Anything else is treated as
// plaintext on Open, so hand-edited settings keep working.
const sealedPrefix = "sealed:v1:"

var ErrSecretCorrupt = errors.New("sealed secret cannot be opened")

// SecretKey seals API keys with AES-256-GCM before they reach the settings
// table. The setting name is bound as associated data, so a sealed value
// cannot be moved to another field.
type SecretKey struct {
	aead cipher.AEAD
}

// NewSecretKey derives the key from TOOLCHAT_SECRET_KEY, or loads the
// hex-encoded key at keyPath (default ~/.toolchat/secret.key), creating it
// on first use.
func NewSecretKey(keyPath string) (*SecretKey, error) {
	if pass := os.Getenv(SecretKeyEnv); pass != "" {
		sum := sha256.Sum256([]byte(pass))
		return newSecretKey(sum[:])
	}

	if keyPath == "" {
		keyPath = filepath.Join(DefaultDir(), "secret.key")
	}
	raw, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return newSecretKey(raw)
}

func newSecretKey(raw []byte) (*SecretKey, error) {
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &SecretKey{aead: aead}, nil
}

func loadOrCreateKey(keyPath string) ([]byte, error) {
	data, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		raw, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(raw) != 32 {
			return nil, fmt.Errorf("key file %s is not a hex-encoded 32 byte key", keyPath)
		}
		return raw, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read key file: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(raw)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return raw, nil
}

// Seal encrypts value for the setting named field. An empty value stays
// empty so that "not configured" survives a round trip.
func (k *SecretKey) Seal(field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := k.aead.Seal(nonce, nonce, []byte(value), []byte(field))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as is.
func (k *SecretKey) Open(field, stored string) (string, error) {
	body, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSecretCorrupt, field, err)
	}
	n := k.aead.NonceSize()
	if len(data) < n+k.aead.Overhead() {
		return "", fmt.Errorf("%w: %s: too short", ErrSecretCorrupt, field)
	}
	plain, err := k.aead.Open(nil, data[:n], data[n:], []byte(field))
	if err != nil {
		return "", fmt.Errorf("%w: %s: wrong key or tampered value", ErrSecretCorrupt, field)
	}
	return string(plain), nil
}

// MaskSecret keeps the last four characters of long secrets: "****abcd".
func MaskSecret(secret string) string {
	const mask = "****"
	switch r := []rune(secret); {
	case len(r) == 0:
		return ""
	case len(r) <= len(mask):
		return mask
	default:
		return mask + string(r[len(r)-4:])
	}
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h
	}
	return os.TempDir()
}
