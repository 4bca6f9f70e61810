package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretKey_SealOpen(t *testing.T) {
	t.Setenv(SecretKeyEnv, "test-secret-key-for-unit-tests")

	sk, err := NewSecretKey("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"api_key", "sk-abc123def456xyz"},
		{"empty", ""},
		{"long_key", "sk-proj-very-long-api-key-that-might-be-used-by-some-providers-1234567890"},
		{"special_chars", "sk-+/=!@#$%^&*()"},
		{"unicode", "chave-secreta-ção"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := sk.Seal("llm.api_key", tt.value)
			require.NoError(t, err)

			if tt.value == "" {
				assert.Empty(t, sealed)
				return
			}

			assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
			assert.NotContains(t, sealed, tt.value)

			opened, err := sk.Open("llm.api_key", sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.value, opened)
		})
	}
}

func TestSecretKey_NonceIsFresh(t *testing.T) {
	t.Setenv(SecretKeyEnv, "test-key")
	sk, err := NewSecretKey("")
	require.NoError(t, err)

	a, err := sk.Seal("f", "same")
	require.NoError(t, err)
	b, err := sk.Seal("f", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecretKey_OpenPlaintext(t *testing.T) {
	t.Setenv(SecretKeyEnv, "test-key")
	sk, err := NewSecretKey("")
	require.NoError(t, err)

	v, err := sk.Open("llm.api_key", "plain-text-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-text-value", v)
}

func TestSecretKey_OpenFailures(t *testing.T) {
	t.Setenv(SecretKeyEnv, "key-one")
	one, err := NewSecretKey("")
	require.NoError(t, err)

	t.Setenv(SecretKeyEnv, "key-two")
	two, err := NewSecretKey("")
	require.NoError(t, err)

	sealed, err := one.Seal("llm.api_key", "sk-secret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   *SecretKey
		field string
		value string
	}{
		{"wrong key", two, "llm.api_key", sealed},
		{"moved to another field", one, "tools.tavily_api_key", sealed},
		{"truncated", one, "llm.api_key", sealed[:len(sealedPrefix)+4]},
		{"not base64", one, "llm.api_key", sealedPrefix + "***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.key.Open(tt.field, tt.value)
			assert.ErrorIs(t, err, ErrSecretCorrupt)
		})
	}
}

func TestSecretKey_KeyFile(t *testing.T) {
	t.Setenv(SecretKeyEnv, "")
	keyPath := filepath.Join(t.TempDir(), "nested", "secret.key")

	first, err := NewSecretKey(keyPath)
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(string(data)), 64)

	second, err := NewSecretKey(keyPath)
	require.NoError(t, err)

	sealed, err := first.Seal("llm.api_key", "sk-abc")
	require.NoError(t, err)
	opened, err := second.Open("llm.api_key", sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", opened)
}

func TestSecretKey_BadKeyFile(t *testing.T) {
	t.Setenv(SecretKeyEnv, "")
	keyPath := filepath.Join(t.TempDir(), "secret.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("not-a-key"), 0o600))

	_, err := NewSecretKey(keyPath)
	assert.ErrorContains(t, err, "hex-encoded 32 byte key")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"sk-abc123def", "****3def"},
		{"sk-proj-very-long-key-12345", "****2345"},
		{"chave-ção", "****-ção"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MaskSecret(tt.input), "MaskSecret(%q)", tt.input)
	}
}
