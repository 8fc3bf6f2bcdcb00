package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_GeneratesIdentityWhenEmpty(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	assert.NotNil(t, enc.identity)
	assert.True(t, strings.HasPrefix(enc.PublicKey(), "age1"))
}

func TestNewEncryptor_WithProvidedKey(t *testing.T) {
	identity, public, err := GenerateKey()
	require.NoError(t, err)

	enc, err := NewEncryptor(identity)
	require.NoError(t, err)
	assert.Equal(t, public, enc.PublicKey())
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("invalid-key-format")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing identity")
}

func TestEncryptString_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	link := "https://prompthub.example/api/v1/auth/activate?token=eyJhbGciOi"
	sealed, err := enc.EncryptString(link)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "eyJhbGciOi")

	opened, err := enc.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, link, opened)
}

func TestEncrypt_DifferentOutputEachTime(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same data"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same data"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_WrongIdentity(t *testing.T) {
	sealer, err := NewEncryptor("")
	require.NoError(t, err)
	other, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := sealer.EncryptString("secret")
	require.NoError(t, err)

	_, err = other.DecryptString(sealed)
	assert.Error(t, err)
}

func TestDecryptString_InvalidBase64(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, err = enc.DecryptString("not base64!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding base64")
}
