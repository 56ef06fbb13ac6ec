package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewCodec_InvalidKey(t *testing.T) {
	_, err := NewCodec("not-hex")
	assert.Error(t, err)

	_, err = NewCodec("abcd")
	assert.Error(t, err, "short keys must be rejected")
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	codec, err := NewCodec(testKey)
	require.NoError(t, err)

	for _, plaintext := range []string{
		"p",
		"smtp-password",
		"pass with spaces and symbols !@#$%^&*()",
		strings.Repeat("long", 100),
	} {
		stored, err := codec.EncryptString(plaintext)
		require.NoError(t, err)
		assert.Contains(t, stored, ":")

		decrypted, err := codec.DecryptString(stored)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncrypt_DifferentOutputEachTime(t *testing.T) {
	codec, err := NewCodec(testKey)
	require.NoError(t, err)

	first, err := codec.EncryptString("same secret")
	require.NoError(t, err)
	second, err := codec.EncryptString("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "random IV must vary the output")
}

func TestDecrypt_MalformedValues(t *testing.T) {
	codec, err := NewCodec(testKey)
	require.NoError(t, err)

	for _, stored := range []string{
		"",
		"no-separator",
		"a:b:c",
		"zzzz:abcd",
		"00112233445566778899aabbccddeeff:nothex",
		"00112233445566778899aabbccddeeff:abcd", // not block aligned
	} {
		_, err := codec.DecryptString(stored)
		assert.ErrorIs(t, err, ErrMalformedCiphertext, "stored=%q", stored)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	codec, err := NewCodec(testKey)
	require.NoError(t, err)
	other, err := NewCodec("ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100")
	require.NoError(t, err)

	stored, err := codec.EncryptString("tenant smtp password")
	require.NoError(t, err)

	decrypted, err := other.DecryptString(stored)
	if err == nil {
		// CBC padding can accidentally validate; the plaintext must still differ.
		assert.NotEqual(t, "tenant smtp password", decrypted)
	} else {
		assert.ErrorIs(t, err, ErrDecrypt)
	}
}

func TestEncrypt_EmptyPlaintext(t *testing.T) {
	codec, err := NewCodec(testKey)
	require.NoError(t, err)

	stored, err := codec.EncryptString("")
	require.NoError(t, err)

	decrypted, err := codec.DecryptString(stored)
	require.NoError(t, err)
	assert.Equal(t, "", decrypted)
}
