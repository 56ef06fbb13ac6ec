package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCiphertext indicates the stored value is not in the
	// expected iv_hex:ciphertext_hex form.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrDecrypt indicates the value could not be decrypted with the
	// configured key.
	ErrDecrypt = errors.New("decryption failed")
)

// Codec encrypts and decrypts credential strings with AES-256-CBC.
// Encrypted values are encoded as iv_hex:ciphertext_hex so they can be
// stored in a plain text column.
type Codec struct {
	key []byte
}

// NewCodec builds a codec from a 64-character hex key (32 bytes).
func NewCodec(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return &Codec{key: key}, nil
}

// EncryptString encrypts plaintext and returns iv_hex:ciphertext_hex.
func (c *Codec) EncryptString(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString. It fails with ErrMalformedCiphertext
// when the stored value does not contain exactly one separator or is not
// valid hex, and with ErrDecrypt when the key does not authenticate the
// padding.
func (c *Codec) DecryptString(stored string) (string, error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return "", ErrMalformedCiphertext
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedCiphertext
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
