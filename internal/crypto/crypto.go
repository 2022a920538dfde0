package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// prefix marks sealed values so rows written before encryption was
// enabled still read back as plaintext.
const prefix = "enc:v1:"

var ErrShortKey = errors.New("MASTER_KEY must be at least 32 bytes")

// Cipher seals short text fields with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

func New(masterKey string) (*Cipher, error) {
	if len(masterKey) < 32 {
		return nil, ErrShortKey
	}
	block, err := aes.NewCipher([]byte(masterKey)[:32])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: gcm}, nil
}

// Seal encrypts plaintext. Empty strings stay empty.
func (c *Cipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as is.
func (c *Cipher) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, prefix)
	if !ok {
		return value, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("invalid ciphertext")
	}
	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func Encrypt(masterKey, plaintext string) (string, error) {
	c, err := New(masterKey)
	if err != nil {
		return "", err
	}
	return c.Seal(plaintext)
}

func Decrypt(masterKey, encoded string) (string, error) {
	c, err := New(masterKey)
	if err != nil {
		return "", err
	}
	return c.Open(encoded)
}
