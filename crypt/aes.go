package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	ivSize     = 16
	keySize    = 32
	iterations = 10000
)

// AES is the default Cipher: PBKDF2-SHA256 key derivation and AES-256
// in CFB mode.
//
// CFB carries no authentication tag, so a wrong password produces
// garbage rather than an error from the cipher itself. Decrypt treats
// plaintext that is not valid UTF-8 as a decryption failure, which is
// sufficient for the text documents this package protects.
type AES struct {
	iterations int
}

// NewAES creates the default cipher.
func NewAES() *AES {
	return &AES{iterations: iterations}
}

// Encrypt encrypts plaintext under password.
func (a *AES) Encrypt(plaintext []byte, password string) (string, error) {
	buf := make([]byte, saltSize+ivSize+len(plaintext))
	salt := buf[:saltSize]
	iv := buf[saltSize : saltSize+ivSize]

	if _, err := io.ReadFull(rand.Reader, buf[:saltSize+ivSize]); err != nil {
		return "", fmt.Errorf("crypt: generating salt and iv: %w", err)
	}

	block, err := aes.NewCipher(a.deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("crypt: initializing cipher: %w", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(buf[saltSize+ivSize:], plaintext)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (a *AES) Decrypt(blob string, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(raw) < saltSize+ivSize {
		return nil, ErrShortEnvelope
	}

	salt := raw[:saltSize]
	iv := raw[saltSize : saltSize+ivSize]
	ciphertext := raw[saltSize+ivSize:]

	block, err := aes.NewCipher(a.deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("crypt: initializing cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(plaintext, ciphertext)

	if !utf8.Valid(plaintext) {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func (a *AES) deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, a.iterations, keySize, sha256.New)
}

// Ensure AES implements Cipher.
var _ Cipher = (*AES)(nil)
