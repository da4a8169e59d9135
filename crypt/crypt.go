// Package crypt defines the encryption boundary for persisted
// configuration files and provides the default password-based cipher.
//
// The envelope is base64 text over the byte layout
// [16-byte salt][16-byte IV][ciphertext]. The key is derived from the
// password with PBKDF2 and the cipher is AES-256 in CFB mode. Concrete
// ciphers are pluggable through the Cipher interface.
package crypt

import "errors"

// Decryption failure modes, each distinct so callers can report them.
var (
	// ErrMalformedEnvelope indicates the blob is not valid base64.
	ErrMalformedEnvelope = errors.New("crypt: malformed base64 envelope")

	// ErrShortEnvelope indicates the decoded payload is too short to
	// contain the salt and IV.
	ErrShortEnvelope = errors.New("crypt: envelope shorter than salt and IV")

	// ErrDecryptFailed indicates a wrong password or corrupted data.
	ErrDecryptFailed = errors.New("crypt: decryption failed")
)

// Cipher turns plaintext into an opaque encrypted text blob and back,
// parameterized by a password.
type Cipher interface {
	// Encrypt encrypts plaintext under password and returns the
	// envelope as text.
	Encrypt(plaintext []byte, password string) (string, error)

	// Decrypt opens an envelope produced by Encrypt. It fails with a
	// distinct error for malformed base64, a truncated payload, and a
	// wrong password or corrupted ciphertext.
	Decrypt(blob string, password string) ([]byte, error)
}
