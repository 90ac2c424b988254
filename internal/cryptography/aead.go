package cryptography

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// aeadCipher wraps a cipher.AEAD with the wire layout of spec.md §4.1:
// nonce(12) || ciphertext || tag(16), no associated data.
type aeadCipher struct {
	aead cipher.AEAD
}

// NewAESGCMCipher builds the AES-256-GCM variant from a 32-byte key.
func NewAESGCMCipher(key []byte) (*aeadCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptography: aes256: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptography: aes256-gcm: %w", err)
	}
	return &aeadCipher{aead: gcm}, nil
}

// NewChaCha20Poly1305Cipher builds the ChaCha20-Poly1305 variant from a
// 32-byte key.
func NewChaCha20Poly1305Cipher(key []byte) (*aeadCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cryptography: chacha20poly1305: %w", err)
	}
	return &aeadCipher{aead: aead}, nil
}

func (c *aeadCipher) Seal(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("cryptography: nonce: %w", err)
	}
	return c.aead.Seal(out, out[:nonceSize], plaintext, nil), nil
}

func (c *aeadCipher) Open(sealed []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	nonce, ct := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrCryptoAuthFailure
	}
	return plaintext, nil
}
