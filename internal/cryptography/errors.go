package cryptography

import "errors"

var (
	// ErrCryptoAuthFailure is returned when an AEAD tag fails to verify.
	ErrCryptoAuthFailure = errors.New("cryptography: auth failure")
	// ErrShortCiphertext is returned when a sealed payload is too small to
	// contain its nonce and tag.
	ErrShortCiphertext = errors.New("cryptography: ciphertext too short")
	// ErrUnknownSuite is returned for an unrecognized cipher suite name.
	ErrUnknownSuite = errors.New("cryptography: unknown cipher suite")
)
