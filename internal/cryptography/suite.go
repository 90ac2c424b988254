// Package cryptography implements the four cipher variants of spec.md
// §4.1 (Plain, XOR, AES-256-GCM, ChaCha20-Poly1305) behind one Cipher
// interface, plus the frame codec that wraps them with the length-prefixed
// header.
package cryptography

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"rustun/internal/application"
)

// SuiteName identifies which Cipher variant to build.
type SuiteName string

const (
	SuitePlain    SuiteName = "plain"
	SuiteXOR      SuiteName = "xor"
	SuiteAES256   SuiteName = "aes256"
	SuiteChaCha20 SuiteName = "chacha20"
)

// ParseCipherSpec parses a "-c" CLI value of the form "plain",
// "xor:<key>", "aes256:<key>" or "chacha20:<key>" (spec.md §6).
func ParseCipherSpec(spec string) (SuiteName, string, error) {
	parts := strings.SplitN(spec, ":", 2)
	name := SuiteName(parts[0])
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch name {
	case SuitePlain:
		return name, "", nil
	case SuiteXOR, SuiteAES256, SuiteChaCha20:
		if key == "" {
			return "", "", fmt.Errorf("cryptography: cipher %q requires a key", name)
		}
		return name, key, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
}

// NewCipher builds the Cipher for name using userKey (ignored for Plain).
// Key derivation is SHA-256(userKey), no salt, per spec.md §9 — a protocol
// version bump would be required to change this.
func NewCipher(name SuiteName, userKey string) (application.Cipher, error) {
	switch name {
	case SuitePlain:
		return PlainCipher{}, nil
	case SuiteXOR:
		return NewXORCipher(deriveKey(userKey)), nil
	case SuiteAES256:
		return NewAESGCMCipher(deriveKey(userKey))
	case SuiteChaCha20:
		return NewChaCha20Poly1305Cipher(deriveKey(userKey))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
}

func deriveKey(userKey string) []byte {
	sum := sha256.Sum256([]byte(userKey))
	return sum[:]
}
