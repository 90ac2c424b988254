package cryptography

import "crypto/sha256"

// XORCipher seals/opens with a repeating SHA-256(key) keystream. Not
// authenticated — included for debugging only (spec.md §4.1).
type XORCipher struct {
	keystream [sha256.Size]byte
}

func NewXORCipher(key []byte) *XORCipher {
	c := &XORCipher{}
	copy(c.keystream[:], key)
	return c
}

func (c *XORCipher) transform(src []byte) []byte {
	out := make([]byte, len(src))
	for i, b := range src {
		out[i] = b ^ c.keystream[i%len(c.keystream)]
	}
	return out
}

func (c *XORCipher) Seal(plaintext []byte) ([]byte, error) { return c.transform(plaintext), nil }
func (c *XORCipher) Open(sealed []byte) ([]byte, error)    { return c.transform(sealed), nil }
