package cryptography

import (
	"bytes"
	"testing"

	"rustun/internal/domain/frame"
)

func TestCodecRoundTripAllSuites(t *testing.T) {
	suites := []struct {
		name SuiteName
		key  string
	}{
		{SuitePlain, ""},
		{SuiteXOR, "rustun"},
		{SuiteAES256, "a-shared-secret"},
		{SuiteChaCha20, "a-shared-secret"},
	}

	plaintexts := [][]byte{
		[]byte("ping"),
		{},
		bytes.Repeat([]byte{0xAB}, 1024),
	}

	for _, s := range suites {
		cipher, err := NewCipher(s.name, s.key)
		if err != nil {
			t.Fatalf("%s: NewCipher: %v", s.name, err)
		}
		codec := NewCodec(cipher)

		for _, pt := range plaintexts {
			encoded, err := codec.Encode(frame.TypeData, pt)
			if err != nil {
				t.Fatalf("%s: encode: %v", s.name, err)
			}
			typ, decoded, err := codec.DecodeDatagram(encoded)
			if err != nil {
				t.Fatalf("%s: decode: %v", s.name, err)
			}
			if typ != frame.TypeData {
				t.Fatalf("%s: type mismatch: %s", s.name, typ)
			}
			if !bytes.Equal(decoded, pt) {
				t.Fatalf("%s: round trip mismatch: got %q want %q", s.name, decoded, pt)
			}
		}
	}
}

func TestAEADRejectsTamperedTag(t *testing.T) {
	for _, name := range []SuiteName{SuiteAES256, SuiteChaCha20} {
		cipher, err := NewCipher(name, "a-shared-secret")
		if err != nil {
			t.Fatalf("%s: NewCipher: %v", name, err)
		}
		codec := NewCodec(cipher)

		encoded, err := codec.Encode(frame.TypeData, []byte("hello"))
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		tampered := append([]byte(nil), encoded...)
		tampered[len(tampered)-1] ^= 0xFF // flip the last byte of the AEAD tag

		if _, _, err := codec.DecodeDatagram(tampered); err == nil {
			t.Fatalf("%s: expected auth failure on tampered tag, got nil error", name)
		}
	}
}

func TestFramesSharingACipherEncodeToDistinctCiphertexts(t *testing.T) {
	cipher, err := NewCipher(SuiteChaCha20, "shared")
	if err != nil {
		t.Fatal(err)
	}
	codec := NewCodec(cipher)

	a, err := codec.Encode(frame.TypeKeepAlive, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := codec.Encode(frame.TypeKeepAlive, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two distinct plaintexts encoded to identical ciphertexts (nonce reuse?)")
	}
}
