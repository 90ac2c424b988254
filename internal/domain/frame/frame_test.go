package frame

import "testing"

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderLen)
	if err := EncodeHeader(buf, TypeData, 42); err != nil {
		t.Fatalf("encode: %v", err)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hdr.Magic != Magic || hdr.Version != Version || hdr.Type != TypeData || hdr.PayloadLen != 42 {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderLen)
	_ = EncodeHeader(buf, TypeData, 0)
	buf[0] ^= 0xFF
	if _, err := DecodeHeader(buf); err != ErrMagicMismatch {
		t.Fatalf("expected ErrMagicMismatch, got %v", err)
	}
}

func TestDecodeHeaderRejectsBadVersion(t *testing.T) {
	buf := make([]byte, HeaderLen)
	_ = EncodeHeader(buf, TypeData, 0)
	buf[4] = 99
	if _, err := DecodeHeader(buf); err != ErrVersionUnsupported {
		t.Fatalf("expected ErrVersionUnsupported, got %v", err)
	}
}

func TestDecodeHeaderShortRead(t *testing.T) {
	if _, err := DecodeHeader([]byte{1, 2, 3}); err != ErrShortRead {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestEncodeHeaderRejectsOverlongPayload(t *testing.T) {
	buf := make([]byte, HeaderLen)
	if err := EncodeHeader(buf, TypeData, MaxPayloadLen+1); err != ErrLengthOverflow {
		t.Fatalf("expected ErrLengthOverflow, got %v", err)
	}
}

func TestTypeString(t *testing.T) {
	cases := map[Type]string{
		TypeHandshake:      "Handshake",
		TypeKeepAlive:      "KeepAlive",
		TypeData:           "Data",
		TypeHandshakeReply: "HandshakeReply",
		TypePeerUpdate:     "PeerUpdate",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
