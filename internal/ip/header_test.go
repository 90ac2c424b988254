package ip

import (
	"net/netip"
	"testing"
)

func ipv4Packet(src, dst netip.Addr) []byte {
	b := make([]byte, 20)
	b[0] = 0x45 // version 4, header length 5*4=20
	copy(b[12:16], src.As4()[:])
	copy(b[16:20], dst.As4()[:])
	return b
}

func ipv6Packet(src, dst netip.Addr) []byte {
	b := make([]byte, 40)
	b[0] = 0x60 // version 6
	s, d := src.As16(), dst.As16()
	copy(b[8:24], s[:])
	copy(b[24:40], d[:])
	return b
}

func TestDestinationAndSourceAddressIPv4(t *testing.T) {
	src := netip.MustParseAddr("10.0.0.2")
	dst := netip.MustParseAddr("10.0.0.3")
	packet := ipv4Packet(src, dst)

	gotDst, err := DestinationAddress(packet)
	if err != nil || gotDst != dst {
		t.Fatalf("DestinationAddress: got %v, %v, want %v", gotDst, err, dst)
	}
	gotSrc, err := SourceAddress(packet)
	if err != nil || gotSrc != src {
		t.Fatalf("SourceAddress: got %v, %v, want %v", gotSrc, err, src)
	}
}

func TestDestinationAndSourceAddressIPv6(t *testing.T) {
	src := netip.MustParseAddr("2001:db8::1")
	dst := netip.MustParseAddr("2001:db8::2")
	packet := ipv6Packet(src, dst)

	gotDst, err := DestinationAddress(packet)
	if err != nil || gotDst != dst {
		t.Fatalf("DestinationAddress: got %v, %v, want %v", gotDst, err, dst)
	}
	gotSrc, err := SourceAddress(packet)
	if err != nil || gotSrc != src {
		t.Fatalf("SourceAddress: got %v, %v, want %v", gotSrc, err, src)
	}
}

func TestDestinationAddressRejectsTruncatedAndUnknownVersion(t *testing.T) {
	if _, err := DestinationAddress(nil); err == nil {
		t.Fatal("expected error for empty packet")
	}
	if _, err := DestinationAddress([]byte{0x45, 0, 0}); err == nil {
		t.Fatal("expected error for truncated ipv4 header")
	}
	if _, err := DestinationAddress([]byte{0x90}); err == nil {
		t.Fatal("expected error for unknown ip version")
	}
}
