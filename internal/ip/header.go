// Package ip extracts the destination address from a raw IPv4/IPv6 packet,
// grounded in tungo's infrastructure/network/ip/header_parser.go.
package ip

import (
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// DestinationAddress returns the destination address of an IPv4 or IPv6
// packet. IPv4: header[16:20]. IPv6: header[24:40].
func DestinationAddress(packet []byte) (netip.Addr, error) {
	return extract(packet, 16, 24)
}

// SourceAddress returns the source address of an IPv4 or IPv6 packet.
// IPv4: header[12:16]. IPv6: header[8:24].
func SourceAddress(packet []byte) (netip.Addr, error) {
	return extract(packet, 12, 8)
}

func extract(packet []byte, v4Offset, v6Offset int) (netip.Addr, error) {
	if len(packet) < 1 {
		return netip.Addr{}, fmt.Errorf("ip: empty packet")
	}
	switch packet[0] >> 4 {
	case 4:
		if len(packet) < ipv4.HeaderLen {
			return netip.Addr{}, fmt.Errorf("ip: truncated ipv4 header (%d bytes)", len(packet))
		}
		var a4 [4]byte
		copy(a4[:], packet[v4Offset:v4Offset+4])
		return netip.AddrFrom4(a4), nil
	case 6:
		if len(packet) < ipv6.HeaderLen {
			return netip.Addr{}, fmt.Errorf("ip: truncated ipv6 header (%d bytes)", len(packet))
		}
		var a16 [16]byte
		copy(a16[:], packet[v6Offset:v6Offset+16])
		return netip.AddrFrom16(a16), nil
	default:
		return netip.Addr{}, fmt.Errorf("ip: unknown IP version %d", packet[0]>>4)
	}
}
