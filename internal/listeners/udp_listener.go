package listeners

import (
	"fmt"
	"net"
	"net/netip"
)

// UDPListener is a bound UDP socket read/written by addr/port rather than
// by Conn (both the IPv6-direct and STUN-punched P2P sockets are plain
// listening sockets, not connected ones).
type UDPListener interface {
	ReadFromUDPAddrPort(buf []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(buf []byte, addr netip.AddrPort) (int, error)
	LocalAddr() net.Addr
	Close() error
}

type udpListener struct {
	conn *net.UDPConn
}

// NewUDPListener binds addr (e.g. ":51258") for a P2P path.
func NewUDPListener(addr string) (UDPListener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listeners: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listeners: listen %s: %w", addr, err)
	}
	return &udpListener{conn: conn}, nil
}

func (u *udpListener) ReadFromUDPAddrPort(buf []byte) (int, netip.AddrPort, error) {
	return u.conn.ReadFromUDPAddrPort(buf)
}

func (u *udpListener) WriteToUDPAddrPort(buf []byte, addr netip.AddrPort) (int, error) {
	return u.conn.WriteToUDPAddrPort(buf, addr)
}

func (u *udpListener) LocalAddr() net.Addr { return u.conn.LocalAddr() }
func (u *udpListener) Close() error        { return u.conn.Close() }

// Conn exposes the underlying *net.UDPConn for callers (e.g. the STUN
// client) that need the full net.PacketConn surface.
func Conn(l UDPListener) *net.UDPConn {
	if u, ok := l.(*udpListener); ok {
		return u.conn
	}
	return nil
}
