// Package application declares the boundary interfaces the rest of the
// system is written against, the way tungo's "application" package holds
// TunDevice/ConnectionAdapter/CryptographyService contracts independent of
// any concrete transport or platform.
package application

import (
	"io"
	"net/netip"
)

// TunDevice is the byte-stream abstraction the data-plane multiplexer
// consumes; spec.md §6 treats its creation/configuration as out of scope,
// but the read/write operations themselves are in scope.
type TunDevice interface {
	// ReadPacket reads exactly one IP packet into buf and returns its length.
	ReadPacket(buf []byte) (int, error)
	// WritePacket writes one full IP packet.
	WritePacket(packet []byte) error
	io.Closer
}

// ConnectionAdapter is a length-prefixed, frame-oriented byte connection
// (used for the TCP relay path).
type ConnectionAdapter interface {
	io.ReadWriteCloser
}

// PacketConn is a minimal UDP socket abstraction (used for the P2P paths),
// narrowed to what the multiplexer needs.
type PacketConn interface {
	ReadFromUDPAddrPort(buf []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(buf []byte, addr netip.AddrPort) (int, error)
	Close() error
}

// Cipher seals/opens a Data frame's plaintext. Implementations are
// stateless and safe for concurrent use (spec.md §4.1).
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Logger is the ambient logging sink every component writes through,
// mirroring tungo's application.Logger boundary.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
