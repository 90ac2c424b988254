// Package server implements the stateful broker of spec.md §4.2-§4.4:
// handshake admission, cluster-scoped virtual-IP routing, and the
// PeerUpdate broadcaster, grounded in tungo's
// infrastructure/routing/server_routing/{session_management,routing} tree.
package server

import (
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
)

// Session is the server's per-connection state: the TCP send side plus the
// client's cluster/identity/virtual-address tuple (spec.md §3 "Session").
type Session struct {
	Identity  string
	Cluster   string
	PrivateIP netip.Addr
	Cidrs     []string

	conn net.Conn

	addrMu sync.RWMutex
	ipv6   netip.AddrPort
	stun   netip.AddrPort

	sendQ     chan []byte
	closeOnce sync.Once
	done      chan struct{}

	RxFrames          atomic.Uint64
	TxFrames          atomic.Uint64
	ErrFrames         atomic.Uint64
	QueueOverflowDrop atomic.Uint64
}

// NewSession wraps an admitted connection. queueCap bounds the outbound
// frame queue (spec.md §4.3/§4.4, settings.SendQueueCapacity).
func NewSession(identity, cluster string, privateIP netip.Addr, cidrs []string, conn net.Conn, queueCap int) *Session {
	return &Session{
		Identity:  identity,
		Cluster:   cluster,
		PrivateIP: privateIP,
		Cidrs:     cidrs,
		conn:      conn,
		sendQ:     make(chan []byte, queueCap),
		done:      make(chan struct{}),
	}
}

// Conn returns the underlying TCP connection, read by the session's reader
// goroutine and written by its writer goroutine.
func (s *Session) Conn() net.Conn { return s.conn }

// SendQueue is drained by the session's writer goroutine.
func (s *Session) SendQueue() <-chan []byte { return s.sendQ }

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Addrs returns the session's currently known (ipv6, stun) tuple.
func (s *Session) Addrs() (netip.AddrPort, netip.AddrPort) {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.ipv6, s.stun
}

// SetAddrs records a new (ipv6, stun) tuple and reports whether it differs
// from the prior one — the trigger condition for a PeerUpdate broadcast
// (spec.md §4.4).
func (s *Session) SetAddrs(ipv6, stun netip.AddrPort) (changed bool) {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	changed = s.ipv6 != ipv6 || s.stun != stun
	s.ipv6, s.stun = ipv6, stun
	return changed
}

// Enqueue offers frameBytes to the session's send queue, dropping the
// oldest queued frame on overflow rather than blocking (spec.md §4.3:
// "backpressure favours liveness over delivery"). Returns true if a frame
// was discarded to make room.
func (s *Session) Enqueue(frameBytes []byte) (dropped bool) {
	select {
	case s.sendQ <- frameBytes:
		return false
	default:
	}
	select {
	case <-s.sendQ:
		dropped = true
		s.QueueOverflowDrop.Add(1)
	default:
	}
	select {
	case s.sendQ <- frameBytes:
	default:
		// queue refilled concurrently; drop frameBytes too.
	}
	return dropped
}

// Close tears down the session exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
