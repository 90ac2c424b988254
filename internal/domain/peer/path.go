// Package peer tracks per-peer IPv6-direct and STUN-punched UDP paths and
// their liveness, plus the path-selection priority used when sending.
package peer

import (
	"net/netip"
	"sync"
	"time"
)

// FreshWindow is how recently a path must have seen inbound traffic to be
// considered usable for sending (spec.md §3, §4.6).
const FreshWindow = 15 * time.Second

// State is a path's position in the liveness state machine.
type State int

const (
	// Unknown: no remote address learned yet.
	Unknown State = iota
	// Probing: address known, no inbound frame observed yet.
	Probing
	// Fresh: inbound frame observed within FreshWindow.
	Fresh
	// Stale: address known but FreshWindow has elapsed since the last inbound frame.
	Stale
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Probing:
		return "probing"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "invalid"
	}
}

// Path is one of a peer's two independent reachability records (IPv6-direct
// or STUN-punched UDP).
type Path struct {
	mu         sync.RWMutex
	remoteAddr netip.AddrPort
	hasAddr    bool
	lastActive time.Time
	hasActive  bool
}

// SetAddress learns (or relearns) a remote address, resetting liveness —
// the "PeerUpdate with new address" transition of spec.md §4.6.
func (p *Path) SetAddress(addr netip.AddrPort) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteAddr = addr
	p.hasAddr = true
	p.hasActive = false
}

// Address returns the currently known remote address, if any.
func (p *Path) Address() (netip.AddrPort, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.remoteAddr, p.hasAddr
}

// MarkActive records an inbound frame, transitioning Probing/Stale -> Fresh.
func (p *Path) MarkActive(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastActive = now
	p.hasActive = true
}

// Reset clears liveness without forgetting the address (used when a peer
// table is reset on PeerUpdate per spec.md §4.5: "reset that peer's
// last_active on both paths to None, triggering a fresh probe").
func (p *Path) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasActive = false
}

// State evaluates freshness at the instant of the call (spec.md §8:
// "A path is selected for sending iff its last_active is within 15s at the
// moment of selection").
func (p *Path) State(now time.Time) State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasAddr {
		return Unknown
	}
	if !p.hasActive {
		return Probing
	}
	if now.Sub(p.lastActive) < FreshWindow {
		return Fresh
	}
	return Stale
}

// LastActive returns the last recorded inbound-frame time, if any.
func (p *Path) LastActive() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastActive, p.hasActive
}
