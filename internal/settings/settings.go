// Package settings holds the wire/timing constants of spec.md §4-§6,
// mirroring tungo's infrastructure/settings constant files.
package settings

import "time"

const (
	// DefaultTCPPort is the relay listener's default port (spec.md §6).
	DefaultTCPPort = 8080
	// DefaultUDPDirectPort is the IPv6-direct P2P socket's default port.
	DefaultUDPDirectPort = 51258
	// DefaultUDPStunPort is the STUN-punched P2P socket's default port.
	DefaultUDPStunPort = 51259
)

const (
	// DefaultKeepAliveInterval is how often a client sends a KeepAlive on
	// each known path and to the server (spec.md §4.5).
	DefaultKeepAliveInterval = 10 * time.Second
	// DefaultKeepAliveThreshold is the number of consecutive missed server
	// keepalives before the client reconnects (spec.md §4.6).
	DefaultKeepAliveThreshold = 5
	// StunRefreshInterval is how often the client re-runs its STUN binding
	// (spec.md §4.7).
	StunRefreshInterval = 5 * time.Minute
)

// SendQueueCapacity bounds each connection's outbound frame queue
// (spec.md §5: "suggested 1024 frames").
const SendQueueCapacity = 1024

// MaxIPPacketSize is the largest IP packet the multiplexer will shuttle
// between the TUN device and a transport path.
const MaxIPPacketSize = 65535 - 28 // leaves room for AEAD nonce+tag within a frame payload

const (
	// DefaultTunName and DefaultMTU configure the client's TUN interface;
	// spec.md §6 scopes device configuration out, so these are this
	// implementation's own defaults rather than normative wire behavior.
	DefaultTunName = "rustun0"
	DefaultMTU     = 1420

	// DefaultStunServer is the public STUN server the client probes when
	// --enable-p2p is set (spec.md §4.7).
	DefaultStunServer = "stun.l.google.com:19302"
	StunBindTimeout   = 5 * time.Second

	// DialTimeout bounds the client's TCP connect to the relay.
	DialTimeout = 5 * time.Second
	// ReconnectBackoff is the pause between failed relay connection attempts.
	ReconnectBackoff = 2 * time.Second
)
