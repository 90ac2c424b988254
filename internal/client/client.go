// Package client implements the data-plane multiplexer of spec.md §4.5-4.7:
// a TUN-read loop, a relay (TCP) loop, two P2P (UDP) loops, a keepalive
// ticker, and the reconnect behavior of §4.6 — orchestrated with
// golang.org/x/sync/errgroup the way tungo's
// infrastructure/routing_layer/client_routing.Router orchestrates its own
// TUN/transport goroutine pair.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rustun/internal/application"
	clientconfig "rustun/internal/config/client"
	"rustun/internal/cryptography"
	"rustun/internal/domain/control"
	"rustun/internal/domain/frame"
	"rustun/internal/domain/peer"
	ipparse "rustun/internal/ip"
	"rustun/internal/listeners"
	"rustun/internal/metrics"
	"rustun/internal/settings"
	"rustun/internal/stunclient"
)

// Client owns one tenant's TUN device and every transport path reaching
// its cluster peers.
type Client struct {
	cfg   clientconfig.Configuration
	tun   application.TunDevice
	codec *cryptography.Codec
	log   application.Logger
	cnt   *metrics.Counters

	peers *peer.Table
	routes *RouteMap

	ipv6Listener application.PacketConn
	stunListener application.PacketConn

	ownAddrMu sync.RWMutex
	ownIPv6   netip.AddrPort
	ownStun   netip.AddrPort

	relay atomic.Pointer[net.Conn]

	lastServerMu sync.Mutex
	lastServer   time.Time
}

// New builds a Client from a parsed CLI configuration. tun must already be
// open; the two UDP listeners are only used (and must be non-nil) when
// cfg.EnableP2P is set.
func New(cfg clientconfig.Configuration, tun application.TunDevice, ipv6, stunL application.PacketConn, log application.Logger, cnt *metrics.Counters) (*Client, error) {
	cipher, err := cryptography.NewCipher(cfg.CipherSuite, cfg.CipherKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:          cfg,
		tun:          tun,
		codec:        cryptography.NewCodec(cipher),
		log:          log,
		cnt:          cnt,
		peers:        peer.NewTable(),
		routes:       NewRouteMap(),
		ipv6Listener: ipv6,
		stunListener: stunL,
	}, nil
}

// Run drives the client until ctx is cancelled: long-lived P2P receive
// loops and the keepalive ticker run for the process lifetime, while the
// relay connection is dialed, served and redialed across reconnects
// (spec.md §4.6).
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.EnableP2P {
		if err := c.resolveOwnAddresses(); err != nil {
			c.log.Warnf("client: p2p address resolution failed, falling back to relay only: %v", err)
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return c.tunLoop(gctx) })
	group.Go(func() error { return c.keepAliveLoop(gctx) })
	if c.cfg.EnableP2P {
		group.Go(func() error { return c.p2pLoop(gctx, c.ipv6Listener, pathSelectorIPv6) })
		group.Go(func() error { return c.p2pLoop(gctx, c.stunListener, pathSelectorStun) })
		group.Go(func() error { return c.stunRefreshLoop(gctx) })
	}
	group.Go(func() error { return c.relaySupervisor(gctx) })

	return group.Wait()
}

// resolveOwnAddresses learns this host's own IPv6-direct and STUN-mapped
// addresses, advertised to peers via Handshake/KeepAlive (spec.md §4.5).
func (c *Client) resolveOwnAddresses() error {
	if la, ok := c.ipv6Listener.(interface{ LocalAddr() net.Addr }); ok {
		if udpAddr, ok := la.LocalAddr().(*net.UDPAddr); ok {
			if ap, err := netip.ParseAddrPort(udpAddr.String()); err == nil && ap.Addr().Is6() {
				if ap.Addr().IsUnspecified() {
					// a wildcard bind reports [::]; use a global unicast IPv6 address of this host.
					ap = netip.AddrPort{}
					ifAddrs, _ := net.InterfaceAddrs()
					for _, ia := range ifAddrs {
						if ipn, ok := ia.(*net.IPNet); ok && ipn.IP.To4() == nil && ipn.IP.IsGlobalUnicast() && !ap.IsValid() {
							ap = netip.AddrPortFrom(netip.AddrFrom16([16]byte(ipn.IP.To16())), uint16(udpAddr.Port))
						}
					}
				}
				if ap.IsValid() {
					c.setOwnIPv6(ap)
				}
			}
		}
	}
	return c.refreshStun()
}

// refreshStun re-binds against the STUN server and records the mapped
// address, if one was learned. It is called once at startup and again on
// every tick of stunRefreshLoop (spec.md §4.7: "re-run on a 5-minute
// timer; if the mapped address changes, the client includes the new value
// in its next KeepAlive").
func (c *Client) refreshStun() error {
	udpListener, ok := c.stunListener.(listeners.UDPListener)
	if !ok {
		return fmt.Errorf("client: stun listener does not expose its underlying UDP socket")
	}
	conn := listeners.Conn(udpListener)
	if conn == nil {
		return fmt.Errorf("client: stun listener has no underlying *net.UDPConn")
	}
	serverAddr, err := net.ResolveUDPAddr("udp", settings.DefaultStunServer)
	if err != nil {
		return fmt.Errorf("client: resolve stun server: %w", err)
	}
	mapped, err := stunclient.Bind(conn, serverAddr, settings.StunBindTimeout)
	if err != nil {
		return fmt.Errorf("client: stun bind: %w", err)
	}
	ap, err := netip.ParseAddrPort(mapped.String())
	if err != nil {
		return fmt.Errorf("client: parse stun mapped address %s: %w", mapped, err)
	}
	if prev := c.setOwnStun(ap); prev != ap {
		c.log.Infof("client: stun mapped address changed %s -> %s", prev, ap)
	}
	return nil
}

// stunRefreshLoop re-binds periodically so a NAT remapping is detected and
// picked up by the next keepalive rather than only ever learned once at
// startup.
func (c *Client) stunRefreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(settings.StunRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.refreshStun(); err != nil {
				c.log.Warnf("client: stun refresh failed: %v", err)
			}
		}
	}
}

func (c *Client) setOwnIPv6(ap netip.AddrPort) {
	c.ownAddrMu.Lock()
	defer c.ownAddrMu.Unlock()
	c.ownIPv6 = ap
}

// setOwnStun records ap and returns the previously recorded value.
func (c *Client) setOwnStun(ap netip.AddrPort) (prev netip.AddrPort) {
	c.ownAddrMu.Lock()
	defer c.ownAddrMu.Unlock()
	prev = c.ownStun
	c.ownStun = ap
	return prev
}

// ownAddrs returns the currently known (ipv6, stun) tuple, advertised in
// the next Handshake or KeepAlive.
func (c *Client) ownAddrs() (ipv6, stun netip.AddrPort) {
	c.ownAddrMu.RLock()
	defer c.ownAddrMu.RUnlock()
	return c.ownIPv6, c.ownStun
}

// Identity returns this client's configured identity, for the status
// surface.
func (c *Client) Identity() string { return c.cfg.Identity }

// RelayUp reports whether the relay connection is currently established.
func (c *Client) RelayUp() bool { return c.relayUp() }

// Peers returns a snapshot of every known peer, for the status surface.
func (c *Client) Peers() []*peer.Entry { return c.peers.Snapshot() }

func pathSelectorIPv6(e *peer.Entry) *peer.Path { return &e.IPv6 }
func pathSelectorStun(e *peer.Entry) *peer.Path { return &e.Stun }

// relaySupervisor implements the outer reconnect loop of spec.md §4.6:
// connect, handshake, serve frames from the server until the connection
// is lost or a keepalive watchdog decides the server is unreachable, then
// clear the peer table and retry. UDP sockets are never touched here.
func (c *Client) relaySupervisor(ctx context.Context) error {
	for {
		conn, reply, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warnf("client: connect failed, retrying: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settings.ReconnectBackoff):
				continue
			}
		}
		if !reply.Ok {
			c.log.Errorf("client: handshake rejected: %s", reply.Reason)
			_ = conn.Close()
			return fmt.Errorf("client: identity rejected: %s", reply.Reason)
		}

		c.log.Infof("client: connected (private_ip=%s)", reply.PrivateIP)
		c.routes.Rebuild(reply.Others)
		for _, p := range reply.Others {
			c.applyPeerInfo(p)
		}

		c.relay.Store(&conn)
		c.markServerActivity()

		connCtx, cancel := context.WithCancel(ctx)
		connGroup, connCtx := errgroup.WithContext(connCtx)
		connGroup.Go(func() error { return c.relayReadLoop(connCtx, conn) })
		connGroup.Go(func() error { return c.serverWatchdog(connCtx) })
		connGroup.Go(func() error {
			// closing the conn unblocks relayReadLoop's pending read once the
			// watchdog, a read error or ctx ends this connection.
			<-connCtx.Done()
			_ = conn.Close()
			return nil
		})
		_ = connGroup.Wait()
		cancel()

		c.relay.Store((*net.Conn)(nil))
		_ = conn.Close()
		c.peers.Clear()
		c.routes = NewRouteMap()

		if ctx.Err() != nil {
			return nil
		}
		c.log.Warnf("client: relay connection lost, reconnecting")
	}
}

// connect dials the server and performs the Handshake/HandshakeReply
// exchange of spec.md §4.2.
func (c *Client) connect(ctx context.Context) (net.Conn, control.HandshakeReply, error) {
	dialer := net.Dialer{Timeout: settings.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Server)
	if err != nil {
		return nil, control.HandshakeReply{}, fmt.Errorf("dial %s: %w", c.cfg.Server, err)
	}

	ipv6, stun := c.ownAddrs()
	hs := control.Handshake{
		Identity: c.cfg.Identity,
		IPv6:     addrPortStringOrEmpty(ipv6),
		Stun:     addrPortStringOrEmpty(stun),
	}
	payload, err := json.Marshal(hs)
	if err != nil {
		_ = conn.Close()
		return nil, control.HandshakeReply{}, err
	}
	if err := c.codec.WriteFrame(conn, frame.TypeHandshake, payload); err != nil {
		_ = conn.Close()
		return nil, control.HandshakeReply{}, fmt.Errorf("write handshake: %w", err)
	}

	typ, plaintext, err := c.codec.ReadFrame(conn)
	if err != nil {
		_ = conn.Close()
		return nil, control.HandshakeReply{}, fmt.Errorf("read handshake reply: %w", err)
	}
	if typ != frame.TypeHandshakeReply {
		_ = conn.Close()
		return nil, control.HandshakeReply{}, fmt.Errorf("expected HandshakeReply, got %s", typ)
	}
	var reply control.HandshakeReply
	if err := json.Unmarshal(plaintext, &reply); err != nil {
		_ = conn.Close()
		return nil, control.HandshakeReply{}, fmt.Errorf("decode handshake reply: %w", err)
	}
	return conn, reply, nil
}

func addrPortStringOrEmpty(ap netip.AddrPort) string {
	if !ap.IsValid() {
		return ""
	}
	return ap.String()
}

func (c *Client) applyPeerInfo(info control.PeerInfo) {
	entry := c.peers.GetOrCreate(info.Identity)
	entry.PrivateIP = info.PrivateIP
	entry.Cidrs = info.Cidrs
	if ap, err := netip.ParseAddrPort(info.IPv6); err == nil {
		entry.IPv6.SetAddress(ap)
	}
	if ap, err := netip.ParseAddrPort(info.Stun); err == nil {
		entry.Stun.SetAddress(ap)
	}
}

func (c *Client) markServerActivity() {
	c.lastServerMu.Lock()
	c.lastServer = time.Now()
	c.lastServerMu.Unlock()
}

func (c *Client) serverSilenceFor() time.Duration {
	c.lastServerMu.Lock()
	defer c.lastServerMu.Unlock()
	return time.Since(c.lastServer)
}

// serverWatchdog implements spec.md §4.6: after KeepAliveThreshold
// consecutive keepalive intervals with no frame at all from the server,
// force a reconnect.
func (c *Client) serverWatchdog(ctx context.Context) error {
	threshold := time.Duration(c.cfg.KeepAliveThreshold) * c.cfg.KeepAliveInterval
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c.serverSilenceFor() > threshold {
				return fmt.Errorf("client: no frame from server in %s", threshold)
			}
		}
	}
}

// relayReadLoop reads frames from the server until the connection breaks
// or a protocol violation occurs (spec.md §7).
func (c *Client) relayReadLoop(ctx context.Context, conn net.Conn) error {
	for {
		typ, plaintext, err := c.codec.ReadFrame(conn)
		if errors.Is(err, cryptography.ErrCryptoAuthFailure) {
			// the whole frame was consumed, so the stream is still in sync.
			c.cnt.Inc(metrics.CryptoAuthFailure)
			continue
		}
		if err != nil {
			return err
		}
		c.markServerActivity()
		switch typ {
		case frame.TypeData:
			c.cnt.Inc(metrics.FramesRx)
			if src, err := ipparse.SourceAddress(plaintext); err == nil {
				if identity, ok := c.routes.Lookup(src); ok {
					if entry, ok := c.peers.Get(identity); ok {
						entry.IncRx()
					}
				}
			}
			if err := c.tun.WritePacket(plaintext); err != nil {
				c.log.Errorf("client: write to tun: %v", err)
			}
		case frame.TypePeerUpdate:
			var update control.PeerUpdate
			if err := json.Unmarshal(plaintext, &update); err != nil {
				c.log.Warnf("client: malformed peer update: %v", err)
				continue
			}
			c.routes.Apply(update)
			entry := c.peers.GetOrCreate(update.Identity)
			entry.PrivateIP = update.PrivateIP
			entry.Cidrs = update.Cidrs
			entry.ResetLiveness()
			if ap, err := netip.ParseAddrPort(update.IPv6); err == nil {
				entry.IPv6.SetAddress(ap)
			}
			if ap, err := netip.ParseAddrPort(update.Stun); err == nil {
				entry.Stun.SetAddress(ap)
			}
		case frame.TypeKeepAlive:
			// server activity already recorded above; nothing further to do.
		default:
			c.log.Warnf("client: unexpected frame type %s from server", typ)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
