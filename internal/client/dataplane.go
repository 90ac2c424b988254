package client

import (
	"context"
	"encoding/json"
	"net/netip"
	"time"

	"rustun/internal/domain/control"
	"rustun/internal/domain/frame"
	"rustun/internal/domain/peer"
	ipparse "rustun/internal/ip"
	"rustun/internal/metrics"
	"rustun/internal/settings"
)

func (c *Client) relayUp() bool {
	return c.relay.Load() != nil
}

// tunLoop implements spec.md §4.5 activity 1: read one IP packet, resolve
// its destination to a peer, select a path (§4.6), seal and send.
func (c *Client) tunLoop(ctx context.Context) error {
	buf := make([]byte, settings.MaxIPPacketSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := c.tun.ReadPacket(buf)
		if err != nil {
			return err
		}
		packet := buf[:n]

		dst, err := ipparse.DestinationAddress(packet)
		if err != nil {
			c.cnt.Inc(metrics.FramesErr)
			continue
		}
		identity, ok := c.routes.Lookup(dst)
		if !ok {
			continue
		}
		entry, ok := c.peers.Get(identity)
		if !ok {
			continue
		}

		switch entry.SelectRoute(time.Now(), c.relayUp()) {
		case peer.RouteIPv6:
			c.sendP2P(c.ipv6Listener, &entry.IPv6, packet)
			entry.IncTx()
		case peer.RouteStun:
			c.sendP2P(c.stunListener, &entry.Stun, packet)
			entry.IncTx()
		case peer.RouteRelay:
			c.sendRelay(packet)
			entry.IncTx()
		case peer.RouteNone:
			// no usable path; drop (VPN semantics are best-effort).
		}
	}
}

func (c *Client) sendP2P(listener pathWriter, path *peer.Path, packet []byte) {
	addr, ok := path.Address()
	if !ok {
		return
	}
	framed, err := c.codec.Encode(frame.TypeData, packet)
	if err != nil {
		c.cnt.Inc(metrics.FramesErr)
		return
	}
	if _, err := listener.WriteToUDPAddrPort(framed, addr); err != nil {
		c.cnt.Inc(metrics.FramesErr)
		return
	}
	c.cnt.Inc(metrics.FramesTx)
}

func (c *Client) sendRelay(packet []byte) {
	conn := c.relay.Load()
	if conn == nil {
		return
	}
	if err := c.codec.WriteFrame(*conn, frame.TypeData, packet); err != nil {
		c.cnt.Inc(metrics.FramesErr)
		return
	}
	c.cnt.Inc(metrics.FramesTx)
}

// pathWriter narrows application.PacketConn to the one method sendP2P
// needs, so callers can pass either UDP listener interchangeably.
type pathWriter interface {
	WriteToUDPAddrPort(buf []byte, addr netip.AddrPort) (int, error)
}

// p2pLoop implements spec.md §4.5 activity 3: read datagrams from one UDP
// socket, refreshing path liveness on successful decode only — a failed
// AEAD open MUST NOT refresh liveness (spec.md §8 scenario 6).
func (c *Client) p2pLoop(ctx context.Context, listener interface {
	ReadFromUDPAddrPort(buf []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(buf []byte, addr netip.AddrPort) (int, error)
}, selector func(*peer.Entry) *peer.Path) error {
	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, from, err := listener.ReadFromUDPAddrPort(buf)
		if err != nil {
			return err
		}
		typ, plaintext, err := c.codec.DecodeDatagram(buf[:n])
		if err != nil {
			c.cnt.Inc(metrics.CryptoAuthFailure)
			continue
		}

		entry, found := c.findPeerByPathAddr(selector, from)
		if found {
			selector(entry).MarkActive(time.Now())
		}

		switch typ {
		case frame.TypeData:
			c.cnt.Inc(metrics.FramesRx)
			if found {
				entry.IncRx()
			}
			if err := c.tun.WritePacket(plaintext); err != nil {
				c.log.Errorf("client: write to tun: %v", err)
			}
		case frame.TypeKeepAlive:
			// liveness already refreshed above; reply so the sender's path
			// is marked fresh too (spec.md §4.5 activity 3).
			c.replyP2PKeepAlive(listener, from)
		default:
			c.log.Warnf("client: unexpected frame type %s on p2p path", typ)
		}
	}
}

// replyP2PKeepAlive sends a KeepAlive back to from over listener, the P2P
// counterpart of pingServer/pingPeers (spec.md §4.5 activity 3: "triggers
// a reply").
func (c *Client) replyP2PKeepAlive(listener pathWriter, from netip.AddrPort) {
	ipv6, stun := c.ownAddrs()
	ka := control.KeepAlive{
		Identity: c.cfg.Identity,
		IPv6:     addrPortStringOrEmpty(ipv6),
		Stun:     addrPortStringOrEmpty(stun),
	}
	payload, err := json.Marshal(ka)
	if err != nil {
		return
	}
	framed, err := c.codec.Encode(frame.TypeKeepAlive, payload)
	if err != nil {
		return
	}
	_, _ = listener.WriteToUDPAddrPort(framed, from)
}

func (c *Client) findPeerByPathAddr(selector func(*peer.Entry) *peer.Path, addr netip.AddrPort) (*peer.Entry, bool) {
	for _, e := range c.peers.Snapshot() {
		if a, ok := selector(e).Address(); ok && a == addr {
			return e, true
		}
	}
	return nil, false
}

// keepAliveLoop implements spec.md §4.5's keepalive ticker: on each tick,
// ping every known peer path (when P2P is enabled) and the server with this
// client's currently observed addresses.
func (c *Client) keepAliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.pingPeers()
			c.pingServer()
		}
	}
}

func (c *Client) pingPeers() {
	if !c.cfg.EnableP2P {
		return
	}
	ipv6, stun := c.ownAddrs()
	ka := control.KeepAlive{
		Identity: c.cfg.Identity,
		IPv6:     addrPortStringOrEmpty(ipv6),
		Stun:     addrPortStringOrEmpty(stun),
	}
	payload, err := json.Marshal(ka)
	if err != nil {
		return
	}
	framed, err := c.codec.Encode(frame.TypeKeepAlive, payload)
	if err != nil {
		return
	}
	for _, entry := range c.peers.Snapshot() {
		if addr, ok := entry.IPv6.Address(); ok {
			_, _ = c.ipv6Listener.WriteToUDPAddrPort(framed, addr)
		}
		if addr, ok := entry.Stun.Address(); ok {
			_, _ = c.stunListener.WriteToUDPAddrPort(framed, addr)
		}
	}
}

func (c *Client) pingServer() {
	conn := c.relay.Load()
	if conn == nil {
		return
	}
	ipv6, stun := c.ownAddrs()
	ka := control.KeepAlive{
		Identity: c.cfg.Identity,
		IPv6:     addrPortStringOrEmpty(ipv6),
		Stun:     addrPortStringOrEmpty(stun),
	}
	payload, err := json.Marshal(ka)
	if err != nil {
		return
	}
	_ = c.codec.WriteFrame(*conn, frame.TypeKeepAlive, payload)
}
