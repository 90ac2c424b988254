package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"rustun/internal/application"
	"rustun/internal/config/routes"
	"rustun/internal/cryptography"
	"rustun/internal/domain/control"
	"rustun/internal/domain/frame"
	ipparse "rustun/internal/ip"
	"rustun/internal/listeners"
	"rustun/internal/metrics"
	"rustun/internal/settings"
)

// Broker owns the session table and every cross-session behavior: handshake
// admission (§4.2), Data-frame routing (§4.3), and PeerUpdate broadcast
// (§4.4). One Broker serves the whole process; every session shares the
// single process-wide cipher (spec.md §4.1: "no per-session forward
// secrecy").
type Broker struct {
	routes   *routes.Index
	table    *Table
	codec    *cryptography.Codec
	log      application.Logger
	counters *metrics.Counters
}

func NewBroker(idx *routes.Index, codec *cryptography.Codec, log application.Logger, counters *metrics.Counters) *Broker {
	return &Broker{
		routes:   idx,
		table:    NewTable(),
		codec:    codec,
		log:      log,
		counters: counters,
	}
}

// Serve runs the accept loop on ln until it returns an error (normally
// because the listener was closed for shutdown).
func (b *Broker) Serve(ln listeners.TCPListener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go b.handleConnection(conn)
	}
}

func (b *Broker) handleConnection(conn net.Conn) {
	session, err := b.admit(conn)
	if err != nil {
		b.log.Warnf("server: handshake with %s failed: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}
	b.log.Infof("server: %s admitted (cluster=%s, vip=%s)", session.Identity, session.Cluster, session.PrivateIP)

	go b.writeLoop(session)
	b.readLoop(session)
}

// admit implements spec.md §4.2: read one Handshake frame, look up the
// route entry, reject unknown identities, replace any prior session under
// the same identity (last-wins), then reply with the cluster roster.
func (b *Broker) admit(conn net.Conn) (*Session, error) {
	typ, plaintext, err := b.codec.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	if typ != frame.TypeHandshake {
		return nil, fmt.Errorf("expected Handshake frame, got %s", typ)
	}
	var hs control.Handshake
	if err := json.Unmarshal(plaintext, &hs); err != nil {
		return nil, fmt.Errorf("decode handshake: %w", err)
	}

	entry, ok := b.routes.Lookup(hs.Identity)
	if !ok {
		b.replyReject(conn, "unknown identity")
		return nil, fmt.Errorf("unknown identity %q", hs.Identity)
	}

	privateIP, err := netip.ParseAddr(entry.PrivateIP)
	if err != nil {
		b.replyReject(conn, "server misconfiguration")
		return nil, fmt.Errorf("route entry %q has invalid private_ip %q: %w", hs.Identity, entry.PrivateIP, err)
	}

	session := NewSession(hs.Identity, entry.Cluster, privateIP, entry.Cidrs, conn, settings.SendQueueCapacity)
	if ipv6, perr := netip.ParseAddrPort(hs.IPv6); perr == nil {
		session.SetAddrs(ipv6, netip.AddrPort{})
	}
	if stun, perr := netip.ParseAddrPort(hs.Stun); perr == nil {
		v6, _ := session.Addrs()
		session.SetAddrs(v6, stun)
	}

	if prev := b.table.Put(session); prev != nil {
		b.log.Infof("server: %s replaced prior session (last-wins)", hs.Identity)
		prev.Close()
	}

	others := b.rosterFor(session)
	reply := control.HandshakeReply{
		Ok:        true,
		PrivateIP: entry.PrivateIP,
		Mask:      entry.Mask,
		Gateway:   entry.Gateway,
		Others:    others,
	}
	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encode handshake reply: %w", err)
	}
	if err := b.codec.WriteFrame(conn, frame.TypeHandshakeReply, replyBytes); err != nil {
		b.table.Delete(session)
		return nil, fmt.Errorf("write handshake reply: %w", err)
	}

	b.broadcastPeerUpdate(session)
	return session, nil
}

func (b *Broker) replyReject(conn net.Conn, reason string) {
	reply := control.HandshakeReply{Ok: false, Reason: reason}
	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return
	}
	_ = b.codec.WriteFrame(conn, frame.TypeHandshakeReply, replyBytes)
}

func (b *Broker) rosterFor(self *Session) []control.PeerInfo {
	peers := b.table.ClusterPeers(self.Cluster, self.Identity)
	out := make([]control.PeerInfo, 0, len(peers))
	for _, p := range peers {
		out = append(out, peerInfoOf(p))
	}
	return out
}

func peerInfoOf(s *Session) control.PeerInfo {
	ipv6, stun := s.Addrs()
	return control.PeerInfo{
		Identity:  s.Identity,
		PrivateIP: s.PrivateIP.String(),
		Cidrs:     s.Cidrs,
		IPv6:      addrPortString(ipv6),
		Stun:      addrPortString(stun),
	}
}

func addrPortString(ap netip.AddrPort) string {
	if !ap.IsValid() {
		return ""
	}
	return ap.String()
}

// broadcastPeerUpdate enqueues a PeerUpdate describing self to every other
// session in self's cluster (spec.md §4.4). Delivery is best-effort.
func (b *Broker) broadcastPeerUpdate(self *Session) {
	update := control.PeerUpdate{
		Identity:  self.Identity,
		PrivateIP: self.PrivateIP.String(),
		Cidrs:     self.Cidrs,
	}
	ipv6, stun := self.Addrs()
	update.IPv6 = addrPortString(ipv6)
	update.Stun = addrPortString(stun)

	payload, err := json.Marshal(update)
	if err != nil {
		b.log.Errorf("server: encode peer update for %s: %v", self.Identity, err)
		return
	}
	framed, err := b.codec.Encode(frame.TypePeerUpdate, payload)
	if err != nil {
		b.log.Errorf("server: seal peer update for %s: %v", self.Identity, err)
		return
	}
	for _, peer := range b.table.ClusterPeers(self.Cluster, self.Identity) {
		if peer.Enqueue(framed) {
			b.counters.Inc(metrics.QueueOverflowDrop)
		}
	}
}

// readLoop pulls frames off the client's TCP connection until it closes or
// a protocol violation occurs (spec.md §7: "bad magic/version/length: drop
// the whole connection").
func (b *Broker) readLoop(s *Session) {
	defer func() {
		b.table.Delete(s)
		s.Close()
		b.broadcastPeerUpdate(leavingStub(s))
		b.log.Infof("server: %s disconnected", s.Identity)
	}()

	for {
		typ, plaintext, err := b.codec.ReadFrame(s.Conn())
		if errors.Is(err, cryptography.ErrCryptoAuthFailure) {
			// the whole frame was consumed, so the stream is still in sync.
			s.ErrFrames.Add(1)
			b.counters.Inc(metrics.CryptoAuthFailure)
			continue
		}
		if err != nil {
			return
		}
		switch typ {
		case frame.TypeData:
			s.RxFrames.Add(1)
			b.counters.Inc(metrics.FramesRx)
			b.routeData(s, plaintext)
		case frame.TypeKeepAlive:
			b.handleKeepAlive(s, plaintext)
		default:
			b.log.Warnf("server: %s sent unexpected frame type %s", s.Identity, typ)
		}
	}
}

// leavingStub carries just enough of a departed session's identity/cluster
// to announce its departure, with an empty address tuple. Receiving clients
// reset that peer's path liveness, so sends to it fall back to relay; they
// keep its last known path addresses and its routes.
func leavingStub(s *Session) *Session {
	return &Session{Identity: s.Identity, Cluster: s.Cluster, PrivateIP: s.PrivateIP}
}

func (b *Broker) handleKeepAlive(s *Session, plaintext []byte) {
	var ka control.KeepAlive
	if err := json.Unmarshal(plaintext, &ka); err != nil {
		b.log.Warnf("server: %s sent malformed keepalive: %v", s.Identity, err)
		return
	}
	ipv6, _ := netip.ParseAddrPort(ka.IPv6)
	stun, _ := netip.ParseAddrPort(ka.Stun)
	if s.SetAddrs(ipv6, stun) {
		b.broadcastPeerUpdate(s)
	}
	reply, err := json.Marshal(control.KeepAlive{Identity: s.Identity, IPv6: ka.IPv6, Stun: ka.Stun})
	if err != nil {
		return
	}
	framed, err := b.codec.Encode(frame.TypeKeepAlive, reply)
	if err != nil {
		return
	}
	s.Enqueue(framed)
}

// routeData implements spec.md §4.3: decrypt, parse dst_ip, longest-prefix
// lookup within the sender's cluster, re-seal, enqueue. Cross-cluster and
// no-route frames are dropped silently (no ICMP), each incrementing its
// own counter.
func (b *Broker) routeData(s *Session, plaintextIP []byte) {
	dst, err := ipparse.DestinationAddress(plaintextIP)
	if err != nil {
		s.ErrFrames.Add(1)
		b.counters.Inc(metrics.FramesErr)
		return
	}
	dest, ok := b.table.Resolve(s.Cluster, dst)
	if !ok {
		if other, crossCluster := b.table.ResolveAny(dst); crossCluster && other.Cluster != s.Cluster {
			b.counters.Inc(metrics.CrossClusterDrop)
			return
		}
		b.counters.Inc(metrics.NoRouteDrop)
		return
	}
	framed, err := b.codec.Encode(frame.TypeData, plaintextIP)
	if err != nil {
		b.counters.Inc(metrics.FramesErr)
		return
	}
	if dest.Enqueue(framed) {
		b.counters.Inc(metrics.QueueOverflowDrop)
	}
}

// writeLoop drains s's send queue to its TCP connection until the session
// is closed.
func (b *Broker) writeLoop(s *Session) {
	for {
		select {
		case <-s.Done():
			return
		case framed := <-s.SendQueue():
			if _, err := s.Conn().Write(framed); err != nil {
				s.Close()
				return
			}
			s.TxFrames.Add(1)
			b.counters.Inc(metrics.FramesTx)
		}
	}
}
