package client

import (
	"net/netip"

	"rustun/internal/domain/control"
	"rustun/internal/domain/route"
)

// RouteMap is the client-side virtual_ip_or_cidr → identity mapping of
// spec.md §3, rebuilt wholesale from HandshakeReply.others and patched
// incrementally by PeerUpdate.
type RouteMap struct {
	prefixes *route.PrefixTable
}

func NewRouteMap() *RouteMap {
	return &RouteMap{prefixes: route.NewPrefixTable()}
}

// Rebuild learns every peer in the roster carried by a HandshakeReply. It
// only adds mappings and removes none; the relay supervisor calls it on a
// freshly created RouteMap for each connection.
func (m *RouteMap) Rebuild(peers []control.PeerInfo) {
	for _, p := range peers {
		m.learn(p.Identity, p.PrivateIP, p.Cidrs)
	}
}

// Apply patches the map with one PeerUpdate (spec.md §4.5). The peer's
// prior prefixes are dropped first so a changed private_ip or CIDR set
// doesn't leave a stale route pointing at it alongside the new one.
func (m *RouteMap) Apply(update control.PeerUpdate) {
	m.prefixes.Delete(update.Identity)
	m.learn(update.Identity, update.PrivateIP, update.Cidrs)
}

func (m *RouteMap) learn(identity, privateIP string, cidrs []string) {
	if addr, err := netip.ParseAddr(privateIP); err == nil {
		m.prefixes.PutHost(addr, identity)
	}
	for _, c := range cidrs {
		if prefix, err := netip.ParsePrefix(c); err == nil {
			m.prefixes.Put(prefix, identity)
		}
	}
}

// Forget removes every mapping pointing at identity.
func (m *RouteMap) Forget(identity string) {
	m.prefixes.Delete(identity)
}

// Lookup resolves an IP packet's destination to a peer identity.
func (m *RouteMap) Lookup(dst netip.Addr) (string, bool) {
	return m.prefixes.Lookup(dst)
}
