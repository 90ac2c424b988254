package server

import (
	"net/netip"
	"sync"

	"rustun/internal/domain/route"
)

// Table is the server's session index: by_identity plus a by_vip index
// partitioned per cluster (spec.md §4.3), adapted from tungo's
// DefaultSessionRepository[cs] generic repository — specialized here to
// *Session since the broker only ever holds one concrete session type.
type Table struct {
	mu         sync.RWMutex
	byIdentity map[string]*Session
	byCluster  map[string]*route.PrefixTable
}

func NewTable() *Table {
	return &Table{
		byIdentity: make(map[string]*Session),
		byCluster:  make(map[string]*route.PrefixTable),
	}
}

// Put installs s, replacing and returning any prior session under the same
// identity — the caller closes the returned session (last-wins admission,
// spec.md §4.2).
func (t *Table) Put(s *Session) (prev *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev = t.byIdentity[s.Identity]
	t.byIdentity[s.Identity] = s

	pt, ok := t.byCluster[s.Cluster]
	if !ok {
		pt = route.NewPrefixTable()
		t.byCluster[s.Cluster] = pt
	}
	pt.PutHost(s.PrivateIP, s.Identity)
	for _, c := range s.Cidrs {
		if prefix, err := netip.ParsePrefix(c); err == nil {
			pt.Put(prefix, s.Identity)
		}
	}
	return prev
}

// Delete removes s, but only if it is still the session on file for its
// identity (a replaced session must not delete its replacement's entry).
func (t *Table) Delete(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.byIdentity[s.Identity]; ok && cur == s {
		delete(t.byIdentity, s.Identity)
		if pt, ok := t.byCluster[s.Cluster]; ok {
			pt.Delete(s.Identity)
		}
	}
}

// Get returns the session currently on file for identity.
func (t *Table) Get(identity string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byIdentity[identity]
	return s, ok
}

// Resolve performs the longest-prefix lookup of addr within cluster's
// virtual-address space, never crossing a cluster boundary (spec.md §4.3,
// §8: "source and destination sessions share the same cluster").
func (t *Table) Resolve(cluster string, addr netip.Addr) (*Session, bool) {
	t.mu.RLock()
	pt, ok := t.byCluster[cluster]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	identity, ok := pt.Lookup(addr)
	if !ok {
		return nil, false
	}
	return t.Get(identity)
}

// ResolveAny performs the longest-prefix lookup across every cluster,
// regardless of origin — used only to distinguish a cross-cluster send
// from a genuinely unrouted one (spec.md §8 scenario 3: cross-cluster
// traffic increments its own counter rather than the generic no-route one).
func (t *Table) ResolveAny(addr netip.Addr) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, pt := range t.byCluster {
		if identity, ok := pt.Lookup(addr); ok {
			if s, ok := t.byIdentity[identity]; ok {
				return s, true
			}
		}
	}
	return nil, false
}

// ClusterPeers returns every session in cluster other than except, the
// broadcast fan-out set for HandshakeReply.others and PeerUpdate
// (spec.md §4.2, §4.4).
func (t *Table) ClusterPeers(cluster, except string) []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Session, 0, len(t.byIdentity))
	for identity, s := range t.byIdentity {
		if s.Cluster == cluster && identity != except {
			out = append(out, s)
		}
	}
	return out
}
