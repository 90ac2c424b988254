package peer

import (
	"net/netip"
	"testing"
	"time"
)

func TestPathStateTransitions(t *testing.T) {
	var p Path
	now := time.Now()

	if got := p.State(now); got != Unknown {
		t.Fatalf("new path: got %s, want Unknown", got)
	}

	addr := netip.MustParseAddrPort("[2001:db8::1]:51258")
	p.SetAddress(addr)
	if got := p.State(now); got != Probing {
		t.Fatalf("after SetAddress: got %s, want Probing", got)
	}

	p.MarkActive(now)
	if got := p.State(now); got != Fresh {
		t.Fatalf("just marked active: got %s, want Fresh", got)
	}
	if got := p.State(now.Add(FreshWindow - time.Millisecond)); got != Fresh {
		t.Fatalf("just under window: got %s, want Fresh", got)
	}
	if got := p.State(now.Add(FreshWindow + time.Millisecond)); got != Stale {
		t.Fatalf("just over window: got %s, want Stale", got)
	}

	p.Reset()
	if got := p.State(now); got != Probing {
		t.Fatalf("after Reset: got %s, want Probing", got)
	}
	if got, ok := p.Address(); !ok || got != addr {
		t.Fatalf("Reset must not forget the address, got %v, %v", got, ok)
	}
}

func TestSelectRoutePriority(t *testing.T) {
	now := time.Now()
	e := &Entry{Identity: "peer-b"}

	if got := e.SelectRoute(now, false); got != RouteNone {
		t.Fatalf("no paths, relay down: got %s, want RouteNone", got)
	}
	if got := e.SelectRoute(now, true); got != RouteRelay {
		t.Fatalf("no paths, relay up: got %s, want RouteRelay", got)
	}

	stunAddr := netip.MustParseAddrPort("1.2.3.4:51259")
	e.Stun.SetAddress(stunAddr)
	e.Stun.MarkActive(now)
	if got := e.SelectRoute(now, true); got != RouteStun {
		t.Fatalf("fresh stun only: got %s, want RouteStun", got)
	}

	ipv6Addr := netip.MustParseAddrPort("[2001:db8::2]:51258")
	e.IPv6.SetAddress(ipv6Addr)
	e.IPv6.MarkActive(now)
	if got := e.SelectRoute(now, true); got != RouteIPv6 {
		t.Fatalf("both fresh: got %s, want RouteIPv6 (priority)", got)
	}

	stale := now.Add(FreshWindow * 2)
	if got := e.SelectRoute(stale, true); got != RouteRelay {
		t.Fatalf("both stale, relay up: got %s, want RouteRelay", got)
	}
	if got := e.SelectRoute(stale, false); got != RouteNone {
		t.Fatalf("both stale, relay down: got %s, want RouteNone", got)
	}
}

func TestResetLivenessClearsBothPaths(t *testing.T) {
	now := time.Now()
	e := &Entry{}
	e.IPv6.SetAddress(netip.MustParseAddrPort("[2001:db8::1]:1"))
	e.IPv6.MarkActive(now)
	e.Stun.SetAddress(netip.MustParseAddrPort("1.2.3.4:1"))
	e.Stun.MarkActive(now)

	e.ResetLiveness()

	if got := e.IPv6.State(now); got != Probing {
		t.Fatalf("ipv6 after reset: got %s, want Probing", got)
	}
	if got := e.Stun.State(now); got != Probing {
		t.Fatalf("stun after reset: got %s, want Probing", got)
	}
}

func TestTableLifecycle(t *testing.T) {
	tbl := NewTable()
	e := tbl.GetOrCreate("a")
	e.PrivateIP = "10.0.0.2"

	got, ok := tbl.Get("a")
	if !ok || got != e {
		t.Fatalf("Get did not return the same entry created by GetOrCreate")
	}

	tbl.Clear()
	if _, ok := tbl.Get("a"); ok {
		t.Fatalf("entry survived Clear")
	}
}
