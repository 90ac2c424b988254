package route

import (
	"net/netip"
	"testing"
)

func TestLongestPrefixMatchWins(t *testing.T) {
	pt := NewPrefixTable()
	pt.Put(netip.MustParsePrefix("10.0.0.0/8"), "site-a")
	pt.PutHost(netip.MustParseAddr("10.0.0.2"), "client-b")

	id, ok := pt.Lookup(netip.MustParseAddr("10.0.0.2"))
	if !ok || id != "client-b" {
		t.Fatalf("expected host route to win over /8, got %q, %v", id, ok)
	}

	id, ok = pt.Lookup(netip.MustParseAddr("10.0.0.3"))
	if !ok || id != "site-a" {
		t.Fatalf("expected /8 fallback for unmatched host, got %q, %v", id, ok)
	}

	if _, ok := pt.Lookup(netip.MustParseAddr("192.168.1.1")); ok {
		t.Fatalf("expected no match outside any prefix")
	}
}

func TestPutReplacesExistingPrefix(t *testing.T) {
	pt := NewPrefixTable()
	prefix := netip.MustParsePrefix("192.168.1.0/24")
	pt.Put(prefix, "first")
	pt.Put(prefix, "second")

	id, ok := pt.Lookup(netip.MustParseAddr("192.168.1.5"))
	if !ok || id != "second" {
		t.Fatalf("expected replacement to win, got %q, %v", id, ok)
	}
}

func TestDeleteRemovesAllPrefixesForIdentity(t *testing.T) {
	pt := NewPrefixTable()
	pt.PutHost(netip.MustParseAddr("10.0.0.2"), "a")
	pt.Put(netip.MustParsePrefix("172.16.0.0/16"), "a")
	pt.PutHost(netip.MustParseAddr("10.0.0.3"), "b")

	pt.Delete("a")

	if _, ok := pt.Lookup(netip.MustParseAddr("10.0.0.2")); ok {
		t.Fatalf("expected host route for a to be gone")
	}
	if _, ok := pt.Lookup(netip.MustParseAddr("172.16.5.5")); ok {
		t.Fatalf("expected cidr route for a to be gone")
	}
	if id, ok := pt.Lookup(netip.MustParseAddr("10.0.0.3")); !ok || id != "b" {
		t.Fatalf("expected b's route to survive, got %q, %v", id, ok)
	}
}
