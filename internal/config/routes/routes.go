// Package routes reads the server's routes file: a JSON array of route
// entries keyed by cluster + identity (spec.md §3, §6).
package routes

import (
	"encoding/json"
	"fmt"
	"os"

	"rustun/internal/domain/route"
)

// Load reads and parses the routes file at path.
func Load(path string) ([]route.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routes: read %s: %w", path, err)
	}
	var entries []route.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("routes: parse %s: %w", path, err)
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("routes: %s: %w", path, err)
	}
	return entries, nil
}

// Validate enforces the invariant that private_ip is unique across the
// whole server (spec.md §3), regardless of cluster.
func Validate(entries []route.Entry) error {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Identity == "" {
			return fmt.Errorf("route entry in cluster %q has empty identity", e.Cluster)
		}
		if e.PrivateIP == "" {
			return fmt.Errorf("route entry %q has empty private_ip", e.Identity)
		}
		if owner, dup := seen[e.PrivateIP]; dup {
			return fmt.Errorf("private_ip %q is claimed by both %q and %q", e.PrivateIP, owner, e.Identity)
		}
		seen[e.PrivateIP] = e.Identity
	}
	return nil
}

// Index groups route entries for lookup by identity.
type Index struct {
	byIdentity map[string]route.Entry
}

func NewIndex(entries []route.Entry) *Index {
	idx := &Index{byIdentity: make(map[string]route.Entry, len(entries))}
	for _, e := range entries {
		idx.byIdentity[e.Identity] = e
	}
	return idx
}

// Lookup returns the route entry for identity, if the server knows it.
func (idx *Index) Lookup(identity string) (route.Entry, bool) {
	e, ok := idx.byIdentity[identity]
	return e, ok
}
