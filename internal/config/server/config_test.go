package server

import (
	"os"
	"path/filepath"
	"testing"

	"rustun/internal/cryptography"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "server_config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server_config]
listen_addr = "0.0.0.0:8080"

[crypto_config]
chacha20poly1305 = "shared-secret"

[route_config]
routes_file = "/etc/rustun/routes.json"
`)
	cfg, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	suite, key, err := cfg.CipherSuite()
	if err != nil {
		t.Fatal(err)
	}
	if suite != cryptography.SuiteChaCha20 || key != "shared-secret" {
		t.Fatalf("unexpected cipher resolution: %s %q", suite, key)
	}
}

func TestCipherSuiteRejectsZeroConfigured(t *testing.T) {
	path := writeConfig(t, `
[server_config]
listen_addr = "0.0.0.0:8080"

[route_config]
routes_file = "/etc/rustun/routes.json"
`)
	if _, err := Read(path); err == nil {
		t.Fatal("expected error when no cipher is configured")
	}
}

func TestCipherSuiteRejectsMultipleConfigured(t *testing.T) {
	path := writeConfig(t, `
[server_config]
listen_addr = "0.0.0.0:8080"

[crypto_config]
aes256 = "key-one"
xor = "key-two"

[route_config]
routes_file = "/etc/rustun/routes.json"
`)
	if _, err := Read(path); err == nil {
		t.Fatal("expected error when more than one cipher is configured")
	}
}

func TestReadRequiresListenAddrAndRoutesFile(t *testing.T) {
	path := writeConfig(t, `
[crypto_config]
plain = "true"
`)
	if _, err := Read(path); err == nil {
		t.Fatal("expected error when listen_addr and routes_file are missing")
	}
}
