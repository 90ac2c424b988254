// Package server reads the server's TOML configuration file (spec.md §6):
//
//	[server_config]
//	listen_addr = "0.0.0.0:8080"
//
//	[crypto_config]
//	chacha20poly1305 = "shared-secret"
//
//	[route_config]
//	routes_file = "/etc/rustun/routes.json"
package server

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"rustun/internal/cryptography"
)

// ServerConfig is the [server_config] TOML table. The server only ever
// speaks TCP (spec.md §4.3); UDP P2P paths are client-to-client and never
// touch the server.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// CryptoConfig is the [crypto_config] TOML table. Exactly one field may be
// set; it selects both the cipher suite and its key.
type CryptoConfig struct {
	ChaCha20Poly1305 string `toml:"chacha20poly1305"`
	AES256           string `toml:"aes256"`
	XOR              string `toml:"xor"`
	Plain            string `toml:"plain"`
}

// RouteConfig is the [route_config] TOML table.
type RouteConfig struct {
	RoutesFile string `toml:"routes_file"`
}

// Configuration is the full parsed server_config.toml.
type Configuration struct {
	Server ServerConfig `toml:"server_config"`
	Crypto CryptoConfig `toml:"crypto_config"`
	Route  RouteConfig  `toml:"route_config"`
}

// Read parses path as TOML into a Configuration.
func Read(path string) (*Configuration, error) {
	var cfg Configuration
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("server config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete enough to start.
func (c *Configuration) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server_config.listen_addr is required")
	}
	if c.Route.RoutesFile == "" {
		return fmt.Errorf("route_config.routes_file is required")
	}
	if _, _, err := c.CipherSuite(); err != nil {
		return err
	}
	return nil
}

// CipherSuite resolves the [crypto_config] table to exactly one
// (suite, key) pair.
func (c *Configuration) CipherSuite() (cryptography.SuiteName, string, error) {
	set := 0
	var name cryptography.SuiteName
	var key string
	if c.Crypto.ChaCha20Poly1305 != "" {
		set++
		name, key = cryptography.SuiteChaCha20, c.Crypto.ChaCha20Poly1305
	}
	if c.Crypto.AES256 != "" {
		set++
		name, key = cryptography.SuiteAES256, c.Crypto.AES256
	}
	if c.Crypto.XOR != "" {
		set++
		name, key = cryptography.SuiteXOR, c.Crypto.XOR
	}
	if c.Crypto.Plain != "" {
		set++
		name, key = cryptography.SuitePlain, ""
	}
	if set == 0 {
		return "", "", fmt.Errorf("crypto_config: exactly one of chacha20poly1305/aes256/xor/plain must be set")
	}
	if set > 1 {
		return "", "", fmt.Errorf("crypto_config: only one cipher may be configured, found %d", set)
	}
	return name, key, nil
}
