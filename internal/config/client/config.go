// Package client parses the client CLI (spec.md §6) with pflag, grounded
// in R2Northstar-Atlas's use of github.com/spf13/pflag for its own CLI.
package client

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"rustun/internal/cryptography"
)

// Configuration is the fully parsed and validated client CLI.
type Configuration struct {
	Server             string
	Identity           string
	CipherSuite        cryptography.SuiteName
	CipherKey          string
	EnableP2P          bool
	KeepAliveInterval  time.Duration
	KeepAliveThreshold int
}

// Parse parses args (conventionally os.Args[1:]) into a Configuration.
func Parse(args []string) (*Configuration, error) {
	fs := pflag.NewFlagSet("rustun-client", pflag.ContinueOnError)

	server := fs.StringP("server", "s", "", "server address (host:port)")
	identity := fs.StringP("identity", "i", "", "this client's identity")
	cipherSpec := fs.StringP("cipher", "c", "plain", "plain|xor:<key>|aes256:<key>|chacha20:<key>")
	enableP2P := fs.Bool("enable-p2p", false, "enable direct UDP paths (IPv6 + STUN)")
	keepAliveSeconds := fs.Int("keepalive-interval", 10, "keepalive interval, seconds")
	keepAliveThreshold := fs.Int("keepalive-threshold", 5, "missed server keepalives before reconnect")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *server == "" {
		return nil, fmt.Errorf("-s/--server is required")
	}
	if *identity == "" {
		return nil, fmt.Errorf("-i/--identity is required")
	}

	suite, key, err := cryptography.ParseCipherSpec(*cipherSpec)
	if err != nil {
		return nil, err
	}

	return &Configuration{
		Server:             *server,
		Identity:           *identity,
		CipherSuite:        suite,
		CipherKey:          key,
		EnableP2P:          *enableP2P,
		KeepAliveInterval:  time.Duration(*keepAliveSeconds) * time.Second,
		KeepAliveThreshold: *keepAliveThreshold,
	}, nil
}
