// Package stunclient sends a single STUN Binding Request against a public
// STUN server and returns the mapped (reflexive) address (spec.md §4.7),
// built on github.com/gortc/stun's message encoder the way
// gortc-gortcd's gortcd-turn-client builds and parses STUN messages.
package stunclient

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gortc/stun"
)

// ErrNoMappedAddress is returned when a STUN server replies without an
// XOR-MAPPED-ADDRESS attribute.
var ErrNoMappedAddress = errors.New("stunclient: response carries no mapped address")

// Bind sends one Binding Request over conn (the client's already-bound UDP
// socket, so the mapping reflects the same port used for P2P traffic) to
// serverAddr and returns the server's view of conn's public address.
func Bind(conn net.PacketConn, serverAddr *net.UDPAddr, timeout time.Duration) (*net.UDPAddr, error) {
	request := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("stunclient: set deadline: %w", err)
	}
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.WriteTo(request.Raw, serverAddr); err != nil {
		return nil, fmt.Errorf("stunclient: write binding request: %w", err)
	}

	buf := make([]byte, 1500)
	n, from, err := conn.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("stunclient: read binding response: %w", err)
	}
	if from.String() != serverAddr.String() {
		return nil, fmt.Errorf("stunclient: response from unexpected address %s", from)
	}

	response := &stun.Message{Raw: buf[:n]}
	if err := response.Decode(); err != nil {
		return nil, fmt.Errorf("stunclient: decode response: %w", err)
	}
	if response.Type != stun.BindingSuccess {
		return nil, fmt.Errorf("stunclient: unexpected response type %s", response.Type)
	}

	var mapped stun.XORMappedAddress
	if err := mapped.GetFrom(response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMappedAddress, err)
	}

	return &net.UDPAddr{IP: mapped.IP, Port: mapped.Port}, nil
}
