//go:build linux || darwin

// Package tundevice wraps the platform TUN byte-interface behind
// application.TunDevice — the only in-scope piece of TUN handling per
// spec.md §1/§6, which treats device creation/configuration as an external
// collaborator. Grounded in tungo's
// infrastructure/PAL/darwin/tun_adapters/wg_tun_adapter.go, which wraps the
// same golang.zx2c4.com/wireguard/tun.Device this way.
package tundevice

import (
	"fmt"

	"golang.zx2c4.com/wireguard/tun"

	"rustun/internal/application"
)

const maxPacketSize = 65535

// wireguardAdapter wraps a wireguard/tun.Device for Linux/Darwin, reusing a
// fixed read buffer so the steady-state read path does not allocate.
type wireguardAdapter struct {
	device tun.Device

	readBuf []byte
	readVec [][]byte
	sizes   []int
}

// OpenTunDevice creates and brings up a TUN interface named name with the
// given MTU, returning the byte-interface the multiplexer reads/writes.
func OpenTunDevice(name string, mtu int) (application.TunDevice, error) {
	dev, err := tun.CreateTUN(name, mtu)
	if err != nil {
		return nil, fmt.Errorf("tundevice: create %s: %w", name, err)
	}
	rb := make([]byte, maxPacketSize)
	return &wireguardAdapter{
		device:  dev,
		readBuf: rb,
		readVec: [][]byte{rb},
		sizes:   []int{0},
	}, nil
}

func (a *wireguardAdapter) ReadPacket(buf []byte) (int, error) {
	a.sizes[0] = 0
	if _, err := a.device.Read(a.readVec, a.sizes, 0); err != nil {
		return 0, err
	}
	n := a.sizes[0]
	if n > len(buf) {
		return 0, fmt.Errorf("tundevice: destination buffer too small (%d < %d)", len(buf), n)
	}
	copy(buf, a.readBuf[:n])
	return n, nil
}

func (a *wireguardAdapter) WritePacket(packet []byte) error {
	vec := [][]byte{packet}
	_, err := a.device.Write(vec, 0)
	return err
}

func (a *wireguardAdapter) Close() error {
	return a.device.Close()
}
