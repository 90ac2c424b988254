//go:build windows

package tundevice

import (
	"fmt"

	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wintun"

	"rustun/internal/application"
)

const ringCapacity = 0x400000 // 4 MiB, within wintun's allowed ring range

// wintunAdapter wraps a wintun.Session, grounded in tungo's
// infrastructure/PAL/windows/tun_adapters/wintun_windows.go but simplified
// to the public wintun-go Session API (ReceivePacket/ReleaseReceivePacket,
// AllocateSendPacket/SendPacket) rather than reaching into private fields.
type wintunAdapter struct {
	adapter *wintun.Adapter
	session wintun.Session
}

// OpenTunDevice creates a Wintun adapter named name and starts a session.
// MTU is advisory on Windows; the interface is configured by the out-of-
// scope platform network-configuration layer.
func OpenTunDevice(name string, mtu int) (application.TunDevice, error) {
	guid, err := wintun.GenerateGUID()
	if err != nil {
		return nil, fmt.Errorf("tundevice: generate guid: %w", err)
	}
	adapter, err := wintun.CreateAdapter(name, "Rustun", guid)
	if err != nil {
		return nil, fmt.Errorf("tundevice: create adapter %s: %w", name, err)
	}
	session, err := adapter.StartSession(ringCapacity)
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("tundevice: start session: %w", err)
	}
	return &wintunAdapter{adapter: adapter, session: session}, nil
}

func (a *wintunAdapter) ReadPacket(buf []byte) (int, error) {
	for {
		packet, err := a.session.ReceivePacket()
		if err == nil {
			n := copy(buf, packet)
			a.session.ReleaseReceivePacket(packet)
			return n, nil
		}
		if err == wintun.ErrNoMoreItems {
			windows.WaitForSingleObject(a.session.ReadWaitEvent(), windows.INFINITE)
			continue
		}
		return 0, fmt.Errorf("tundevice: receive: %w", err)
	}
}

func (a *wintunAdapter) WritePacket(packet []byte) error {
	buf, err := a.session.AllocateSendPacket(len(packet))
	if err != nil {
		return fmt.Errorf("tundevice: allocate send packet: %w", err)
	}
	copy(buf, packet)
	a.session.SendPacket(buf)
	return nil
}

func (a *wintunAdapter) Close() error {
	a.session.End()
	return a.adapter.Close()
}
