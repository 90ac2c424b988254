// Package listeners wraps net.Listener/net.UDPConn behind small contracts,
// mirroring tungo's infrastructure/listeners/{tcp_listener,udp_listener}.
package listeners

import "net"

// TCPListener accepts relay connections from clients.
type TCPListener interface {
	Accept() (net.Conn, error)
	Close() error
}

type tcpListener struct {
	ln net.Listener
}

// NewTCPListener binds addr for the relay (TCP) path.
func NewTCPListener(addr string) (TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (t *tcpListener) Accept() (net.Conn, error) { return t.ln.Accept() }
func (t *tcpListener) Close() error              { return t.ln.Close() }
