//go:build !windows

package singleinstance

import (
	"context"
	"net"
)

func (e Endpoint) listen() (net.Listener, error) {
	return net.Listen("tcp", e.tcpAddr())
}

func (e Endpoint) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", e.tcpAddr())
}

func (e Endpoint) String() string { return e.tcpAddr() }
