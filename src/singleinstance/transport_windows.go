//go:build windows

package singleinstance

import (
	"context"
	"net"

	winio "github.com/Microsoft/go-winio"
)

func (e Endpoint) listen() (net.Listener, error) {
	return winio.ListenPipe(e.pipe(), &winio.PipeConfig{MessageMode: false})
}

func (e Endpoint) dial(ctx context.Context) (net.Conn, error) {
	return winio.DialPipeContext(ctx, e.pipe())
}

func (e Endpoint) String() string { return e.pipe() }
