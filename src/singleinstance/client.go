package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultClientTimeout = 5 * time.Second

// Client sends control commands to the resident.
type Client struct {
	endpoint Endpoint
}

func NewClient(endpoint Endpoint) *Client { return &Client{endpoint: endpoint} }

// Send delivers one command line and returns the OK text. An ERR reply
// comes back as *RemoteError; an unreachable endpoint as ErrNoResident.
func (c *Client) Send(ctx context.Context, line string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultClientTimeout)
		defer cancel()
	}

	conn, err := c.endpoint.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrNoResident, c.endpoint, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(strings.TrimSpace(line) + "\n"); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	if strings.TrimSpace(reply) == pongResponse {
		return pongResponse, nil
	}
	return parseReply(reply)
}

// Detect reports whether a resident answers PING.
func (c *Client) Detect(ctx context.Context) bool {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
	}
	reply, err := c.Send(ctx, CmdPing)
	return err == nil && reply == pongResponse
}
