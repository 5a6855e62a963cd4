package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const requestReadTimeout = 3 * time.Second

// Server owns the endpoint and hands accepted requests to the application
// one at a time through Next.
type Server struct {
	endpoint Endpoint
	log      *zap.Logger

	lis       net.Listener
	incoming  chan *Conn
	done      chan struct{}
	closeOnce sync.Once
}

func NewServer(endpoint Endpoint, log *zap.Logger) *Server {
	if log == nil {
		log = zap.L()
	}
	return &Server{
		endpoint: endpoint,
		log:      log.Named("singleinstance"),
		incoming: make(chan *Conn, 8),
		done:     make(chan struct{}),
	}
}

// Start binds the endpoint. It fails when another resident already owns it.
func (s *Server) Start(ctx context.Context) error {
	if s.lis != nil {
		return nil
	}
	lis, err := s.endpoint.listen()
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.endpoint, err)
	}
	s.lis = lis
	if tcp, ok := lis.Addr().(*net.TCPAddr); ok {
		s.endpoint.Port = tcp.Port
	}
	s.log.Info("listening", zap.Stringer("endpoint", s.endpoint))
	go s.acceptLoop(ctx)
	return nil
}

// Endpoint is where the server listens; with Port 0 it carries the port
// actually bound.
func (s *Server) Endpoint() Endpoint { return s.endpoint }

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		go s.serve(ctx, c)
	}
}

func (s *Server) serve(ctx context.Context, c net.Conn) {
	_ = c.SetDeadline(time.Now().Add(requestReadTimeout))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return
	}

	req, err := ParseRequest(line)
	if err != nil {
		s.log.Warn("bad request", zap.String("line", line), zap.Error(err))
		_, _ = bw.WriteString(errPrefix + " " + oneLine(err.Error()) + "\n")
		_ = bw.Flush()
		_ = c.Close()
		return
	}
	if req.Command == CmdPing {
		_, _ = bw.WriteString(pongResponse + "\n")
		_ = bw.Flush()
		_ = c.Close()
		return
	}

	_ = c.SetDeadline(time.Time{})
	s.log.Debug("request", zap.Stringer("request", req))
	conn := &Conn{c: c, w: bw, req: req}
	select {
	case s.incoming <- conn:
	case <-s.done:
		_ = conn.RespondError("resident is shutting down")
		_ = c.Close()
	case <-ctx.Done():
		_ = c.Close()
	}
}

// Next returns the next request, or an error once ctx ends or the server
// is closed.
func (s *Server) Next(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case c := <-s.incoming:
		return c, nil
	}
}

// Requests adapts Next to a channel for select loops. The channel closes
// when ctx ends or the server is closed.
func (s *Server) Requests(ctx context.Context) <-chan *Conn {
	out := make(chan *Conn)
	go func() {
		defer close(out)
		for {
			c, err := s.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- c:
			case <-ctx.Done():
				_ = c.RespondError("resident is shutting down")
				_ = c.Close()
				return
			}
		}
	}()
	return out
}

func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.lis != nil {
			err = s.lis.Close()
		}
	})
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Conn is one accepted request awaiting a reply.
type Conn struct {
	c   net.Conn
	w   *bufio.Writer
	req Request
}

func (c *Conn) Request() Request { return c.req }

// Respond sends OK with text and closes the connection.
func (c *Conn) Respond(text string) error {
	return c.reply(okPrefix, text)
}

// RespondError sends ERR with msg and closes the connection.
func (c *Conn) RespondError(msg string) error {
	return c.reply(errPrefix, msg)
}

func (c *Conn) reply(status, text string) error {
	defer c.c.Close()
	if _, err := c.w.WriteString(status + " " + oneLine(text) + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) Close() error {
	err := c.c.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
