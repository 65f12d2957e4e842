// Package tcpserver is the line-oriented transport in front of the chat
// core: it accepts connections, decodes newline-delimited UTF-8 commands in
// arrival order, and hands each one to the connection's session.
package tcpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"chat-relay/runtime"
)

const welcomeBanner = "Welcome! Identify yourself with 'pseudo [name]' or 'ticket [ticket]'."

// LineSink writes newline-terminated messages to a connection. The mutex
// serializes concurrent writers: broadcasts and direct messages reach a
// connection from any number of sessions at once.
type LineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

func (s *LineSink) SendMessage(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, text)
	return err
}

// Server accepts TCP clients and runs one session per connection. It is a
// contract.Worker: cancel the context to stop accepting and close every
// active connection.
type Server struct {
	log           *slog.Logger
	addr          string
	maxLineLength int
	deps          runtime.Deps

	readyOnce sync.Once
	ready     chan struct{}
	boundAddr string
}

func New(log *slog.Logger, addr string, maxLineLength int, deps runtime.Deps) *Server {
	return &Server{
		log:           log,
		addr:          addr,
		maxLineLength: maxLineLength,
		deps:          deps,
		ready:         make(chan struct{}),
	}
}

// Addr blocks until the listener is bound and returns its address. Lets
// callers bind port 0 and discover the effective port.
func (s *Server) Addr() string {
	<-s.ready
	return s.boundAddr
}

func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	defer listener.Close()

	s.boundAddr = listener.Addr().String()
	s.readyOnce.Do(func() { close(s.ready) })
	s.log.Info("Chat server listening", "address", s.boundAddr)

	// Unblock Accept when the context ends.
	stopListener := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stopListener()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("Stopping accept loop")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn drives one client from welcome banner to disconnect cleanup.
// Session.Close is deferred so the cleanup path runs regardless of whether
// the peer closed, the read failed, or the server is shutting down.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stopConn := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopConn()

	sink := NewLineSink(conn)
	session := runtime.NewSession(s.deps, sink)
	defer session.Close()

	remote := conn.RemoteAddr().String()
	s.log.Info("Client connected", "remote", remote, "session", session.ID())
	_ = sink.SendMessage(welcomeBanner)

	scanner := bufio.NewScanner(conn)
	// The scanner's limit is the larger of max and the initial capacity, so
	// the initial buffer must not exceed the configured line length.
	initial := 1024
	if s.maxLineLength < initial {
		initial = s.maxLineLength
	}
	scanner.Buffer(make([]byte, 0, initial), s.maxLineLength)
	for scanner.Scan() {
		session.HandleLine(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		if errors.Is(err, bufio.ErrTooLong) {
			// The peer learns why before the deferred close drops it.
			_ = sink.SendMessage(fmt.Sprintf(
				"Error: Line exceeds %d bytes, closing connection.", s.maxLineLength))
			s.log.Warn("Oversized line", "session", session.ID(), "limit", s.maxLineLength)
		} else {
			s.log.Debug("Read loop ended", "session", session.ID(), "err", err)
		}
	}
	s.log.Info("Client disconnected", "remote", remote, "session", session.ID())
}
