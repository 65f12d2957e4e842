package e2e

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"chat-relay/infrastructure/tcpserver"
	"chat-relay/observability"
	"chat-relay/runtime"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const readTimeout = 3 * time.Second

type BaseChatSuite struct {
	suite.Suite
	Config Config

	addr   string
	cancel context.CancelFunc
}

// SetupSuite loads the environment configuration and, unless SERVER_ADDR
// targets an external instance, boots a server in-process.
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr != "" {
		s.addr = s.Config.ServerAddr
		return
	}

	log := logs.GetLoggerFromString(s.Config.LogLevel)
	metrics := observability.NewMetrics()
	deps := runtime.Deps{
		Log:       log,
		Tickets:   runtime.NewTicketRegistry(metrics),
		Rooms:     runtime.NewRoomRegistry(metrics),
		Directory: runtime.NewSessionDirectory(),
		Metrics:   metrics,
	}

	server := tcpserver.New(log, "127.0.0.1:0", 4096, deps)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { _ = server.Run(ctx) }()
	s.addr = server.Addr()
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Step prints a colorized header for a test step in logs.
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Client is one raw TCP chat connection driven line by line.
type Client struct {
	suite   *BaseChatSuite
	conn    net.Conn
	scanner *bufio.Scanner
}

// Dial connects a named client and consumes the welcome banner.
func (s *BaseChatSuite) Dial(name string) *Client {
	s.Step("connect " + name)
	conn, err := net.Dial("tcp", s.addr)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.addr)
	s.T().Cleanup(func() { _ = conn.Close() })

	c := &Client{suite: s, conn: conn, scanner: bufio.NewScanner(conn)}
	c.Expect("Welcome! Identify yourself")
	return c
}

func (c *Client) Send(line string) {
	_, err := fmt.Fprintln(c.conn, line)
	c.suite.Require().NoError(err)
}

// Expect reads the next server line and requires it to contain fragment.
func (c *Client) Expect(fragment string) string {
	c.suite.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	c.suite.Require().True(c.scanner.Scan(),
		"expected a line containing %q, got EOF/timeout: %v", fragment, c.scanner.Err())
	line := c.scanner.Text()
	c.suite.T().Log(line)
	c.suite.Require().Contains(line, fragment)
	return line
}

// Close drops the connection, simulating a transport failure.
func (c *Client) Close() {
	_ = c.conn.Close()
}
