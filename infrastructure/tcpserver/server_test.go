package tcpserver

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"chat-relay/observability"
	"chat-relay/runtime"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const readTimeout = 2 * time.Second

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	deps := runtime.Deps{
		Log:       log,
		Tickets:   runtime.NewTicketRegistry(metrics),
		Rooms:     runtime.NewRoomRegistry(metrics),
		Directory: runtime.NewSessionDirectory(),
		Metrics:   metrics,
	}

	server := New(log, "127.0.0.1:0", 4096, deps)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.Run(ctx) }()

	return server, server.Addr()
}

type lineClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

// dial connects and consumes the welcome banner.
func dial(t *testing.T, addr string) *lineClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &lineClient{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
	c.expect("Welcome! Identify yourself")
	return c
}

func (c *lineClient) send(line string) {
	c.t.Helper()
	_, err := fmt.Fprintln(c.conn, line)
	require.NoError(c.t, err)
}

// expect reads the next line and requires it to contain the fragment.
func (c *lineClient) expect(fragment string) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	require.True(c.t, c.scanner.Scan(), "expected a line containing %q, got EOF/timeout: %v", fragment, c.scanner.Err())
	line := c.scanner.Text()
	require.Contains(c.t, line, fragment)
	return line
}

func TestServer_Pseudo_Ticket_Round_Trip_Across_Connections(t *testing.T) {
	_, addr := startServer(t)

	// Given session A registered as alice
	a := dial(t, addr)
	a.send("pseudo alice")
	welcome := a.expect("Welcome, alice! Your ticket is ")
	ticket := strings.TrimPrefix(welcome, "Welcome, alice! Your ticket is ")

	// When a fresh session B presents the ticket
	b := dial(t, addr)
	b.send("ticket " + ticket)

	// Then B is authenticated as alice
	b.expect("Welcome back, alice!")
}

func TestServer_Room_Lifecycle_And_Broadcast(t *testing.T) {
	server, addr := startServer(t)

	a := dial(t, addr)
	a.send("pseudo alice")
	a.expect("Welcome, alice!")
	a.send("join room1")
	a.expect("Created and joined room: room1")

	b := dial(t, addr)
	b.send("pseudo bob")
	b.expect("Welcome, bob!")
	b.send("join room1")
	b.expect("[Room Notice] bob has joined the room.")
	b.expect("Joined room: room1")
	a.expect("[Room Notice] bob has joined the room.")

	// When alice broadcasts
	a.send("send hello")
	b.expect("alice: hello")
	a.expect("alice: hello")

	// When the moderator leaves, bob is promoted
	a.send("leave")
	b.expect("[Room Notice] alice has left the room.")
	b.expect("[Room Notice] bob is now the moderator.")

	// And the room survives with one member
	_, ok := server.deps.Rooms.Get("room1")
	require.True(t, ok)
}

func TestServer_Direct_Messages(t *testing.T) {
	_, addr := startServer(t)

	a := dial(t, addr)
	a.send("pseudo alice")
	a.expect("Welcome, alice!")

	b := dial(t, addr)
	b.send("pseudo Bob")
	b.expect("Welcome, Bob!")

	// Unknown target
	a.send("direct carol hi")
	a.expect("Error: User not found.")

	// Case-insensitive resolution
	a.send("direct bob are you there?")
	a.expect("Message sent to bob.")
	b.expect("Direct message from alice: are you there?")
}

func TestServer_Disconnect_Frees_Room_For_Recreation(t *testing.T) {
	server, addr := startServer(t)

	a := dial(t, addr)
	a.send("pseudo alice")
	a.expect("Welcome, alice!")
	a.send("join room1")
	a.expect("Created and joined room: room1")

	// When the sole member drops the connection
	require.NoError(t, a.conn.Close())

	// Then the room disappears from the registry
	require.Eventually(t, func() bool {
		_, ok := server.deps.Rooms.Get("room1")
		return !ok
	}, readTimeout, 10*time.Millisecond)

	// And a later join recreates it with the newcomer as moderator
	c := dial(t, addr)
	c.send("pseudo carol")
	c.expect("Welcome, carol!")
	c.send("join room1")
	c.expect("Created and joined room: room1")
}

func TestServer_Oversized_Line_Is_Reported_Before_Disconnect(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	deps := runtime.Deps{
		Log:       log,
		Tickets:   runtime.NewTicketRegistry(metrics),
		Rooms:     runtime.NewRoomRegistry(metrics),
		Directory: runtime.NewSessionDirectory(),
		Metrics:   metrics,
	}

	// Given a server with a small line limit
	server := New(log, "127.0.0.1:0", 128, deps)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.Run(ctx) }()

	c := dial(t, server.Addr())
	c.send("pseudo " + strings.Repeat("x", 512))

	// Then the client is told why before the connection drops
	c.expect("Error: Line exceeds 128 bytes, closing connection.")
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	require.False(t, c.scanner.Scan())
}

func TestServer_Rejects_Commands_Before_Identification(t *testing.T) {
	_, addr := startServer(t)

	ghost := dial(t, addr)
	ghost.send("join room1")
	ghost.expect("Error: Identify yourself first.")
	ghost.send("nonsense")
	ghost.expect("Error: Unrecognized command.")
}
