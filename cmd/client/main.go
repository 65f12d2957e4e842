package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const timestampFormat = "2006-01-02 15:04:05"

// Config defines the client-side environment variables.
type Config struct {
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:13337"`
	// TicketFile caches the reusable ticket across runs so 'ident' can
	// re-authenticate without asking for a pseudonym again.
	TicketFile string `envconfig:"TICKET_FILE" default:"ticket.txt"`
	Colours    bool   `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ticket := loadTicket(config.TicketFile)
	if ticket != "" {
		fmt.Println("Loaded ticket from file.")
	} else {
		fmt.Println("No saved ticket found. Please identify yourself.")
	}

	conn, err := net.Dial("tcp", config.ServerAddr)
	if err != nil {
		return exitRuntime, fmt.Errorf("error connecting to server: %w", err)
	}
	defer conn.Close()
	fmt.Printf("Connected to server at %s\n", config.ServerAddr)

	// Server messages arrive at any time; print them from their own
	// goroutine so the prompt loop never blocks delivery.
	lost := make(chan struct{})
	go func() {
		defer close(lost)
		serverScanner := bufio.NewScanner(conn)
		for serverScanner.Scan() {
			printServerLine(config.Colours, serverScanner.Text())
		}
	}()

	console := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !console.Scan() {
			break
		}
		command := strings.TrimSpace(console.Text())

		select {
		case <-lost:
			fmt.Fprintln(os.Stderr, "Server connection lost.")
			return exitRuntime, nil
		default:
		}

		switch {
		case command == "":
		case strings.EqualFold(command, "exit"):
			fmt.Println("Exiting...")
			return exitOK, nil
		case command == "ident":
			if ticket != "" {
				send(conn, "ticket "+ticket)
				continue
			}
			fmt.Print("Enter your pseudonym: ")
			if !console.Scan() {
				return exitOK, nil
			}
			send(conn, "pseudo "+strings.TrimSpace(console.Text()))
		case strings.HasPrefix(command, "ticket "):
			// Local command: cache the value for later 'ident' runs.
			ticket = strings.TrimSpace(strings.TrimPrefix(command, "ticket "))
			if err := saveTicket(config.TicketFile, ticket); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving ticket: %v\n", err)
				continue
			}
			fmt.Println("Ticket saved locally.")
		default:
			send(conn, command)
		}
	}
	return exitOK, nil
}

func printServerLine(colours bool, line string) {
	header := fmt.Sprintf("[Server] %s:", time.Now().Format(timestampFormat))
	if colours {
		header = color.New(color.FgGreen).Render(header)
	}
	fmt.Printf("%s %s\n", header, line)
}

func send(conn net.Conn, line string) {
	if _, err := fmt.Fprintln(conn, line); err != nil {
		fmt.Fprintf(os.Stderr, "Error sending command: %v\n", err)
	}
}

func loadTicket(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveTicket(path, ticket string) error {
	return os.WriteFile(path, []byte(ticket), 0o600)
}
