package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-relay/infrastructure/tcpserver"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// liveCounts feeds the telemetry worker the gauges the registries expose.
type liveCounts struct {
	directory *runtime.SessionDirectory
	rooms     *runtime.RoomRegistry
}

func (c liveCounts) LiveSessions() int { return c.directory.Len() }
func (c liveCounts) LiveRooms() int    { return c.rooms.Len() }

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so defers execute and the exit path stays
// testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Optional moderation
	var censor *moderation.Moderator
	if words := config.Words(); len(words) > 0 {
		charReplacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		censor, err = moderation.NewModerator(words, charReplacement, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		logger.Info("Moderation enabled", "words", len(words))
	}

	// 3. Shared registries
	metrics := observability.NewMetrics()
	directory := runtime.NewSessionDirectory()
	rooms := runtime.NewRoomRegistry(metrics)
	tickets := runtime.NewTicketRegistry(metrics)

	deps := runtime.Deps{
		Log:       logger,
		Tickets:   tickets,
		Rooms:     rooms,
		Directory: directory,
		Metrics:   metrics,
		Censor:    censor,
	}

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Workers under supervision: the TCP accept loop and the telemetry
	// reporter.
	server := tcpserver.New(logger, config.ListenAddress(), config.MaxLineLength, deps)
	telemetry := workers.NewTelemetryWorker(logger, config.MetricInterval, metrics,
		liveCounts{directory: directory, rooms: rooms})

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(server, telemetry)

	logger.Info("Starting chat server", "address", config.ListenAddress())
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
