package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"chat-relay/observability"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"
)

// Gauges exposes the live counts the telemetry report samples alongside the
// monotonic counters.
type Gauges interface {
	LiveSessions() int
	LiveRooms() int
}

// TelemetryWorker periodically logs a snapshot of chat activity plus the
// process's own CPU and memory footprint.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	metrics        *observability.Metrics
	gauges         Gauges
}

func NewTelemetryWorker(
	log *slog.Logger,
	metricInterval time.Duration,
	metrics *observability.Metrics,
	gauges Gauges,
) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		metrics:        metrics,
		gauges:         gauges,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Activity report\n" + w.render(rss, cpu))
		}
	}
}

// render builds the human-readable stats table written to the log.
func (w *TelemetryWorker) render(rss uint64, cpu float64) string {
	snap := w.metrics.GetLatest()

	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Sessions", "Rooms", "Broadcasts", "Directs", "Tickets", "Errors", "CPU %", "RSS MB"})
	table.Append([]string{
		fmt.Sprintf("%d", w.gauges.LiveSessions()),
		fmt.Sprintf("%d", w.gauges.LiveRooms()),
		fmt.Sprintf("%d", snap.MessagesBroadcast),
		fmt.Sprintf("%d", snap.DirectMessages),
		fmt.Sprintf("%d", snap.TicketsIssued),
		fmt.Sprintf("%d", snap.CommandErrors),
		fmt.Sprintf("%.1f", cpu),
		fmt.Sprintf("%d", rss/1024/1024),
	})
	table.Render()
	return b.String()
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
