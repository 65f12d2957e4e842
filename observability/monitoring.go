package observability

import "sync/atomic"

// Metrics aggregates live counters for the whole process. Counters are
// atomic so sessions increment them without coordination; the telemetry
// worker reads a consistent-enough snapshot for reporting.
type Metrics struct {
	SessionsOpened    uint64
	SessionsClosed    uint64
	RoomsCreated      uint64
	RoomsRemoved      uint64
	MessagesBroadcast uint64
	DirectMessages    uint64
	TicketsIssued     uint64
	CommandErrors     uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncrSessionsOpened()    { atomic.AddUint64(&m.SessionsOpened, 1) }
func (m *Metrics) IncrSessionsClosed()    { atomic.AddUint64(&m.SessionsClosed, 1) }
func (m *Metrics) IncrRoomsCreated()      { atomic.AddUint64(&m.RoomsCreated, 1) }
func (m *Metrics) IncrRoomsRemoved()      { atomic.AddUint64(&m.RoomsRemoved, 1) }
func (m *Metrics) IncrMessagesBroadcast() { atomic.AddUint64(&m.MessagesBroadcast, 1) }
func (m *Metrics) IncrDirectMessages()    { atomic.AddUint64(&m.DirectMessages, 1) }
func (m *Metrics) IncrTicketsIssued()     { atomic.AddUint64(&m.TicketsIssued, 1) }
func (m *Metrics) IncrCommandErrors()     { atomic.AddUint64(&m.CommandErrors, 1) }

// Snapshot is a plain copy safe to hand to reporters.
type Snapshot struct {
	SessionsOpened    uint64
	SessionsClosed    uint64
	RoomsCreated      uint64
	RoomsRemoved      uint64
	MessagesBroadcast uint64
	DirectMessages    uint64
	TicketsIssued     uint64
	CommandErrors     uint64
}

func (m *Metrics) GetLatest() Snapshot {
	return Snapshot{
		SessionsOpened:    atomic.LoadUint64(&m.SessionsOpened),
		SessionsClosed:    atomic.LoadUint64(&m.SessionsClosed),
		RoomsCreated:      atomic.LoadUint64(&m.RoomsCreated),
		RoomsRemoved:      atomic.LoadUint64(&m.RoomsRemoved),
		MessagesBroadcast: atomic.LoadUint64(&m.MessagesBroadcast),
		DirectMessages:    atomic.LoadUint64(&m.DirectMessages),
		TicketsIssued:     atomic.LoadUint64(&m.TicketsIssued),
		CommandErrors:     atomic.LoadUint64(&m.CommandErrors),
	}
}
