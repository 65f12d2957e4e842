package runtime

import (
	"sync"

	"chat-relay/errors"
	"chat-relay/observability"

	"github.com/google/uuid"
)

// TicketRegistry binds reusable re-authentication tickets to pseudonyms for
// the lifetime of the process. Tickets never expire and are never rebound:
// entries are written once under the lock, so a concurrent Validate either
// sees the full entry or nothing.
type TicketRegistry struct {
	mu      sync.RWMutex
	tickets map[string]string // ticket -> pseudonym
	metrics *observability.Metrics
}

func NewTicketRegistry(metrics *observability.Metrics) *TicketRegistry {
	return &TicketRegistry{
		tickets: make(map[string]string),
		metrics: metrics,
	}
}

// Issue stores and returns a fresh opaque ticket for the pseudonym. The
// value is a UUID: unique for any realistic registry lifetime, and
// deliberately nothing stronger.
func (t *TicketRegistry) Issue(pseudonym string) string {
	ticket := uuid.NewString()

	t.mu.Lock()
	t.tickets[ticket] = pseudonym
	t.mu.Unlock()

	t.metrics.IncrTicketsIssued()
	return ticket
}

func (t *TicketRegistry) Validate(ticket string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tickets[ticket]
	return ok
}

func (t *TicketRegistry) Resolve(ticket string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pseudonym, ok := t.tickets[ticket]
	if !ok {
		return "", errors.ErrInvalidTicket
	}
	return pseudonym, nil
}
