package runtime

import (
	"sync"
	"testing"

	"chat-relay/errors"
	"chat-relay/observability"

	"github.com/stretchr/testify/require"
)

func TestTicketRegistry_Issue_Then_Validate_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := NewTicketRegistry(observability.NewMetrics())

	// When a ticket is issued
	ticket := registry.Issue("alice")

	// Then it is immediately visible
	req.NotEmpty(ticket)
	req.True(registry.Validate(ticket))

	pseudonym, err := registry.Resolve(ticket)
	req.NoError(err)
	req.Equal("alice", pseudonym)
}

func TestTicketRegistry_Unknown_Ticket(t *testing.T) {
	req := require.New(t)
	registry := NewTicketRegistry(observability.NewMetrics())

	req.False(registry.Validate("no-such-ticket"))

	_, err := registry.Resolve("no-such-ticket")
	req.ErrorIs(err, errors.ErrInvalidTicket)
}

func TestTicketRegistry_Tickets_Are_Unique_Per_Issue(t *testing.T) {
	req := require.New(t)
	registry := NewTicketRegistry(observability.NewMetrics())

	// Re-registering the same pseudonym yields a distinct ticket; the old
	// one stays valid for the lifetime of the process.
	first := registry.Issue("alice")
	second := registry.Issue("alice")

	req.NotEqual(first, second)
	req.True(registry.Validate(first))
	req.True(registry.Validate(second))
}

func TestTicketRegistry_Concurrent_Issue_Validate(t *testing.T) {
	req := require.New(t)
	registry := NewTicketRegistry(observability.NewMetrics())

	// When many goroutines issue and immediately validate
	const callers = 64
	results := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket := registry.Issue("user")
			results[i] = registry.Validate(ticket)
		}(i)
	}
	wg.Wait()

	// Then every issued ticket was fully visible to its issuer
	for i := range results {
		req.True(results[i])
	}
}
