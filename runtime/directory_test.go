package runtime

import (
	"testing"

	"chat-relay/observability"

	"github.com/stretchr/testify/require"
)

func TestSessionDirectory_FindByPseudonym_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	deps := newTestDeps()

	alice := NewSession(deps, nullSink{})
	alice.setIdentity("Alice", "t1")

	// When looked up with different casing
	found, ok := deps.Directory.FindByPseudonym("aLiCe")

	req.True(ok)
	req.Same(alice, found)
}

func TestSessionDirectory_Skips_Unauthenticated_Sessions(t *testing.T) {
	req := require.New(t)
	deps := newTestDeps()

	// Given a connected but unidentified session
	_ = NewSession(deps, nullSink{})

	// Then it cannot be addressed, not even by an empty pseudonym
	_, ok := deps.Directory.FindByPseudonym("ghost")
	req.False(ok)
	_, ok = deps.Directory.FindByPseudonym("")
	req.False(ok)
}

func TestSessionDirectory_Remove(t *testing.T) {
	req := require.New(t)
	deps := newTestDeps()

	alice := NewSession(deps, nullSink{})
	alice.setIdentity("alice", "t1")
	req.Equal(1, deps.Directory.Len())

	deps.Directory.Remove(alice.ID())

	req.Equal(0, deps.Directory.Len())
	_, ok := deps.Directory.FindByPseudonym("alice")
	req.False(ok)
}

func newTestDeps() Deps {
	return Deps{
		Log:       testLogger(),
		Tickets:   NewTicketRegistry(observability.NewMetrics()),
		Rooms:     NewRoomRegistry(observability.NewMetrics()),
		Directory: NewSessionDirectory(),
		Metrics:   observability.NewMetrics(),
	}
}
