package runtime

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type pseudoArgs struct {
	Name string `validate:"required"`
}

type ticketArgs struct {
	Value string `validate:"required"`
}

type joinArgs struct {
	Room string `validate:"required"`
}

type sendArgs struct {
	Text string `validate:"required"`
}

type twoPartArgs struct {
	Target string `validate:"required"`
	Text   string `validate:"required"`
}

// promptError carries the exact sentence sent back for a missing or empty
// argument.
type promptError struct {
	prompt string
}

func (e promptError) Error() string {
	return e.prompt
}

// Deps groups the process-wide collaborators every session drives.
type Deps struct {
	Log       *slog.Logger
	Tickets   *TicketRegistry
	Rooms     *RoomRegistry
	Directory *SessionDirectory
	Metrics   *observability.Metrics
	Censor    *moderation.Moderator // nil disables outbound filtering
}

// Session is the server-side representation of one connected client. The
// command goroutine owning the connection is the only caller of HandleLine,
// so the room reference needs no lock; pseudonym and ticket are read by
// other goroutines through the directory and sit behind their own mutex.
type Session struct {
	id   string
	deps Deps
	sink contract.MessageSink

	mu        sync.RWMutex
	pseudonym string
	ticket    string

	room *chat.Room

	closeOnce sync.Once
}

// NewSession registers a fresh session in the directory and returns it.
// Close has exactly-once semantics, so calling it from both a failed read
// loop and an outer defer is fine.
func NewSession(deps Deps, sink contract.MessageSink) *Session {
	s := &Session{
		id:   uuid.NewString(),
		deps: deps,
		sink: sink,
	}
	deps.Directory.Add(s)
	deps.Metrics.IncrSessionsOpened()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Pseudonym() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pseudonym
}

// Deliver writes a line to this session's client. Safe for concurrent
// callers, the sink serializes the actual write.
func (s *Session) Deliver(text string) {
	_ = s.sink.SendMessage(text)
}

// HandleLine interprets one decoded command line. Errors are reported to
// this session only and never terminate it.
func (s *Session) HandleLine(line string) {
	verb, rest := splitCommand(line)

	var err error
	switch verb {
	case "pseudo":
		err = s.handlePseudo(rest)
	case "ticket":
		err = s.handleTicket(rest)
	case "join":
		err = s.handleJoin(rest)
	case "leave":
		err = s.handleLeave()
	case "send":
		err = s.handleSend(rest)
	case "direct":
		err = s.handleDirect(rest)
	case "kick":
		err = s.handleKick(rest)
	default:
		err = errors.ErrUnrecognizedCommand
	}

	if err != nil {
		s.deps.Metrics.IncrCommandErrors()
		s.Deliver("Error: " + userFacing(err))
	}
}

func (s *Session) handlePseudo(name string) error {
	if err := validate.Struct(pseudoArgs{Name: name}); err != nil {
		return promptError{"Provide a pseudonym."}
	}

	ticket := s.deps.Tickets.Issue(name)
	s.setIdentity(name, ticket)
	s.Deliver(fmt.Sprintf("Welcome, %s! Your ticket is %s", name, ticket))
	return nil
}

func (s *Session) handleTicket(value string) error {
	if err := validate.Struct(ticketArgs{Value: value}); err != nil {
		return errors.ErrInvalidTicket
	}
	pseudonym, err := s.deps.Tickets.Resolve(value)
	if err != nil {
		return errors.ErrInvalidTicket
	}

	// Re-running with a valid ticket re-binds identity, even on an already
	// authenticated session.
	s.setIdentity(pseudonym, value)
	s.Deliver(fmt.Sprintf("Welcome back, %s!", pseudonym))
	return nil
}

func (s *Session) handleJoin(roomName string) error {
	if s.Pseudonym() == "" {
		return errors.ErrAuthRequired
	}
	if err := validate.Struct(joinArgs{Room: roomName}); err != nil {
		return promptError{"Provide a room name."}
	}
	if s.currentRoom() != nil {
		return errors.ErrAlreadyInRoom
	}

	room, created := s.deps.Rooms.JoinOrCreate(roomName, s.id, s.Pseudonym(), s.sink)
	s.room = room
	if created {
		s.Deliver("Created and joined room: " + roomName)
	} else {
		s.Deliver("Joined room: " + roomName)
	}
	return nil
}

func (s *Session) handleLeave() error {
	if s.Pseudonym() == "" {
		return errors.ErrAuthRequired
	}
	room := s.currentRoom()
	if room == nil {
		return errors.ErrNotInRoom
	}

	removed := room.RemoveUser(s.id)
	s.room = nil
	if removed {
		s.deps.Rooms.RemoveIfEmpty(room.Name())
	}
	return nil
}

func (s *Session) handleSend(text string) error {
	if s.Pseudonym() == "" {
		return errors.ErrAuthRequired
	}
	room := s.currentRoom()
	if room == nil {
		return errors.ErrNotInRoom
	}
	if err := validate.Struct(sendArgs{Text: text}); err != nil {
		return promptError{"Provide a message to send."}
	}

	room.Broadcast(s.Pseudonym(), s.censor(text))
	s.deps.Metrics.IncrMessagesBroadcast()
	return nil
}

func (s *Session) handleDirect(payload string) error {
	if s.Pseudonym() == "" {
		return errors.ErrAuthRequired
	}
	target, text, ok := strings.Cut(payload, " ")
	if !ok || validate.Struct(twoPartArgs{Target: target, Text: strings.TrimSpace(text)}) != nil {
		return promptError{"Provide a user and a message."}
	}

	recipient, found := s.deps.Directory.FindByPseudonym(target)
	if !found {
		return errors.ErrUserNotFound
	}
	recipient.Deliver(fmt.Sprintf("Direct message from %s: %s", s.Pseudonym(), s.censor(text)))
	s.Deliver(fmt.Sprintf("Message sent to %s.", target))
	s.deps.Metrics.IncrDirectMessages()
	return nil
}

func (s *Session) handleKick(payload string) error {
	if s.Pseudonym() == "" {
		return errors.ErrAuthRequired
	}
	room := s.currentRoom()
	if room == nil {
		return errors.ErrNotInRoom
	}
	if !room.IsModerator(s.id) {
		return errors.ErrNotModerator
	}
	target, reason, ok := strings.Cut(payload, " ")
	if !ok || validate.Struct(twoPartArgs{Target: target, Text: strings.TrimSpace(reason)}) != nil {
		return promptError{"Provide a user and a reason."}
	}

	targetID, found := room.MemberByPseudonym(target)
	if !found {
		return errors.ErrUserNotFound
	}
	room.KickUser(targetID, reason)
	// Self-kick empties nothing unless the moderator was alone; either way
	// the registry only drops the room when it really has no members left.
	s.deps.Rooms.RemoveIfEmpty(room.Name())
	return nil
}

// Close runs the disconnect cleanup exactly once: leave the current room,
// drop the room if that left it empty, and disappear from the directory.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if room := s.room; room != nil {
			if room.RemoveUser(s.id) {
				s.deps.Rooms.RemoveIfEmpty(room.Name())
			}
			s.room = nil
		}
		s.deps.Directory.Remove(s.id)
		s.deps.Metrics.IncrSessionsClosed()
		s.deps.Log.Debug("Session closed", "id", s.id, "pseudonym", s.Pseudonym())
	})
}

func (s *Session) setIdentity(pseudonym, ticket string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pseudonym = pseudonym
	s.ticket = ticket
}

// currentRoom returns the session's room, shedding the reference when the
// session is no longer a member (kicked): rooms never mutate session state,
// so the stale pointer is detected lazily here.
func (s *Session) currentRoom() *chat.Room {
	if s.room != nil && !s.room.Contains(s.id) {
		s.room = nil
	}
	return s.room
}

func (s *Session) censor(text string) string {
	if s.deps.Censor == nil {
		return text
	}
	return s.deps.Censor.Censor(text)
}

func splitCommand(line string) (string, string) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToLower(verb), strings.TrimSpace(rest)
}

func userFacing(err error) string {
	var prompt promptError
	if stderrors.As(err, &prompt) {
		return prompt.prompt
	}
	switch {
	case stderrors.Is(err, errors.ErrAuthRequired):
		return "Identify yourself first."
	case stderrors.Is(err, errors.ErrAlreadyInRoom):
		return "You are already in a room. Leave it before joining another."
	case stderrors.Is(err, errors.ErrNotInRoom):
		return "You are not in a room."
	case stderrors.Is(err, errors.ErrInvalidTicket):
		return "Invalid ticket."
	case stderrors.Is(err, errors.ErrUserNotFound):
		return "User not found."
	case stderrors.Is(err, errors.ErrNotModerator):
		return "Only the room moderator can kick users."
	case stderrors.Is(err, errors.ErrUnrecognizedCommand):
		return "Unrecognized command."
	}
	return err.Error()
}
