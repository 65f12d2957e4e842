// Package chat contains the core concepts of the chat system.
// A Room is the only place where members of a conversation are tracked;
// no runtime, network, or UI logic should be added here.
package chat

import (
	"fmt"
	"strings"
	"sync"

	"chat-relay/contract"

	"github.com/samber/lo"
)

// NoticePrefix marks messages emitted by the room itself rather than a member.
const NoticePrefix = "[Room Notice]"

type member struct {
	id        string
	pseudonym string
	sink      contract.MessageSink
}

// Room is a named group of connected sessions with an elected moderator.
// Every mutation and query goes through the room's own mutex, so two
// operations on the same room are linearizable while distinct rooms never
// serialize against each other. The room holds session ids and sinks only,
// never the sessions themselves: delivering outbound text is the single
// callback a room is allowed to make.
type Room struct {
	name string

	mu        sync.Mutex
	members   []member // join order, moderator succession relies on it
	moderator string   // session id, always a current member while non-empty
}

// NewRoom creates a room with its creator as sole member and moderator.
func NewRoom(name, creatorID, creatorPseudonym string, creatorSink contract.MessageSink) *Room {
	return &Room{
		name:      name,
		members:   []member{{id: creatorID, pseudonym: creatorPseudonym, sink: creatorSink}},
		moderator: creatorID,
	}
}

func (r *Room) Name() string {
	return r.name
}

// AddUser appends the session to the member list and announces the arrival.
// The joining session receives the notice as well. Joining a room whose last
// member just left makes the joiner moderator, like a creator: the departed
// moderator's id must never outlive its membership.
func (r *Room) AddUser(id, pseudonym string, sink contract.MessageSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vacated := r.indexOf(r.moderator) < 0
	r.members = append(r.members, member{id: id, pseudonym: pseudonym, sink: sink})
	if vacated {
		r.moderator = id
	}
	r.deliver("", pseudonym+" has joined the room.")
}

// RemoveUser removes the session if it is a member and reports whether the
// removal actually happened. Callers gate empty-room cleanup on the return
// value so a disconnect racing an explicit leave never double-broadcasts.
// When the departing member was moderator and others remain, the earliest
// remaining member takes over and a notice names them.
func (r *Room) RemoveUser(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	gone := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	r.deliver("", gone.pseudonym+" has left the room.")

	if r.moderator == id && len(r.members) > 0 {
		r.moderator = r.members[0].id
		r.deliver("", r.members[0].pseudonym+" is now the moderator.")
	}
	return true
}

// KickUser forcibly removes a member, tells them why, and announces the
// eviction to everyone left. Not being a member is a silent no-op.
func (r *Room) KickUser(id, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return
	}
	kicked := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	_ = kicked.sink.SendMessage(fmt.Sprintf(
		"You have been removed from the room: %s. Reason: %s", r.name, reason))
	r.deliver("", fmt.Sprintf("%s has been kicked from the room. Reason: %s", kicked.pseudonym, reason))

	if r.moderator == id && len(r.members) > 0 {
		r.moderator = r.members[0].id
		r.deliver("", r.members[0].pseudonym+" is now the moderator.")
	}
}

// Broadcast delivers "<sender>: text" to every current member, or a
// "[Room Notice] text" when the sender pseudonym is empty.
func (r *Room) Broadcast(sender, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(sender, text)
}

func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

func (r *Room) IsModerator(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moderator == id && r.indexOf(id) >= 0
}

// Contains reports current membership. Sessions use it to detect having
// been kicked, since rooms never reach into session state.
func (r *Room) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOf(id) >= 0
}

// MemberByPseudonym resolves a member's session id by case-insensitive
// pseudonym match.
func (r *Room) MemberByPseudonym(pseudonym string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, found := lo.Find(r.members, func(m member) bool {
		return strings.EqualFold(m.pseudonym, pseudonym)
	})
	if !found {
		return "", false
	}
	return m.id, true
}

// Pseudonyms returns the member pseudonyms in join order.
func (r *Room) Pseudonyms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.members, func(m member, _ int) string { return m.pseudonym })
}

// deliver writes a prefixed line to every member. Callers hold r.mu.
func (r *Room) deliver(sender, text string) {
	prefix := NoticePrefix
	if sender != "" {
		prefix = sender + ":"
	}
	for _, m := range r.members {
		// A dead member's transport error is its own session's problem;
		// the broadcast still reaches everyone else.
		_ = m.sink.SendMessage(prefix + " " + text)
	}
}

func (r *Room) indexOf(id string) int {
	for i, m := range r.members {
		if m.id == id {
			return i
		}
	}
	return -1
}
