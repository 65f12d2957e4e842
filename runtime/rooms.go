package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/observability"
)

// RoomRegistry owns every live room, keyed by name. Lookups and lifecycle
// changes go through a single registry lock so a Get racing a Remove or a
// Create never observes a half-updated entry.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[string]*chat.Room
	metrics *observability.Metrics
}

func NewRoomRegistry(metrics *observability.Metrics) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*chat.Room),
		metrics: metrics,
	}
}

// JoinOrCreate resolves the join race on a not-yet-existing room name: the
// get-or-create runs under the registry lock, so of two concurrent joiners
// exactly one creates the room (and becomes moderator) while the other
// lands in it as an ordinary member.
func (r *RoomRegistry) JoinOrCreate(name, id, pseudonym string, sink contract.MessageSink) (*chat.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[name]; ok {
		room.AddUser(id, pseudonym, sink)
		return room, false
	}
	room := chat.NewRoom(name, id, pseudonym, sink)
	r.rooms[name] = room
	r.metrics.IncrRoomsCreated()
	return room, true
}

func (r *RoomRegistry) Get(name string) (*chat.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}

// RemoveIfEmpty deregisters the named room only when it has no members.
// Emptiness is re-checked under the registry lock: a joiner that slipped in
// between the caller's removal and this call keeps the room alive, because
// JoinOrCreate holds the same lock while adding members.
func (r *RoomRegistry) RemoveIfEmpty(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok || !room.IsEmpty() {
		return false
	}
	delete(r.rooms, name)
	r.metrics.IncrRoomsRemoved()
	return true
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
