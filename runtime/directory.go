package runtime

import (
	"strings"
	"sync"
)

// SessionDirectory is the owning table of all live sessions. Everything
// else refers to sessions by id or sink; removal from the directory is the
// moment a session stops being addressable by direct message.
type SessionDirectory struct {
	mu       sync.RWMutex
	sessions map[string]*Session // session id -> session
}

func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{sessions: make(map[string]*Session)}
}

func (d *SessionDirectory) Add(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[s.ID()] = s
}

func (d *SessionDirectory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
}

// FindByPseudonym resolves a live authenticated session by case-insensitive
// pseudonym match. Unauthenticated sessions have no pseudonym and are never
// matched.
func (d *SessionDirectory) FindByPseudonym(pseudonym string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.sessions {
		candidate := s.Pseudonym()
		if candidate != "" && strings.EqualFold(candidate, pseudonym) {
			return s, true
		}
	}
	return nil, false
}

func (d *SessionDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
