package engineio

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

// sidAttempts bounds how many ids create draws before giving up.
const sidAttempts = 3

// newSessionID is swapped in tests to force collisions.
var newSessionID = generateSID

// registry is the table of live sessions keyed by id.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*Session)}
}

// create allocates an id that is not in use and inserts a fresh session.
func (r *registry) create(transport string, server *Server) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < sidAttempts; i++ {
		sid, err := newSessionID()
		if err != nil {
			return nil, err
		}
		if _, taken := r.sessions[sid]; taken {
			continue
		}

		session := newSession(sid, transport, server)
		r.sessions[sid] = session
		return session, nil
	}
	return nil, ErrSessionIDCollision
}

func (r *registry) get(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sid]
	return session, ok
}

// remove stops the session's timers and deletes it. Removing an absent id
// is a no-op.
func (r *registry) remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sid]
	if !ok {
		return
	}
	session.stopTimers()
	delete(r.sessions, sid)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// snapshot returns the live sessions so callers can iterate without
// holding the registry lock.
func (r *registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// generateSID draws 128 bits from crypto/rand.
func generateSID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
