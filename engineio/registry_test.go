package engineio

import (
	"errors"
	"testing"
)

func stubSessionIDs(t *testing.T, ids ...string) {
	t.Helper()

	orig := newSessionID
	t.Cleanup(func() { newSessionID = orig })

	newSessionID = func() (string, error) {
		if len(ids) == 0 {
			return "", errors.New("out of ids")
		}
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
}

func TestRegistryRetriesOnCollision(t *testing.T) {
	s := newTestServer(t, nil)
	stubSessionIDs(t, "a", "a", "b")

	first, err := s.registry.create(TransportPolling, s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.registry.create(TransportPolling, s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.ID() != "a" || second.ID() != "b" {
		t.Errorf("ids = %q, %q, want a, b", first.ID(), second.ID())
	}
}

func TestRegistryGivesUpAfterRepeatedCollisions(t *testing.T) {
	s := newTestServer(t, nil)
	stubSessionIDs(t, "a", "a", "a", "a")

	if _, err := s.registry.create(TransportPolling, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.registry.create(TransportPolling, s); !errors.Is(err, ErrSessionIDCollision) {
		t.Errorf("err = %v, want ErrSessionIDCollision", err)
	}
}

func TestHandshakeFailsWhenNoIDAvailable(t *testing.T) {
	s := newTestServer(t, nil)
	stubSessionIDs(t)

	if rec := poll(s, ""); rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestRegistryRemove(t *testing.T) {
	s := newTestServer(t, nil)
	session := mustSession(t, s, handshake(t, s))

	s.registry.remove(session.ID())
	s.registry.remove(session.ID())

	if _, ok := s.registry.get(session.ID()); ok {
		t.Error("session still registered after remove")
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.pingTimer != nil {
		t.Error("remove must stop the ping timer")
	}
}

func TestGenerateSID(t *testing.T) {
	a, err := generateSID()
	if err != nil {
		t.Fatalf("generateSID: %v", err)
	}
	b, _ := generateSID()

	if len(a) != 22 {
		t.Errorf("len = %d, want 22", len(a))
	}
	if a == b {
		t.Error("two draws returned the same id")
	}
}
