package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"mabletask/telemetry/models"
)

// DwellState is the per-browser-session correlation state: the last tracked
// path and when it was visited. It lives only as long as the session does;
// losing it just means no dwell sample for the session's final page.
type DwellState struct {
	LastPath     string
	LastPathTime time.Time
}

// SessionStore keeps dwell state per session ID. Concurrent requests from
// the same session are not synchronized against each other; last write wins.
type SessionStore struct {
	mu     sync.Mutex
	states map[string]DwellState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{states: make(map[string]DwellState)}
}

// DwellState returns the stored state for the session, if any. The
// no_session sentinel never has state.
func (s *SessionStore) DwellState(sessionID string) (DwellState, bool) {
	if sessionID == "" || sessionID == models.NoSession {
		return DwellState{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[sessionID]
	return state, ok
}

// SetDwellState overwrites the session's state with the current path and
// timestamp, re-arming the tracker for the next transition.
func (s *SessionStore) SetDwellState(sessionID, path string, at time.Time) {
	if sessionID == "" || sessionID == models.NoSession {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = DwellState{LastPath: path, LastPathTime: at}
}

// Forget drops a session's state, e.g. on logout.
func (s *SessionStore) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
}

// GenerateSessionID creates a 32-character hex session ID.
func GenerateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
