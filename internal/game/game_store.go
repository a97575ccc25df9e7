package game

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore owns the set of live sessions. All access goes through
// its mutex so session creation and lookup never race.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *SessionStore) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, exists := s.sessions[id]
	return sess, exists
}

func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// ActiveSessionFor returns the playing session the identity currently
// occupies a seat in, or nil. At most one can exist at a time.
func (s *SessionStore) ActiveSessionFor(userID uuid.UUID) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.IsParticipant(userID) && sess.CurrentStatus() == StatusPlaying {
			return sess
		}
	}
	return nil
}
