// internal/matchmaking/queue.go
package matchmaking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gomokuhub/gomoku/internal/models"
)

// RatingWindow is the maximum rating difference permitted for
// automatic pairing.
const RatingWindow = 150

// Entry is a waiting identity. It exists only inside the queue:
// created on a match request, destroyed on pairing or disconnect.
type Entry struct {
	Identity   models.Identity
	EnqueuedAt time.Time
}

// Queue pairs waiting identities within the rating window. It does not
// construct game sessions; the dispatcher does that with the pairing
// the queue returns. Add and pair are atomic with respect to each
// other under the queue mutex.
type Queue struct {
	mu      sync.Mutex
	waiting []Entry
}

func NewQueue() *Queue {
	return &Queue{}
}

// RequestMatch scans the waiting entries for the first one within the
// rating window that is not the requester itself. If one is found it
// is removed and returned; otherwise the requester is appended as a
// new waiting entry (unless already waiting) and ok is false. Pairing
// takes the first compatible entry, not necessarily the oldest.
func (q *Queue) RequestMatch(identity models.Identity) (models.Identity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// A repeated request replaces any stale entry for the requester,
	// so pairing can never leave them queued as well.
	q.removeLocked(identity.ID)

	for i, e := range q.waiting {
		diff := e.Identity.Elo - identity.Elo
		if diff < 0 {
			diff = -diff
		}
		if diff <= RatingWindow {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return e.Identity, true
		}
	}

	q.waiting = append(q.waiting, Entry{Identity: identity, EnqueuedAt: time.Now().UTC()})
	return models.Identity{}, false
}

// Leave removes the identity's waiting entry, if any. Invoked on
// disconnect; a no-op if the identity is not queued.
func (q *Queue) Leave(userID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(userID)
}

func (q *Queue) removeLocked(userID uuid.UUID) {
	for i, e := range q.waiting {
		if e.Identity.ID == userID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}

// Waiting reports whether the identity currently has a queue entry.
func (q *Queue) Waiting(userID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waitingLocked(userID)
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *Queue) waitingLocked(userID uuid.UUID) bool {
	for _, e := range q.waiting {
		if e.Identity.ID == userID {
			return true
		}
	}
	return false
}
