// internal/handlers/registry.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gomokuhub/gomoku/internal/models"
)

// Registry maps authenticated identities to their live connection. At
// most one binding exists per identity; a newer authentication for the
// same identity supersedes the old one, whose connection is then stale
// for push purposes. All pushes are best-effort, non-blocking enqueues
// onto the target connection's outbound channel, so no registry
// operation ever waits on another connection's I/O.
type Registry struct {
	mu       sync.Mutex
	bindings map[uuid.UUID]*client
	log      *logrus.Logger
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		bindings: make(map[uuid.UUID]*client),
		log:      logger,
	}
}

// Bind registers the client as the live connection for its identity,
// superseding any prior binding.
func (r *Registry) Bind(cl *client) {
	id, ok := cl.currentIdentity()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, bound := r.bindings[id.ID]; bound && prev != cl {
		r.log.Infof("superseding stale connection for user %s", id.ID)
	}
	r.bindings[id.ID] = cl
}

// Unbind drops the identity's binding, but only if it still points at
// this client; a superseded connection's cleanup must not evict its
// replacement.
func (r *Registry) Unbind(cl *client) {
	id, ok := cl.currentIdentity()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, bound := r.bindings[id.ID]; bound && cur == cl {
		delete(r.bindings, id.ID)
	}
}

// Identity returns the bound identity's current snapshot.
func (r *Registry) Identity(userID uuid.UUID) (models.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.bindings[userID]
	if !ok {
		return models.Identity{}, false
	}
	id, _ := cl.currentIdentity()
	return id, true
}

// UpdateElo refreshes the bound identity's rating copy after a rating
// update, so the next match request queues with the new value.
func (r *Registry) UpdateElo(userID uuid.UUID, elo int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cl, ok := r.bindings[userID]; ok {
		cl.mu.Lock()
		cl.identity.Elo = elo
		cl.mu.Unlock()
	}
}

// Push sends one envelope to the identity's live connection, if any.
func (r *Registry) Push(userID uuid.UUID, kind string, payload interface{}) {
	r.mu.Lock()
	cl, ok := r.bindings[userID]
	r.mu.Unlock()
	if !ok {
		return
	}
	r.send(cl, kind, payload)
}

// OnlineIDs enumerates all currently bound identity IDs.
func (r *Registry) OnlineIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	return ids
}

// BroadcastOnline fans the current online list out to every bound
// connection. Fired on every bind and unbind.
func (r *Registry) BroadcastOnline() {
	r.mu.Lock()
	clients := make([]*client, 0, len(r.bindings))
	ids := make([]uuid.UUID, 0, len(r.bindings))
	for id, cl := range r.bindings {
		ids = append(ids, id)
		clients = append(clients, cl)
	}
	r.mu.Unlock()

	payload := onlineListPayload{Online: ids}
	for _, cl := range clients {
		r.send(cl, kindOnlineList, payload)
	}
}

// send marshals the envelope and enqueues it without blocking. A full
// or closed outbound channel drops the message; the connection's own
// read loop detects real failures.
func (r *Registry) send(cl *client, kind string, payload interface{}) {
	data, err := json.Marshal(envelopeOut{Kind: kind, Payload: payload})
	if err != nil {
		id, _ := cl.currentIdentity()
		r.log.Errorf("failed to marshal %s envelope for user %s: %v", kind, id.ID, err)
		return
	}
	cl.enqueue(data, r.log)
}
