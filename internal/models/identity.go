// internal/models/identity.go
package models

import "github.com/google/uuid"

// Identity is an authenticated player as seen by the realtime core: a
// stable ID, a display name, and the rating current at snapshot time.
// The authoritative copy lives in the users table; the core only ever
// reads it, except for the Elo field which the rating update refreshes
// at game end.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Elo      int       `json:"elo"`
}

// AIUsername is the display name of the scripted opponent.
const AIUsername = "AI Player"

// AIIdentity returns the sentinel identity used for the scripted
// opponent. Its ID is the nil UUID; it never appears in the users table
// and never receives rating updates.
func AIIdentity() Identity {
	return Identity{ID: uuid.Nil, Username: AIUsername, Elo: 0}
}
