package models

import "github.com/google/uuid"

// User is the persisted account row. Elo is mutated only by the rating
// update at game end.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	Elo int `json:"elo"`
}

// Identity returns the read-mostly snapshot of a user carried by live
// connections, queue entries, and game participants.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Elo: u.Elo}
}
