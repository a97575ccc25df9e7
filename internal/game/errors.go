// internal/game/errors.go
package game

import "errors"

// Session-level rejections. All are recoverable at the connection
// level: the dispatcher replies with an error message and the
// connection stays usable.
var (
	// ErrInvalidGame covers unknown game IDs and moves against a
	// session that has already finished.
	ErrInvalidGame = errors.New("game not found or no longer active")

	// ErrNotParticipant rejects actions from identities that occupy
	// neither seat of the session.
	ErrNotParticipant = errors.New("you are not a participant in this game")

	// ErrNotYourTurn rejects a move from the participant whose seat is
	// not the current mover.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrInvalidCell rejects out-of-range or already occupied cells.
	ErrInvalidCell = errors.New("invalid or occupied cell")
)
