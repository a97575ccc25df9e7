// internal/database/store.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gomokuhub/gomoku/internal/auth"
	"github.com/gomokuhub/gomoku/internal/game"
	"github.com/gomokuhub/gomoku/internal/models"
)

// Store adapts the package-level query functions to the interface the
// realtime dispatcher consumes, keeping the core free of SQL and
// credential concerns.
type Store struct{}

// GetIdentityByToken verifies the session token and loads the identity
// it belongs to.
func (Store) GetIdentityByToken(ctx context.Context, token string) (models.Identity, error) {
	userIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("token rejected: %w", err)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid user id in token: %w", err)
	}
	u, err := GetUserByID(ctx, userID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("user lookup: %w", err)
	}
	return u.Identity(), nil
}

// CreateGame records the game row at match time.
func (Store) CreateGame(ctx context.Context, snap game.Snapshot) error {
	return CreateGameRecord(ctx, snap)
}

// RecordGameResult persists a finished session's outcome and move log.
func (Store) RecordGameResult(ctx context.Context, snap game.Snapshot) error {
	return RecordGameResult(ctx, snap)
}

// GetGameMoves fetches the ordered move log of a recorded game. The
// bool result reports whether the game is known at all.
func (Store) GetGameMoves(ctx context.Context, gameID uuid.UUID) ([]game.Move, bool, error) {
	exists, err := GameExists(ctx, gameID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	moves, err := GetGameMoves(ctx, gameID)
	if err != nil {
		return nil, true, err
	}
	return moves, true, nil
}

// CommitRatings stores both players' post-game ratings.
func (Store) CommitRatings(ctx context.Context, gameID, xID, oID uuid.UUID, oldX, oldO, newX, newO int) error {
	return CommitMatchResults(ctx, gameID, xID, oID, oldX, oldO, newX, newO)
}
