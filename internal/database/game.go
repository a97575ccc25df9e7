// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gomokuhub/gomoku/internal/game"
)

// GameSummary is one row of a user's game history.
type GameSummary struct {
	ID        uuid.UUID  `json:"id"`
	PlayerX   uuid.UUID  `json:"playerX"`
	PlayerO   *uuid.UUID `json:"playerO,omitempty"`
	VsAI      bool       `json:"vsAI"`
	Status    string     `json:"status"`
	Result    string     `json:"result"`
	Winner    *uuid.UUID `json:"winner,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CreateGameRecord inserts the game row at match time, mirroring the
// in-memory session before any move is played.
func CreateGameRecord(ctx context.Context, snap game.Snapshot) error {
	var playerO *uuid.UUID
	if !snap.O.IsAI {
		o := snap.O.ID
		playerO = &o
	}
	q := `
		INSERT INTO games (id, player_x, player_o, vs_ai, status)
		VALUES ($1, $2, $3, $4, 'playing')
		ON CONFLICT (id) DO NOTHING
	`
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, snap.ID, snap.X.ID, playerO, snap.VsAI)
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to insert game record: %w", err)
	}
	return nil
}

// RecordGameResult persists the final outcome and full move log of a
// finished session. The in-memory session stays authoritative for
// gameplay; this is durable recording only.
func RecordGameResult(ctx context.Context, snap game.Snapshot) error {
	var winner *uuid.UUID
	if snap.Winner != nil {
		w := snap.Winner.ID
		winner = &w
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var playerO *uuid.UUID
		if !snap.O.IsAI {
			o := snap.O.ID
			playerO = &o
		}
		upsert := `
			INSERT INTO games (id, player_x, player_o, vs_ai, status, result, winner, finished_at)
			VALUES ($1, $2, $3, $4, 'finished', $5, $6, NOW())
			ON CONFLICT (id) DO UPDATE
			SET status='finished', result=$5, winner=$6, finished_at=NOW()
		`
		if _, e := tx.Exec(ctx, upsert, snap.ID, snap.X.ID, playerO, snap.VsAI, string(snap.Result), winner); e != nil {
			return e
		}
		for i, mv := range snap.Moves {
			var actor *uuid.UUID
			if mv.By != uuid.Nil {
				by := mv.By
				actor = &by
			}
			q := `
				INSERT INTO game_moves (game_id, move_index, actor_id, cell, seat, played_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, move_index) DO NOTHING
			`
			if _, e := tx.Exec(ctx, q, snap.ID, i, actor, mv.Cell, string(mv.Seat), mv.At); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record game result: %w", err)
	}
	return nil
}

// GetGameMoves returns the ordered move log of a recorded game. The
// returned slice is empty (not nil-checked) when the game is unknown;
// callers distinguish via the games row.
func GetGameMoves(ctx context.Context, gameID uuid.UUID) ([]game.Move, error) {
	q := `
		SELECT actor_id, cell, seat, played_at
		FROM game_moves
		WHERE game_id=$1
		ORDER BY move_index
	`
	rows, err := DB.Query(ctx, q, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []game.Move
	for rows.Next() {
		var actor *uuid.UUID
		var mv game.Move
		var seat string
		if err := rows.Scan(&actor, &mv.Cell, &seat, &mv.At); err != nil {
			return nil, err
		}
		if actor != nil {
			mv.By = *actor
		}
		mv.Seat = game.Seat(seat)
		moves = append(moves, mv)
	}
	return moves, rows.Err()
}

// GameExists reports whether a game row has been recorded.
func GameExists(ctx context.Context, gameID uuid.UUID) (bool, error) {
	var exists bool
	err := DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id=$1)`, gameID).Scan(&exists)
	return exists, err
}

// GetRecentGamesByUser returns the user's most recent recorded games,
// newest first.
func GetRecentGamesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]GameSummary, error) {
	q := `
		SELECT id, player_x, player_o, vs_ai, status, result, winner, created_at
		FROM games
		WHERE player_x=$1 OR player_o=$1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.PlayerX, &g.PlayerO, &g.VsAI, &g.Status, &g.Result, &g.Winner, &g.CreatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// CommitMatchResults stores both players' new ratings plus a rating
// record for each, in one transaction.
func CommitMatchResults(ctx context.Context, gameID uuid.UUID, xID, oID uuid.UUID, oldX, oldO, newX, newO int) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, e := tx.Exec(ctx, `UPDATE users SET elo = $1 WHERE id = $2`, newX, xID); e != nil {
			return e
		}
		if _, e := tx.Exec(ctx, `UPDATE users SET elo = $1 WHERE id = $2`, newO, oID); e != nil {
			return e
		}
		_, e := tx.Exec(ctx, `
			INSERT INTO ratings (user_id, game_id, old_rating, new_rating)
			VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)
		`,
			xID, gameID, oldX, newX,
			oID, gameID, oldO, newO,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to commit match results: %w", err)
	}
	return nil
}
