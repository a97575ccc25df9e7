package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var DB *pgxpool.Pool

func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database at %s:%s", os.Getenv("PG_HOST"), os.Getenv("PG_PORT"))
}

// EnsureSchema creates the tables the service needs if they do not
// exist yet.
func EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		username TEXT NOT NULL,
		elo INT NOT NULL DEFAULT 1200
	);
	CREATE TABLE IF NOT EXISTS games (
		id UUID PRIMARY KEY,
		player_x UUID NOT NULL,
		player_o UUID,
		vs_ai BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'playing',
		result TEXT NOT NULL DEFAULT '',
		winner UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS game_moves (
		game_id UUID NOT NULL,
		move_index INT NOT NULL,
		actor_id UUID,
		cell INT NOT NULL,
		seat TEXT NOT NULL,
		played_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (game_id, move_index)
	);
	CREATE TABLE IF NOT EXISTS ratings (
		user_id UUID NOT NULL,
		game_id UUID NOT NULL,
		old_rating INT NOT NULL,
		new_rating INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
