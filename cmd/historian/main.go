// cmd/historian/main.go is an asynchronous historian service that pops
// move records from a Redis queue and persists them to PostgreSQL, so
// gameplay never waits on the database for per-move durability.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/gomokuhub/gomoku/internal/database"
)

// MoveRecord mirrors the record the game server publishes for each
// applied move.
type MoveRecord struct {
	GameID    uuid.UUID `json:"game_id"`
	MoveIndex int       `json:"move_index"`
	ActorID   uuid.UUID `json:"actor_id"`
	Cell      int       `json:"cell"`
	Seat      string    `json:"seat"`
	Timestamp int64     `json:"timestamp"`
}

// HistorianService encapsulates the Redis and DB logic for batching
// move records into the game_moves table.
type HistorianService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []MoveRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment
// variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		queueName:   getEnv("HISTORIAN_QUEUE_NAME", "gomoku_moves"),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]MoveRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and consumes the queue until the
// context is canceled.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()

	log.Println("gomoku-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("gomoku-historian shutting down.")
}

// Stop cancels the service context.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

// readRedisLoop uses BLPop to retrieve records, accumulating them in a
// batch that is flushed on size or on a timer.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, hs.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record MoveRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid move record: %v\n", err)
				continue
			}

			hs.batchMu.Lock()
			hs.batch = append(hs.batch, record)
			full := len(hs.batch) >= hs.batchSize
			hs.batchMu.Unlock()
			if full {
				hs.flushBatchToDB()
			}
		}
	}
}

// flushBatchToDB writes the accumulated records in one transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	pending := hs.batch
	hs.batch = make([]MoveRecord, 0, hs.batchSize)
	hs.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range pending {
			var actor *uuid.UUID
			if rec.ActorID != uuid.Nil {
				id := rec.ActorID
				actor = &id
			}
			q := `
				INSERT INTO game_moves (game_id, move_index, actor_id, cell, seat, played_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, move_index) DO NOTHING
			`
			playedAt := time.UnixMilli(rec.Timestamp).UTC()
			if _, e := tx.Exec(ctx, q, rec.GameID, rec.MoveIndex, actor, rec.Cell, rec.Seat, playedAt); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] failed to flush %d move records: %v\n", len(pending), err)
		return
	}
	log.Printf("flushed %d move records\n", len(pending))
}

func main() {
	hs := NewHistorianService()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		hs.Stop()
	}()

	hs.Run()
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
