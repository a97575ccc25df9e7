// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/gomokuhub/gomoku/internal/auth"
	"github.com/gomokuhub/gomoku/internal/cache"
	"github.com/gomokuhub/gomoku/internal/database"
	"github.com/gomokuhub/gomoku/internal/handlers"
	"github.com/gomokuhub/gomoku/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()
	if err := database.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("schema init failed: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	srv := handlers.NewGameServer(logger, database.Store{})

	// The move historian is optional; without Redis the game still
	// records results directly through the store.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, move streaming disabled: %v", err)
	} else {
		srv.PublishMove = cache.PublishMove
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.Handle("/user/stats/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.UserStatsHandler,
	)))

	// realtime websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
