// cmd/coordinator/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Velozity/CastGameCoordinator/internal/auth"
	"github.com/Velozity/CastGameCoordinator/internal/cache"
	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/database"
	"github.com/Velozity/CastGameCoordinator/internal/handlers"
	"github.com/Velozity/CastGameCoordinator/internal/hub"
	"github.com/Velozity/CastGameCoordinator/internal/matchmaker"
	"github.com/Velozity/CastGameCoordinator/internal/middleware"
	"github.com/Velozity/CastGameCoordinator/internal/queue"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if priv, pub := os.Getenv("AUTH_PRIVATE_KEY_PATH"), os.Getenv("AUTH_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			log.Fatalf("failed to load auth keys: %v", err)
		}
	} else {
		auth.Init()
	}

	database.ConnectDB()
	defer database.DB.Close()
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	store := database.NewStore(database.DB)
	pending := cache.NewPendingStore(cache.Rdb)
	h := hub.New(logger)

	mm := matchmaker.New(store, pending, h, config.DefaultMatchmaker(), logger)
	qs := queue.NewService(store, mm, logger)

	co := &handlers.Coordinator{
		Hub:        h,
		Queue:      qs,
		Matchmaker: mm,
		Servers:    store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.PingHandler)
	mux.Handle("/coordinator", http.HandlerFunc(
		handlers.CoordinatorWSHandler(logger, co),
	))
	mux.Handle("/server/validate-player", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ValidatePlayerHandler(logger, store),
	)))

	addr := config.ListenAddr()
	logger.Infof("Coordinator running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
