package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/cache"
	"github.com/Mr-incredible442/twins-followers/internal/config"
	"github.com/Mr-incredible442/twins-followers/internal/database"
	"github.com/Mr-incredible442/twins-followers/internal/game"
	"github.com/Mr-incredible442/twins-followers/internal/room"
	"github.com/Mr-incredible442/twins-followers/internal/store"
	"github.com/Mr-incredible442/twins-followers/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, using environment")
	}
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()

	var roomStore store.RoomStore = store.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Fatal("database connection failed")
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			logrus.WithError(err).Fatal("database migration failed")
		}
		roomStore = database.NewPostgresRoomStore()
	} else {
		logrus.Warn("DATABASE_URL not set, rooms are held in memory only")
	}

	if cfg.RedisAddr != "" {
		if err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); err != nil {
			logrus.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			defer cache.Close()
		}
	}

	rooms := room.NewManager(roomStore)
	games := game.NewManager()
	hub := ws.NewHub(cfg, rooms, games)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
}
