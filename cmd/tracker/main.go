package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rommeltorquator/project-management-app/internal/auth"
	"github.com/rommeltorquator/project-management-app/internal/config"
	"github.com/rommeltorquator/project-management-app/internal/server"
	"github.com/rommeltorquator/project-management-app/internal/storage/sqlite"
	"github.com/rommeltorquator/project-management-app/internal/util"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("TRACKER_CONFIG", ""), "Path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Config must load cleanly before anything binds a port. A missing
	// signing secret stops the process here.
	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.DB.Path, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(10)

	srv := server.New(store, tokens, hasher, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
