package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Parth-Sharma-Dev/smartshopping/internal/api"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/config"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/db"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/game"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	hub := ws.NewHub(logger)
	session := game.NewSession()
	gameSvc := game.NewService(pool, session, hub, logger)

	if err := gameSvc.EnsureSchema(ctx); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}
	if cfg.StartupSeedCatalog {
		if err := gameSvc.SeedCatalog(ctx); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
	}

	go gameSvc.RunRestockLoop(ctx, cfg.RestockInterval, cfg.RestockDelay)
	go gameSvc.RunDecayLoop(ctx, cfg.DecayInterval, cfg.DecayIdleAfter)

	server, err := api.New(cfg, logger, gameSvc, hub)
	if err != nil {
		logger.Error("server init failed", "err", err)
		os.Exit(1)
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("shop api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
