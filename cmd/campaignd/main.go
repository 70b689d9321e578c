// Command campaignd runs the Outvoted campaign game server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nuredin-kurtovic/Outvoted/internal/ai"
	"github.com/nuredin-kurtovic/Outvoted/internal/api"
	"github.com/nuredin-kurtovic/Outvoted/internal/config"
	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("OUTVOTED_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if v := os.Getenv("OUTVOTED_PORT"); v != "" {
		if p, perr := strconv.Atoi(v); perr == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("OUTVOTED_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OUTVOTED_ADMIN_KEY"); v != "" {
		cfg.AdminKey = v
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	seed, err := refdata.LoadSeed()
	if err != nil {
		slog.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}
	if err := db.SeedReference(seed); err != nil {
		slog.Error("failed to seed reference data", "error", err)
		os.Exit(1)
	}
	slog.Info("reference data ready",
		"regions", len(seed.Regions),
		"candidates", len(seed.Candidates),
		"actions", len(seed.Actions),
	)

	// ── Engine ────────────────────────────────────────────────────────
	rng := entropy.Crypto()
	eng := engine.New(db, rng, cfg.Game, logger)
	eng.SetAIMover(ai.New(eng, rng, logger))

	// ── HTTP API ──────────────────────────────────────────────────────
	srv := &api.Server{
		Eng:        eng,
		DB:         db,
		Timers:     api.NewTurnTimers(eng, logger),
		Port:       cfg.Port,
		AdminKey:   cfg.AdminKey,
		ArchiveDir: filepath.Join(filepath.Dir(cfg.DBPath), "archives"),
	}
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
