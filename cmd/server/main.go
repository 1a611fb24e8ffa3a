package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"entropy-ci/internal/config"
	"entropy-ci/internal/core"
	"entropy-ci/internal/log"
	"entropy-ci/internal/server"
)

// Standalone server, configured from ENTROPY_CI_* only.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := log.New("server")

	cfg, err := config.Load(ctx, os.Getenv(config.EnvPrefix+"CONFIG"))
	if err != nil {
		l.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if lv, err := log.NewWithLevel("server", cfg.LogLevel); err == nil {
		l = lv
	}

	settings, err := cfg.Settings()
	if err != nil {
		l.Error("invalid settings", "error", err)
		os.Exit(1)
	}

	srv := server.New(core.NewGenerator(settings), cfg.Matrix(), l)
	if err := server.Run(ctx, cfg.Server.ListenAddr, srv.Router(), l); err != nil {
		l.Error("server error", "error", err)
		os.Exit(1)
	}
}
