package main

import (
	"context"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"scribe/internal/config"
	"scribe/internal/pipeline"
	"scribe/internal/server"
	"scribe/internal/session"
)

func main() {
	cfg, err := config.Load(cli.CommandLine, os.Args[1:])
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}
	log.SetDefault(cfg.Logger(os.Stdout))

	log.Info("Booting up", "backend", cfg.Backend)

	p, closer, err := pipeline.FromConfig(cfg)
	if err != nil {
		log.Error("Failed to init transcription backend", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	store, err := session.NewStore(cfg.UploadDir, cfg.MaxSessions, cfg.SessionTTL)
	if err != nil {
		log.Error("Failed to init session store", "dir", cfg.UploadDir, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	log.Debug("Loaded session store", "dir", cfg.UploadDir, "ttl", cfg.SessionTTL)

	srv := server.New(store, p, server.Options{
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		ThemePath:      cfg.ThemePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		log.Error("Server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}
