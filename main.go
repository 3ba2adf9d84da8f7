package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/emoji-memory/internal/config"
	"github.com/robalobadob/emoji-memory/internal/httpserver"
	"github.com/robalobadob/emoji-memory/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg, err := config.Load(os.Getenv("GAME_CONFIG"), os.Getenv("GAME_MODE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load game config")
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil || ttl <= 0 {
		log.Fatal().Str("SESSION_TTL", os.Getenv("SESSION_TTL")).Msg("invalid session ttl")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	go store.RunJanitor(ctx, mem, time.Minute, ttl)

	srv := httpserver.New(mem, cfg)
	port := getEnv("PORT", "5175")
	log.Info().
		Str("port", port).
		Str("mode", string(cfg.Mode)).
		Int("pairs", len(cfg.Symbols)).
		Msg("starting memory-match server")
	if err := srv.Start(ctx, ":"+port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
