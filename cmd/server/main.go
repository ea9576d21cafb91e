package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	config := LoadConfig()
	logger := newLogger(config)

	srv, err := NewServer(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
	logger.Info().Msg("Server exited")
}

// newLogger writes JSON in production and a console format elsewhere.
func newLogger(config Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if config.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}
