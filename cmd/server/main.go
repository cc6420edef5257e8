package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/meetrelay/internal/adapters/auth"
	"github.com/dkeye/meetrelay/internal/adapters/store"
	"github.com/dkeye/meetrelay/internal/config"
	"github.com/dkeye/meetrelay/internal/relay"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()
	if err := st.Seed(cfg.Directory.DomainMeetings(), cfg.Directory.Rosters()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed directory")
	}

	signer, err := auth.NewSigner(cfg.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init token signer")
	}

	srv := relay.New(cfg, relay.Deps{
		Authority: auth.NewAuthority(signer, st),
		Directory: st,
		Store:     st,
		Archive:   st,
	})
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start relay")
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Relay forced to shutdown")
	}
	log.Info().Msg("Relay exited gracefully")
}
