package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore/memory"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore/postgres"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/gateway"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/league"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/livematch"
	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/matchlog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	store, cleanup, err := setupStore(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up document store")
	}
	defer cleanup()

	mlog, err := matchlog.Open(config.MatchLog.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open match log")
	}
	defer mlog.Close()

	syncCfg := livematch.DefaultConfig()
	syncCfg.Key = config.Match.DocumentKey
	syncer := livematch.NewSynchronizer(store, clock, syncCfg)
	if err := syncer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start synchronizer")
	}
	defer syncer.Stop()

	session, err := league.NewSession(ctx, config.teams(), config.pairing(),
		syncer, mlog, clock, league.Config{MatchDuration: config.matchDuration()})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create league session")
	}
	go session.RunClockTicks(ctx)

	spectators := gateway.NewService(store, clock, config.Match.DocumentKey,
		gateway.DefaultConnectionConfig())
	go func() {
		if err := spectators.Start(ctx); err != nil {
			log.Error().Err(err).Msg("spectator gateway failed")
		}
	}()

	server := setupServer(config, session, spectators)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	log.Info().Msg("turfkings shutdown complete")
}

func setupStore(ctx context.Context, config *Config) (docstore.Store, func(), error) {
	switch config.Store.Backend {
	case "memory":
		log.Info().Msg("using in-memory document store")
		return memory.NewStore(), func() {}, nil

	case "postgres":
		pgCfg := postgres.DefaultConfig()
		if config.Store.DatabaseURL != "" {
			pgCfg.DatabaseURL = config.Store.DatabaseURL
		}
		pgCfg.NATSURL = config.Store.NATSURL

		store, err := postgres.NewStore(ctx, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("nats_url", pgCfg.NATSURL).Msg("using postgres document store")
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}
}

func setupServer(config *Config, session *league.Session, spectators *gateway.Service) *http.Server {
	mux := http.NewServeMux()

	league.NewHandler(session).RegisterRoutes(mux)
	spectators.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%s", config.Server.Port),
		Handler:      c.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
