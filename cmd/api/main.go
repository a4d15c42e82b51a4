package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"eduvision/internal/http/handlers"
	httpapi "eduvision/internal/http/httpapi"
	"eduvision/internal/imagegen"
	"eduvision/internal/infra"
	"eduvision/internal/infra/credentials"
	"eduvision/internal/infra/geoip"
	"eduvision/internal/providers/krea"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Refuse to serve anything without at least one key.
	pool, err := credentials.LoadPool(os.LookupEnv, cfg.KreaKeysFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load Krea API keys")
	}
	logger.Info().Int("keys", pool.Len()).Msg("credential pool loaded")

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	client := krea.NewClient(krea.Options{
		BaseURL:        cfg.KreaBaseURL,
		RequestTimeout: cfg.KreaHTTPTimeout,
		Logger:         &logger,
	})
	pipeline, err := imagegen.NewPipeline(imagegen.Options{
		Client:          client,
		Keys:            pool.Keys(),
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.PollMaxAttempts,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation pipeline")
	}

	app := handlers.NewApp(pipeline, pool.Len(), &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CountryLookup:  resolver.Lookup(),
		StaticDir:      cfg.StaticDir,
	})
	server := infra.NewHTTPServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Msgf("API listening on %s", server.Addr())
		return server.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		// In-flight generations may still be polling; give them the full window.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PollCeiling()+cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
