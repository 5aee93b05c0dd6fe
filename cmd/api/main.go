package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "storefront-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	db, err := database.Connect(context.Background(), &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	logger.Info().Msg("connected to database")

	m := metrics.NewServerMetrics("api")
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Interval backstop for the lazy purge active listings perform.
	go store.RunPurgeSweeper(ctx, db, cfg.Catalog.PurgeInterval, cfg.Catalog.TrashRetention, logger, func(purged int64) {
		m.ProductsPurged.Add(float64(purged))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(db, cfg, logger, tokens, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}
