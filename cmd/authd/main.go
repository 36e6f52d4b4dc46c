// Command authd serves the authentication API: local registration and login,
// the Google OAuth code flow, profile management and JWT issuance.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/juleba580/Foot-Perf-IA/internal/auth"
	"github.com/juleba580/Foot-Perf-IA/internal/cfg"
	"github.com/juleba580/Foot-Perf-IA/internal/metrics"
	"github.com/juleba580/Foot-Perf-IA/internal/storage"
)

func main() {
	_ = godotenv.Load()

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	setupLogging(settings.LogLevel)

	if err := settings.RequireJWTSecret(); err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	if settings.DataPath == "" {
		log.Fatal().Msg("configuration error: DATA_PATH is required")
	}

	m := metrics.New()

	store, err := storage.New(settings.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("storage startup failed")
	}
	defer store.Close()

	tokens, err := auth.NewTokenManager(settings.JWTSecret, settings.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token manager startup failed")
	}

	google := auth.NewGoogleClient(settings.GoogleClientID, settings.GoogleClientSecret, 10*time.Second)
	if !google.Enabled() {
		log.Warn().Msg("Google OAuth credentials not configured, /api/auth/google disabled")
	}

	handlers := auth.NewHandlers(store, tokens, google, settings.FrontendURL, m)
	serve(fmt.Sprintf(":%d", settings.AuthPort), auth.NewRouter(handlers), "auth-api")
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

func serve(addr string, handler http.Handler, name string) {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Str("service", name).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
