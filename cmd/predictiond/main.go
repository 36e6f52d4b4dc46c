// Command predictiond serves the player performance prediction API: single
// and batch scoring through the fitted regression pipeline, improvement
// recommendations and per-user prediction history.
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

	"github.com/juleba580/Foot-Perf-IA/internal/api"
	"github.com/juleba580/Foot-Perf-IA/internal/auth"
	"github.com/juleba580/Foot-Perf-IA/internal/cfg"
	"github.com/juleba580/Foot-Perf-IA/internal/metrics"
	"github.com/juleba580/Foot-Perf-IA/internal/model"
	"github.com/juleba580/Foot-Perf-IA/internal/recommend"
	"github.com/juleba580/Foot-Perf-IA/internal/schema"
	"github.com/juleba580/Foot-Perf-IA/internal/storage"
)

func main() {
	_ = godotenv.Load()

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	setupLogging(settings.LogLevel)

	if err := settings.RequireModelArtifacts(); err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	if err := settings.RequireJWTSecret(); err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	m := metrics.New()

	bridge, err := model.NewBridge(model.BridgeConfig{
		ModelPath:          settings.ModelPath,
		TransformerPath:    settings.TransformerPath,
		TargetPipelinePath: settings.TargetPipelinePath,
		PythonBin:          settings.PythonBin,
		Timeout:            settings.BridgeTimeout,
	}, m)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline startup failed")
	}

	registry := buildRegistry(bridge)
	engine := model.NewEngine(registry, bridge, m)

	adviser := recommend.NewAdviser(settings.GeminiAPIKey, settings.AdviceTimeout)
	composer := recommend.NewComposer(adviser, m)

	var store *storage.Store
	if settings.DataPath != "" {
		store, err = storage.New(settings.DataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("storage startup failed")
		}
		defer store.Close()
	} else {
		log.Warn().Msg("DATA_PATH not set, prediction history disabled")
	}

	tokens, err := auth.NewTokenManager(settings.JWTSecret, settings.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token manager startup failed")
	}

	handlers := api.NewHandlers(engine, composer, store, tokens, m, settings.FrontendURL, settings.MaxUploadBytes)
	serve(fmt.Sprintf(":%d", settings.PredictPort), api.NewRouter(handlers), "prediction-api")
}

// buildRegistry prefers the categorical columns the fitted transformer
// reports, falling back to the hardcoded schema when extraction fails.
func buildRegistry(bridge *model.Bridge) *schema.Registry {
	fallback := schema.Default()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cats := bridge.CategoricalColumns(ctx)
	if len(cats) == 0 {
		return fallback
	}

	reg, err := schema.New(fallback.ExpectedFeatures(), cats)
	if err != nil {
		log.Warn().Err(err).Msg("transformer columns rejected, using fallback schema")
		return fallback
	}
	return reg
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
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
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
