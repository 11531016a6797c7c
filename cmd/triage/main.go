package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/firstresponder/backend/internal/api/handlers"
	"github.com/zatekoja/firstresponder/backend/internal/api/middleware"
	"github.com/zatekoja/firstresponder/backend/internal/api/routes"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
	"github.com/zatekoja/firstresponder/backend/pkg/secrets"
)

// The triage proxy holds the model credentials so the mobile app never does.
func main() {
	// Pull credentials from Vault before reading the environment
	vaultRes, vaultErr := secrets.Load(context.Background(), secrets.SourceFromEnv(os.Getenv("VAULT_TRIAGE_PATH")))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-triage", cfg.Env, cfg.LogLevel)

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Str("path", vaultRes.Path).Msg("Vault secrets not loaded")
	} else if len(vaultRes.Loaded) > 0 || len(vaultRes.Skipped) > 0 {
		log.Info().Str("path", vaultRes.Path).Strs("loaded", vaultRes.Loaded).Strs("skipped", vaultRes.Skipped).Msg("Vault secrets applied")
	}
	log.Info().Msg("Starting triage proxy...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-triage", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// A missing key still serves requests; every call answers EXTERNAL
	var triageService *services.TriageService
	assistant, err := openai.NewClient(&cfg.Triage)
	if err != nil {
		log.Warn().Err(err).Msg("Triage assistant is not configured")
		triageService = services.NewTriageService(nil, false)
	} else {
		triageService = services.NewTriageService(assistant, cfg.Triage.SpeechEnabled)
		log.Info().
			Str("chat_model", cfg.Triage.ChatModel).
			Bool("speech", cfg.Triage.SpeechEnabled).
			Msg("Triage assistant initialized")
	}

	rateLimiter, err := middleware.NewRateLimiter(cfg.Server.RateLimit, nil)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.Server.RateLimit).Msg("Invalid API_RATE_LIMIT")
	}

	router := routes.NewRouter(
		handlers.NewHealthHandler(nil),
		metrics,
		routes.WithTriage(handlers.NewTriageHandler(triageService)),
		routes.WithRateLimit(rateLimiter),
	)

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Triage.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Triage proxy starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Triage proxy failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Triage proxy shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Triage proxy stopped")
}
