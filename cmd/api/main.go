package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/cache"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/database"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/events"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/memory"
	"github.com/zatekoja/firstresponder/backend/internal/api/handlers"
	"github.com/zatekoja/firstresponder/backend/internal/api/middleware"
	"github.com/zatekoja/firstresponder/backend/internal/api/routes"
	"github.com/zatekoja/firstresponder/backend/internal/application/loaders"
	"github.com/zatekoja/firstresponder/backend/internal/application/services"
	"github.com/zatekoja/firstresponder/backend/internal/domain/providers"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/notifications"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
	"github.com/zatekoja/firstresponder/backend/pkg/secrets"
)

// fanoutGuardTTL outlives any alert session so a restarted instance still sees the marker
const fanoutGuardTTL = 24 * time.Hour

type stores struct {
	emergencies    repositories.EmergencyRepository
	responses      repositories.EmergencyResponseRepository
	profiles       repositories.ProfileRepository
	frontlineTypes repositories.FrontlineTypeRepository
}

func main() {
	// Pull credentials from Vault before reading the environment
	vaultRes, vaultErr := secrets.Load(context.Background(), secrets.SourceFromEnv(os.Getenv("VAULT_API_PATH")))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Str("path", vaultRes.Path).Msg("Vault secrets not loaded")
	} else if len(vaultRes.Loaded) > 0 || len(vaultRes.Skipped) > 0 {
		log.Info().Str("path", vaultRes.Path).Strs("loaded", vaultRes.Loaded).Strs("skipped", vaultRes.Skipped).Msg("Vault secrets applied")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	checks := make(map[string]handlers.HealthCheck)

	// Initialize the dispatch store
	var st stores
	switch cfg.Dispatch.Store {
	case config.StoreMemory:
		mem := memory.NewStore()
		if cfg.Dispatch.Seed {
			mem.SeedDemo(time.Now())
			log.Info().Msg("Memory store seeded with demo directory")
		}
		st = stores{
			emergencies:    mem.Emergencies(),
			responses:      mem.Responses(),
			profiles:       mem.Profiles(),
			frontlineTypes: mem.FrontlineTypes(),
		}
		log.Warn().Msg("Dispatch records are kept in memory and lost on restart")
	default:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()
		checks["postgres"] = pgClient.Ping

		st = stores{
			emergencies:    database.NewEmergencyAdapter(pgClient),
			responses:      database.NewEmergencyResponseAdapter(pgClient),
			profiles:       database.NewProfileAdapter(pgClient),
			frontlineTypes: database.NewFrontlineTypeAdapter(pgClient),
		}
	}

	// Initialize the change feed and the shared fan-out marker
	var (
		feed          providers.ChangeFeed
		cacheProvider providers.CacheProvider
		limiterStore  limiter.Store
	)
	switch cfg.Dispatch.Feed {
	case config.FeedMemory:
		feed = events.NewMemoryChangeFeed()
		cacheProvider = cache.NewMemoryAdapter()
		log.Warn().Msg("Change feed is in-process; run a single API instance")
	default:
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis client")
		}
		defer redisClient.Close()
		checks["redis"] = redisClient.Ping

		feed = events.NewRedisChangeFeed(redisClient)
		cacheProvider = cache.NewRedisAdapter(redisClient)
		limiterStore, err = redisstore.NewStoreWithOptions(redisClient.Client(), limiter.StoreOptions{
			Prefix: "firstresponder:ratelimit",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize rate limit store")
		}
	}

	if cfg.Dispatch.Store != config.StoreMemory {
		st.frontlineTypes = database.NewCachedFrontlineTypeAdapter(st.frontlineTypes, cacheProvider)
	}

	// Initialize services
	dataLoaders := loaders.NewLoaders(st.profiles, st.frontlineTypes, st.emergencies)
	fanoutOpts := []services.FanoutOption{
		services.WithFanoutLimit(cfg.Dispatch.FanoutLimit),
		services.WithFanoutGuard(cacheProvider, fanoutGuardTTL),
	}
	if cfg.Notify.Enabled() {
		sender, err := notifications.NewWhatsAppSender(&cfg.Notify)
		if err != nil {
			log.Warn().Err(err).Msg("WhatsApp responder alerts disabled")
		} else {
			fanoutOpts = append(fanoutOpts, services.WithResponderAlerter(sender))
			log.Info().Msg("WhatsApp responder alerts enabled")
		}
	}
	fanoutService := services.NewFanoutService(st.profiles, st.responses, feed, fanoutOpts...)
	dispatchService := services.NewDispatchService(
		st.emergencies,
		st.responses,
		dataLoaders,
		fanoutService,
		feed,
		services.NewSessionRegistry(cfg.Dispatch.SessionTTL),
	)
	responderService := services.NewResponderService(st.responses, dataLoaders, feed)
	directoryService := services.NewDirectoryService(st.profiles, st.frontlineTypes)

	rateLimiter, err := middleware.NewRateLimiter(cfg.Server.RateLimit, limiterStore)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.Server.RateLimit).Msg("Invalid API_RATE_LIMIT")
	}

	opts := []routes.Option{
		routes.WithDispatch(
			handlers.NewEmergencyHandler(dispatchService),
			handlers.NewResponderHandler(responderService),
			handlers.NewDirectoryHandler(directoryService),
			handlers.NewSSEHandler(dispatchService, responderService, metrics),
			directoryService,
		),
		routes.WithRateLimit(rateLimiter),
	}

	// Mount the triage proxy alongside dispatch when a key is configured
	if cfg.Triage.APIKey != "" {
		assistant, err := openai.NewClient(&cfg.Triage)
		if err != nil {
			log.Warn().Err(err).Msg("Triage assistant disabled")
		} else {
			opts = append(opts, routes.WithTriage(handlers.NewTriageHandler(
				services.NewTriageService(assistant, cfg.Triage.SpeechEnabled),
			)))
			log.Info().Str("model", cfg.Triage.ChatModel).Msg("Triage proxy mounted")
		}
	}

	router := routes.NewRouter(handlers.NewHealthHandler(checks), metrics, opts...)

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streams stay open until the client leaves or ctx is cancelled
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.Dispatch.Store).Str("feed", cfg.Dispatch.Feed).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Close change feed
	if err := feed.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing change feed")
	}

	log.Info().Msg("Server stopped")
}
