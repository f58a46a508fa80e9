package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pact-sync-client/internal/config"
	"pact-sync-client/internal/handlers"
	"pact-sync-client/internal/repository"
	"pact-sync-client/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Session and remote API
	session := services.NewSession()
	client := repository.NewClient(cfg.API.BaseURL, cfg.API.Timeout, session)
	client.OnUnauthorized(session.Logout)

	if cfg.API.Token != "" {
		if err := session.Login(cfg.API.Token); err != nil {
			log.Fatal().Err(err).Msg("Invalid API token")
		}
	}

	// Initialize repositories
	partnerRepo := repository.NewPartnerRepository(client)
	challengeRepo := repository.NewChallengeRepository(client)
	userRepo := repository.NewUserRepository(client)
	activityRepo := repository.NewActivityRepository(client)

	// Initialize services
	engine := services.NewEngine(session, partnerRepo, challengeRepo, userRepo, activityRepo, cfg)
	wsHub := services.NewWSHub(engine.State)
	engine.OnChange(wsHub.NotifyState)
	poller := services.NewPoller(engine, cfg.Poll)
	bridgeAuth := services.NewBridgeAuth(cfg.Bridge.Secret)

	if bridgeAuth.Enabled() {
		token, err := bridgeAuth.GenerateJWT("local-ui")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to issue bridge token")
		}
		log.Info().Str("token", token).Msg("Bridge token issued")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	client.Warmup(ctx, config.ServerRoot(cfg.API.BaseURL))
	engine.Refresh(ctx)

	go func() {
		if err := poller.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Poller stopped")
		}
	}()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/v1", handlers.Routes(engine, wsHub, bridgeAuth, poller))

	// Create HTTP server. No write timeout: /v1/ws connections are long-lived.
	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("api", cfg.API.BaseURL).
			Msg("Starting bridge")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Bridge failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down bridge...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Bridge forced to shutdown")
	}

	log.Info().Msg("Bridge exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
