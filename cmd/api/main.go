// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/samrititabalt/supportchat/internal/attach"
	"github.com/samrititabalt/supportchat/internal/config"
	"github.com/samrititabalt/supportchat/internal/handler"
	"github.com/samrititabalt/supportchat/internal/llm"
	"github.com/samrititabalt/supportchat/internal/membership"
	"github.com/samrititabalt/supportchat/internal/middleware"
	"github.com/samrititabalt/supportchat/internal/notify"
	"github.com/samrititabalt/supportchat/internal/service"
	"github.com/samrititabalt/supportchat/internal/store"
	"github.com/samrititabalt/supportchat/pkg/logger"
	"github.com/samrititabalt/supportchat/pkg/tracing"
)

func main() {
	// Load .env in development; missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "supportchat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing")
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the database and migrate the core schema.
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}

	sessionStore := store.NewSessionStore(db)
	messageStore := store.NewMessageStore(db)
	ledgerStore := store.NewLedgerStore(db)

	// Connect to NATS for event broadcasts.
	notifier, err := notify.Connect(ctx, notify.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer notifier.Close()

	// Agent membership index; degrades to a no-op without Redis.
	var idx membership.Index = membership.Noop{}
	if cfg.RedisAddr != "" {
		redisIdx, err := membership.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error("failed to connect to redis", zap.Error(err))
			os.Exit(1)
		}
		defer redisIdx.Close()
		idx = redisIdx
	}

	// Optional LLM client for generated fallback content.
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, using canned fallback lines")
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, using canned fallback lines")
		}
	}

	// Services.
	fallbackCfg := service.DefaultFallbackConfig()
	fallbackCfg.Delays = cfg.FallbackDelays
	fallbackCfg.Model = cfg.FallbackModel
	fallback := service.NewFallbackScheduler(sessionStore, messageStore, notifier, llmClient, fallbackCfg, log)
	defer fallback.Shutdown()

	sessionSvc := service.NewSessionService(sessionStore, ledgerStore, idx, notifier, fallback, log)
	messageSvc := service.NewMessageService(messageStore, sessionStore, ledgerStore, notifier, fallback, log)
	ledgerSvc := service.NewLedgerService(ledgerStore, log)

	// Handlers.
	healthHandler := handler.NewHealthHandler(notifier, db)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, attach.Unavailable{}, log)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, log)

	// Router.
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/accept", sessionHandler.Accept)
				r.Post("/transfer", sessionHandler.Transfer)
				r.Post("/complete", sessionHandler.Complete)

				r.Get("/messages", messageHandler.List)
				r.With(middleware.ActorRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
					Post("/messages", messageHandler.Send)
				r.Get("/messages/unread", messageHandler.UnreadCount)
			})
		})

		r.Route("/messages/{id}", func(r chi.Router) {
			r.Post("/read", messageHandler.MarkRead)
			r.Put("/", messageHandler.Edit)
			r.Delete("/", messageHandler.Delete)
		})

		r.Route("/customers/{id}", func(r chi.Router) {
			r.Get("/balance", ledgerHandler.Balance)
			r.Get("/transactions", ledgerHandler.Transactions)
			r.Post("/credit", ledgerHandler.Credit)
			r.Post("/debit", ledgerHandler.Debit)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
