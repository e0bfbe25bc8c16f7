package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"eventless/internal/analytics"
	analytics_api "eventless/internal/analytics/api"
	"eventless/internal/auth"
	"eventless/internal/checkin"
	checkin_api "eventless/internal/checkin/api"
	checkin_db "eventless/internal/checkin/db"
	"eventless/internal/config"
	"eventless/internal/database/migrations"
	"eventless/internal/events"
	events_api "eventless/internal/events/api"
	events_db "eventless/internal/events/db"
	"eventless/internal/gateway"
	"eventless/internal/issuance"
	issuance_api "eventless/internal/issuance/api"
	issuance_db "eventless/internal/issuance/db"
	issuance_redis "eventless/internal/issuance/redis"
	"eventless/internal/kafka"
	"eventless/internal/logger"
	"eventless/internal/notification"
	"eventless/internal/sse"
	"eventless/internal/tickets"
	tickets_api "eventless/internal/tickets/api"
	tickets_db "eventless/internal/tickets/db"
	"eventless/internal/utils"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL not ready: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The reference lock degrades gracefully without Redis; issuance
		// stays correct through the conditional insert.
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s: %v", cfg.Redis.Addr, err))
	} else {
		log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	}
	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Eventless service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	migrationOpts := migrations.DefaultOptions()
	if migrationOpts.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrationOpts)
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		if version, err := runner.Version(); err == nil {
			log.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.Topics()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will not be published")
	}

	var notifier notification.Notifier
	if cfg.Email.SMTPUsername != "" {
		notifier = notification.NewSMTPMailer(cfg.Email, log)
		log.Info("EMAIL", fmt.Sprintf("SMTP mailer configured via %s:%s", cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	} else {
		notifier = notification.NewConsole()
		log.Warn("EMAIL", "SMTP not configured, ticket confirmations go to stdout")
	}

	gatewayClient := gateway.NewClient(cfg.Gateway, log)
	referenceLock := issuance_redis.NewLock(redisClient)

	issuanceService := issuance.NewService(
		&issuance_db.DB{Bun: bunDB},
		referenceLock,
		gatewayClient,
		producer,
		notifier,
		cfg.Tickets.ServiceFee,
		log,
	)
	checkinFeed := sse.NewCheckinFeed()
	checkinService := checkin.NewService(&checkin_db.DB{Bun: bunDB}, producer, log)
	checkinService.Feed = checkinFeed
	eventsService := events.NewService(&events_db.DB{Bun: bunDB}, producer, cfg.Tickets.MonthlyFreeEvents, log)
	ticketsService := tickets.NewService(&tickets_db.DB{Bun: bunDB}, log)
	analyticsService := analytics.NewService(bunDB)

	issuanceHandler := &issuance_api.Handler{Service: issuanceService, Logger: log}
	checkinHandler := &checkin_api.Handler{Service: checkinService, Feed: checkinFeed, Logger: log}
	eventsHandler := &events_api.Handler{Service: eventsService, Logger: log}
	ticketsHandler := &tickets_api.Handler{Service: ticketsService, Logger: log}
	analyticsHandler := &analytics_api.Handler{Service: analyticsService, Logger: log}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public routes ---
		eventsHandler.RegisterPublicRoutes(r)
		log.Info("ROUTER", "Public event listing registered at /api/events")

		// The SSE stream does its own token handling so EventSource
		// clients can pass the token as a query parameter.
		r.Get("/events/{eventId}/checkins/stream", checkinHandler.StreamCheckins)

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())
			log.Info("AUTH", "OIDC middleware applied to protected API routes")

			r.Post("/tickets/purchase", issuanceHandler.PurchaseTickets)
			r.Post("/checkin", checkinHandler.CheckinTicket)
			eventsHandler.RegisterRoutes(r)
			ticketsHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
		})
	})
	log.Info("ROUTER", "Protected routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Eventless service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Eventless service shutdown complete")
	}
}
