package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/config"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/database"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/editor"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/eligibility"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/handler"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/middleware"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/router"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	policyCtx, err := cfg.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid policy configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	publisher, notifier, closeBrokers := connectPublisher(cfg, logger)
	defer closeBrokers()

	validate := validator.New(validator.WithRequiredStructEnabled())
	lots := lot.NewRegistry(validate)
	edits := editor.New(lots, policy.NewBusinessCalendar())
	evaluator := eligibility.NewEvaluator(lots)

	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)

	opportunityService := service.NewOpportunityService(uow, repos.Opportunities, edits, publisher, policyCtx, validate, logger)
	eligibilityService := service.NewEligibilityService(repos, evaluator, logger)
	assessmentService := service.NewAssessmentService(uow, repos.Users, publisher, validate, logger)
	activityService := service.NewActivityService(repos.Activity, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, CORSOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		OpportunityHandler: handler.NewOpportunityHandler(opportunityService, eligibilityService, logger),
		AssessmentHandler:  handler.NewAssessmentHandler(assessmentService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:      middleware.JWTProtected(middleware.JWTOptions{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}),
		Notifier:           notifier,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

// connectPublisher builds the broker publisher from whichever transports are
// configured. With none configured, events are only logged.
func connectPublisher(cfg config.Config, logger zerolog.Logger) (events.Publisher, string, func()) {
	var (
		redisClient *redis.Client
		natsConn    *nats.Conn
		err         error
	)

	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, 5*time.Second)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
	}
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
	}

	closeAll := func() {
		if natsConn != nil {
			if err := natsConn.Drain(); err != nil {
				logger.Warn().Err(err).Msg("failed to drain nats connection")
			}
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis client")
			}
		}
	}

	switch {
	case redisClient != nil && natsConn != nil:
		return events.NewBrokerPublisher(redisClient, natsConn, cfg.EventsChannel), "redis+nats", closeAll
	case redisClient != nil:
		return events.NewBrokerPublisher(redisClient, nil, cfg.EventsChannel), "redis", closeAll
	case natsConn != nil:
		return events.NewBrokerPublisher(nil, natsConn, cfg.EventsChannel), "nats", closeAll
	default:
		logger.Warn().Msg("no event transport configured, workflow events will only be logged")
		return service.NewLogEventPublisher(logger), "log", closeAll
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
