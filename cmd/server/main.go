package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/iliyamo/ground-booking/internal/config"
	"github.com/iliyamo/ground-booking/internal/database"
	"github.com/iliyamo/ground-booking/internal/handler"
	"github.com/iliyamo/ground-booking/internal/logger"
	"github.com/iliyamo/ground-booking/internal/middleware"
	"github.com/iliyamo/ground-booking/internal/obs"
	"github.com/iliyamo/ground-booking/internal/queue"
	"github.com/iliyamo/ground-booking/internal/repository"
	"github.com/iliyamo/ground-booking/internal/router"
	"github.com/iliyamo/ground-booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, cfg.IsDev())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownTracer = func(context.Context) error { return nil }
	}

	sqlDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	gdb, err := database.OpenGorm(sqlDB, cfg.IsDev())
	if err != nil {
		log.Fatal().Err(err).Msg("gorm")
	}

	var events service.EventPublisher = queue.NopPublisher{}
	var publisher *queue.Publisher
	if cfg.EventsEnabled {
		publisher, err = queue.NewPublisher(cfg.RabbitURL, queue.ExchangeName)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable; booking events disabled")
		} else {
			events = publisher
		}
	}
	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("booking-consumer stopped")
			}
		}()
	}

	bookings := repository.NewBookingRepo(gdb)
	courts := repository.NewCourtRepo(gdb)
	bookingSvc := service.NewBookingService(bookings, courts, events)
	settlementSvc := service.NewSettlementService(bookings, events)

	rdb := config.NewRedisClient(cfg.Redis)
	cache := middleware.NewRedisCache(cfg.Cache, rdb)
	limiter := middleware.NewTokenBucket(cfg.RateLimit, rdb)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))

	router.RegisterRoutes(e, sqlDB)
	router.RegisterPublic(e, handler.NewCourtHandler(courts, bookingSvc), cache)
	router.RegisterBookings(e, handler.NewBookingHandler(bookingSvc), cfg.JWTSecret, limiter)
	router.RegisterSettlements(e, handler.NewSettlementHandler(settlementSvc), cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
	_ = sqlDB.Close()
}
