package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/config"
	"github.com/iliyamo/felicity-registration/internal/database"
	"github.com/iliyamo/felicity-registration/internal/handler"
	"github.com/iliyamo/felicity-registration/internal/middleware"
	"github.com/iliyamo/felicity-registration/internal/queue"
	"github.com/iliyamo/felicity-registration/internal/repository"
	"github.com/iliyamo/felicity-registration/internal/router"
	"github.com/iliyamo/felicity-registration/internal/service"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	log := logrus.WithField("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ping, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithTicketIssuer(service.NewTicketIssuer(cfg.TicketPrefix)),
		service.WithRejectionReasonMin(cfg.RejectionReasonMin),
	}
	if rdb != nil {
		opts = append(opts, service.WithRollingCounter(repository.NewRedisRollingCounter(rdb, "")))
	}

	consumerDone := make(chan struct{})
	if cfg.RabbitURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL, log)))
		consumer := queue.NewConsumer(cfg.RabbitURL, queue.NewFileMailer(cfg.MailLogPath), log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("ticket mail consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
		log.Warn("RABBITMQ_URL not set, ticket mails disabled")
	}
	svc := service.New(store, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Participant: handler.NewParticipantHandler(svc),
		Organizer:   handler.NewOrganizerHandler(svc),
		JWTSecret:   cfg.JWTSecret,
		Health:      ping,
		Limit:       rateLimiter(rdb, log),
		Cache:       middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "store": cfg.Store}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	// tickets confirmed before shutdown still get their mail published
	svc.Wait()
	<-consumerDone
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (repository.Store, handler.Pinger, func()) {
	if cfg.Store == config.StoreMemory {
		mem := repository.NewMemoryStore()
		if cfg.SeedFile != "" {
			if err := loadSeed(cfg.SeedFile, mem); err != nil {
				log.WithError(err).Fatal("load seed file")
			}
		}
		log.Warn("using in-memory store, data is lost on restart")
		return mem, nil, func() {}
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	return repository.NewMySQLStore(db), db.PingContext, func() { _ = db.Close() }
}

func rateLimiter(rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	cfg := config.LoadRateLimitConfig()
	if rdb == nil && cfg.Enabled {
		log.Warn("redis unavailable, rate limiting disabled")
	}
	return middleware.NewTokenBucket(cfg, rdb, log)
}
