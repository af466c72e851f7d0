package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/handler"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/middleware"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/notify"
	"github.com/iliyamo/league-registration/internal/queue"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/router"
	"github.com/iliyamo/league-registration/internal/service"
	"github.com/iliyamo/league-registration/internal/tracing"
)

// windowCacheTTL bounds how long a settings change takes to reach readers
// that did not trigger an invalidation.
const windowCacheTTL = 10 * time.Second

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	log.SetMinLevel(log.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		closeLog, err := log.Init(cfg.LogFile)
		if err != nil {
			log.Fatal(log.CatConfig, "open log file", err, "path", cfg.LogFile)
		}
		defer closeLog()
	}

	db, dialect, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(log.CatDB, "database connect failed", err, "driver", cfg.DBDriver)
	}
	defer func() { _ = db.Close() }()

	admins := repository.NewAdminRepo(db)
	bootstrapAdmin(admins, cfg)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	tp, err := tracing.NewProvider(config.LoadTracingConfig())
	if err != nil {
		log.Fatal(log.CatConfig, "tracing init failed", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Confirmation fan-out: through RabbitMQ when enabled, inline otherwise.
	dispatcher := notify.FromConfig(ctx, config.LoadNotifyConfig())
	qcfg := config.LoadQueueConfig()
	var notifier service.Notifier = queue.Direct{Handle: dispatcher.Handle}
	consumerDone := make(chan struct{})
	if qcfg.Enabled {
		notifier = queue.NewPublisher(qcfg)
		consumer := queue.NewConsumer(qcfg, dispatcher.Handle, tp.Tracer())
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorErr(log.CatQueue, "consumer stopped", err)
			}
		}()
	} else {
		close(consumerDone)
	}
	log.Info(log.CatNotify, "notification sinks ready", "sinks", dispatcher.Names(), "queue", qcfg.Enabled)

	venues := repository.NewVenueRepo(db)
	slots := repository.NewTimeSlotRepo(db, dialect)
	regs := repository.NewRegistrationRepo(db, dialect)
	settings := repository.NewSettingRepo(db)

	svc := service.NewRegistrationService(db, venues, slots, regs, settings,
		service.WithNotifier(notifier),
		service.WithTracer(tp.Tracer()),
	)
	avail := service.NewAvailabilityService(slots)
	window := service.NewWindowService(settings, windowCacheTTL)
	setup := service.NewSetupService(db, venues, slots, settings)

	cacheCfg := config.LoadCacheConfig()
	purge := purgeHook(rdb, cacheCfg.Prefix)

	pub := handler.NewRegistrationHandler(svc, avail, window, venues, slots, regs, cfg.ExportKey)
	pub.OnChange = purge
	adm := handler.NewAdminHandler(venues, slots, regs, settings, avail, window, setup)
	adm.ExportKey = cfg.ExportKey
	adm.PublicBaseURL = cfg.PublicBaseURL
	adm.OnChange = purge
	auth := handler.NewAuthHandler(cfg, admins, repository.NewTokenRepo(db))

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info(log.CatHTTP, "request", "method", v.Method, "uri", v.URI, "status", v.Status,
				"latency", v.Latency.String(), "request_id", v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.BodyLimit("1M"))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, pub, router.PublicMiddleware{
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:       middleware.NewRedisCache(cacheCfg, rdb),
		SubmitLimit: middleware.NewTokenBucket(config.LoadSubmitRateLimitConfig(), rdb),
		SubmitGuard: middleware.SubmitGuard(rdb, config.SubmitGuardTTL()),
	})
	router.RegisterAdmin(e, adm, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info(log.CatHTTP, "listening", "addr", addr, "env", cfg.Env, "db", dialect.String())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(log.CatHTTP, "server failed", err)
		}
	}()

	<-ctx.Done()
	log.Info(log.CatHTTP, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatHTTP, "http shutdown", err)
	}
	svc.Wait()
	<-consumerDone
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatConfig, "tracing shutdown", err)
	}
}

// bootstrapAdmin creates the configured admin account on first start.
func bootstrapAdmin(admins *repository.AdminRepo, cfg config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := admins.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrAdminNotFound) {
		log.Fatal(log.CatAuth, "lookup bootstrap admin", err)
	}
	if _, err := admins.Create(ctx, cfg.AdminEmail, cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost); err != nil {
		log.Fatal(log.CatAuth, "create bootstrap admin", err)
	}
	log.Info(log.CatAuth, "bootstrap admin created", "email", cfg.AdminEmail)
}

// purgeHook drops cached availability responses after a write.
func purgeHook(rdb *redis.Client, prefix string) handler.ChangeHook {
	return func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, prefix); err != nil {
			log.ErrorErr(log.CatCache, "purge availability cache", err)
		}
	}
}
