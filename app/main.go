package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"freeflow/internal/controllers"
	"freeflow/internal/jobs"
	"freeflow/internal/listeners"
	"freeflow/internal/presence"
	"freeflow/internal/realtime"
	"freeflow/internal/resources"
	"freeflow/internal/routes"
	"freeflow/migrations"
	"freeflow/pkg/api"
	"freeflow/pkg/config"
	"freeflow/pkg/database/postgresql"
	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/eventbus"
	applogger "freeflow/pkg/logger"
	"freeflow/pkg/metrics"
	appmiddleware "freeflow/pkg/middleware"
	"freeflow/pkg/service"
	"freeflow/pkg/validation"
	appwebsocket "freeflow/pkg/websocket"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomiddleware.RecoverWithConfig(echomiddleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				_ = api.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(metrics.Middleware())

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("cannot connect to postgres", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.AutoMigrate {
		if err := migrations.Up(ctx, dbConn, logger); err != nil {
			logger.Fatal("cannot apply migrations", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("cannot connect to redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, logger)
	registry := resources.DefaultRegistry()
	bus := eventbus.New(logger)

	hub := appwebsocket.NewHub(logger)
	rooms := presence.NewRegistry(presence.Options{
		IdleTimeout:     cfg.Presence.IdleTimeout,
		OutdatedTimeout: cfg.Presence.OutdatedTimeout,
		Broadcast:       realtime.PresenceBroadcaster(hub, logger),
	}, logger)
	hub.SetHandler(realtime.NewHandler(registry, rooms, logger))

	svc, err := routes.NewServices(dbConn, redisClient, registry, bus, cfg.Cache.ListTTL, logger)
	if err != nil {
		logger.Fatal("cannot build services", zap.Error(err))
	}

	listeners.NewRealtimeListener(hub, logger).Register(bus)
	notifications := listeners.NewNotificationListener(svc.Notifications, cfg.Notifications.GroupWindow, logger)
	notifications.Register(bus)

	scheduler := jobs.NewScheduler(ctx, logger)
	for _, job := range []jobs.Job{
		jobs.OverdueInvoices(cfg.Jobs.OverdueSweepSpec, svc.Invoices, logger),
		jobs.PresenceSweep(cfg.Presence.SweepInterval, rooms),
	} {
		if err := scheduler.Add(job); err != nil {
			logger.Fatal("cannot schedule job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	scheduler.Start()

	routes.InitRouter(e, routes.Dependencies{
		Services: svc,
		JWT:      jwtSvc,
		Hub:      hub,
		Presence: rooms,
		Health: map[string]controllers.CheckFunc{
			"postgres": func(ctx context.Context) error { return dbConn.Ping(ctx) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Config: cfg,
		Logger: logger,
	})

	e.Server.ReadHeaderTimeout = cfg.Server.RequestTimeout
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	scheduler.Shutdown()
	bus.Wait()
	notifications.Flush(shutdownCtx)
	hub.Shutdown()
	logger.Info("bye")
}
