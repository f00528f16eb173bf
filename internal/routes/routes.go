package routes

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freeflow/internal/controllers"
	"freeflow/internal/presence"
	"freeflow/internal/repositories"
	"freeflow/internal/resources"
	"freeflow/internal/services"
	"freeflow/pkg/config"
	"freeflow/pkg/eventbus"
	"freeflow/pkg/metrics"
	"freeflow/pkg/middleware"
	"freeflow/pkg/service"
	appwebsocket "freeflow/pkg/websocket"
)

// Services is every domain service the HTTP layer and the background jobs
// share.
type Services struct {
	Records       services.RecordServiceInterface
	Exports       services.ExportServiceInterface
	Escrow        services.EscrowServiceInterface
	Invoices      services.InvoiceServiceInterface
	Notifications services.NotificationServiceInterface
}

// NewServices builds the repositories and services on top of the pool and
// the cache.
func NewServices(
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	registry *resources.Registry,
	bus *eventbus.Bus,
	listTTL time.Duration,
	logger *zap.Logger,
) (*Services, error) {
	txManager := repositories.NewTxManager(dbConn, logger)
	recordRepo := repositories.NewRecordRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	escrowService, err := services.NewEscrowService(txManager, registry, recordRepo, cacheRepo, bus, logger)
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}
	invoiceService, err := services.NewInvoiceService(registry, recordRepo, cacheRepo, bus, logger)
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}
	notificationService, err := services.NewNotificationService(registry, recordRepo, cacheRepo, bus, logger)
	if err != nil {
		return nil, fmt.Errorf("init services: %w", err)
	}

	return &Services{
		Records:       services.NewRecordService(registry, recordRepo, cacheRepo, bus, listTTL, logger),
		Exports:       services.NewExportService(registry, recordRepo, logger),
		Escrow:        escrowService,
		Invoices:      invoiceService,
		Notifications: notificationService,
	}, nil
}

type Dependencies struct {
	Services *Services
	JWT      service.JWTService
	Hub      *appwebsocket.Hub
	Presence *presence.Registry
	Health   map[string]controllers.CheckFunc
	Config   *config.Config
	Logger   *zap.Logger
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	deps.Logger.Info("init router")

	authMW := middleware.NewAuthMiddleware(deps.JWT, deps.Logger)

	health := controllers.NewHealthController(deps.Health, deps.Logger)
	e.GET("/health", health.Health)
	e.GET("/metrics", metrics.Handler())

	ws := controllers.NewWebSocketController(deps.Hub, deps.JWT, deps.Config.Server.AllowedOrigins, deps.Logger)
	e.GET("/ws", ws.ServeWs)

	secure := e.Group("/api/v1", authMW.Auth)

	runRecordRouter(secure, controllers.NewRecordController(deps.Services.Records, deps.Services.Exports, deps.Logger))
	runEscrowRouter(secure, controllers.NewEscrowController(deps.Services.Escrow, deps.Logger))
	runInvoiceRouter(secure, controllers.NewInvoiceController(deps.Services.Invoices, deps.Logger))
	runNotificationRouter(secure, controllers.NewNotificationController(deps.Services.Notifications, deps.Logger))
	runPresenceRouter(secure, controllers.NewPresenceController(deps.Presence, deps.Logger))

	deps.Logger.Info("router ready", zap.Int("routes", len(e.Routes())))
}
