package di

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/internal/events"
	"github.com/prohmpiriya/event-ticketing/internal/gateway"
	"github.com/prohmpiriya/event-ticketing/internal/handler"
	"github.com/prohmpiriya/event-ticketing/internal/repository"
	"github.com/prohmpiriya/event-ticketing/internal/service"
	"github.com/prohmpiriya/event-ticketing/pkg/database"
	"github.com/prohmpiriya/event-ticketing/pkg/middleware"
	"github.com/prohmpiriya/event-ticketing/pkg/redis"
	"github.com/prohmpiriya/event-ticketing/pkg/retry"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Container holds all dependencies for the ticketing service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	Repos *repository.Repositories

	// Gateways and publishers
	Gateways       *gateway.Registry
	EventPublisher events.Publisher

	// Services
	VerificationService service.VerificationService
	PurchaseService     service.PurchaseService
	TicketService       service.TicketService
	EventService        service.EventService
	AdminService        service.AdminService
	UserService         service.UserService

	// Handlers
	HealthHandler  *handler.HealthHandler
	PaymentHandler *handler.PaymentHandler
	TicketHandler  *handler.TicketHandler
	EventHandler   *handler.EventHandler
	AdminHandler   *handler.AdminHandler
	UserHandler    *handler.UserHandler
}

// ContainerConfig contains configuration for building the container.
// DB and Redis may be nil when running on in-memory storage.
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	Repos          *repository.Repositories
	Gateways       *gateway.Registry
	EventPublisher events.Publisher
	QRSigner       *service.QRSigner
	GatewayTimeout time.Duration
	Recovery       *retry.Config
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Repos:          cfg.Repos,
		Gateways:       cfg.Gateways,
		EventPublisher: cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = events.NewNoOpPublisher()
	}

	// Initialize services
	c.VerificationService = service.NewVerificationService(
		c.Gateways,
		c.Repos.Payments,
		c.Repos.Settlements,
		c.EventPublisher,
		&service.VerificationServiceConfig{
			GatewayTimeout: cfg.GatewayTimeout,
			Recovery:       cfg.Recovery,
		},
	)
	c.PurchaseService = service.NewPurchaseService(c.Gateways, c.Repos, &service.PurchaseServiceConfig{
		GatewayTimeout: cfg.GatewayTimeout,
	})
	c.TicketService = service.NewTicketService(c.Repos, cfg.QRSigner)
	c.EventService = service.NewEventService(c.Repos.Events)
	c.AdminService = service.NewAdminService(c.Repos.Payments)
	c.UserService = service.NewUserService(c.Repos.Users)

	// Initialize handlers
	components := map[string]handler.HealthChecker{"database": nil, "redis": nil}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components)
	c.PaymentHandler = handler.NewPaymentHandler(c.PurchaseService, c.VerificationService)
	c.TicketHandler = handler.NewTicketHandler(c.TicketService)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.AdminHandler = handler.NewAdminHandler(c.AdminService)
	c.UserHandler = handler.NewUserHandler(c.UserService)

	return c
}

// RouterConfig controls the HTTP surface
type RouterConfig struct {
	ServiceName string
	Version     string
	// Idempotency guards purchases; nil disables it
	Idempotency *middleware.IdempotencyConfig
}

// Router builds the gin engine with every route registered
func (c *Container) Router(cfg *RouterConfig) *gin.Engine {
	if cfg == nil {
		cfg = &RouterConfig{ServiceName: "ticketing"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.ServiceName, "/health", "/ready", "/metrics"))
	router.Use(middleware.UserContext())

	// Health check endpoints
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{
				"status":   "ok",
				"version":  cfg.Version,
				"service":  cfg.ServiceName,
				"gateways": c.Gateways.Names(),
			})
		})

		// Payment verification is called by the checkout return page, so it
		// needs no caller identity
		v1.POST("/payments/verify", c.PaymentHandler.VerifyPayment)

		purchases := []gin.HandlerFunc{middleware.RequireUser()}
		if cfg.Idempotency != nil {
			purchases = append(purchases, middleware.IdempotencyMiddleware(cfg.Idempotency))
		}
		v1.POST("/purchases", append(purchases, c.PaymentHandler.Purchase)...)

		v1.GET("/events/:id", c.EventHandler.GetByID)
		v1.POST("/events", middleware.RequireAdmin(), c.EventHandler.Create)

		v1.POST("/users", c.UserHandler.Register)

		authed := v1.Group("", middleware.RequireUser())
		{
			authed.GET("/users/:userId", c.UserHandler.GetUser)
			authed.GET("/users/:userId/tickets", c.TicketHandler.ListUserTickets)
			authed.GET("/tickets/:id", c.TicketHandler.GetTicket)
			authed.POST("/tickets/:id/transfer", c.TicketHandler.TransferTicket)
		}

		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/payments", c.AdminHandler.ListPayments)
			admin.POST("/tickets/scan", c.TicketHandler.ScanTicket)
		}
	}

	return router
}
