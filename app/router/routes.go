// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/handlers"
	"github.com/crestvault/crestvault/app/middleware"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                 *fiber.App
	cfg                 *config.ProductionConfig
	authMiddleware      *middleware.AuthMiddleware
	authHandler         handlers.AuthHandlerInterface
	depositHandler      handlers.DepositHandlerInterface
	withdrawalHandler   handlers.WithdrawalHandlerInterface
	webhookHandler      handlers.WebhookHandlerInterface
	notificationHandler handlers.NotificationHandlerInterface
	adminHandler        handlers.AdminHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	authHandler handlers.AuthHandlerInterface,
	depositHandler handlers.DepositHandlerInterface,
	withdrawalHandler handlers.WithdrawalHandlerInterface,
	webhookHandler handlers.WebhookHandlerInterface,
	notificationHandler handlers.NotificationHandlerInterface,
	adminHandler handlers.AdminHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "CrestVault API",
		ServerHeader: "CrestVault",
		ErrorHandler: errorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB, webhook payloads are tiny
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                 app,
		cfg:                 cfg,
		authMiddleware:      authMiddleware,
		authHandler:         authHandler,
		depositHandler:      depositHandler,
		withdrawalHandler:   withdrawalHandler,
		webhookHandler:      webhookHandler,
		notificationHandler: notificationHandler,
		adminHandler:        adminHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			// Health checks and processor callbacks are never throttled
			return c.Path() == "/api/v1/health" || isWebhookPath(c.Path())
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/register", r.authHandler.Register)
	auth.Post("/verify", r.authHandler.Verify)
	auth.Post("/login", r.authHandler.Login)

	// Processor callbacks: unauthenticated, signature-checked in the flow
	webhooks := api.Group("/webhooks")
	webhooks.Post("/coinpayments", r.webhookHandler.CoinPayments)
	webhooks.Post("/nowpayments", r.webhookHandler.NOWPayments)

	// Authenticated user surface
	user := api.Group("", r.authMiddleware.Authenticate())
	user.Get("/profile", r.authHandler.Profile)
	user.Put("/profile/wallet-addresses", r.authHandler.UpdateWalletAddresses)
	user.Post("/deposits", r.depositHandler.Create)
	user.Get("/deposits", r.depositHandler.List)
	user.Get("/deposits/:id", r.depositHandler.Get)
	user.Post("/withdrawals", r.withdrawalHandler.Create)
	user.Get("/withdrawals", r.withdrawalHandler.List)
	user.Get("/notifications", r.notificationHandler.List)
	user.Post("/notifications/:id/read", r.notificationHandler.MarkRead)

	// Admin surface
	admin := api.Group("/admin", r.authMiddleware.Authenticate(), r.authMiddleware.RequireAdmin())
	admin.Get("/users", r.adminHandler.ListUsers)
	admin.Get("/deposits", r.adminHandler.ListDeposits)
	admin.Post("/deposits", r.adminHandler.AddDeposit)
	admin.Put("/deposits/:id/status", r.adminHandler.SetDepositStatus)
	admin.Delete("/deposits/:id", r.adminHandler.DeleteDeposit)
	admin.Get("/withdrawals", r.adminHandler.ListWithdrawals)
	admin.Put("/withdrawals/:id/decision", r.adminHandler.DecideWithdrawal)
	admin.Post("/bonus", r.adminHandler.GrantBonus)
	admin.Post("/bonus/bulk", r.adminHandler.BulkBonus)
	admin.Post("/profit/run", r.adminHandler.RunProfit)
	admin.Get("/stats", r.adminHandler.Stats)
	admin.Get("/settings", r.adminHandler.GetSettings)
	admin.Put("/settings", r.adminHandler.UpdateSettings)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware comes first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Server.CORSAllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// JSON access log, UTC timestamps
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "crestvault-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

func isWebhookPath(path string) bool {
	return path == "/api/v1/webhooks/coinpayments" || path == "/api/v1/webhooks/nowpayments"
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)
	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
