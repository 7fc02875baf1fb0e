// Package main provides the main entry point for the CrestVault investment platform
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crestvault/crestvault/app/handlers"
	"github.com/crestvault/crestvault/app/middleware"
	"github.com/crestvault/crestvault/app/router"
	"github.com/crestvault/crestvault/app/scheduler"
	"github.com/crestvault/crestvault/app/services"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting CrestVault application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initializeLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to a size-rotated file,
// stdout, or both, per configuration.
func initializeLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(rotated)
	default: // both
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Deposit{},
		&models.Withdrawal{},
		&models.Notification{},
		&models.AdminSettings{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg *config.ProductionConfig) services.NotificationService {
	var emailProvider services.EmailProvider
	if cfg.Email.UseMock {
		emailProvider = services.NewMockEmailProvider()
	} else {
		emailProvider = services.NewSMTPEmailProvider(
			cfg.Email.Host,
			cfg.Email.Port,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.FromEmail,
			cfg.Email.FromName,
		)
	}
	return services.NewNotificationService(emailProvider)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	depositRepo := repository.NewDepositRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Bootstrap the admin account and the settings row
	if err := ensureAdminAccount(userRepo, cfg); err != nil {
		return nil, err
	}
	if _, err := settingsRepo.Get(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize platform settings: %w", err)
	}

	// Initialize services
	notificationService := initializeNotificationService(cfg)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Payment processor clients double as pay-in providers and IPN verifiers
	coinPayments := services.NewCoinPaymentsClient(
		cfg.Payments.CoinPayments.BaseURL,
		cfg.Payments.CoinPayments.PublicKey,
		cfg.Payments.CoinPayments.PrivateKey,
		cfg.Payments.CoinPayments.IPNSecret,
		cfg.Payments.CoinPayments.MerchantID,
		cfg.Payments.Timeout,
	)
	nowPayments := services.NewNOWPaymentsClient(
		cfg.Payments.NOWPayments.BaseURL,
		cfg.Payments.NOWPayments.APIKey,
		cfg.Payments.NOWPayments.IPNSecret,
		cfg.Payments.Timeout,
	)

	providers := map[string]services.PaymentProvider{
		coinPayments.Name(): coinPayments,
		nowPayments.Name():  nowPayments,
		"default":           coinPayments,
	}

	// Initialize flows
	authFlow := businessflow.NewAuthFlow(
		userRepo,
		notificationRepo,
		tokenService,
		notificationService,
		db,
	)

	depositFlow := businessflow.NewDepositFlow(
		userRepo,
		depositRepo,
		notificationRepo,
		settingsRepo,
		notificationService,
		providers,
		db,
		cfg.Deployment,
	)

	withdrawalFlow := businessflow.NewWithdrawalFlow(
		userRepo,
		withdrawalRepo,
		notificationRepo,
		settingsRepo,
		notificationService,
		db,
	)

	webhookFlow := businessflow.NewWebhookFlow(
		depositRepo,
		depositFlow,
		coinPayments,
		nowPayments,
	)

	profitFlow := businessflow.NewProfitFlow(userRepo, depositRepo, db, nil)

	bonusFlow := businessflow.NewBonusFlow(
		userRepo,
		notificationRepo,
		notificationService,
		db,
	)

	adminFlow := businessflow.NewAdminFlow(
		userRepo,
		depositRepo,
		withdrawalRepo,
		settingsRepo,
		db,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authFlow)
	depositHandler := handlers.NewDepositHandler(depositFlow)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalFlow)
	webhookHandler := handlers.NewWebhookHandler(webhookFlow)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	adminHandler := handlers.NewAdminHandler(adminFlow, depositFlow, withdrawalFlow, bonusFlow, profitFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authMiddleware,
		authHandler,
		depositHandler,
		withdrawalHandler,
		webhookHandler,
		notificationHandler,
		adminHandler,
	)

	// Start the daily profit scheduler
	sched := scheduler.NewProfitScheduler(profitFlow, cfg.Scheduler, rc)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureAdminAccount creates the bootstrap administrator if it does not
// exist yet. A missing ADMIN_EMAIL disables bootstrapping entirely.
func ensureAdminAccount(userRepo repository.UserRepository, cfg *config.ProductionConfig) error {
	if cfg.Admin.Email == "" {
		return nil
	}
	if cfg.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}

	ctx := context.Background()
	existing, err := userRepo.ByEmail(ctx, cfg.Admin.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        cfg.Admin.Email,
		PasswordHash: string(hash),
		Role:         models.UserRoleAdmin,
		IsVerified:   true,
	}
	if err := userRepo.Save(ctx, &admin); err != nil {
		return err
	}

	log.Printf("Bootstrap admin account created: %s", cfg.Admin.Email)
	return nil
}
