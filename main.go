// Package main provides the main entry point for the print shop pricing service
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/hypnotizedent/printshop-os-sub010/app/handlers"
	"github.com/hypnotizedent/printshop-os-sub010/app/middleware"
	"github.com/hypnotizedent/printshop-os-sub010/app/router"
	"github.com/hypnotizedent/printshop-os-sub010/app/services"
	businessflow "github.com/hypnotizedent/printshop-os-sub010/business_flow"
	"github.com/hypnotizedent/printshop-os-sub010/cache"
	"github.com/hypnotizedent/printshop-os-sub010/config"
	"github.com/hypnotizedent/printshop-os-sub010/models"
	"github.com/hypnotizedent/printshop-os-sub010/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceVersion = "1.0.0"

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// `token <subject>` prints an admin bearer token and exits
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printAdminToken(cfg.Admin, os.Args[2:]); err != nil {
			log.Fatalf("Failed to issue admin token: %v", err)
		}
		return
	}

	logOut := config.SetupLogging(cfg.Logging)
	defer logOut.Close()

	log.Println("Starting print shop pricing service...")

	app, err := initializeApplication(cfg, logOut)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers once in-flight requests are drained
	for _, fn := range app.stopFuncs {
		fn()
	}

	log.Println("Server stopped")
}

func printAdminToken(cfg config.AdminConfig, args []string) error {
	if !cfg.AuthEnabled() {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}
	subject := "admin"
	if len(args) > 0 && args[0] != "" {
		subject = args[0]
	}
	svc, err := services.NewAdminTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := svc.GenerateAdminToken(subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logOut io.Writer) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(log.New(logOut, "", log.LstdFlags|log.LUTC), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(
			&models.PricingRule{},
			&models.RuleSetVersion{},
			&models.CalculationHistory{},
			&models.Garment{},
			&models.AuditLog{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeRedis initializes the Redis client and verifies connectivity
func initializeRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
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
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeQuoteCache picks the cache provider. A nil cache disables quote caching.
func initializeQuoteCache(cfg config.CacheConfig) (cache.QuoteCache, *redis.Client, []func(), error) {
	if !cfg.Enabled {
		log.Println("Quote cache disabled")
		return nil, nil, nil, nil
	}

	switch cfg.Provider {
	case cache.ProviderRedis:
		rc, err := initializeRedis(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		stopMonitor := startCacheHealthMonitor(context.Background(), rc, cfg.HealthInterval)
		closeClient := func() {
			if err := rc.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		}
		return cache.NewRedisQuoteCache(rc, cfg.RedisPrefix, cfg.DefaultTTL), rc, []func(){stopMonitor, closeClient}, nil
	default:
		mc := cache.NewMemoryQuoteCache(cfg.DefaultTTL, cfg.CleanupInterval)
		log.Printf("In-memory quote cache enabled (ttl=%s)", cfg.DefaultTTL)
		return mc, nil, []func(){mc.Close}, nil
	}
}

// initializeGarmentCostProvider chains the local catalog with the supplier API when one is configured
func initializeGarmentCostProvider(cfg *config.ProductionConfig, garmentRepo repository.GarmentRepository) services.GarmentCostProvider {
	providers := []services.GarmentCostProvider{services.NewCatalogGarmentCostProvider(garmentRepo)}
	if cfg.Supplier.APIURL != "" {
		providers = append(providers, services.NewSupplierGarmentCostProvider(&cfg.Supplier))
		log.Printf("Supplier pricing enabled (timeout=%s)", cfg.Supplier.Timeout)
	}
	return services.NewChainGarmentCostProvider(providers...)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logOut io.Writer) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logOut)
	if err != nil {
		return nil, err
	}

	quoteCache, rc, cacheStops, err := initializeQuoteCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, cacheStops...)

	defaults, err := cfg.Pricing.Defaults()
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	ruleRepo := repository.NewPricingRuleRepository(db)
	versionRepo := repository.NewRuleSetVersionRepository(db)
	historyRepo := repository.NewCalculationHistoryRepository(db)
	garmentRepo := repository.NewGarmentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize flows
	ruleFlow := businessflow.NewPricingRuleFlow(ruleRepo, versionRepo, auditRepo, quoteCache, db)
	historyFlow := businessflow.NewCalculationHistoryFlow(historyRepo)
	quoteFlow := businessflow.NewQuoteFlow(
		ruleFlow,
		initializeGarmentCostProvider(cfg, garmentRepo),
		quoteCache,
		historyFlow,
		businessflow.QuoteSettings{
			Defaults:        defaults,
			DefaultUnitCost: cfg.Pricing.DefaultUnitCost,
			CacheDryRuns:    cfg.Pricing.CacheDryRuns,
		},
	)
	cacheAdminFlow := businessflow.NewCacheAdminFlow(quoteCache, auditRepo)

	if err := seedRules(ruleRepo, ruleFlow, cfg.Pricing.SeedRulesFile); err != nil {
		return nil, err
	}

	// Initialize auth middleware
	var tokenService services.AdminTokenService
	if cfg.Admin.AuthEnabled() {
		tokenService, err = services.NewAdminTokenService(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer, cfg.Admin.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize admin token service: %w", err)
		}
	} else {
		log.Println("ADMIN_JWT_SECRET not set: admin routes are unauthenticated")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	var accessLog io.Writer
	if cfg.Logging.EnableAccessLog {
		accessLog = logOut
	}

	appRouter := router.NewFiberRouter(
		router.Handlers{
			Quote:       handlers.NewQuoteHandler(quoteFlow, historyFlow),
			PricingRule: handlers.NewPricingRuleAdminHandler(ruleFlow),
			CacheAdmin:  handlers.NewCacheAdminHandler(cacheAdminFlow),
			Health:      handlers.NewHealthHandler("printshop-pricing", serviceVersion, checks),
		},
		authMiddleware,
		cfg.Server,
		cfg.Metrics,
		accessLog,
	)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}

// seedRules imports the seed rule file when the rule table is empty
func seedRules(ruleRepo repository.PricingRuleRepository, ruleFlow businessflow.PricingRuleFlow, path string) error {
	if path == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exists, err := ruleRepo.Exists(ctx, models.PricingRuleFilter{})
	if err != nil {
		return fmt.Errorf("failed to check pricing rules: %w", err)
	}
	if exists {
		log.Printf("Pricing rules already present, skipping seed file %s", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed rules file: %w", err)
	}

	res, err := ruleFlow.ImportRules(ctx, data, filepath.Ext(path), false)
	if err != nil {
		if problems := businessflow.ValidationErrors(err); len(problems) > 0 {
			for _, p := range problems {
				log.Printf("seed rules: %s", p)
			}
		}
		return fmt.Errorf("failed to import seed rules: %w", err)
	}

	log.Printf("Seeded %d pricing rules from %s (version %d)", res.Imported, path, res.Version)
	return nil
}
